package core

import (
	"context"
	"crypto"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RuntimeCapabilities reports whether the hosting runtime can keep a client
// credential private. Mobile and other public-client hosts report false and
// are rejected before any request is built.
type RuntimeCapabilities interface {
	ConfidentialClientSupported() bool
}

type HostRuntime struct{}

func (HostRuntime) ConfidentialClientSupported() bool { return true }

// ClientCredential is one piece of client-authentication evidence. Apply
// contributes form values (client_secret, client_assertion, ...) to the
// outgoing token request.
type ClientCredential interface {
	Kind() string
	Apply(ctx context.Context, req *TokenRequestData) error
}

// PreRequestHook can mutate the token request before it is sent. Hooks count
// as client-authentication evidence: a caller may sign the request out of
// band instead of configuring a credential.
type PreRequestHook func(ctx context.Context, req *TokenRequestData) error

type AppTokenProviderParameters struct {
	ClientID      string
	Authority     string
	TenantID      string
	Scopes        []string
	Claims        string
	CorrelationID string
}

type AppTokenProviderResult struct {
	AccessToken      string
	ExpiresInSeconds int64
	RefreshInSeconds int64
}

// AppTokenProvider mints app tokens out of band, bypassing the token
// endpoint entirely when configured.
type AppTokenProvider func(ctx context.Context, params AppTokenProviderParameters) (AppTokenProviderResult, error)

// PlatformKey is a handle into a platform key container. Private-key
// operations stay behind the interface; the key material itself is never
// exportable.
type PlatformKey interface {
	crypto.Signer
	UniqueID() string
}

type KeyKind string

const (
	KeyKindPlatformEC KeyKind = "platform_ec"
	KeyKindNone       KeyKind = "none"
)

// KeyMaterial describes which signing key is available to the process.
// Exactly one path is selected at construction: a platform elliptic-curve
// handle, or none, which sends certificate creation down the RSA fallback.
type KeyMaterial struct {
	Kind        KeyKind
	PlatformKey PlatformKey
}

type PlatformKeyProvider interface {
	Resolve() (KeyMaterial, error)
}

// NoPlatformKeyProvider always reports that no platform key is available.
type NoPlatformKeyProvider struct{}

func (NoPlatformKeyProvider) Resolve() (KeyMaterial, error) {
	return KeyMaterial{Kind: KeyKindNone}, nil
}

// PopConfig configures the proof-of-possession scheme. When Key is nil the
// executor falls back to the process binding certificate's key.
type PopConfig struct {
	Key crypto.Signer
}

type CacheEntry struct {
	Key      string
	Result   AuthenticationResult
	Scopes   []string
	StoredAt time.Time
}

// TokenCache is the external token-cache seam. This library supplies only
// the store decision and the final scope value; storage and serialization
// live elsewhere.
type TokenCache interface {
	Read(ctx context.Context, key string) (CacheEntry, bool, error)
	Write(ctx context.Context, entry CacheEntry) error
}
