// Package grant implements the OAuth2 grants this library can redeem and
// the shared post-token processing: identity extraction, server-scope
// overwrite, and the cache-store eligibility rule.
package grant

import (
	"context"
	"crypto/tls"

	"github.com/goliatone/go-confidential/core"
)

// Grant describes one token-endpoint grant: its wire name, its extra form
// parameters, and whether a run may be satisfied from the token cache.
type Grant interface {
	Type() string
	WireParameters() map[string]string
	LoadFromCache() bool
}

// StorePolicy can veto caching a result the scope rule would otherwise
// allow. A nil policy always allows.
type StorePolicy func(ctx context.Context, result *core.AuthenticationResult) bool

// RunInput carries everything the shared executor needs for one request.
type RunInput struct {
	Grant           Grant
	Scopes          []string
	Options         core.RequestOptions
	Pop             *core.PopConfig
	MTLSCertificate *tls.Certificate
	StoreEligible   bool
	StorePolicy     StorePolicy
	CorrelationID   string
}

// Executor is the internal request pipeline; the request package provides
// the implementation.
type Executor interface {
	Run(ctx context.Context, in RunInput) (*core.AuthenticationResult, error)
}
