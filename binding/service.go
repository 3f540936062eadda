// Package binding creates and caches the process-wide credential-binding
// certificate used to prove possession of a key in proof-of-possession,
// managed-identity, and mutual-TLS token requests.
package binding

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-confidential/core"
)

// CredentialInfo is the cached binding credential: the certificate plus the
// key path it was created from.
type CredentialInfo struct {
	Certificate *BoundCertificate
	KeyKind     core.KeyKind
}

// Service owns the single binding certificate for the process. The whole
// accessor runs under one mutex, so under N-way contention exactly one
// certificate is ever generated and every caller observes the same instance.
// A failed generation leaves the cache empty; a later call starts afresh.
type Service struct {
	app      *core.App
	provider core.PlatformKeyProvider
	now      func() time.Time

	mu       sync.Mutex
	material *core.KeyMaterial
	info     *CredentialInfo
}

type ServiceOption func(*Service)

func WithKeyProvider(provider core.PlatformKeyProvider) ServiceOption {
	return func(s *Service) {
		if provider != nil {
			s.provider = provider
		}
	}
}

func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(app *core.App, options ...ServiceOption) *Service {
	service := &Service{
		app: app,
		now: func() time.Time { return time.Now().UTC() },
	}
	if app != nil {
		service.provider = app.PlatformKeyProvider()
		service.now = func() time.Time { return app.Now() }
	}
	if service.provider == nil {
		service.provider = core.NoPlatformKeyProvider{}
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service
}

// GetCredentialInfo returns the process binding credential, creating it on
// first call. Generation is synchronous and ignores ctx cancellation: the
// context is used for logging and metrics only.
func (s *Service) GetCredentialInfo(ctx context.Context) (*CredentialInfo, error) {
	if s == nil {
		return nil, core.NewConfigurationError("binding: service is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info != nil {
		return s.info, nil
	}

	startedAt := time.Now().UTC()
	material, err := s.keyMaterial()
	if err != nil {
		s.app.LogError(ctx, "binding key material resolution failed", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	info, err := s.createCredential(material)
	s.app.ObserveOperation(ctx, startedAt, "certificate_generation", err, map[string]any{
		"key_kind": string(material.Kind),
	})
	if err != nil {
		return nil, err
	}

	s.info = info
	return s.info, nil
}

// keyMaterial resolves the key path once per process; the decision sticks
// even when later generations fail.
func (s *Service) keyMaterial() (core.KeyMaterial, error) {
	if s.material != nil {
		return *s.material, nil
	}
	material, err := s.provider.Resolve()
	if err != nil {
		return core.KeyMaterial{}, core.NewCryptographicError(err, "binding: resolve key material")
	}
	if material.Kind == core.KeyKindPlatformEC && material.PlatformKey == nil {
		return core.KeyMaterial{}, core.NewCryptographicError(nil, "binding: key material reports a platform key without a handle")
	}
	s.material = &material
	return material, nil
}

func (s *Service) createCredential(material core.KeyMaterial) (*CredentialInfo, error) {
	notBefore := s.now()

	var certificate *BoundCertificate
	var err error
	switch material.Kind {
	case core.KeyKindPlatformEC:
		certificate, err = createEllipticCurveCertificate(material.PlatformKey, notBefore)
	default:
		certificate, err = createRSACertificate(notBefore)
	}
	if err != nil {
		return nil, err
	}

	return &CredentialInfo{
		Certificate: certificate,
		KeyKind:     material.Kind,
	}, nil
}
