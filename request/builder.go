// Package request builds and executes confidential-client token requests:
// a chainable builder over a shared internal executor, with opt-in
// proof-of-possession and mutual-TLS channel binding.
package request

import (
	"context"
	"crypto/tls"

	"github.com/goliatone/go-confidential/core"
	"github.com/goliatone/go-confidential/grant"
)

// Builder configures one token request for a confidential client
// application. Chainable setters record deferred errors; Execute surfaces
// them. A builder is single-owner and not safe for concurrent use.
type Builder struct {
	app      *core.App
	executor grant.Executor
	scopes   []string

	pop           *core.PopConfig
	mtls          *tls.Certificate
	options       core.RequestOptions
	storePolicy   grant.StorePolicy
	correlationID string

	deferredErr error
}

// NewBuilder rejects runtimes that cannot keep a client credential private;
// only confidential-capable hosts may build token requests.
func NewBuilder(app *core.App, executor grant.Executor, scopes []string) (*Builder, error) {
	if app == nil {
		return nil, core.NewConfigurationError("request: application context is required")
	}
	if executor == nil {
		return nil, core.NewConfigurationError("request: executor is required")
	}
	if runtime := app.Runtime(); runtime != nil && !runtime.ConfidentialClientSupported() {
		return nil, core.NewConfigurationError("request: confidential client flows are not supported on this runtime")
	}
	return &Builder{
		app:      app,
		executor: executor,
		scopes:   append([]string(nil), scopes...),
	}, nil
}

// WithProofOfPossession installs the PoP authentication scheme. It requires
// the experimental-features flag and a non-nil configuration; violations
// are recorded and surfaced by Execute so the builder stays chainable.
func (b *Builder) WithProofOfPossession(cfg *core.PopConfig) *Builder {
	if b.deferredErr != nil {
		return b
	}
	if !b.app.ExperimentalFeaturesEnabled() {
		b.deferredErr = core.NewConfigurationError("request: proof-of-possession requires the experimental features flag")
		return b
	}
	if cfg == nil {
		b.deferredErr = core.NewArgumentError("request: proof-of-possession configuration is required")
		return b
	}
	b.pop = cfg
	return b
}

// WithMtlsCertificate attaches a client certificate used only for the
// token-endpoint exchange, not the whole session.
func (b *Builder) WithMtlsCertificate(certificate tls.Certificate) *Builder {
	b.mtls = &certificate
	return b
}

func (b *Builder) WithClaims(claims string) *Builder {
	b.options.Claims = claims
	return b
}

func (b *Builder) WithTenantID(tenantID string) *Builder {
	b.options.TenantID = tenantID
	return b
}

func (b *Builder) WithExtraBodyParameters(parameters map[string]string) *Builder {
	if len(parameters) == 0 {
		return b
	}
	if b.options.ExtraBodyParameters == nil {
		b.options.ExtraBodyParameters = map[string]string{}
	}
	for key, value := range parameters {
		b.options.ExtraBodyParameters[key] = value
	}
	return b
}

func (b *Builder) WithStorePolicy(policy grant.StorePolicy) *Builder {
	b.storePolicy = policy
	return b
}

func (b *Builder) WithCorrelationID(correlationID string) *Builder {
	b.correlationID = correlationID
	return b
}

// Validate fails unless at least one form of client-authentication evidence
// is configured: a client credential, a pre-request hook, or an app-token
// provider.
func (b *Builder) Validate() error {
	if b == nil || b.app == nil {
		return core.NewConfigurationError("request: builder is not configured")
	}
	if b.app.ClientCredential() != nil {
		return nil
	}
	if len(b.app.PreRequestHooks()) > 0 {
		return nil
	}
	if b.app.AppTokenProvider() != nil {
		return nil
	}
	return core.NewConfigurationError("request: confidential client requires a client credential, a pre-request hook, or an app token provider")
}

// Execute re-checks the runtime guard, validates evidence, and delegates to
// the internal executor. Cancellation is cooperative via ctx; in-flight work
// is never forcibly interrupted.
func (b *Builder) Execute(ctx context.Context) (*core.AuthenticationResult, error) {
	if b == nil || b.app == nil || b.executor == nil {
		return nil, core.NewConfigurationError("request: builder is not configured")
	}
	if runtime := b.app.Runtime(); runtime != nil && !runtime.ConfidentialClientSupported() {
		return nil, core.NewConfigurationError("request: confidential client flows are not supported on this runtime")
	}
	if b.deferredErr != nil {
		return nil, b.deferredErr
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b.executor.Run(ctx, grant.RunInput{
		Grant:           grant.ClientCredentialsGrant{},
		Scopes:          b.scopes,
		Options:         b.options,
		Pop:             b.pop,
		MTLSCertificate: b.mtls,
		StoreEligible:   true,
		StorePolicy:     b.storePolicy,
		CorrelationID:   b.correlationID,
	})
}
