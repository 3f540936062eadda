// Package confidential is the public facade over the confidential-client
// library: credential binding, confidential token requests, and the
// authorization-code grant.
package confidential

import (
	"context"
	"net/url"

	"github.com/goliatone/go-confidential/binding"
	"github.com/goliatone/go-confidential/core"
	"github.com/goliatone/go-confidential/grant"
	"github.com/goliatone/go-confidential/request"
	"github.com/goliatone/go-confidential/transport"
)

type Config = core.Config

type AuthorityConfig = core.AuthorityConfig

type Option = core.Option

type Authority = core.Authority

type Account = core.Account

type AuthenticationResult = core.AuthenticationResult

type TokenCache = core.TokenCache

type CacheEntry = core.CacheEntry

type Logger = core.Logger

type MetricsRecorder = core.MetricsRecorder

type HTTPDoer = core.HTTPDoer

type RuntimeCapabilities = core.RuntimeCapabilities

type ClientCredential = core.ClientCredential

type PreRequestHook = core.PreRequestHook

type AppTokenProvider = core.AppTokenProvider

type PlatformKeyProvider = core.PlatformKeyProvider

type PopConfig = core.PopConfig

type RequestOptions = core.RequestOptions

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithTokenCache          = core.WithTokenCache
	WithHTTPClient          = core.WithHTTPClient
	WithRuntimeCapabilities = core.WithRuntimeCapabilities
	WithPlatformKeyProvider = core.WithPlatformKeyProvider
	WithClientCredential    = core.WithClientCredential
	WithPreRequestHook      = core.WithPreRequestHook
	WithAppTokenProvider    = core.WithAppTokenProvider
	WithNow                 = core.WithNow
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// App is a confidential client application: the resolved context plus the
// binding service and the shared request executor wired over it.
type App struct {
	core     *core.App
	binding  *binding.Service
	executor *request.Executor
}

func New(cfg Config, opts ...Option) (*App, error) {
	appContext, err := core.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	bindingService := binding.NewService(appContext)
	tokens := transport.NewTokenEndpointClient(appContext.HTTPClient(), appContext.Config().UserAgent)
	return &App{
		core:     appContext,
		binding:  bindingService,
		executor: request.NewExecutor(appContext, bindingService, tokens),
	}, nil
}

func (a *App) Core() *core.App { return a.core }

func (a *App) Binding() *binding.Service { return a.binding }

// AcquireTokenForClient builds a client-credentials token request for the
// given scopes.
func (a *App) AcquireTokenForClient(scopes ...string) (*request.Builder, error) {
	if a == nil {
		return nil, core.NewConfigurationError("confidential: application is not configured")
	}
	return request.NewBuilder(a.core, a.executor, scopes)
}

// AcquireTokenByAuthorizationCode builds the handler that redeems an
// authorization code. Argument validation happens here, before any network
// activity.
func (a *App) AcquireTokenByAuthorizationCode(scopes []string, code string, redirectURI *url.URL) (*grant.AuthorizationCodeHandler, error) {
	if a == nil {
		return nil, core.NewConfigurationError("confidential: application is not configured")
	}
	return grant.NewAuthorizationCodeHandler(grant.AuthorizationCodeParams{
		App:         a.core,
		Executor:    a.executor,
		Scopes:      scopes,
		Code:        code,
		RedirectURI: redirectURI,
	})
}

// BindingCredentialPayload resolves the process binding certificate and
// renders it into the provider-specific credential document.
func (a *App) BindingCredentialPayload(ctx context.Context) ([]byte, error) {
	if a == nil || a.binding == nil {
		return nil, core.NewConfigurationError("confidential: application is not configured")
	}
	info, err := a.binding.GetCredentialInfo(ctx)
	if err != nil {
		return nil, err
	}
	return binding.CredentialPayload(info.Certificate)
}
