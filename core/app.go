package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// App is the confidential-client application context. It owns the resolved
// configuration and the shared collaborators every request borrows: logger,
// metrics, token cache, transport doer, runtime probe, platform key
// provider, and client-authentication evidence.
type App struct {
	config              Config
	authority           Authority
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	errorFactory        ErrorFactory
	errorMapper         ErrorMapper
	optionsResolver     OptionsResolver
	tokenCache          TokenCache
	httpClient          HTTPDoer
	runtime             RuntimeCapabilities
	platformKeyProvider PlatformKeyProvider
	clientCredential    ClientCredential
	preRequestHooks     []PreRequestHook
	appTokenProvider    AppTokenProvider
	now                 func() time.Time
}

func NewApp(cfg Config, options ...Option) (*App, error) {
	builder := defaultAppBuilder(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve("confidential", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("confidential"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.runtime == nil {
		builder.runtime = HostRuntime{}
	}
	if builder.platformKeyProvider == nil {
		builder.platformKeyProvider = NoPlatformKeyProvider{}
	}
	if builder.tokenCache == nil {
		builder.tokenCache = NewMemoryTokenCache()
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig := mergeConfig(loaded, builder.runtimeConfig)
	if err := finalConfig.Validate(); err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	authority, err := finalConfig.BuildAuthority()
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.httpClient == nil {
		builder.httpClient = &http.Client{Timeout: finalConfig.HTTPTimeout}
	}

	return &App{
		config:              finalConfig,
		authority:           authority,
		logger:              logger,
		loggerProvider:      builder.loggerProvider,
		metricsRecorder:     builder.metricsRecorder,
		errorFactory:        builder.errorFactory,
		errorMapper:         builder.errorMapper,
		optionsResolver:     builder.optionsResolver,
		tokenCache:          builder.tokenCache,
		httpClient:          builder.httpClient,
		runtime:             builder.runtime,
		platformKeyProvider: builder.platformKeyProvider,
		clientCredential:    builder.clientCredential,
		preRequestHooks:     builder.preRequestHooks,
		appTokenProvider:    builder.appTokenProvider,
		now:                 builder.now,
	}, nil
}

func mergeConfig(base Config, override Config) Config {
	merged := base
	if strings.TrimSpace(override.ClientID) != "" {
		merged.ClientID = override.ClientID
	}
	if strings.TrimSpace(override.Authority.URL) != "" {
		merged.Authority.URL = override.Authority.URL
	}
	if strings.TrimSpace(override.Authority.Kind) != "" {
		merged.Authority.Kind = override.Authority.Kind
	}
	if strings.TrimSpace(override.Authority.TenantID) != "" {
		merged.Authority.TenantID = override.Authority.TenantID
	}
	if strings.TrimSpace(override.Authority.TokenEndpoint) != "" {
		merged.Authority.TokenEndpoint = override.Authority.TokenEndpoint
	}
	if override.ExperimentalFeatures {
		merged.ExperimentalFeatures = true
	}
	if override.HTTPTimeout > 0 {
		merged.HTTPTimeout = override.HTTPTimeout
	}
	if strings.TrimSpace(override.UserAgent) != "" {
		merged.UserAgent = override.UserAgent
	}
	return merged
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return defaultErrorMapper(err)
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (a *App) Config() Config { return a.config }

func (a *App) Authority() Authority { return a.authority }

func (a *App) ClientID() string { return a.config.ClientID }

func (a *App) ExperimentalFeaturesEnabled() bool { return a.config.ExperimentalFeatures }

func (a *App) Logger() Logger { return a.logger }

func (a *App) Metrics() MetricsRecorder { return a.metricsRecorder }

func (a *App) TokenCache() TokenCache { return a.tokenCache }

func (a *App) HTTPClient() HTTPDoer { return a.httpClient }

func (a *App) Runtime() RuntimeCapabilities { return a.runtime }

func (a *App) PlatformKeyProvider() PlatformKeyProvider { return a.platformKeyProvider }

func (a *App) ClientCredential() ClientCredential { return a.clientCredential }

func (a *App) PreRequestHooks() []PreRequestHook {
	return append([]PreRequestHook(nil), a.preRequestHooks...)
}

func (a *App) AppTokenProvider() AppTokenProvider { return a.appTokenProvider }

func (a *App) OptionsResolver() OptionsResolver { return a.optionsResolver }

func (a *App) MapError(err error) error { return mapBuildError(a.errorMapper, err) }

func (a *App) Now() time.Time {
	if a == nil || a.now == nil {
		return time.Now().UTC()
	}
	return a.now()
}
