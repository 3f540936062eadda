package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// RequestOptions are the effective per-request knobs layered from defaults,
// application config, and per-request overrides.
type RequestOptions struct {
	TenantID            string            `koanf:"tenant_id" mapstructure:"tenant_id"`
	Claims              string            `koanf:"claims" mapstructure:"claims"`
	ExtraBodyParameters map[string]string `koanf:"extra_body_parameters" mapstructure:"extra_body_parameters"`
	ExtraHeaders        map[string]string `koanf:"extra_headers" mapstructure:"extra_headers"`
}

func (o RequestOptions) Validate() error { return nil }

type OptionsResolver interface {
	Resolve(defaults RequestOptions, configured RequestOptions, perRequest RequestOptions) (RequestOptions, error)
}

type appBuilder struct {
	runtimeConfig       Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	errorFactory        ErrorFactory
	errorMapper         ErrorMapper
	configProvider      ConfigProvider
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

type Option func(*appBuilder)

func WithLogger(logger Logger) Option {
	return func(b *appBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *appBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *appBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *appBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *appBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *appBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *appBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTokenCache(cache TokenCache) Option {
	return func(b *appBuilder) {
		b.tokenCache = cache
	}
}

func WithHTTPClient(client HTTPDoer) Option {
	return func(b *appBuilder) {
		b.httpClient = client
	}
}

func WithRuntimeCapabilities(runtime RuntimeCapabilities) Option {
	return func(b *appBuilder) {
		b.runtime = runtime
	}
}

func WithPlatformKeyProvider(provider PlatformKeyProvider) Option {
	return func(b *appBuilder) {
		b.platformKeyProvider = provider
	}
}

func WithClientCredential(credential ClientCredential) Option {
	return func(b *appBuilder) {
		b.clientCredential = credential
	}
}

func WithPreRequestHook(hook PreRequestHook) Option {
	return func(b *appBuilder) {
		if hook == nil {
			return
		}
		b.preRequestHooks = append(b.preRequestHooks, hook)
	}
}

func WithAppTokenProvider(provider AppTokenProvider) Option {
	return func(b *appBuilder) {
		b.appTokenProvider = provider
	}
}

func WithNow(now func() time.Time) Option {
	return func(b *appBuilder) {
		b.now = now
	}
}

func defaultAppBuilder(runtime Config) appBuilder {
	loggerProvider, logger := glog.Resolve("confidential", nil, nil)
	return appBuilder{
		runtimeConfig:       runtime,
		loggerProvider:      loggerProvider,
		logger:              logger,
		metricsRecorder:     NopMetricsRecorder{},
		errorFactory:        goerrors.New,
		errorMapper:         defaultErrorMapper,
		configProvider:      NewCfgxConfigProvider(nil),
		optionsResolver:     GoOptionsResolver{},
		runtime:             HostRuntime{},
		platformKeyProvider: NoPlatformKeyProvider{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return confidentialErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults RequestOptions, configured RequestOptions, perRequest RequestOptions) (RequestOptions, error) {
	defaultLayer := requestOptionsToLayerMap(defaults, true)
	configuredLayer := requestOptionsToLayerMap(configured, false)
	perRequestLayer := requestOptionsToLayerMap(perRequest, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configuredLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("request", 20),
			perRequestLayer,
			opts.WithSnapshotID[map[string]any]("request"),
		),
	)
	if err != nil {
		return RequestOptions{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return RequestOptions{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[RequestOptions](merged.Value,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return RequestOptions{}, err
	}
	return resolved, nil
}

func requestOptionsToLayerMap(options RequestOptions, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(options.TenantID) != "" {
		layer["tenant_id"] = options.TenantID
	}
	if includeZero || strings.TrimSpace(options.Claims) != "" {
		layer["claims"] = options.Claims
	}
	if includeZero || len(options.ExtraBodyParameters) > 0 {
		layer["extra_body_parameters"] = copyStringMap(options.ExtraBodyParameters)
	}
	if includeZero || len(options.ExtraHeaders) > 0 {
		layer["extra_headers"] = copyStringMap(options.ExtraHeaders)
	}
	return layer
}
