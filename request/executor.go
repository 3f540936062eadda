package request

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-confidential/binding"
	"github.com/goliatone/go-confidential/core"
	"github.com/goliatone/go-confidential/grant"
	"github.com/goliatone/go-confidential/transport"
)

const (
	SchemeBearer = "bearer"
	SchemePop    = "pop"
)

// Executor is the internal request pipeline shared by every grant: guard
// re-check, evidence validation, cache read, request assembly, the wire
// exchange, and post-token processing. Cancellation is cooperative; the
// context is consulted between phases and handed to the transport.
type Executor struct {
	app     *core.App
	binding *binding.Service
	tokens  *transport.TokenEndpointClient
}

func NewExecutor(app *core.App, bindingService *binding.Service, tokens *transport.TokenEndpointClient) *Executor {
	executor := &Executor{
		app:     app,
		binding: bindingService,
		tokens:  tokens,
	}
	if executor.tokens == nil && app != nil {
		executor.tokens = transport.NewTokenEndpointClient(app.HTTPClient(), app.Config().UserAgent)
	}
	return executor
}

func (e *Executor) Run(ctx context.Context, in grant.RunInput) (*core.AuthenticationResult, error) {
	if e == nil || e.app == nil {
		return nil, core.NewConfigurationError("request: executor is not configured")
	}
	if in.Grant == nil {
		return nil, core.NewArgumentError("request: grant is required")
	}

	startedAt := time.Now().UTC()
	result, err := e.run(ctx, in)
	fields := map[string]any{
		"grant_type": in.Grant.Type(),
		"client_id":  e.app.ClientID(),
	}
	if result != nil {
		fields["scheme"] = result.AuthenticationScheme
		fields["correlation_id"] = result.CorrelationID
	}
	e.app.ObserveOperation(ctx, startedAt, "token_request", err, fields)
	if err != nil {
		return nil, e.app.MapError(err)
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, in grant.RunInput) (*core.AuthenticationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if runtime := e.app.Runtime(); runtime != nil && !runtime.ConfidentialClientSupported() {
		return nil, core.NewConfigurationError("request: confidential client flows are not supported on this runtime")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	scopes := core.NormalizeScopes(in.Scopes)
	correlationID := strings.TrimSpace(in.CorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	scheme := SchemeBearer
	schemeParameters := map[string]string{}
	if in.Pop != nil {
		// The binding certificate is an atomic prerequisite: it is resolved
		// before the outgoing request is constructed.
		key := in.Pop.Key
		if key == nil {
			info, err := e.binding.GetCredentialInfo(ctx)
			if err != nil {
				return nil, err
			}
			key = info.Certificate.Signer
		}
		parameters, err := popSchemeParameters(key)
		if err != nil {
			return nil, err
		}
		scheme = SchemePop
		schemeParameters = parameters
	}

	cacheKey := ClassificationID(e.app.ClientID(), e.app.Authority(), in.Grant.Type(), scopes, scheme)
	if in.Grant.LoadFromCache() {
		if cached, ok := e.readCache(ctx, cacheKey, correlationID); ok {
			return cached, nil
		}
	}

	options, err := e.resolveOptions(in.Options)
	if err != nil {
		return nil, err
	}

	state := grant.NewState(cacheKey, correlationID, scheme, scopes, in.StoreEligible, in.StorePolicy)
	processor := grant.Processor{App: e.app}

	if provider := e.app.AppTokenProvider(); provider != nil {
		response, err := e.provideAppToken(ctx, provider, scopes, options, correlationID)
		if err != nil {
			return nil, err
		}
		return processor.PostTokenRequest(ctx, state, response)
	}

	data, err := e.assembleRequest(ctx, in, scopes, schemeParameters, options, correlationID)
	if err != nil {
		return nil, err
	}

	// Cooperative cancellation point before the wire call.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := e.post(ctx, in, data)
	if err != nil {
		return nil, err
	}
	return processor.PostTokenRequest(ctx, state, response)
}

// Validate requires at least one form of client-authentication evidence: a
// credential, a pre-request hook, or an app-token provider.
func (e *Executor) Validate() error {
	if e == nil || e.app == nil {
		return core.NewConfigurationError("request: executor is not configured")
	}
	if e.app.ClientCredential() != nil {
		return nil
	}
	if len(e.app.PreRequestHooks()) > 0 {
		return nil
	}
	if e.app.AppTokenProvider() != nil {
		return nil
	}
	return core.NewConfigurationError("request: confidential client requires a client credential, a pre-request hook, or an app token provider")
}

func (e *Executor) readCache(ctx context.Context, cacheKey string, correlationID string) (*core.AuthenticationResult, bool) {
	cache := e.app.TokenCache()
	if cache == nil {
		return nil, false
	}
	entry, ok, err := cache.Read(ctx, cacheKey)
	if err != nil {
		e.app.LogDebug(ctx, "token cache read failed", map[string]any{
			"cache_key": cacheKey,
			"error":     err.Error(),
		})
		return nil, false
	}
	if !ok || !entry.Result.ExpiresOn.After(e.app.Now()) {
		return nil, false
	}
	result := core.CloneAuthenticationResult(entry.Result)
	result.CorrelationID = correlationID
	return &result, true
}

func (e *Executor) resolveOptions(perRequest core.RequestOptions) (core.RequestOptions, error) {
	resolver := e.app.OptionsResolver()
	if resolver == nil {
		return perRequest, nil
	}
	configured := core.RequestOptions{
		TenantID: e.app.Config().Authority.TenantID,
	}
	return resolver.Resolve(core.RequestOptions{}, configured, perRequest)
}

func (e *Executor) provideAppToken(
	ctx context.Context,
	provider core.AppTokenProvider,
	scopes []string,
	options core.RequestOptions,
	correlationID string,
) (*core.TokenResponse, error) {
	provided, err := provider(ctx, core.AppTokenProviderParameters{
		ClientID:      e.app.ClientID(),
		Authority:     e.app.Authority().URL,
		TenantID:      options.TenantID,
		Scopes:        scopes,
		Claims:        options.Claims,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(provided.AccessToken) == "" {
		return nil, core.NewConfigurationError("request: app token provider returned an empty token")
	}
	return &core.TokenResponse{
		AccessToken: provided.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   provided.ExpiresInSeconds,
	}, nil
}

func (e *Executor) assembleRequest(
	ctx context.Context,
	in grant.RunInput,
	scopes []string,
	schemeParameters map[string]string,
	options core.RequestOptions,
	correlationID string,
) (*core.TokenRequestData, error) {
	data := core.NewTokenRequestData(e.app.Authority().TokenEndpoint())
	data.BodyParameters["client_id"] = e.app.ClientID()
	if len(scopes) > 0 {
		data.BodyParameters["scope"] = core.JoinScopes(scopes)
	}
	for key, value := range in.Grant.WireParameters() {
		data.BodyParameters[key] = value
	}
	for key, value := range schemeParameters {
		data.BodyParameters[key] = value
	}
	if strings.TrimSpace(options.Claims) != "" {
		data.BodyParameters["claims"] = options.Claims
	}
	for key, value := range options.ExtraBodyParameters {
		if strings.TrimSpace(key) == "" {
			continue
		}
		data.BodyParameters[key] = value
	}

	data.Headers["client-request-id"] = correlationID
	for key, value := range options.ExtraHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		data.Headers[key] = value
	}

	if credential := e.app.ClientCredential(); credential != nil {
		if err := credential.Apply(ctx, data); err != nil {
			return nil, err
		}
	}
	for _, hook := range e.app.PreRequestHooks() {
		if err := hook(ctx, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (e *Executor) post(ctx context.Context, in grant.RunInput, data *core.TokenRequestData) (*core.TokenResponse, error) {
	form := url.Values{}
	for key, value := range data.BodyParameters {
		form.Set(key, value)
	}
	post := transport.PostInput{
		Endpoint: data.Endpoint,
		Form:     form,
		Headers:  data.Headers,
	}
	if in.MTLSCertificate != nil {
		post.Client = transport.NewMTLSDoer(*in.MTLSCertificate, e.app.Config().HTTPTimeout)
	}
	return e.tokens.Post(ctx, post)
}

// ClassificationID is the stable request-classification hash: identical
// logical requests collapse to the same value, which doubles as the default
// cache key.
func ClassificationID(clientID string, authority core.Authority, grantType string, scopes []string, scheme string) string {
	parts := []string{
		strings.TrimSpace(clientID),
		strings.TrimSpace(authority.URL),
		strings.TrimSpace(grantType),
		core.JoinScopes(scopes),
		strings.ToLower(strings.TrimSpace(scheme)),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

var _ grant.Executor = (*Executor)(nil)
