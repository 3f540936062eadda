package grant

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-confidential/core"
)

// State is the per-request bookkeeping the processor mutates: the tracked
// scope set, where it came from, and whether the result may still be stored.
type State struct {
	CacheKey        string
	CorrelationID   string
	Scheme          string
	RequestedScopes []string
	TrackedScopes   []string
	ScopeSource     core.ScopeSource
	StoreToCache    bool
	StorePolicy     StorePolicy
}

func NewState(cacheKey string, correlationID string, scheme string, requestedScopes []string, storeEligible bool, policy StorePolicy) *State {
	normalized := core.NormalizeScopes(requestedScopes)
	return &State{
		CacheKey:        cacheKey,
		CorrelationID:   correlationID,
		Scheme:          scheme,
		RequestedScopes: normalized,
		TrackedScopes:   append([]string(nil), normalized...),
		ScopeSource:     core.ScopeSourceRequest,
		StoreToCache:    storeEligible,
		StorePolicy:     policy,
	}
}

// Processor is the shared post-token machinery used by every grant.
type Processor struct {
	App *core.App
}

// PostTokenRequest turns a wire response into an AuthenticationResult and
// applies the scope rules:
//
// A response-carried scope overwrites the tracked set outright, because the
// server is authoritative for what was actually granted. A result is stored
// only when it was already eligible and the tracked set is non-empty after
// that overwrite; scope is part of the cache key, and an empty scope would
// corrupt future lookups.
func (p Processor) PostTokenRequest(ctx context.Context, state *State, response *core.TokenResponse) (*core.AuthenticationResult, error) {
	if state == nil {
		return nil, core.NewConfigurationError("grant: post-token state is required")
	}
	if response == nil {
		return nil, core.NewProtocolError("grant: token response is required", 0, nil)
	}

	now := time.Now().UTC()
	if p.App != nil {
		now = p.App.Now()
	}

	if responseScope := strings.TrimSpace(response.Scope); responseScope != "" {
		state.TrackedScopes = core.ScopesFromString(responseScope)
		state.ScopeSource = core.ScopeSourceResponse
	}

	result := &core.AuthenticationResult{
		AccessToken:          response.AccessToken,
		TokenType:            tokenType(response, state.Scheme),
		ExpiresOn:            now.Add(time.Duration(response.ExpiresIn) * time.Second),
		GrantedScopes:        append([]string(nil), state.TrackedScopes...),
		ScopeSource:          state.ScopeSource,
		Account:              extractAccount(response, p.authorityHost()),
		IDToken:              response.IDToken,
		CorrelationID:        state.CorrelationID,
		AuthenticationScheme: state.Scheme,
	}

	state.StoreToCache = state.StoreToCache && len(state.TrackedScopes) > 0
	if state.StoreToCache && state.StorePolicy != nil {
		state.StoreToCache = state.StorePolicy(ctx, result)
	}
	if state.StoreToCache {
		p.storeResult(ctx, state, result, now)
	}

	return result, nil
}

// storeResult is best-effort bookkeeping: a cache failure never fails the
// acquisition.
func (p Processor) storeResult(ctx context.Context, state *State, result *core.AuthenticationResult, now time.Time) {
	if p.App == nil || p.App.TokenCache() == nil {
		return
	}
	err := p.App.TokenCache().Write(ctx, core.CacheEntry{
		Key:      state.CacheKey,
		Result:   core.CloneAuthenticationResult(*result),
		Scopes:   append([]string(nil), state.TrackedScopes...),
		StoredAt: now,
	})
	if err != nil {
		p.App.LogError(ctx, "token cache write failed", map[string]any{
			"cache_key":      state.CacheKey,
			"correlation_id": state.CorrelationID,
			"error":          err.Error(),
		})
	}
}

func (p Processor) authorityHost() string {
	if p.App == nil {
		return ""
	}
	return p.App.Authority().Host()
}

func tokenType(response *core.TokenResponse, scheme string) string {
	if value := strings.TrimSpace(response.TokenType); value != "" {
		return value
	}
	if strings.EqualFold(scheme, "pop") {
		return "pop"
	}
	return "Bearer"
}
