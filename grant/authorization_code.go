package grant

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-confidential/core"
)

const TypeAuthorizationCode = "authorization_code"

// AuthorizationCodeHandler redeems a one-time authorization code at the
// token endpoint. It is single-owner: one handler drives one request.
type AuthorizationCodeHandler struct {
	app      *core.App
	executor Executor
	scopes   []string
	code     string
	// redirectURI is kept as the original string; the wire value must not
	// be re-encoded or otherwise normalized.
	redirectURI string
	storePolicy StorePolicy
	options     core.RequestOptions

	// Forced on construction: a code redemption always goes to the wire,
	// and ADFS-specific request shaping stays off.
	loadFromCache bool
	supportADFS   bool
}

type AuthorizationCodeParams struct {
	App         *core.App
	Executor    Executor
	Scopes      []string
	Code        string
	RedirectURI *url.URL
	StorePolicy StorePolicy
	Options     core.RequestOptions
}

// NewAuthorizationCodeHandler validates its arguments before any network
// activity: a missing code or redirect URI is an argument error raised here.
func NewAuthorizationCodeHandler(params AuthorizationCodeParams) (*AuthorizationCodeHandler, error) {
	if params.App == nil {
		return nil, core.NewConfigurationError("grant: application context is required")
	}
	if params.Executor == nil {
		return nil, core.NewConfigurationError("grant: request executor is required")
	}
	if strings.TrimSpace(params.Code) == "" {
		return nil, core.NewArgumentError("grant: authorization code is required")
	}
	if params.RedirectURI == nil {
		return nil, core.NewArgumentError("grant: redirect uri is required")
	}

	return &AuthorizationCodeHandler{
		app:           params.App,
		executor:      params.Executor,
		scopes:        append([]string(nil), params.Scopes...),
		code:          params.Code,
		redirectURI:   params.RedirectURI.String(),
		storePolicy:   params.StorePolicy,
		options:       params.Options,
		loadFromCache: false,
		supportADFS:   false,
	}, nil
}

func (*AuthorizationCodeHandler) Type() string { return TypeAuthorizationCode }

func (h *AuthorizationCodeHandler) WireParameters() map[string]string {
	return map[string]string{
		"grant_type":   TypeAuthorizationCode,
		"code":         h.code,
		"redirect_uri": h.redirectURI,
	}
}

func (h *AuthorizationCodeHandler) LoadFromCache() bool { return h.loadFromCache }

func (h *AuthorizationCodeHandler) RedirectURI() string { return h.redirectURI }

func (h *AuthorizationCodeHandler) Run(ctx context.Context) (*core.AuthenticationResult, error) {
	if h == nil {
		return nil, core.NewConfigurationError("grant: authorization code handler is not configured")
	}
	return h.executor.Run(ctx, RunInput{
		Grant:         h,
		Scopes:        h.scopes,
		Options:       h.options,
		StoreEligible: true,
		StorePolicy:   h.storePolicy,
	})
}

var _ Grant = (*AuthorizationCodeHandler)(nil)
