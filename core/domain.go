package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type AuthorityKind string

const (
	AuthorityKindAAD  AuthorityKind = "aad"
	AuthorityKindADFS AuthorityKind = "adfs"
)

// Authority is accepted as configured; instance discovery and validation are
// external collaborators.
type Authority struct {
	URL           string
	Kind          AuthorityKind
	TenantID      string
	tokenEndpoint string
}

func NewAuthority(rawURL string, kind AuthorityKind, tenantID string, tokenEndpoint string) (Authority, error) {
	authority := Authority{
		URL:           strings.TrimRight(strings.TrimSpace(rawURL), "/"),
		Kind:          kind,
		TenantID:      strings.TrimSpace(tenantID),
		tokenEndpoint: strings.TrimSpace(tokenEndpoint),
	}
	if err := authority.Validate(); err != nil {
		return Authority{}, err
	}
	return authority, nil
}

func (a Authority) Validate() error {
	if strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("core: authority url is required")
	}
	parsed, err := url.Parse(a.URL)
	if err != nil {
		return fmt.Errorf("core: authority url is invalid: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("core: authority url requires a host")
	}
	switch a.Kind {
	case AuthorityKindAAD, AuthorityKindADFS:
	default:
		return fmt.Errorf("core: authority kind %q is not supported", a.Kind)
	}
	return nil
}

func (a Authority) TokenEndpoint() string {
	if a.tokenEndpoint != "" {
		return a.tokenEndpoint
	}
	base := strings.TrimRight(a.URL, "/")
	if a.Kind == AuthorityKindADFS {
		return base + "/oauth2/token"
	}
	return base + "/oauth2/v2.0/token"
}

func (a Authority) Host() string {
	parsed, err := url.Parse(a.URL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// Account is the user identity extracted from a token response. The zero
// value means no user: client-credential-only flows legitimately carry none.
type Account struct {
	HomeAccountID string
	Username      string
	Environment   string
}

func (a Account) IsZero() bool {
	return a.HomeAccountID == "" && a.Username == "" && a.Environment == ""
}

type ScopeSource string

const (
	ScopeSourceRequest  ScopeSource = "request"
	ScopeSourceResponse ScopeSource = "response"
)

type AuthenticationResult struct {
	AccessToken          string
	TokenType            string
	ExpiresOn            time.Time
	GrantedScopes        []string
	DeclinedScopes       []string
	ScopeSource          ScopeSource
	Account              Account
	IDToken              string
	CorrelationID        string
	AuthenticationScheme string
	Metadata             map[string]any
}

func CloneAuthenticationResult(result AuthenticationResult) AuthenticationResult {
	cloned := result
	cloned.GrantedScopes = append([]string(nil), result.GrantedScopes...)
	cloned.DeclinedScopes = append([]string(nil), result.DeclinedScopes...)
	cloned.Metadata = copyAnyMap(result.Metadata)
	return cloned
}

// TokenResponse is the wire shape of a token-endpoint success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExtExpiresIn int64  `json:"ext_expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ClientInfo   string `json:"client_info,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenRequestData is the mutable request view handed to credentials and
// pre-request hooks before the exchange goes to the wire.
type TokenRequestData struct {
	Endpoint       string
	BodyParameters map[string]string
	Headers        map[string]string
}

func NewTokenRequestData(endpoint string) *TokenRequestData {
	return &TokenRequestData{
		Endpoint:       strings.TrimSpace(endpoint),
		BodyParameters: map[string]string{},
		Headers:        map[string]string{},
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
