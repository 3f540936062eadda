package grant

import (
	"context"
	"net/url"
	"testing"

	"github.com/goliatone/go-confidential/core"
)

type recordingExecutor struct {
	runs    []RunInput
	result  *core.AuthenticationResult
	err     error
}

func (e *recordingExecutor) Run(_ context.Context, in RunInput) (*core.AuthenticationResult, error) {
	e.runs = append(e.runs, in)
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &core.AuthenticationResult{AccessToken: "token-1"}, nil
}

func grantTestApp(t *testing.T) *core.App {
	t.Helper()
	app, err := core.NewApp(core.Config{
		ClientID: "client-1",
		Authority: core.AuthorityConfig{
			URL:      "https://login.example.com/tenant-1",
			Kind:     string(core.AuthorityKindAAD),
			TenantID: "tenant-1",
		},
	})
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return parsed
}

func TestNewAuthorizationCodeHandler_EmptyCode(t *testing.T) {
	executor := &recordingExecutor{}
	_, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		App:         grantTestApp(t),
		Executor:    executor,
		Code:        "   ",
		RedirectURI: mustParseURL(t, "https://app.example.com/callback"),
	})
	if err == nil {
		t.Fatalf("expected error for empty code")
	}
	if !core.IsArgumentError(err) {
		t.Fatalf("expected argument error, got %v", err)
	}
	if len(executor.runs) != 0 {
		t.Fatalf("argument validation must reject before any request runs")
	}
}

func TestNewAuthorizationCodeHandler_NilRedirect(t *testing.T) {
	executor := &recordingExecutor{}
	_, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		App:      grantTestApp(t),
		Executor: executor,
		Code:     "auth-code-1",
	})
	if err == nil {
		t.Fatalf("expected error for nil redirect uri")
	}
	if !core.IsArgumentError(err) {
		t.Fatalf("expected argument error, got %v", err)
	}
	if len(executor.runs) != 0 {
		t.Fatalf("argument validation must reject before any request runs")
	}
}

func TestNewAuthorizationCodeHandler_MissingCollaborators(t *testing.T) {
	redirect := mustParseURL(t, "https://app.example.com/callback")
	if _, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		Executor:    &recordingExecutor{},
		Code:        "auth-code-1",
		RedirectURI: redirect,
	}); err == nil || !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for missing app, got %v", err)
	}
	if _, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		App:         grantTestApp(t),
		Code:        "auth-code-1",
		RedirectURI: redirect,
	}); err == nil || !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for missing executor, got %v", err)
	}
}

func TestAuthorizationCodeHandler_WireParameters(t *testing.T) {
	redirect := mustParseURL(t, "https://app.example.com/callback?state=abc%20def")
	handler, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		App:         grantTestApp(t),
		Executor:    &recordingExecutor{},
		Code:        "auth-code-1",
		RedirectURI: redirect,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := handler.WireParameters()
	if len(params) != 3 {
		t.Fatalf("expected exactly three wire parameters, got %v", params)
	}
	if params["grant_type"] != TypeAuthorizationCode {
		t.Fatalf("unexpected grant_type: %q", params["grant_type"])
	}
	if params["code"] != "auth-code-1" {
		t.Fatalf("unexpected code: %q", params["code"])
	}
	if params["redirect_uri"] != redirect.String() {
		t.Fatalf("redirect uri must pass through unmodified: %q", params["redirect_uri"])
	}
}

func TestAuthorizationCodeHandler_ForcedFlags(t *testing.T) {
	handler, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		App:         grantTestApp(t),
		Executor:    &recordingExecutor{},
		Code:        "auth-code-1",
		RedirectURI: mustParseURL(t, "https://app.example.com/callback"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handler.LoadFromCache() {
		t.Fatalf("a code redemption must always go to the wire")
	}
	if handler.supportADFS {
		t.Fatalf("adfs shaping must stay off")
	}
}

func TestAuthorizationCodeHandler_RunDelegates(t *testing.T) {
	executor := &recordingExecutor{}
	handler, err := NewAuthorizationCodeHandler(AuthorizationCodeParams{
		App:         grantTestApp(t),
		Executor:    executor,
		Scopes:      []string{"User.Read"},
		Code:        "auth-code-1",
		RedirectURI: mustParseURL(t, "https://app.example.com/callback"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := handler.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccessToken != "token-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(executor.runs) != 1 {
		t.Fatalf("expected one run, got %d", len(executor.runs))
	}
	run := executor.runs[0]
	if run.Grant != Grant(handler) {
		t.Fatalf("expected the handler to be its own grant")
	}
	if !run.StoreEligible {
		t.Fatalf("code redemptions are store eligible")
	}
	if len(run.Scopes) != 1 || run.Scopes[0] != "User.Read" {
		t.Fatalf("unexpected scopes: %v", run.Scopes)
	}
}
