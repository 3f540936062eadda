package core

import (
	"context"
	"testing"
)

func TestGoOptionsResolver_PerRequestWins(t *testing.T) {
	resolver := GoOptionsResolver{}
	resolved, err := resolver.Resolve(
		RequestOptions{TenantID: "default-tenant"},
		RequestOptions{TenantID: "configured-tenant", Claims: "configured-claims"},
		RequestOptions{TenantID: "request-tenant"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.TenantID != "request-tenant" {
		t.Fatalf("expected per-request tenant to win, got %q", resolved.TenantID)
	}
	if resolved.Claims != "configured-claims" {
		t.Fatalf("expected configured claims to survive, got %q", resolved.Claims)
	}
}

func TestGoOptionsResolver_ConfiguredOverDefaults(t *testing.T) {
	resolver := GoOptionsResolver{}
	resolved, err := resolver.Resolve(
		RequestOptions{TenantID: "default-tenant", Claims: "default-claims"},
		RequestOptions{TenantID: "configured-tenant"},
		RequestOptions{},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.TenantID != "configured-tenant" {
		t.Fatalf("expected configured tenant to win, got %q", resolved.TenantID)
	}
	if resolved.Claims != "default-claims" {
		t.Fatalf("expected default claims to survive, got %q", resolved.Claims)
	}
}

func TestGoOptionsResolver_ExtraParameters(t *testing.T) {
	resolver := GoOptionsResolver{}
	resolved, err := resolver.Resolve(
		RequestOptions{},
		RequestOptions{ExtraBodyParameters: map[string]string{"slice": "configured"}},
		RequestOptions{ExtraBodyParameters: map[string]string{"slice": "request", "channel": "beta"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.ExtraBodyParameters["slice"] != "request" {
		t.Fatalf("expected per-request parameter to win: %v", resolved.ExtraBodyParameters)
	}
	if resolved.ExtraBodyParameters["channel"] != "beta" {
		t.Fatalf("expected per-request parameter present: %v", resolved.ExtraBodyParameters)
	}
}

func TestCfgxConfigProvider_AppliesDefaultsAndOverrides(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"client_id": "loaded-client",
		"authority": map[string]any{
			"url": "https://login.example.com/loaded-tenant",
		},
	}})

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "loaded-client" {
		t.Fatalf("unexpected client id: %q", cfg.ClientID)
	}
	if cfg.Authority.URL != "https://login.example.com/loaded-tenant" {
		t.Fatalf("unexpected authority url: %q", cfg.Authority.URL)
	}
	if cfg.Authority.Kind != string(AuthorityKindAAD) {
		t.Fatalf("expected default authority kind, got %q", cfg.Authority.Kind)
	}
	if cfg.UserAgent == "" {
		t.Fatalf("expected default user agent to survive merge")
	}
}

func TestCfgxConfigProvider_EmptyLoaderKeepsDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(nil)
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Authority.Kind != string(AuthorityKindAAD) {
		t.Fatalf("expected defaults, got %q", cfg.Authority.Kind)
	}
}
