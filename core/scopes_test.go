package core

import (
	"reflect"
	"testing"
)

func TestNormalizeScopes_TrimsLowersDedupesSorts(t *testing.T) {
	got := NormalizeScopes([]string{" User.Read ", "mail.read", "user.read", "", "MAIL.READ"})
	want := []string{"mail.read", "user.read"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected scopes: %v", got)
	}
}

func TestNormalizeScopes_Idempotent(t *testing.T) {
	once := NormalizeScopes([]string{"b", "A", "c"})
	twice := NormalizeScopes(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize is not idempotent: %v vs %v", once, twice)
	}
}

func TestScopesFromString_SplitsWireForm(t *testing.T) {
	got := ScopesFromString("  user.read   mail.read user.read ")
	want := []string{"mail.read", "user.read"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected scopes: %v", got)
	}
}

func TestJoinScopes_CanonicalOrder(t *testing.T) {
	if got := JoinScopes([]string{"b.scope", "a.scope"}); got != "a.scope b.scope" {
		t.Fatalf("unexpected joined scopes: %q", got)
	}
}

func TestEqualScopes_OrderAndCaseInsensitive(t *testing.T) {
	if !EqualScopes([]string{"User.Read", "mail.read"}, []string{"MAIL.READ", "user.read"}) {
		t.Fatalf("expected scope sets to be equal")
	}
	if EqualScopes([]string{"user.read"}, []string{"mail.read"}) {
		t.Fatalf("expected scope sets to differ")
	}
	if EqualScopes([]string{"user.read"}, nil) {
		t.Fatalf("expected non-empty set to differ from empty")
	}
}
