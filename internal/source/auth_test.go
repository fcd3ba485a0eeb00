package source

import (
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenSourceReusesCachedToken(t *testing.T) {
	ts := NewTokenSource("id", "secret", "bot", "pw", "https://example.invalid/token")
	ts.cached = &oauth2.Token{AccessToken: "cached-token", Expiry: time.Now().Add(time.Hour)}

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "cached-token" {
		t.Errorf("Token() = %q, want cached-token", tok)
	}
}

func TestTokenSourceRefetchesExpiredToken(t *testing.T) {
	ts := NewTokenSource("id", "secret", "bot", "pw", "https://example.invalid/token")
	ts.cached = &oauth2.Token{AccessToken: "stale-token", Expiry: time.Now().Add(-time.Hour)}

	if _, err := ts.Token(); err == nil {
		t.Fatal("expected an error: the stale token should trigger a live refetch against an unreachable host")
	}
}
