package source

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSource fetches and caches the OAuth2 access token HTTPClient
// attaches to every request, re-authenticating with the resource-owner
// password grant once the cached token expires. Reddit-style script apps
// authenticate this way rather than via an authorization-code redirect,
// so oauth2.Config.PasswordCredentialsToken is the right shape here
// rather than a three-legged flow.
type TokenSource struct {
	mu       sync.Mutex
	cfg      oauth2.Config
	username string
	password string
	cached   *oauth2.Token
}

// NewTokenSource builds a TokenSource for a script-app's client
// credentials and bot account username/password.
func NewTokenSource(clientID, clientSecret, username, password, tokenURL string) *TokenSource {
	return &TokenSource{
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		username: username,
		password: password,
	}
}

// Token satisfies the func() (string, error) shape HTTPClient.Token
// expects, returning the cached access token or fetching a fresh one.
func (t *TokenSource) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached.Valid() {
		return t.cached.AccessToken, nil
	}

	tok, err := t.cfg.PasswordCredentialsToken(context.Background(), t.username, t.password)
	if err != nil {
		return "", fmt.Errorf("source: fetching OAuth token: %w", err)
	}
	t.cached = tok
	return tok.AccessToken, nil
}
