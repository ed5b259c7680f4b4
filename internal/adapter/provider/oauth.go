package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const defaultTokenTimeout = 30 * time.Second

// ErrNoCredentials is returned when a TokenSource has no client id/secret.
var ErrNoCredentials = errors.New("oauth client credentials not configured")

// TokenSource caches a client-credentials access token for the whole
// process. Concurrent refreshes collapse into a single token request.
type TokenSource struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token

	group singleflight.Group
}

// NewTokenSource creates a TokenSource for the given token endpoint.
func NewTokenSource(tokenURL, clientID, clientSecret string, httpClient *http.Client) *TokenSource {
	return &TokenSource{
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Configured reports whether credentials are present.
func (t *TokenSource) Configured() bool {
	return t.cfg.ClientID != "" && t.cfg.ClientSecret != ""
}

// AccessToken returns a valid access token, fetching one if needed.
func (t *TokenSource) AccessToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	tok := t.token
	t.mu.Unlock()
	if tok.Valid() {
		return tok.AccessToken, nil
	}
	return t.refresh(ctx, "")
}

// Invalidate drops the cached token if it is still the one that was
// rejected. A token refreshed by another goroutine in the meantime is kept.
func (t *TokenSource) Invalidate(rejected string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != nil && t.token.AccessToken == rejected {
		t.token = nil
	}
}

// Refresh replaces a token the upstream rejected and returns the new one.
func (t *TokenSource) Refresh(ctx context.Context, rejected string) (string, error) {
	t.Invalidate(rejected)
	return t.refresh(ctx, rejected)
}

func (t *TokenSource) refresh(ctx context.Context, rejected string) (string, error) {
	if !t.Configured() {
		return "", ErrNoCredentials
	}
	ch := t.group.DoChan("token", func() (any, error) {
		t.mu.Lock()
		current := t.token
		t.mu.Unlock()
		if current.Valid() && current.AccessToken != rejected {
			return current.AccessToken, nil
		}

		// Shared by every waiter, so it must outlive the caller that started it.
		timeout := defaultTokenTimeout
		if t.httpClient != nil && t.httpClient.Timeout > 0 {
			timeout = t.httpClient.Timeout
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if t.httpClient != nil {
			fetchCtx = context.WithValue(fetchCtx, oauth2.HTTPClient, t.httpClient)
		}
		tok, err := t.cfg.Token(fetchCtx)
		if err != nil {
			return "", fmt.Errorf("failed to fetch access token: %w", err)
		}

		t.mu.Lock()
		t.token = tok
		t.mu.Unlock()
		return tok.AccessToken, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
