package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// refreshMargin refreshes tokens this long before Strava expires them
const refreshMargin = 60 * time.Second

// TokenSaver persists refreshed tokens; *store.DB satisfies it
type TokenSaver interface {
	UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error
}

// TokenSource is an oauth2.TokenSource that refreshes near expiry and writes
// each new token through a TokenSaver before handing it out.
type TokenSource struct {
	ctx    context.Context
	config *oauth2.Config
	saver  TokenSaver
	logger zerolog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenSource creates a TokenSource. ctx carries the HTTP client used for
// refresh requests (see oauth2.HTTPClient).
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, saver TokenSaver, logger zerolog.Logger) *TokenSource {
	return &TokenSource{
		ctx:    ctx,
		config: cfg,
		token:  token,
		saver:  saver,
		logger: logger,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshMargin {
		return ts.token, nil
	}

	// expire the copy so oauth2 refreshes regardless of its own margin
	stale := *ts.token
	stale.Expiry = time.Now().Add(-time.Second)

	fresh, err := ts.config.TokenSource(ts.ctx, &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = ts.token.RefreshToken
	}

	if ts.saver != nil {
		if err := ts.saver.UpdateTokens(fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
	}

	ts.logger.Debug().Time("expires_at", fresh.Expiry).Msg("strava token refreshed")
	ts.token = fresh
	return fresh, nil
}

// IsExpired reports whether the token is expired or within the refresh margin
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshMargin
}
