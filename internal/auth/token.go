// Package auth obtains and caches the OAuth2 bearer token used by the
// FreePBX API.
package auth

import (
	"context"
	"time"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
)

// Token is the token endpoint response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// CacheTTL returns how long the token may be cached: maxTTL, or the
// server supplied lifetime minus a safety margin when that is shorter.
func (t *Token) CacheTTL(maxTTL time.Duration) time.Duration {
	if t.ExpiresIn <= 0 {
		return maxTTL
	}

	lifetime := time.Duration(t.ExpiresIn) * time.Second

	ttl := lifetime - constants.TokenExpirationBuffer
	if ttl <= 0 {
		ttl = lifetime / 2
	}

	if ttl < maxTTL {
		return ttl
	}

	return maxTTL
}

// TokenManager manages authentication tokens.
type TokenManager interface {
	// GetToken returns a valid bearer token, fetching one if needed.
	GetToken(ctx context.Context) (string, error)
	// Invalidate forgets the current token. It is safe to call when no
	// token is held.
	Invalidate(ctx context.Context) error
}
