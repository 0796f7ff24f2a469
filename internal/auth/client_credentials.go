package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	pbxhttp "github.com/hyenergysolutions/freepbx-go/internal/http"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// ClientCredentialsConfig configures a ClientCredentialsManager. Zero
// values fall back to the package defaults.
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	TTL          time.Duration
	Cache        freepbx.Cache
	Logger       freepbx.Logger
}

// ClientCredentialsManager implements TokenManager with the OAuth2 client
// credentials grant. Tokens live in a freepbx.Cache under a fixed key so
// that a shared cache backend shares the token as well.
type ClientCredentialsManager struct {
	httpClient   *pbxhttp.Client
	clientID     string
	clientSecret string
	scope        string
	ttl          time.Duration
	cache        freepbx.Cache
	logger       freepbx.Logger
	group        singleflight.Group
	now          func() time.Time
}

// NewClientCredentialsManager creates a token manager. httpClient must not
// carry a TokenManager itself; its base URL is the FreePBX root.
func NewClientCredentialsManager(httpClient *pbxhttp.Client, config *ClientCredentialsConfig) *ClientCredentialsManager {
	manager := &ClientCredentialsManager{
		httpClient:   httpClient,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		scope:        config.Scope,
		ttl:          config.TTL,
		cache:        config.Cache,
		logger:       config.Logger,
		now:          time.Now,
	}

	if manager.scope == "" {
		manager.scope = constants.DefaultScope
	}

	if manager.ttl <= 0 {
		manager.ttl = constants.DefaultTokenTTL
	}

	if manager.cache == nil {
		manager.cache = freepbx.NewMemoryCache(constants.DefaultCacheSize)
	}

	if manager.logger == nil {
		manager.logger = freepbx.NoopLogger{}
	}

	return manager
}

// GetToken returns the cached token or exchanges the client credentials
// for a new one. Concurrent misses share a single exchange; a caller whose
// ctx ends stops waiting without cancelling it for the others.
func (m *ClientCredentialsManager) GetToken(ctx context.Context) (string, error) {
	if token, ok := m.cached(ctx); ok {
		return token, nil
	}

	// The shared exchange must not fail for every waiter when the caller
	// that started it goes away.
	fetchCtx := context.WithoutCancel(ctx)

	results := m.group.DoChan(constants.TokenCacheKey, func() (interface{}, error) {
		if token, ok := m.cached(fetchCtx); ok {
			return token, nil
		}

		return m.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", freepbx.NewTokenError(0, "", ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return "", result.Err //nolint:wrapcheck // already a *freepbx.Error
		}

		token, _ := result.Val.(string)

		return token, nil
	}
}

// Invalidate evicts the cached token.
func (m *ClientCredentialsManager) Invalidate(ctx context.Context) error {
	err := m.cache.Delete(ctx, constants.TokenCacheKey)
	if err != nil {
		return fmt.Errorf("evicting token: %w", err)
	}

	m.logger.Debug("FreePBX token evicted", nil)

	return nil
}

func (m *ClientCredentialsManager) cached(ctx context.Context) (string, bool) {
	entry, err := m.cache.Get(ctx, constants.TokenCacheKey)
	if err != nil {
		if !isCacheMiss(err) {
			m.logger.Warn("Token cache read failed", map[string]interface{}{"error": err.Error()})
		}

		return "", false
	}

	if len(entry.Data) == 0 {
		return "", false
	}

	return string(entry.Data), true
}

func (m *ClientCredentialsManager) fetch(ctx context.Context) (string, error) {
	resp, err := m.httpClient.Do(ctx, &pbxhttp.Request{
		Method: http.MethodPost,
		Path:   constants.TokenPath,
		Form: url.Values{
			"grant_type": {constants.GrantTypeClientCredentials},
			"scope":      {m.scope},
		},
		BasicAuth: &pbxhttp.BasicAuth{Username: m.clientID, Password: m.clientSecret},
	})
	if err != nil {
		statusErr := &pbxhttp.StatusError{}
		if errors.As(err, &statusErr) {
			return "", freepbx.NewTokenError(statusErr.StatusCode, statusErr.Body, err)
		}

		return "", freepbx.NewTokenError(0, "", err)
	}

	var token Token

	err = json.Unmarshal(resp.Body, &token)
	if err != nil {
		return "", freepbx.NewTokenError(resp.StatusCode, string(resp.Body), fmt.Errorf("decoding token response: %w", err))
	}

	if token.AccessToken == "" {
		return "", freepbx.NewTokenError(resp.StatusCode, string(resp.Body), constants.ErrMissingAccessToken)
	}

	ttl := token.CacheTTL(m.ttl)

	err = m.cache.Set(ctx, constants.TokenCacheKey, &freepbx.CacheEntry{
		Data:      []byte(token.AccessToken),
		ExpiresAt: m.now().Add(ttl),
	})
	if err != nil {
		m.logger.Warn("Failed to cache FreePBX token", map[string]interface{}{"error": err.Error()})
	}

	m.logger.Info("Obtained FreePBX token", map[string]interface{}{
		"cache_ttl": ttl.String(),
		"scope":     token.Scope,
	})

	return token.AccessToken, nil
}

func isCacheMiss(err error) bool {
	return errors.Is(err, freepbx.ErrCacheKeyNotFound) ||
		errors.Is(err, freepbx.ErrCacheEntryExpired) ||
		errors.Is(err, freepbx.ErrCacheDisabled) ||
		errors.Is(err, freepbx.ErrKeyNotFoundInAnyCache)
}
