package pbxclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyenergysolutions/freepbx-go/internal/client"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// New creates a new FreePBX client with the given configuration. A base URL
// without a scheme is taken as https. When config.WarmToken is set a token
// is fetched before returning, so that bad credentials fail here.
func New(ctx context.Context, config *freepbx.Config) (freepbx.Client, error) {
	if config == nil {
		return nil, freepbx.ErrConfigRequired
	}

	cfg := *config
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)

	pbx, err := client.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	if cfg.WarmToken {
		_, err = pbx.GetTokenManager().GetToken(ctx)
		if err != nil {
			return nil, err
		}
	}

	return pbx, nil
}

// NewWithClientCredentials creates a new client using the client credentials
// of a FreePBX API application.
func NewWithClientCredentials(ctx context.Context, baseURL, clientID, clientSecret string) (freepbx.Client, error) {
	return New(ctx, &freepbx.Config{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// NewFromEnv loads the configuration with LoadConfig and creates a client.
// The returned config owns the token cache.
func NewFromEnv(ctx context.Context, opts *LoadOptions) (freepbx.Client, *freepbx.Config, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	pbx, err := New(ctx, cfg)
	if err != nil {
		closeCache(cfg.Cache)

		return nil, nil, err
	}

	return pbx, cfg, nil
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return baseURL
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

func closeCache(cache freepbx.Cache) {
	if closer, ok := cache.(interface{ Close() }); ok {
		closer.Close()
	}
}
