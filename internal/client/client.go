// Package client implements freepbx.Client on top of the GraphQL and REST
// channels.
package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyenergysolutions/freepbx-go/internal/auth"
	pbxhttp "github.com/hyenergysolutions/freepbx-go/internal/http"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// Client implements the freepbx.Client interface.
type Client struct {
	httpClient   *pbxhttp.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       freepbx.Logger
	catalog      *Catalog

	graphql *GraphQLChannel
	rest    *RESTChannel
}

var _ freepbx.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config. The
// returned options are shared by the token and API clients so that both
// go through the same interceptors and rate limiter.
func createHTTPClientOptions(config *freepbx.Config) []pbxhttp.Option {
	httpOpts := []pbxhttp.Option{
		pbxhttp.WithLogger(config.Logger),
		pbxhttp.WithDebug(config.Debug),
		pbxhttp.WithUserAgent(config.UserAgent),
		pbxhttp.WithTimeout(config.HTTPTimeout),
		pbxhttp.WithRetryConfig(config.RetryAttempts, config.RetryWait),
	}

	chain := config.Interceptors

	if config.RateLimit > 0 {
		limited := freepbx.NewInterceptorChain().
			AddRequestInterceptor(freepbx.RateLimitInterceptor(config.RateLimit))

		if chain != nil {
			limited.AddRequestInterceptor(chain.ExecuteRequestInterceptors)
			limited.AddResponseInterceptor(chain.ExecuteResponseInterceptors)
		}

		chain = limited
	}

	if chain != nil {
		httpOpts = append(httpOpts, pbxhttp.WithInterceptors(chain))
	}

	return httpOpts
}

// New creates a FreePBX client that authenticates with the client
// credentials grant.
func New(config *freepbx.Config) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	cfg := config.WithDefaults()
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	httpOpts := createHTTPClientOptions(cfg)

	tokenHTTPClient := pbxhttp.NewClient(baseURL, nil, httpOpts...)
	tokenManager := auth.NewClientCredentialsManager(tokenHTTPClient, &auth.ClientCredentialsConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scope:        cfg.Scope,
		TTL:          cfg.TokenTTL,
		Cache:        cfg.Cache,
		Logger:       cfg.Logger,
	})

	return newClient(cfg, baseURL, tokenManager, httpOpts)
}

// NewWithTokenManager creates a FreePBX client with a custom token manager.
// ClientID and ClientSecret are not required.
func NewWithTokenManager(config *freepbx.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, freepbx.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: BaseURL is required", freepbx.ErrInvalidConfig)
	}

	cfg := config.WithDefaults()

	return newClient(cfg, strings.TrimRight(cfg.BaseURL, "/"), tokenManager, createHTTPClientOptions(cfg))
}

func newClient(cfg *freepbx.Config, baseURL string, tokenManager auth.TokenManager, httpOpts []pbxhttp.Option) (*Client, error) {
	catalog, err := LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("loading query catalog: %w", err)
	}

	httpClient := pbxhttp.NewClient(baseURL, tokenManager, httpOpts...)

	return &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      baseURL,
		logger:       cfg.Logger,
		catalog:      catalog,
		graphql:      NewGraphQLChannel(httpClient, tokenManager, cfg.Logger),
		rest:         NewRESTChannel(httpClient, tokenManager, cfg.Logger),
	}, nil
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the FreePBX root URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Catalog returns the query catalog in use.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// GraphQL implements freepbx.TransportClient.GraphQL.
func (c *Client) GraphQL(ctx context.Context, query string) (map[string]interface{}, error) {
	return c.graphql.Query(ctx, query)
}

// REST implements freepbx.TransportClient.REST.
func (c *Client) REST(ctx context.Context, verb freepbx.Verb, endpoint string, body interface{}) (interface{}, error) {
	return c.rest.Call(ctx, verb, endpoint, body)
}

// InvalidateToken implements freepbx.TransportClient.InvalidateToken.
func (c *Client) InvalidateToken(ctx context.Context) error {
	if c.tokenManager == nil {
		return nil
	}

	return c.tokenManager.Invalidate(ctx)
}

// fetch runs the catalog entry for kind and returns the node at its result
// path.
func (c *Client) fetch(ctx context.Context, kind string, params map[string]string) (interface{}, error) {
	entry, err := c.catalog.Lookup(kind)
	if err != nil {
		return nil, err
	}

	switch entry.Transport {
	case TransportGraphQL:
		data, err := c.graphql.Query(ctx, entry.RenderQuery(params))
		if err != nil {
			return nil, err
		}

		if data == nil {
			return nil, nil
		}

		return resultNode(data, entry.Result), nil
	case TransportREST:
		body, err := c.rest.Call(ctx, entry.Verb(), entry.RenderPath(params), nil)
		if err != nil {
			return nil, err
		}

		return resultNode(body, entry.Result), nil
	default:
		return nil, fmt.Errorf("entity %s: %w", kind, entry.Validate())
	}
}
