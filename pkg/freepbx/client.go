package freepbx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
)

// DirectoryClient provides access to the PBX directory entities.
type DirectoryClient interface {
	// Extensions returns every extension with its user settings.
	Extensions(ctx context.Context) ([]Extension, error)
	// RingGroups returns every ring group.
	RingGroups(ctx context.Context) ([]RingGroup, error)
	// Queues returns every call queue.
	Queues(ctx context.Context) ([]Queue, error)
}

// CallDataClient provides access to call detail records.
type CallDataClient interface {
	// CDRs returns up to limit call detail records. A limit of zero or
	// less fetches the default of 100 records.
	CDRs(ctx context.Context, limit int) ([]CDR, error)
}

// CallFlowClient provides access to day/night call flows.
type CallFlowClient interface {
	// CallFlows returns every day/night call flow.
	CallFlows(ctx context.Context) ([]CallFlow, error)
	// CallFlowState returns the current state of one call flow, or an
	// empty string when FreePBX does not report one.
	CallFlowState(ctx context.Context, id string) (string, error)
}

// TransportClient exposes the authenticated transports for queries the
// typed accessors do not cover.
type TransportClient interface {
	// GraphQL runs a query and returns its data object.
	GraphQL(ctx context.Context, query string) (map[string]interface{}, error)
	// REST calls endpoint (relative to the REST root) and returns the
	// decoded JSON body.
	REST(ctx context.Context, verb Verb, endpoint string, body interface{}) (interface{}, error)
	// InvalidateToken evicts the cached bearer token.
	InvalidateToken(ctx context.Context) error
}

// Client is the FreePBX API client.
type Client interface {
	DirectoryClient
	CallDataClient
	CallFlowClient
	TransportClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a Client.
//
// BaseURL, ClientID and ClientSecret are required and identify the
// FreePBX installation and the API application created under
// Admin > API > Applications. Every other field is optional; WithDefaults
// fills the zero values.
//
// # Token caching
//
// The bearer token is stored in Cache under a fixed key for TokenTTL, or
// for the server supplied lifetime minus a safety margin when that is
// shorter. Any transport failure on an authenticated call evicts it. Use a
// NATSKVCache to share one token between processes.
//
// # Timeouts and retries
//
// Every attempt is bounded by HTTPTimeout. Connection errors, timeouts and
// 5xx responses are retried until RetryAttempts attempts were made, with a
// fixed RetryWait between them. 4xx responses are never retried.
type Config struct {
	// BaseURL: base URL of the FreePBX installation, including the port if
	// needed (e.g. "http://192.168.1.100:83").
	BaseURL string `validate:"required,url"`
	// ClientID: OAuth client ID of the API application.
	ClientID string `validate:"required"`
	// ClientSecret: OAuth client secret of the API application.
	ClientSecret string `validate:"required"`

	// Scope requested for the token. Defaults to "gql rest".
	Scope string
	// TokenTTL caps how long a token is cached. Defaults to 3500s.
	TokenTTL time.Duration `validate:"gte=0"`
	// HTTPTimeout bounds a single attempt. Defaults to 30s.
	HTTPTimeout time.Duration `validate:"gte=0"`
	// RetryAttempts is the total number of attempts. Defaults to 3.
	RetryAttempts int `validate:"gte=0,lte=10"`
	// RetryWait is the fixed delay between attempts. Defaults to 100ms.
	RetryWait time.Duration `validate:"gte=0"`
	// RateLimit caps outgoing requests per second. Zero disables it.
	RateLimit float64 `validate:"gte=0"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// CatalogFile points to a YAML file overriding the built-in queries.
	CatalogFile string `validate:"omitempty,file"`
	// WarmToken makes the constructor fetch a token so that bad
	// credentials fail fast.
	WarmToken bool

	// Logger receives structured log events. Defaults to a no-op logger.
	Logger Logger `validate:"-"`
	// Cache stores the bearer token. Defaults to a MemoryCache.
	Cache Cache `validate:"-"`
	// Interceptors run around every HTTP request.
	Interceptors *InterceptorChain `validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the required fields and value ranges.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]

		return fmt.Errorf("%w: field %s failed on the %q rule", ErrInvalidConfig, first.Field(), first.Tag())
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}

// WithDefaults returns a copy of the config with zero values replaced by
// their defaults. The receiver is not modified.
func (c *Config) WithDefaults() *Config {
	cfg := *c

	if cfg.Scope == "" {
		cfg.Scope = constants.DefaultScope
	}

	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = constants.DefaultTokenTTL
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = constants.DefaultRetryAttempts
	}

	if cfg.RetryWait == 0 {
		cfg.RetryWait = constants.DefaultRetryWait
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.DefaultUserAgent
	}

	if cfg.Logger == nil {
		cfg.Logger = NoopLogger{}
	}

	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache(constants.DefaultCacheSize)
	}

	return &cfg
}
