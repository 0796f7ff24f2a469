package constants

import "time"

// FreePBX API paths, relative to the configured base URL.
const (
	// TokenPath is the OAuth2 token endpoint.
	TokenPath = "/admin/api/api/token"

	// GraphQLPath is the GraphQL endpoint.
	GraphQLPath = "/admin/api/api/gql"

	// RESTPathPrefix is prepended to every REST endpoint.
	RESTPathPrefix = "/admin/api/api/rest"
)

// Authentication.
const (
	// TokenCacheKey is the cache key holding the bearer token.
	TokenCacheKey = "freepbx_token"

	// DefaultScope covers both the GraphQL and the REST API.
	DefaultScope = "gql rest"

	// GrantTypeClientCredentials is the only grant the client uses.
	GrantTypeClientCredentials = "client_credentials"

	// DefaultTokenTTL is how long a token stays cached. FreePBX issues
	// tokens valid for one hour.
	DefaultTokenTTL = 3500 * time.Second

	// TokenExpirationBuffer is subtracted from the server supplied expires_in.
	TokenExpirationBuffer = 60 * time.Second
)

// HTTP and network.
const (
	// DefaultHTTPTimeout is the hard timeout of a single attempt.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortTimeout is used for setup operations such as connecting to NATS.
	ShortTimeout = 10 * time.Second

	// DefaultRetryAttempts is the total number of attempts for a request.
	DefaultRetryAttempts = 3

	// MaxRetryAttempts bounds the configurable attempt count.
	MaxRetryAttempts = 10

	// DefaultRetryWait is the fixed delay between attempts.
	DefaultRetryWait = 100 * time.Millisecond

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "freepbx-go/1.0"

	// DefaultRateLimitBurst is the burst used by the rate limit interceptor.
	DefaultRateLimitBurst = 1
)

// Cache.
const (
	// DefaultCacheSize is the default capacity of the memory cache.
	DefaultCacheSize = 1000

	// DefaultNATSBucket is the JetStream key/value bucket holding tokens.
	DefaultNATSBucket = "freepbx"
)

// Entity accessors.
const (
	// DefaultCDRLimit is the number of call detail records fetched when no
	// positive limit is given.
	DefaultCDRLimit = 100
)

// Config keys and environment.
const (
	// EnvPrefix prefixes every environment variable read by the config loader.
	EnvPrefix = "FREEPBX"

	// DefaultEnvFile is loaded when present and no env file is given.
	DefaultEnvFile = ".env"
)
