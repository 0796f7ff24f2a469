package pbxclient

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// Configuration keys. Each key is also read from the environment as
// FREEPBX_<KEY> with dots replaced by underscores, e.g. FREEPBX_CACHE_TYPE.
const (
	KeyURL           = "url"
	KeyClientID      = "client_id"
	KeyClientSecret  = "client_secret"
	KeyScope         = "scope"
	KeyTokenTTL      = "token_ttl"
	KeyHTTPTimeout   = "http_timeout"
	KeyRetryAttempts = "retry_attempts"
	KeyRetryWait     = "retry_wait"
	KeyRateLimit     = "rate_limit"
	KeyUserAgent     = "user_agent"
	KeyDebug         = "debug"
	KeyCatalogFile   = "catalog_file"
	KeyWarmToken     = "warm_token"
	KeyCacheType     = "cache.type"
	KeyCacheSize     = "cache.size"
	KeyNATSURL       = "nats.url"
	KeyNATSBucket    = "nats.bucket"
	KeyNATSTTL       = "nats.ttl"
)

// LoadOptions controls where LoadConfig looks for settings.
type LoadOptions struct {
	// EnvFile is loaded into the process environment before reading it.
	// Defaults to ".env", which is skipped when missing. An explicitly
	// named file must exist.
	EnvFile string
	// ConfigFile is an optional YAML file. Environment variables take
	// precedence over its values.
	ConfigFile string
	// Viper reuses an existing instance, e.g. one bound to command flags.
	Viper *viper.Viper
}

// LoadConfig builds a validated freepbx.Config from the environment, the env
// file and the optional config file. Durations accept Go duration strings
// ("90s", "1h") or a plain number of seconds. The token cache is created
// from cache.type: "memory" (the default), "nats" or "none".
func LoadConfig(opts *LoadOptions) (*freepbx.Config, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}

	err := loadEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	v := opts.Viper
	if v == nil {
		v = viper.New()
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")

		err = v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := &freepbx.Config{
		BaseURL:       normalizeBaseURL(v.GetString(KeyURL)),
		ClientID:      v.GetString(KeyClientID),
		ClientSecret:  v.GetString(KeyClientSecret),
		Scope:         v.GetString(KeyScope),
		RetryAttempts: v.GetInt(KeyRetryAttempts),
		RateLimit:     v.GetFloat64(KeyRateLimit),
		UserAgent:     v.GetString(KeyUserAgent),
		Debug:         v.GetBool(KeyDebug),
		CatalogFile:   v.GetString(KeyCatalogFile),
		WarmToken:     v.GetBool(KeyWarmToken),
	}

	cfg.TokenTTL, err = durationSetting(v, KeyTokenTTL)
	if err != nil {
		return nil, err
	}

	cfg.HTTPTimeout, err = durationSetting(v, KeyHTTPTimeout)
	if err != nil {
		return nil, err
	}

	cfg.RetryWait, err = durationSetting(v, KeyRetryWait)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	cfg.Cache, err = buildCache(v)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFile(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = constants.DefaultEnvFile
	}

	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("failed to load env file %s: %w", envFile, err)
}

// durationSetting reads key as a duration. A bare number is seconds.
func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}

	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a duration", freepbx.ErrInvalidConfig, key, raw)
	}

	return duration, nil
}

func buildCache(v *viper.Viper) (freepbx.Cache, error) {
	cacheConfig := &freepbx.CacheConfig{
		Type: freepbx.CacheType(strings.ToLower(strings.TrimSpace(v.GetString(KeyCacheType)))),
		Memory: &freepbx.MemoryCacheConfig{
			MaxSize: v.GetInt(KeyCacheSize),
		},
	}

	if cacheConfig.Type == freepbx.CacheTypeNATS {
		ttl, err := durationSetting(v, KeyNATSTTL)
		if err != nil {
			return nil, err
		}

		cacheConfig.NATS = &freepbx.NATSKVConfig{
			URL:    v.GetString(KeyNATSURL),
			Bucket: v.GetString(KeyNATSBucket),
			TTL:    ttl,
		}
	}

	cache, err := freepbx.NewCacheFromConfig(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}

	if cacheConfig.Type == freepbx.CacheTypeNATS {
		return freepbx.NewCacheChain(freepbx.NewMemoryCacheFromConfig(cacheConfig.Memory), cache), nil
	}

	return cache, nil
}
