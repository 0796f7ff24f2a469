package freepbx

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching. Every call fetches a new token.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures the token cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// Memory cache configuration
	Memory *MemoryCacheConfig

	// NATS KV cache configuration
	NATS *NATSKVConfig
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, "":
		return NewMemoryCacheFromConfig(config.Memory), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) *MemoryCache {
	if config == nil || config.MaxSize <= 0 {
		return NewMemoryCache(constants.DefaultCacheSize)
	}

	return NewMemoryCache(config.MaxSize)
}

// NoOpCache disables token caching: every authenticated call exchanges the
// client credentials again.
type NoOpCache struct{}

// NewNoOpCache returns a cache that never holds a token.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always reports ErrCacheDisabled, which the token manager treats as a
// miss.
func (c *NoOpCache) Get(context.Context, string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

func (c *NoOpCache) Set(context.Context, string, *CacheEntry) error { return nil }
func (c *NoOpCache) Delete(context.Context, string) error            { return nil }
func (c *NoOpCache) Clear(context.Context) error                     { return nil }
func (c *NoOpCache) Has(context.Context, string) bool                { return false }

// CacheChain keeps a process-local copy of a token that is shared through a
// slower backend, typically a MemoryCache in front of a NATSKVCache. A token
// found only in a later layer is copied into the earlier ones. Storing or
// evicting the token reaches every layer, so a transport failure in one
// process evicts the shared token for all of them.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain layers caches, fastest first.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get returns the entry from the first layer holding it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, earlier := range c.caches[:i] {
			_ = earlier.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores the entry in every layer and joins their errors.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(cache Cache) error { return cache.Set(ctx, key, entry) })
}

// Delete evicts the key from every layer and joins their errors.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(cache Cache) error { return cache.Delete(ctx, key) })
}

// Clear empties every layer and joins their errors.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(cache Cache) error { return cache.Clear(ctx) })
}

// Has reports whether any layer holds the key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close closes every layer that holds a connection.
func (c *CacheChain) Close() {
	for _, cache := range c.caches {
		if closer, ok := cache.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (c *CacheChain) each(op func(Cache) error) error {
	errs := make([]error, 0, len(c.caches))

	for _, cache := range c.caches {
		errs = append(errs, op(cache))
	}

	return errors.Join(errs...)
}
