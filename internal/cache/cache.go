// Package cache provides a best-effort TTL cache over the kv store.
// Failures to read or write the store are logged and treated as cache
// misses; caching never blocks correctness.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/macharpe/meraki-mcp/internal/kv"
)

// Default TTLs. Organizations and networks change rarely; devices and
// clients churn, so their windows are short. JWKS documents rotate on
// the order of hours.
const (
	TTLOrganizations = 30 * time.Minute
	TTLNetworks      = 15 * time.Minute
	TTLDevices       = 5 * time.Minute
	TTLClients       = 5 * time.Minute
	TTLJWKS          = time.Hour
)

// Cache wraps a kv.Store with JSON serialization and namespaced keys.
type Cache struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates a cache over the given store.
func New(store kv.Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Get loads the cached value for key into dst. Any store or decode
// failure reads as a miss.
func (c *Cache) Get(key string, dst any) bool {
	data, ok := c.store.Get(key)
	if !ok {
		c.logger.Debug("cache miss", slog.String("key", key))
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)

		return false
	}

	c.logger.Debug("cache hit", slog.String("key", key))

	return true
}

// Set stores v under key with the given TTL. Errors are logged and
// swallowed.
func (c *Cache) Set(key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)

		return
	}

	if err := c.store.Set(key, data, ttl); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Fetch returns the cached value for key, or executes fn and caches
// its result. fn errors propagate uncached.
func Fetch[T any](c *Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var cached T
	if c.Get(key, &cached) {
		return cached, nil
	}

	fresh, err := fn()
	if err != nil {
		return fresh, err
	}

	c.Set(key, fresh, ttl)

	return fresh, nil
}

// Key builders. The "cache:" prefix keeps cached API responses in
// their own key namespace within the shared store.

// OrganizationsKey is the cache key for the organization list.
func OrganizationsKey() string {
	return "cache:meraki:organizations"
}

// NetworksKey is the cache key for an organization's networks.
func NetworksKey(orgID string) string {
	return fmt.Sprintf("cache:meraki:networks:%s", orgID)
}

// DevicesKey is the cache key for a network's devices.
func DevicesKey(networkID string) string {
	return fmt.Sprintf("cache:meraki:devices:%s", networkID)
}

// ClientsKey is the cache key for a network's clients over a timespan.
func ClientsKey(networkID string, timespan int) string {
	return fmt.Sprintf("cache:meraki:clients:%s:%d", networkID, timespan)
}

// JWKSKey is the cache key for an identity provider's key set.
func JWKSKey(url string) string {
	return fmt.Sprintf("cache:jwks:%s", url)
}
