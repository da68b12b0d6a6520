// Package kv provides the persistent key-value store backing all
// cross-request OAuth state: client registrations, authorization codes,
// PKCE verifiers, issued access tokens, and cached API responses.
// Every record carries a TTL; expired records read as absent and are
// reaped by a background sweep.
package kv

import (
	"time"
)

//go:generate mockgen -source=kv.go -destination=mock_store.go -package=kv

// Store is the key-value contract the OAuth broker and cache depend on.
type Store interface {
	// Get returns the value for key, or false if the key is absent
	// or its record has expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A zero ttl means the record never
	// expires.
	Set(key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Consume atomically retrieves and deletes the value for key.
	// A second Consume of the same key always reports false, even
	// under concurrent callers. Expired records report false.
	Consume(key string) ([]byte, bool)

	// CountPrefix returns the number of live records whose key
	// starts with prefix.
	CountPrefix(prefix string) int

	// Close releases the underlying database.
	Close() error
}
