package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// dirPerm is the permission mode for the store's parent directory.
	dirPerm = fs.FileMode(0o700)

	// filePerm is the permission mode for the database file. Records
	// include access tokens, so the file must not be group-readable.
	filePerm = fs.FileMode(0o600)

	// openTimeout is the maximum time to wait for the bolt file lock.
	openTimeout = 5 * time.Second

	// sweepInterval controls how often expired records are reaped.
	sweepInterval = 5 * time.Minute
)

var recordsBucket = []byte("records")

// record is the stored envelope for a value with optional expiry.
type record struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix seconds, 0 = no expiry
}

func (r record) expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.Unix() >= r.ExpiresAt
}

// BoltStore is a bbolt-backed Store. All operations run inside bolt
// transactions, so Consume is atomic: two concurrent redemptions of
// the same authorization code cannot both succeed.
type BoltStore struct {
	db        *bolt.DB
	stopSweep chan struct{}
}

// Open opens (or creates) the store at path and starts the background
// sweep of expired records. Call Close to release the file lock and
// stop the sweep.
func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	s := &BoltStore{db: db, stopSweep: make(chan struct{})}
	go s.sweepLoop()

	return s, nil
}

// Close stops the sweep goroutine and closes the database.
func (s *BoltStore) Close() error {
	close(s.stopSweep)

	return s.db.Close()
}

func (s *BoltStore) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

// sweep removes all expired records.
func (s *BoltStore) sweep() {
	now := time.Now()

	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		c := b.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil || rec.expired(now) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// Get returns the value for key, treating expired records as absent.
func (s *BoltStore) Get(key string) ([]byte, bool) {
	var (
		value []byte
		ok    bool
	)

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(recordsBucket).Get([]byte(key))
		if v == nil {
			return nil
		}

		var rec record
		if err := json.Unmarshal(v, &rec); err != nil || rec.expired(time.Now()) {
			return nil
		}

		value = append([]byte(nil), rec.Value...)
		ok = true

		return nil
	})

	return value, ok
}

// Set stores value under key with the given TTL.
func (s *BoltStore) Set(key string, value []byte, ttl time.Duration) error {
	rec := record{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl).Unix()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (s *BoltStore) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}

	return nil
}

// CountPrefix counts live records whose key starts with prefix.
func (s *BoltStore) CountPrefix(prefix string) int {
	now := time.Now()
	count := 0

	_ = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		p := []byte(prefix)

		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil || rec.expired(now) {
				continue
			}

			count++
		}

		return nil
	})

	return count
}

// Consume retrieves and deletes the value for key in one write
// transaction. Bolt serializes write transactions, so exactly one of
// any number of concurrent consumers observes the value.
func (s *BoltStore) Consume(key string) ([]byte, bool) {
	var (
		value []byte
		ok    bool
	)

	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)

		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}

		if err := b.Delete([]byte(key)); err != nil {
			return err
		}

		var rec record
		if err := json.Unmarshal(v, &rec); err != nil || rec.expired(time.Now()) {
			return nil
		}

		value = append([]byte(nil), rec.Value...)
		ok = true

		return nil
	})

	return value, ok
}
