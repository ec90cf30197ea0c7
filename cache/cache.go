// Package cache provides a persistent cache of decoded audio backed by Badger.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long a decoded sound stays cached.
const DefaultTTL = 30 * 24 * time.Hour

// Cache stores decoded sounds keyed by their source file identity.
type Cache struct {
	db *badger.DB
}

// Entry is one cached decoded sound.
type Entry struct {
	SampleRate  int       `json:"sample_rate"`
	NumChannels int       `json:"num_channels"`
	Precision   int       `json:"precision"`
	Frames      []byte    `json:"frames"` // little-endian float32 pairs
	CreatedAt   time.Time `json:"created_at"`
}

// New opens the cache at path. An empty path opens an in-memory cache.
func New(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (*Entry, bool) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			// A damaged entry behaves like a miss; the next Set replaces it.
			_ = c.Delete(key)
		}
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key for ttl.
func (c *Cache) Set(key string, entry *Entry, ttl time.Duration) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), val).WithTTL(ttl))
	})
}

// Delete removes key.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GenerateKey derives a cache key from parts.
func GenerateKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "pcm:" + hex.EncodeToString(sum[:])
}
