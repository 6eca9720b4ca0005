package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/JNZader/flightcheck/internal/match"
)

// keyPrefix namespaces finding entries so that a layout change can be
// rolled out by bumping it.
const keyPrefix = "findings/v1/"

// BadgerCache persists findings across runs in a BadgerDB directory.
type BadgerCache struct {
	db         *badger.DB
	ttl        time.Duration
	gcInterval time.Duration
	gcStop     chan struct{}

	hits   int64
	misses int64
}

// BadgerOptions configures the persistent cache.
type BadgerOptions struct {
	Dir        string
	TTL        time.Duration
	GCInterval time.Duration

	// InMemory keeps the store in memory; Dir is ignored. Used by tests.
	InMemory bool
}

// NewBadgerCache opens or creates the cache directory.
func NewBadgerCache(opts BadgerOptions) (*BadgerCache, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}

	c := &BadgerCache{
		db:         db,
		ttl:        opts.TTL,
		gcInterval: opts.GCInterval,
		gcStop:     make(chan struct{}),
	}
	if opts.GCInterval > 0 && !opts.InMemory {
		go c.runGC()
	}
	return c, nil
}

// Compile-time interface check.
var _ Cache = (*BadgerCache)(nil)

func (c *BadgerCache) Get(key string) ([]match.Finding, bool, error) {
	var findings []match.Finding

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &findings)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	atomic.AddInt64(&c.hits, 1)
	return clone(findings), true, nil
}

func (c *BadgerCache) Set(key string, findings []match.Finding) error {
	data, err := json.Marshal(clone(findings))
	if err != nil {
		return fmt.Errorf("marshaling findings: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *BadgerCache) Clear() error {
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Stats counts entries by iterating keys only.
func (c *BadgerCache) Stats() (Stats, error) {
	entries := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close() //nolint:errcheck

		for it.Rewind(); it.Valid(); it.Next() {
			entries++
		}
		return nil
	})
	return Stats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Entries: entries,
	}, err
}

// Close releases resources.
func (c *BadgerCache) Close() error {
	close(c.gcStop)
	return c.db.Close()
}

func (c *BadgerCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// ErrNoRewrite means there was nothing to collect.
			_ = c.db.RunValueLogGC(0.5)
		case <-c.gcStop:
			return
		}
	}
}
