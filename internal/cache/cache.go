// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cache keeps reconciled detection results per (document, page) so unchanged pages
// are not re-detected. Entries are validated against a hash of the page text, their age and
// the options they were produced with. An optional Store acts as a shared second level.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"piiscope/internal/detector"
	"piiscope/internal/metrics"
)

const (
	DefaultMaxAge     = time.Hour
	DefaultMaxEntries = 100
)

// ErrNotFound is returned by a Store when it has no entry for a key
var ErrNotFound = errors.New("cache entry not found")

// Options are the detection settings an entry was produced with. An entry only satisfies
// a lookup made with equal options.
type Options struct {
	MinConfidence float64 `json:"min_confidence"`
	ModelName     string  `json:"model_name"`
	// Kinds fingerprints the enabled pattern kinds and model toggle
	Kinds string `json:"kinds,omitempty"`
}

// Key addresses one page of one document
type Key struct {
	DocumentID string
	Page       int
}

// Entry is one cached page result
type Entry struct {
	TextHash  uint64                   `json:"text_hash"`
	Entities  []detector.DetectionSpan `json:"entities"`
	Timestamp time.Time                `json:"timestamp"`
	Options   Options                  `json:"options"`
}

// Store is a second-level cache shared between processes
type Store interface {
	Get(ctx context.Context, key Key) (Entry, error)
	Set(ctx context.Context, key Key, entry Entry) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// Config configures a Cache
type Config struct {
	MaxAge     time.Duration
	MaxEntries int
	Store      Store
	Logger     *zap.Logger
}

// Cache is an in-memory result cache with insertion-order eviction. It is safe for
// concurrent use; the lock is never held during Store I/O.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Entry
	order   []Key

	maxAge     time.Duration
	maxEntries int
	store      Store
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a cache, applying defaults for unset limits
func New(cfg Config) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Cache{
		entries:    make(map[Key]Entry),
		maxAge:     cfg.MaxAge,
		maxEntries: cfg.MaxEntries,
		store:      cfg.Store,
		logger:     cfg.Logger.Named("cache"),
		now:        time.Now,
	}
}

// HashText returns the xxhash64 of the page text
func HashText(text string) uint64 {
	return xxhash.Sum64String(text)
}

func (c *Cache) valid(e Entry, hash uint64, opts Options) bool {
	return e.TextHash == hash && c.now().Sub(e.Timestamp) <= c.maxAge && e.Options == opts
}

// Get returns the cached spans for a page. A stale, changed or differently-configured entry
// is evicted and reported as a miss.
func (c *Cache) Get(ctx context.Context, documentID string, page int, text string, opts Options) ([]detector.DetectionSpan, bool) {
	key := Key{DocumentID: documentID, Page: page}
	hash := HashText(text)

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		if c.valid(e, hash, opts) {
			spans := detector.CloneSpans(e.Entities)
			c.mu.Unlock()
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return spans, true
		}
		c.removeLocked(key)
		metrics.CacheRequestsTotal.WithLabelValues("evict").Inc()
	}
	c.mu.Unlock()

	if c.store != nil {
		if spans, ok := c.getFromStore(ctx, key, hash, opts); ok {
			metrics.CacheRequestsTotal.WithLabelValues("l2_hit").Inc()
			return spans, true
		}
	}

	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	return nil, false
}

func (c *Cache) getFromStore(ctx context.Context, key Key, hash uint64, opts Options) ([]detector.DetectionSpan, bool) {
	e, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("store get failed", zap.String("document", key.DocumentID), zap.Int("page", key.Page), zap.Error(err))
		}
		return nil, false
	}
	if !c.valid(e, hash, opts) {
		return nil, false
	}

	c.mu.Lock()
	c.insertLocked(key, e)
	c.mu.Unlock()
	return detector.CloneSpans(e.Entities), true
}

// Set stores a copy of spans for the page and writes it through to the Store.
// Store failures are logged and otherwise ignored.
func (c *Cache) Set(ctx context.Context, documentID string, page int, text string, opts Options, spans []detector.DetectionSpan) {
	key := Key{DocumentID: documentID, Page: page}
	entry := Entry{
		TextHash:  HashText(text),
		Entities:  detector.CloneSpans(spans),
		Timestamp: c.now(),
		Options:   opts,
	}

	c.mu.Lock()
	c.insertLocked(key, entry)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Set(ctx, key, entry); err != nil {
			c.logger.Warn("store set failed", zap.String("document", documentID), zap.Int("page", page), zap.Error(err))
		}
	}
}

// insertLocked replaces or adds an entry as the newest, evicting the oldest when full
func (c *Cache) insertLocked(key Key, e Entry) {
	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	}
	for len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		metrics.CacheRequestsTotal.WithLabelValues("evict").Inc()
	}
	c.entries[key] = e
	c.order = append(c.order, key)
}

func (c *Cache) removeLocked(key Key) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// ClearDocument drops every page of a document from both levels
func (c *Cache) ClearDocument(ctx context.Context, documentID string) {
	c.mu.Lock()
	kept := c.order[:0]
	for _, k := range c.order {
		if k.DocumentID == documentID {
			delete(c.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteDocument(ctx, documentID); err != nil {
			c.logger.Warn("store delete failed", zap.String("document", documentID), zap.Error(err))
		}
	}
}

// ClearAll empties the in-memory level. The Store is left to expire on its own TTL.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[Key]Entry)
	c.order = nil
	c.mu.Unlock()
}

// Len returns the number of in-memory entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
