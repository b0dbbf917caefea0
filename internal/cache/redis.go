// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"piiscope/internal/resilience"
)

// Compile-time check: RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

const defaultKeyPrefix = "piiscope:"

// RedisConfig holds connection parameters for the shared cache level
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisStore keeps cache entries as JSON strings in Redis
type RedisStore struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store via rueidis
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client. An empty prefix uses "piiscope:".
func NewRedisStoreWithClient(client rueidis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// documentPrefix hex-encodes the document ID so no ID is a prefix of another's keys
func (s *RedisStore) documentPrefix(documentID string) string {
	return s.prefix + "doc:" + hex.EncodeToString([]byte(documentID)) + ":"
}

func (s *RedisStore) key(k Key) string {
	return fmt.Sprintf("%s%d", s.documentPrefix(k.DocumentID), k.Page)
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady pings with exponential backoff until Redis answers or the retries run out
func (s *RedisStore) WaitForReady(ctx context.Context, cfg resilience.RetryConfig) error {
	err := resilience.RetryWithBackoff(ctx, cfg, func(ctx context.Context) error {
		if err := s.Ping(ctx); err != nil {
			return resilience.NewTransientError("redis not ready", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("waiting for redis: %w", err)
	}
	return nil
}

// Close shuts down the client
func (s *RedisStore) Close() {
	s.client.Close()
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, k Key) (Entry, error) {
	cmd := s.client.B().Get().Key(s.key(k)).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get %s: %w", s.key(k), err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", s.key(k), err)
	}
	return e, nil
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, k Key, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	var cmd rueidis.Completed
	if s.ttl > 0 {
		cmd = s.client.B().Set().Key(s.key(k)).Value(string(data)).Ex(s.ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(s.key(k)).Value(string(data)).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", s.key(k), err)
	}
	return nil
}

// DeleteDocument removes every page of a document
func (s *RedisStore) DeleteDocument(ctx context.Context, documentID string) error {
	pattern := escapeGlob(s.documentPrefix(documentID)) + "*"

	var keys []string
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil
	}

	cmd := s.client.B().Del().Key(keys...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("del %d keys: %w", len(keys), err)
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes characters SCAN MATCH would treat as wildcards
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
