// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"piiscope/internal/cache"
	"piiscope/internal/config"
	"piiscope/internal/hybrid"
	"piiscope/internal/ner"
	"piiscope/internal/ner/llm"
	"piiscope/internal/ner/onnx"
	"piiscope/internal/observability"
	"piiscope/internal/patterns"
	"piiscope/internal/resilience"
	"piiscope/internal/window"
)

// DetectionOptions converts the detection section into reconciler options
func DetectionOptions(d config.DetectionConfig) (hybrid.Options, error) {
	opts := hybrid.Options{
		UseModel:           d.UseModel,
		ModelMinConfidence: d.ModelMinConfidence,
		RegionGuidance:     d.RegionGuidance,
		Timeout:            d.Timeout,
	}
	for _, name := range d.EnabledCategories() {
		kind, err := patterns.ParseKind(name)
		if err != nil {
			return hybrid.Options{}, err
		}
		opts.Kinds = append(opts.Kinds, kind)
	}
	return opts, nil
}

// BuildInferencer constructs the configured model backend. It returns a nil Inferencer for
// backend "none". The closer is never nil.
func BuildInferencer(cfg *config.Config, logger *zap.Logger) (ner.Inferencer, io.Closer, error) {
	switch cfg.Model.Backend {
	case "", "none":
		return nil, nopCloser{}, nil
	case "onnx":
		rec, err := onnx.New(onnx.Config{
			ModelPath:         cfg.Model.ONNX.ModelPath,
			VocabPath:         cfg.Model.ONNX.VocabPath,
			SharedLibraryPath: cfg.Model.ONNX.SharedLibraryPath,
			Labels:            cfg.Model.ONNX.Labels,
			MaxTokens:         cfg.Model.ONNX.MaxTokens,
			Lowercase:         cfg.Model.ONNX.Lowercase,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load onnx model: %w", err)
		}
		return rec, rec, nil
	case "llm":
		rec := llm.New(&llm.Config{
			APIKey:  cfg.Model.LLM.APIKey,
			BaseURL: cfg.Model.LLM.BaseURL,
			Model:   cfg.Model.LLM.Model,
			Logger:  logger,
		})
		return rec, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

// ModelName is the identifier recorded in cache entries for the configured backend
func ModelName(cfg *config.Config) string {
	if cfg.Model.Name != "" {
		return cfg.Model.Name
	}
	switch cfg.Model.Backend {
	case "onnx":
		return "onnx:" + cfg.Model.ONNX.ModelPath
	case "llm":
		return "llm:" + cfg.Model.LLM.Model
	}
	return ""
}

// BuildWindower wraps an inferencer in the entity adapter and the context windower
func BuildWindower(model ner.Inferencer, d config.DetectionConfig, observer *observability.StandardObserver) *window.Windower {
	return window.New(ner.NewAdapter(model), d.WindowSize, d.OverlapRatio, d.Concurrency, observer)
}

// BuildCache creates the result cache. When Redis addresses are configured the store is
// attached once it answers a ping; an unreachable Redis leaves the cache in-process only.
func BuildCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*cache.Cache, io.Closer) {
	cc := cache.Config{MaxAge: cfg.MaxAge, MaxEntries: cfg.MaxEntries, Logger: logger}
	if len(cfg.Redis.Addrs) == 0 {
		return cache.New(cc), nopCloser{}
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		logger.Warn("redis store disabled", zap.Error(err))
		return cache.New(cc), nopCloser{}
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		logger.Info("waiting for redis", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err := store.WaitForReady(ctx, retry); err != nil {
		logger.Warn("redis store disabled", zap.Error(err))
		store.Close()
		return cache.New(cc), nopCloser{}
	}

	cc.Store = store
	return cache.New(cc), closerFunc(store.Close)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// ParseCategories converts category names into detection toggles.
// An empty slice or ["all"] enables every category; unknown names are ignored.
func ParseCategories(names []string) map[string]bool {
	result := make(map[string]bool, len(config.Categories))
	for _, c := range config.Categories {
		result[c] = false
	}

	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		for key := range result {
			result[key] = true
		}
		return result
	}

	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			if _, exists := result[name]; exists {
				result[name] = true
			}
		}
	}
	return result
}

// ParseConfidenceLevels converts a comma-separated confidence level string into a map.
// "all" or empty string enables every level.
func ParseConfidenceLevels(levels string) map[string]bool {
	result := map[string]bool{
		"high":   false,
		"medium": false,
		"low":    false,
	}

	if levels == "all" || levels == "" {
		result["high"] = true
		result["medium"] = true
		result["low"] = true
		return result
	}

	for _, level := range strings.Split(levels, ",") {
		switch l := strings.ToLower(strings.TrimSpace(level)); l {
		case "high", "medium", "low":
			result[l] = true
		}
	}
	return result
}
