// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package hybrid reconciles checksum-validated pattern hits with named-entity model output
// into one de-duplicated, confidence-ranked list of spans.
package hybrid

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"piiscope/internal/cache"
	"piiscope/internal/detector"
	"piiscope/internal/metrics"
	"piiscope/internal/ner"
	"piiscope/internal/observability"
	"piiscope/internal/patterns"
	"piiscope/internal/refine"
	"piiscope/internal/resilience"
	"piiscope/internal/window"
)

const (
	DefaultModelMinConfidence = 0.8
	DefaultTimeout            = 10 * time.Second
)

// Options control one detection call
type Options struct {
	Kinds              []patterns.Kind
	UseModel           bool
	ModelMinConfidence float64
	RegionGuidance     bool
	Timeout            time.Duration
}

// DefaultOptions enables every pattern kind and the model
func DefaultOptions() Options {
	return Options{
		Kinds:              patterns.AllKinds(),
		UseModel:           true,
		ModelMinConfidence: DefaultModelMinConfidence,
		RegionGuidance:     false,
		Timeout:            DefaultTimeout,
	}
}

// fingerprint identifies the option set for cache validation
func (o Options) fingerprint() string {
	names := make([]string, 0, len(o.Kinds))
	for _, k := range o.Kinds {
		names = append(names, k.String())
	}
	sort.Strings(names)
	fp := strings.Join(names, ",")
	if o.UseModel {
		fp += ";model"
	}
	if o.RegionGuidance {
		fp += ";regions"
	}
	return fp
}

// Result is the reconciled output of one call
type Result struct {
	Spans []detector.DetectionSpan `json:"spans"`
	// Degraded is set when the model pass failed and only pattern results are returned
	Degraded  bool `json:"degraded"`
	FromCache bool `json:"from_cache"`
}

// EntityModel produces document-offset entities; *window.Windower implements it
type EntityModel interface {
	Detect(ctx context.Context, text string) ([]detector.RawEntity, error)
}

// Config wires a Reconciler. Model may be nil for pattern-only operation.
type Config struct {
	Model     EntityModel
	ModelName string
	Refiner   *refine.Refiner
	Breaker   *resilience.CircuitBreaker
	Cache     *cache.Cache
	Observer  *observability.StandardObserver
}

// Reconciler runs the pattern and model passes and merges them
type Reconciler struct {
	model     EntityModel
	modelName string
	refiner   *refine.Refiner
	breaker   *resilience.CircuitBreaker
	cache     *cache.Cache
	observer  *observability.StandardObserver
	logger    *zap.Logger
}

// New creates a reconciler
func New(cfg Config) *Reconciler {
	logger := cfg.Observer.Logger().Named("hybrid")
	refiner := cfg.Refiner
	if refiner == nil {
		refiner = refine.New(logger)
	}
	breaker := cfg.Breaker
	if breaker == nil {
		bc := resilience.DefaultCircuitBreakerConfig("model")
		bc.OnStateChange = func(name string, from, to resilience.CircuitBreakerState) {
			logger.Warn("circuit breaker state change", zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
		}
		breaker = resilience.NewCircuitBreaker(bc)
	}
	return &Reconciler{
		model:     cfg.Model,
		modelName: cfg.ModelName,
		refiner:   refiner,
		breaker:   breaker,
		cache:     cfg.Cache,
		observer:  cfg.Observer,
		logger:    logger,
	}
}

// HasModel reports whether a model is configured
func (r *Reconciler) HasModel() bool {
	return r.model != nil
}

// Detect runs the full pipeline over text. Model failures never fail the call; they yield
// the pattern results with Degraded set.
func (r *Reconciler) Detect(ctx context.Context, text string, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if opts.ModelMinConfidence <= 0 {
		opts.ModelMinConfidence = DefaultModelMinConfidence
	}
	finishTiming := r.observer.StartTiming("hybrid", "detect", "")

	start := time.Now()
	patternSpans := patterns.FindAll(text, opts.Kinds)
	metrics.ObserveStage("pattern", start)

	result := Result{}
	var modelSpans []detector.DetectionSpan
	if opts.UseModel && r.model != nil && strings.TrimSpace(text) != "" {
		entities, err := r.runModel(ctx, text, patternSpans, opts)
		if err != nil {
			reason := resilience.ClassifyError(err).Type.String()
			r.logger.Warn("model pass failed, returning pattern results only", zap.String("reason", reason), zap.Error(err))
			metrics.InferenceFailuresTotal.WithLabelValues(reason).Inc()
			result.Degraded = true
		} else {
			modelSpans = r.modelSpans(text, entities)
		}
	}

	modelSpans = CrossValidate(modelSpans, opts.Kinds)
	modelSpans = ProximityBoost(modelSpans, patternSpans)
	modelSpans = FilterConfidence(modelSpans, opts.ModelMinConfidence)
	result.Spans = SmartMerge(patternSpans, modelSpans)

	for _, s := range result.Spans {
		metrics.DetectionsTotal.WithLabelValues(string(s.Source), s.Type).Inc()
	}
	finishTiming(true, map[string]interface{}{
		"pattern":  len(patternSpans),
		"model":    len(modelSpans),
		"spans":    len(result.Spans),
		"degraded": result.Degraded,
	})
	return result, nil
}

// runModel runs the model under the caller timeout and the circuit breaker. With region
// guidance and pattern hits only the text around the hits is sent.
func (r *Reconciler) runModel(ctx context.Context, text string, patternSpans []detector.DetectionSpan, opts Options) ([]detector.RawEntity, error) {
	start := time.Now()
	defer metrics.ObserveStage("model", start)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		entities []detector.RawEntity
		err      error
	}
	var entities []detector.RawEntity
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		// buffered so a model that ignores ctx can finish after we stop waiting
		done := make(chan outcome, 1)
		go func() {
			var o outcome
			if opts.RegionGuidance && len(patternSpans) > 0 {
				o.entities, o.err = r.detectRegions(ctx, text, regions(text, patternSpans, RegionRadius))
			} else {
				o.entities, o.err = r.model.Detect(ctx, text)
			}
			done <- o
		}()
		select {
		case o := <-done:
			if o.err != nil {
				return o.err
			}
			entities = o.entities
			return ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &resilience.ClassifiedError{Original: err, Type: resilience.ErrorTypeTimeout, Message: "model timed out", Retryable: true}
		}
		return nil, err
	}
	return entities, nil
}

func (r *Reconciler) detectRegions(ctx context.Context, text string, regs []detector.Positions) ([]detector.RawEntity, error) {
	var all []detector.RawEntity
	for _, reg := range regs {
		ents, err := r.model.Detect(ctx, text[reg.Start:reg.End])
		if err != nil {
			return nil, err
		}
		for _, e := range ents {
			e.Start += reg.Start
			e.End += reg.Start
			all = append(all, e)
		}
	}
	return window.Merge(all), nil
}

// modelSpans refines and context-boosts entities, then converts them to spans. Entities with
// offsets that do not fit the text keep their text but lose their positions.
func (r *Reconciler) modelSpans(text string, entities []detector.RawEntity) []detector.DetectionSpan {
	entities = r.refiner.Refine(entities, text)
	entities = window.ContextBoost(entities, text)

	spans := make([]detector.DetectionSpan, 0, len(entities))
	for _, e := range entities {
		if ner.ValidOffsets(text, e.Start, e.End) {
			spans = append(spans, detector.NewSpan(text, e.Start, e.End, e.EntityType, e.Score, detector.SourceModel))
			continue
		}
		spans = append(spans, detector.DetectionSpan{
			Text:       e.Text,
			Type:       e.EntityType,
			Confidence: detector.ClampConfidence(e.Score),
			Source:     detector.SourceModel,
		})
	}
	return spans
}

// CacheOptions returns the cache validation options for a call
func (r *Reconciler) CacheOptions(opts Options) cache.Options {
	minConf := opts.ModelMinConfidence
	if minConf <= 0 {
		minConf = DefaultModelMinConfidence
	}
	name := ""
	if opts.UseModel && r.model != nil {
		name = r.modelName
	}
	return cache.Options{MinConfidence: minConf, ModelName: name, Kinds: opts.fingerprint()}
}

// DetectPage is Detect behind the result cache. Degraded results are not cached so the
// next call retries the model.
func (r *Reconciler) DetectPage(ctx context.Context, documentID string, page int, text string, opts Options) (Result, error) {
	if r.cache == nil {
		return r.Detect(ctx, text, opts)
	}
	cacheOpts := r.CacheOptions(opts)
	if spans, ok := r.cache.Get(ctx, documentID, page, text, cacheOpts); ok {
		return Result{Spans: spans, FromCache: true}, nil
	}

	res, err := r.Detect(ctx, text, opts)
	if err != nil {
		return res, err
	}
	if !res.Degraded {
		r.cache.Set(ctx, documentID, page, text, cacheOpts, res.Spans)
	}
	return res, nil
}

// InvalidateDocument drops every cached page of a document
func (r *Reconciler) InvalidateDocument(ctx context.Context, documentID string) {
	if r.cache != nil {
		r.cache.ClearDocument(ctx, documentID)
	}
}
