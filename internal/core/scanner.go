// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core wires extraction, detection, caching and box mapping into the engine shared
// by the CLI, the web server and the watcher.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"piiscope/internal/cache"
	"piiscope/internal/config"
	"piiscope/internal/detector"
	"piiscope/internal/extract"
	"piiscope/internal/geometry"
	"piiscope/internal/hybrid"
	"piiscope/internal/ner"
	"piiscope/internal/observability"
	"piiscope/internal/ocr"
	"piiscope/internal/parallel"
)

// PageResult holds the detections of one page
type PageResult struct {
	Index int `json:"index" yaml:"index"`
	// Text is the page text the spans index into
	Text      string                   `json:"-" yaml:"-"`
	Spans     []detector.DetectionSpan `json:"spans" yaml:"spans"`
	Boxes     []geometry.BoundingBox   `json:"boxes,omitempty" yaml:"boxes,omitempty"`
	Degraded  bool                     `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	FromCache bool                     `json:"from_cache,omitempty" yaml:"from_cache,omitempty"`
}

// Result holds the detections of one document
type Result struct {
	DocumentID string        `json:"document_id" yaml:"document_id"`
	Path       string        `json:"path,omitempty" yaml:"path,omitempty"`
	Format     string        `json:"format,omitempty" yaml:"format,omitempty"`
	Pages      []PageResult  `json:"pages" yaml:"pages"`
	Duration   time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// SpanCount returns the number of spans over all pages
func (r *Result) SpanCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Spans)
	}
	return n
}

// Degraded reports whether any page fell back to pattern-only detection
func (r *Result) Degraded() bool {
	for _, p := range r.Pages {
		if p.Degraded {
			return true
		}
	}
	return false
}

// Deps are collaborators that override the configured ones. All fields are optional.
type Deps struct {
	Observer *observability.StandardObserver
	// Inferencer replaces the configured model backend
	Inferencer ner.Inferencer
	// ModelName is recorded in cache entries when Inferencer is set
	ModelName string
	// Store replaces the configured Redis store
	Store cache.Store
}

// Engine runs documents through the detection pipeline
type Engine struct {
	cfg        *config.Config
	opts       hybrid.Options
	extractors *extract.Registry
	reconciler *hybrid.Reconciler
	observer   *observability.StandardObserver
	logger     *zap.Logger
	closers    []io.Closer
}

// NewEngine builds the engine described by cfg
func NewEngine(ctx context.Context, cfg *config.Config, deps Deps) (*Engine, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	opts, err := DetectionOptions(cfg.Detection)
	if err != nil {
		return nil, err
	}

	observer := deps.Observer
	logger := observer.Logger().Named("engine")
	e := &Engine{
		cfg:        cfg,
		opts:       opts,
		extractors: extract.NewRegistry(observer),
		observer:   observer,
		logger:     logger,
	}

	model, modelName := deps.Inferencer, deps.ModelName
	if model == nil {
		var closer io.Closer
		model, closer, err = BuildInferencer(cfg, observer.Logger())
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, closer)
		modelName = ModelName(cfg)
	}

	var resultCache *cache.Cache
	if deps.Store != nil {
		resultCache = cache.New(cache.Config{
			MaxAge:     cfg.Cache.MaxAge,
			MaxEntries: cfg.Cache.MaxEntries,
			Store:      deps.Store,
			Logger:     observer.Logger(),
		})
	} else {
		var closer io.Closer
		resultCache, closer = BuildCache(ctx, cfg.Cache, observer.Logger())
		e.closers = append(e.closers, closer)
	}

	hc := hybrid.Config{
		ModelName: modelName,
		Cache:     resultCache,
		Observer:  observer,
	}
	if model != nil {
		hc.Model = BuildWindower(model, cfg.Detection, observer)
	}
	e.reconciler = hybrid.New(hc)

	logger.Info("engine ready",
		zap.Strings("categories", cfg.Detection.EnabledCategories()),
		zap.Bool("model", e.reconciler.HasModel()),
		zap.String("model_name", modelName))
	return e, nil
}

// Close releases the model session and the cache store
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options returns the detection options built from the configuration
func (e *Engine) Options() hybrid.Options {
	return e.opts
}

// Config returns the configuration the engine was built from
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Supports reports whether ScanFile can extract path
func (e *Engine) Supports(path string) bool {
	return e.extractors.Supports(path)
}

// DocumentID derives the cache identity of a file
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Detect runs one page through the cached pipeline with explicit options
func (e *Engine) Detect(ctx context.Context, documentID string, page int, text string, opts hybrid.Options) (hybrid.Result, error) {
	return e.reconciler.DetectPage(ctx, documentID, page, text, opts)
}

// ScanFile extracts the file at path and detects PII on every page
func (e *Engine) ScanFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	doc, err := e.extractors.ExtractFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	texts := make([]string, len(doc.Pages))
	for i, p := range doc.Pages {
		texts[i] = p.Text
	}
	pages, err := e.detectPages(ctx, DocumentID(path), texts)
	if err != nil {
		return nil, err
	}
	return &Result{
		DocumentID: DocumentID(path),
		Path:       path,
		Format:     doc.Format,
		Pages:      pages,
		Duration:   time.Since(start),
	}, nil
}

// ScanText detects PII in ad-hoc text. An empty documentID gets a fresh one, which bypasses
// earlier cache entries.
func (e *Engine) ScanText(ctx context.Context, documentID, text string) (*Result, error) {
	start := time.Now()
	if documentID == "" {
		documentID = uuid.NewString()
	}
	pages, err := e.detectPages(ctx, documentID, []string{text})
	if err != nil {
		return nil, err
	}
	return &Result{DocumentID: documentID, Pages: pages, Duration: time.Since(start)}, nil
}

// ScanOCR detects PII in OCR'd pages and maps every span onto the page's words.
// scale converts OCR pixels into output units; zero derives it from each page's DPI.
func (e *Engine) ScanOCR(ctx context.Context, documentID string, pages []*ocr.Page, scale float64) (*Result, error) {
	start := time.Now()
	if documentID == "" {
		documentID = uuid.NewString()
	}
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	results, err := e.detectPages(ctx, documentID, texts)
	if err != nil {
		return nil, err
	}

	for i := range results {
		s := scale
		if s <= 0 {
			s = pages[i].Scale(e.cfg.Geometry.TargetDPI)
		}
		results[i].Boxes, _ = e.Boxes(results[i].Spans, pages[i].Words, pages[i].Text, i, s)
	}
	return &Result{DocumentID: documentID, Format: "ocr", Pages: results, Duration: time.Since(start)}, nil
}

// Boxes maps spans onto OCR words with the configured padding
func (e *Engine) Boxes(spans []detector.DetectionSpan, words []geometry.OCRWord, text string, page int, scale float64) ([]geometry.BoundingBox, geometry.Stats) {
	m := e.mapper(page, scale)
	return m.Map(spans, words, text)
}

func (e *Engine) mapper(page int, scale float64) *geometry.Mapper {
	m := geometry.NewMapper(e.observer)
	m.Page = page
	m.Padding = e.cfg.Geometry.Padding
	if scale > 0 {
		m.Scale = scale
	}
	return m
}

// Table reconstructs a table from OCR words with the configured tolerances
func (e *Engine) Table(words []geometry.OCRWord) *geometry.Table {
	return geometry.BuildTable(words, e.cfg.Geometry.RowTolerance, e.cfg.Geometry.ColumnMinShare)
}

// TableBoxes returns the redaction boxes of every PII column of a table
func (e *Engine) TableBoxes(t *geometry.Table, page int, scale float64) []geometry.BoundingBox {
	return t.RedactionBoxes(e.mapper(page, scale))
}

// Forms finds label/value fields and, when any built-in template matches, applies it
func (e *Engine) Forms(words []geometry.OCRWord, labels []geometry.Label) (string, []geometry.Field) {
	fields := geometry.DetectFields(words, labels, e.cfg.Geometry.RowTolerance)
	return geometry.MatchTemplate(fields, geometry.DefaultTemplates())
}

// Invalidate drops the cached results of a document
func (e *Engine) Invalidate(ctx context.Context, documentID string) {
	e.reconciler.InvalidateDocument(ctx, documentID)
}

// detectPages runs the pages of one document concurrently, returning them in page order
func (e *Engine) detectPages(ctx context.Context, documentID string, texts []string) ([]PageResult, error) {
	jobs := make([]parallel.Job[hybrid.Result], len(texts))
	for i, text := range texts {
		i, text := i, text
		jobs[i] = parallel.Job[hybrid.Result]{
			ID: i,
			Run: func(ctx context.Context) (hybrid.Result, error) {
				return e.reconciler.DetectPage(ctx, documentID, i, text, e.opts)
			},
		}
	}

	results, err := parallel.Run(ctx, "pages", e.cfg.Detection.Concurrency, e.observer, jobs)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	pages := make([]PageResult, len(results))
	for i, r := range results {
		pages[i] = PageResult{
			Index:     i,
			Text:      texts[i],
			Spans:     r.Value.Spans,
			Degraded:  r.Value.Degraded,
			FromCache: r.Value.FromCache,
		}
		if pages[i].Spans == nil {
			pages[i].Spans = []detector.DetectionSpan{}
		}
	}
	return pages, nil
}
