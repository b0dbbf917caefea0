// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract turns document files into per-page plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"piiscope/internal/observability"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Page is the text of one page, sheet or section. Index is zero-based.
type Page struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Document is the extracted text of one file
type Document struct {
	// Path is the file the text came from
	Path string `json:"path"`

	// Format is the extractor name that produced the text
	Format string `json:"format"`

	// Pages holds the text per page, in document order
	Pages []Page `json:"pages"`
}

// Text returns the pages joined by form feeds
func (d *Document) Text() string {
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\f")
}

// Extractor converts the content of one document format into pages
type Extractor interface {
	// Name identifies the format
	Name() string

	// Extensions lists the lower-case file extensions handled, with the leading dot
	Extensions() []string

	// Extract returns the pages of content
	Extract(content []byte) ([]Page, error)
}

// Registry dispatches on file extension
type Registry struct {
	byExt    map[string]Extractor
	observer *observability.StandardObserver
}

// NewRegistry creates a registry with every built-in extractor
func NewRegistry(observer *observability.StandardObserver) *Registry {
	r := &Registry{byExt: make(map[string]Extractor), observer: observer}
	for _, e := range []Extractor{
		plainExtractor{},
		markdownExtractor{},
		htmlExtractor{},
		pdfExtractor{},
		docxExtractor{},
		xlsxExtractor{},
	} {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the extractor for each of its extensions
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supports reports whether path has a registered extension
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions, sorted
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ExtractFile reads and extracts the file at path
func (r *Registry) ExtractFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := r.byExt[ext]; !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := r.ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// ExtractBytes extracts content using the extractor registered for ext (e.g. ".pdf")
func (r *Registry) ExtractBytes(content []byte, ext string) (*Document, error) {
	e, ok := r.byExt[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}

	finishTiming := r.observer.StartTiming("extract", e.Name(), ext)
	pages, err := e.Extract(content)
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("extract %s: %w", e.Name(), err)
	}
	finishTiming(true, map[string]interface{}{"pages": len(pages), "bytes": len(content)})

	return &Document{Format: e.Name(), Pages: pages}, nil
}

// paginate numbers page texts in source order, keeping empty pages so indexes match the
// source. A document without pages yields one empty page.
func paginate(texts []string) []Page {
	if len(texts) == 0 {
		return []Page{{Index: 0}}
	}
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{Index: i, Text: strings.TrimSpace(t)}
	}
	return pages
}
