// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package window splits long documents into overlapping windows for the entity model,
// runs them concurrently and merges the per-window entities back into document offsets.
package window

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"piiscope/internal/detector"
	"piiscope/internal/metrics"
	"piiscope/internal/observability"
	"piiscope/internal/parallel"
	"piiscope/internal/patterns"
)

const (
	DefaultSize        = 512
	DefaultOverlap     = 0.25
	DefaultConcurrency = 4

	labelBoost   = 1.25
	densityBoost = 1.15
	// densityRadius is how far from an entity PII-shaped hits are counted
	densityRadius = 100
	densityMin    = 2
)

var piiLabelRe = regexp.MustCompile(`(?i)\b(?:name|full name|first name|last name|surname|patient|employee|applicant|insured|beneficiary|ssn|social security(?: number| no\.?)?|dob|date of birth|born|address|home address|phone|mobile|tel|email|e-mail|account(?: number| no\.?)?|passport(?: number| no\.?)?|driver'?s? licen[cs]e|license number|tax id|tin|mrn|member id|signature|signed)\s*[:#]`)

// Extractor produces entities for a piece of text with offsets relative to that text.
// *ner.Adapter satisfies it.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]detector.RawEntity, error)
}

// Windower runs an Extractor over long text in overlapping windows
type Windower struct {
	Size        int
	Overlap     float64
	Concurrency int
	Extractor   Extractor
	Observer    *observability.StandardObserver
}

// New creates a windower, replacing out-of-range settings with defaults
func New(extractor Extractor, size int, overlap float64, concurrency int, observer *observability.StandardObserver) *Windower {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= 1 {
		overlap = DefaultOverlap
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Windower{
		Size:        size,
		Overlap:     overlap,
		Concurrency: concurrency,
		Extractor:   extractor,
		Observer:    observer,
	}
}

func (w *Windower) stride() int {
	s := int(float64(w.Size) * (1 - w.Overlap))
	if s < 1 {
		s = 1
	}
	return s
}

// Split cuts text into windows of at most Size bytes (extended to the next rune boundary)
// with the configured overlap. The last window always ends at the end of the text.
func (w *Windower) Split(text string) []detector.TextWindow {
	if text == "" {
		return nil
	}
	if len(text) <= w.Size {
		return []detector.TextWindow{{Text: text, Start: 0, End: len(text), Index: 0}}
	}

	var out []detector.TextWindow
	stride := w.stride()
	prev := -1
	for pos := 0; ; pos += stride {
		start := detector.AlignStart(text, pos)
		if start <= prev {
			start = detector.AlignEnd(text, pos)
		}
		end := detector.AlignEnd(text, start+w.Size)
		out = append(out, detector.TextWindow{
			Text:  text[start:end],
			Start: start,
			End:   end,
			Index: len(out),
		})
		if end >= len(text) {
			break
		}
		prev = start
	}
	return out
}

// Detect extracts entities from text. Short text is one direct call; long text runs one job
// per window on the worker pool. Any window failure fails the whole call.
func (w *Windower) Detect(ctx context.Context, text string) ([]detector.RawEntity, error) {
	if len(text) <= w.Size {
		return w.Extractor.Extract(ctx, text)
	}

	start := time.Now()
	defer metrics.ObserveStage("window", start)

	windows := w.Split(text)
	finishTiming := w.Observer.StartTiming("windower", "detect", "")

	jobs := make([]parallel.Job[[]detector.RawEntity], len(windows))
	for i, win := range windows {
		win := win
		jobs[i] = parallel.Job[[]detector.RawEntity]{
			ID: win.Index,
			Run: func(ctx context.Context) ([]detector.RawEntity, error) {
				ents, err := w.Extractor.Extract(ctx, win.Text)
				if err != nil {
					return nil, fmt.Errorf("window %d: %w", win.Index, err)
				}
				for j := range ents {
					ents[j].Start += win.Start
					ents[j].End += win.Start
				}
				return ents, nil
			},
		}
	}

	results, err := parallel.Run(ctx, "windower", w.Concurrency, w.Observer, jobs)
	if err != nil {
		finishTiming(false, map[string]interface{}{"windows": len(windows), "error": err.Error()})
		return nil, err
	}

	var all []detector.RawEntity
	for _, r := range results {
		all = append(all, r.Value...)
	}
	merged := Merge(all)

	finishTiming(true, map[string]interface{}{
		"windows":  len(windows),
		"raw":      len(all),
		"entities": len(merged),
	})
	return merged, nil
}

// Merge sorts entities by start and scans them left to right against the last kept entity.
// An entity duplicates it when their text is equal ignoring case and their ranges overlap or
// touch; the higher score replaces the kept one in place.
func Merge(entities []detector.RawEntity) []detector.RawEntity {
	if len(entities) == 0 {
		return nil
	}
	sorted := make([]detector.RawEntity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]detector.RawEntity, 0, len(sorted))
	for _, e := range sorted {
		if n := len(out); n > 0 {
			last := out[n-1]
			if strings.EqualFold(last.Text, e.Text) && last.Start <= e.End && e.Start <= last.End {
				if e.Score > last.Score {
					out[n-1] = e
				}
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// ContextBoost raises the score of entities preceded by a PII label on their line, and of
// entities with at least two PII-shaped substrings within 100 bytes. Scores are capped at 1.
func ContextBoost(entities []detector.RawEntity, text string) []detector.RawEntity {
	if len(entities) == 0 {
		return entities
	}
	hits := mergeRanges(patterns.PIILike(text))

	out := make([]detector.RawEntity, len(entities))
	for i, e := range entities {
		score := e.Score
		if e.Start >= 0 && e.Start <= len(text) && e.End <= len(text) && e.Start < e.End {
			if hasLabel(text, e.Start) {
				score *= labelBoost
			}
			if nearbyHits(hits, e) >= densityMin {
				score *= densityBoost
			}
		}
		e.Score = detector.ClampConfidence(score)
		out[i] = e
	}
	return out
}

// hasLabel looks for a label between the start of the entity's line and the entity
func hasLabel(text string, start int) bool {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	return piiLabelRe.MatchString(text[lineStart:start])
}

func nearbyHits(hits []detector.Positions, e detector.RawEntity) int {
	self := detector.Positions{Start: e.Start, End: e.End}
	n := 0
	for _, h := range hits {
		if h.Intersects(self) {
			continue
		}
		if h.End >= e.Start-densityRadius && h.Start <= e.End+densityRadius {
			n++
		}
	}
	return n
}

// mergeRanges collapses overlapping hits so one substring is counted once
func mergeRanges(in []detector.Positions) []detector.Positions {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start < in[j].Start })
	out := []detector.Positions{in[0]}
	for _, p := range in[1:] {
		last := &out[len(out)-1]
		if p.Start < last.End {
			if p.End > last.End {
				last.End = p.End
			}
			continue
		}
		out = append(out, p)
	}
	return out
}
