// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package geometry projects detection spans onto page coordinates using word-level OCR
// output, and reconstructs tables and form fields from the same words.
package geometry

import (
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"piiscope/internal/detector"
	"piiscope/internal/observability"
)

// DefaultPadding is the margin added on every side of a mapped box, in output units
const DefaultPadding = 4.0

// BBox is an axis-aligned rectangle with its origin at the top left
type BBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Right returns the x coordinate of the right edge
func (b BBox) Right() float64 { return b.X + b.Width }

// Bottom returns the y coordinate of the bottom edge
func (b BBox) Bottom() float64 { return b.Y + b.Height }

// CenterY returns the vertical center
func (b BBox) CenterY() float64 { return b.Y + b.Height/2 }

// Union returns the smallest box containing both boxes
func (b BBox) Union(o BBox) BBox {
	x0 := math.Min(b.X, o.X)
	y0 := math.Min(b.Y, o.Y)
	x1 := math.Max(b.Right(), o.Right())
	y1 := math.Max(b.Bottom(), o.Bottom())
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// OCRWord is one recognized word as delivered by the OCR engine
type OCRWord struct {
	// Text is the recognized word
	Text string `json:"text" yaml:"text"`

	// BBox locates the word on the page, in OCR pixels
	BBox BBox `json:"bbox" yaml:"bbox"`

	// Confidence is the recognition confidence in [0,1]
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// BoundingBox is a detection projected onto the page, ready for a redaction renderer
type BoundingBox struct {
	X          float64         `json:"x" yaml:"x"`
	Y          float64         `json:"y" yaml:"y"`
	W          float64         `json:"w" yaml:"w"`
	H          float64         `json:"h" yaml:"h"`
	Text       string          `json:"text" yaml:"text"`
	Type       string          `json:"type" yaml:"type"`
	Source     detector.Source `json:"source" yaml:"source"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Page       int             `json:"page" yaml:"page"`
}

// WordSpan ties an OCR word to the byte range it occupies in the page text
type WordSpan struct {
	// Word is the index into the OCR word slice
	Word int

	// Start and End are the half-open byte offsets of the word in the page text
	Start int
	End   int
}

// BuildWordMap locates each word in text, scanning forward from the end of the previous
// match. A word that cannot be found is skipped and the scan position is kept.
func BuildWordMap(words []OCRWord, text string) []WordSpan {
	out := make([]WordSpan, 0, len(words))
	cursor := 0
	for i, w := range words {
		needle := strings.TrimSpace(w.Text)
		if needle == "" {
			continue
		}
		idx := strings.Index(text[cursor:], needle)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		end := start + len(needle)
		out = append(out, WordSpan{Word: i, Start: start, End: end})
		cursor = end
	}
	return out
}

// Stats summarizes one Map call
type Stats struct {
	Spans    int `json:"spans"`
	Mapped   int `json:"mapped"`
	Unmapped int `json:"unmapped"`
	Boxes    int `json:"boxes"`
}

// Mapper turns spans into page boxes
type Mapper struct {
	// Scale multiplies OCR coordinates into output units; zero means 1
	Scale float64

	// Page is stamped on every box
	Page int

	// Padding is added on every side of each box
	Padding float64

	observer *observability.StandardObserver
}

// NewMapper creates a mapper with unit scale and the default padding
func NewMapper(observer *observability.StandardObserver) *Mapper {
	return &Mapper{Scale: 1, Padding: DefaultPadding, observer: observer}
}

// Map projects spans onto boxes. A span with positions yields the union of the words it
// intersects. A span without positions yields one box per case-insensitive occurrence of
// its text. Spans that touch no word yield nothing.
func (m *Mapper) Map(spans []detector.DetectionSpan, words []OCRWord, text string) ([]BoundingBox, Stats) {
	finishTiming := m.observer.StartTiming("geometry", "map", "")
	logger := m.observer.Logger().Named("geometry")

	wordMap := BuildWordMap(words, text)
	stats := Stats{Spans: len(spans)}
	var out []BoundingBox

	for _, s := range spans {
		var ranges []detector.Positions
		if s.Positions != nil {
			ranges = []detector.Positions{*s.Positions}
		} else {
			ranges = occurrencesFold(text, strings.TrimSpace(s.Text))
		}

		produced := 0
		for _, r := range ranges {
			box, ok := unionWords(words, wordMap, r)
			if !ok {
				continue
			}
			out = append(out, m.finish(box, s))
			produced++
		}

		if produced == 0 {
			stats.Unmapped++
			logger.Debug("span not mapped to any word", zap.String("type", s.Type), zap.Int("occurrences", len(ranges)))
			continue
		}
		stats.Mapped++
		stats.Boxes += produced
	}

	finishTiming(true, map[string]interface{}{
		"spans":    stats.Spans,
		"mapped":   stats.Mapped,
		"unmapped": stats.Unmapped,
		"boxes":    stats.Boxes,
	})
	return out, stats
}

func (m *Mapper) finish(b BBox, s detector.DetectionSpan) BoundingBox {
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	x, y := b.X*scale-m.Padding, b.Y*scale-m.Padding
	w, h := b.Width*scale+2*m.Padding, b.Height*scale+2*m.Padding
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	return BoundingBox{
		X:          x,
		Y:          y,
		W:          w,
		H:          h,
		Text:       s.Text,
		Type:       s.Type,
		Source:     s.Source,
		Confidence: detector.ClampConfidence(s.Confidence),
		Page:       m.Page,
	}
}

func unionWords(words []OCRWord, wordMap []WordSpan, r detector.Positions) (BBox, bool) {
	var box BBox
	found := false
	for _, ws := range wordMap {
		if ws.Start >= r.End || r.Start >= ws.End {
			continue
		}
		if !found {
			box = words[ws.Word].BBox
			found = true
			continue
		}
		box = box.Union(words[ws.Word].BBox)
	}
	return box, found
}

// occurrencesFold returns the non-overlapping case-insensitive occurrences of needle in text
func occurrencesFold(text, needle string) []detector.Positions {
	if needle == "" {
		return nil
	}
	var out []detector.Positions
	for i := 0; i < len(text); {
		if n, ok := prefixFold(text[i:], needle); ok {
			out = append(out, detector.Positions{Start: i, End: i + n})
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return out
}

// prefixFold reports whether s starts with prefix under Unicode case folding, and how many
// bytes of s the prefix covers
func prefixFold(s, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != pr && !strings.EqualFold(string(sr), string(pr)) {
			return 0, false
		}
		i += size
	}
	return i, true
}
