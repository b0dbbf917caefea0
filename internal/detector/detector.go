// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Source identifies which detector produced a span
type Source string

const (
	SourcePattern Source = "pattern"
	SourceModel   Source = "model"
	SourceManual  Source = "manual"
)

// Positions is a half-open byte range into the UTF-8 document text
type Positions struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the byte length of the range
func (p Positions) Len() int {
	return p.End - p.Start
}

// Intersects reports whether two half-open ranges share at least one byte
func (p Positions) Intersects(o Positions) bool {
	return p.Start < o.End && o.Start < p.End
}

// DetectionSpan is the canonical result produced by every detector
type DetectionSpan struct {
	Text       string     `json:"text" yaml:"text"`
	Type       string     `json:"type" yaml:"type"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	Source     Source     `json:"source" yaml:"source"`
	Positions  *Positions `json:"positions,omitempty" yaml:"positions,omitempty"`
}

// Finder is implemented by every detector kind. Find must be safe for concurrent use.
type Finder interface {
	Find(text string) []DetectionSpan
}

// FinderFunc adapts a plain function to the Finder interface
type FinderFunc func(text string) []DetectionSpan

// Find calls f(text)
func (f FinderFunc) Find(text string) []DetectionSpan {
	return f(text)
}

// RawEntity is a model-produced entity before reconciliation
type RawEntity struct {
	Text       string  `json:"text"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// TextWindow is a view over the source document used during windowed inference
type TextWindow struct {
	Text  string
	Start int
	End   int
	Index int
}

// NewSpan builds a span located at [start,end) of text
func NewSpan(text string, start, end int, typ string, confidence float64, source Source) DetectionSpan {
	return DetectionSpan{
		Text:       text[start:end],
		Type:       typ,
		Confidence: ClampConfidence(confidence),
		Source:     source,
		Positions:  &Positions{Start: start, End: end},
	}
}

// Clone returns a deep copy of the span
func (s DetectionSpan) Clone() DetectionSpan {
	if s.Positions != nil {
		p := *s.Positions
		s.Positions = &p
	}
	return s
}

// CloneSpans deep-copies a slice of spans. A nil slice stays nil.
func CloneSpans(spans []DetectionSpan) []DetectionSpan {
	if spans == nil {
		return nil
	}
	out := make([]DetectionSpan, len(spans))
	for i, s := range spans {
		out[i] = s.Clone()
	}
	return out
}

// Validate checks the span invariants against the document it was found in
func (s DetectionSpan) Validate(doc string) error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", s.Confidence)
	}
	if s.Positions == nil {
		return nil
	}
	p := *s.Positions
	if p.Start < 0 || p.Start >= p.End {
		return fmt.Errorf("invalid range [%d,%d)", p.Start, p.End)
	}
	if p.End > len(doc) {
		return fmt.Errorf("range [%d,%d) exceeds document length %d", p.Start, p.End, len(doc))
	}
	if doc[p.Start:p.End] != s.Text {
		return fmt.Errorf("text %q does not match document range [%d,%d)", s.Text, p.Start, p.End)
	}
	return nil
}

// ClampConfidence bounds a score to [0,1]
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// NormalizeText lower-cases and collapses whitespace for span comparison
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContainsKeyword reports whether keyword occurs in s at the start of a word. Keywords of up
// to three bytes that end in a letter or digit must also end a word, so "tin" does not match
// "meeting" and "tel" does not match "hotel". Keywords starting outside ASCII are matched
// anywhere.
func ContainsKeyword(s, keyword string) bool {
	if keyword == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(keyword)
	last, _ := utf8.DecodeLastRuneInString(keyword)
	checkStart := first < utf8.RuneSelf && isWordRune(first)
	checkEnd := len(keyword) <= 3 && isWordRune(last)

	for from := 0; from <= len(s)-len(keyword); {
		i := strings.Index(s[from:], keyword)
		if i < 0 {
			return false
		}
		i += from
		j := i + len(keyword)
		ok := true
		if checkStart && i > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:i])
			ok = !isWordRune(r)
		}
		if ok && checkEnd && j < len(s) {
			r, _ := utf8.DecodeRuneInString(s[j:])
			ok = !isWordRune(r)
		}
		if ok {
			return true
		}
		from = i + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SortSpans orders spans by start offset; spans without positions go last in text order.
func SortSpans(spans []DetectionSpan) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i].Positions, spans[j].Positions
		switch {
		case a != nil && b != nil:
			if a.Start != b.Start {
				return a.Start < b.Start
			}
			return a.End > b.End
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return spans[i].Text < spans[j].Text
		}
	})
}

// AlignStart moves i back to the nearest rune boundary in s
func AlignStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// AlignEnd moves i forward to the nearest rune boundary in s
func AlignEnd(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// Redact replaces every positioned span in text with mask repeated to the span's rune length.
// Overlapping spans are merged first; spans without positions are ignored.
func Redact(text string, spans []DetectionSpan, mask rune) string {
	ranges := make([]Positions, 0, len(spans))
	for _, s := range spans {
		if s.Positions != nil && s.Positions.Start >= 0 && s.Positions.End <= len(text) && s.Positions.Start < s.Positions.End {
			ranges = append(ranges, *s.Positions)
		}
	}
	if len(ranges) == 0 {
		return text
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, r := range ranges {
		if r.End <= cursor {
			continue
		}
		if r.Start < cursor {
			r.Start = cursor
		}
		b.WriteString(text[cursor:r.Start])
		b.WriteString(strings.Repeat(string(mask), utf8.RuneCountInString(text[r.Start:r.End])))
		cursor = r.End
	}
	b.WriteString(text[cursor:])
	return b.String()
}
