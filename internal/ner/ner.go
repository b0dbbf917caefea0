// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ner adapts token-classification output from a named-entity model into
// detector.RawEntity values. The model itself is an external collaborator reached
// through the Inferencer interface.
package ner

import (
	"context"
	"strings"

	"piiscope/internal/detector"
)

// Entity types produced by the adapter
const (
	TypePerson       = "PER"
	TypeOrganization = "ORG"
	TypeLocation     = "LOC"
	TypeMisc         = "MISC"
)

// Token is one row of token-classification output. Start and End are byte offsets into the
// text handed to Infer.
type Token struct {
	Word  string  `json:"word"`
	Tag   string  `json:"tag"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Inferencer runs a named-entity model over text
type Inferencer interface {
	Infer(ctx context.Context, text string) ([]Token, error)
}

// InferFunc adapts a function to the Inferencer interface
type InferFunc func(ctx context.Context, text string) ([]Token, error)

// Infer calls f(ctx, text)
func (f InferFunc) Infer(ctx context.Context, text string) ([]Token, error) {
	return f(ctx, text)
}

// Static returns the same tokens for every call. Offsets are relative to whatever text the
// caller passes, so fixtures should be built against that text.
type Static []Token

// Infer returns a copy of the fixture
func (s Static) Infer(ctx context.Context, _ string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Token, len(s))
	copy(out, s)
	return out, nil
}

// DefaultThresholds are the per-type minimum token scores
func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		TypePerson:       0.85,
		TypeOrganization: 0.75,
		TypeMisc:         0.70,
		TypeLocation:     0.60,
	}
}

// Adapter groups BIO-tagged tokens into entities
type Adapter struct {
	Model      Inferencer
	Thresholds map[string]float64
}

// NewAdapter creates an adapter with the default thresholds
func NewAdapter(model Inferencer) *Adapter {
	return &Adapter{Model: model, Thresholds: DefaultThresholds()}
}

func (a *Adapter) threshold(typ string) float64 {
	th := a.Thresholds
	if th == nil {
		th = DefaultThresholds()
	}
	if v, ok := th[typ]; ok {
		return v
	}
	if v, ok := th[TypeMisc]; ok {
		return v
	}
	return DefaultThresholds()[TypeMisc]
}

// splitTag parses "B-PER" into ("B", "PER"). Bare types like "PER" have an empty prefix.
func splitTag(tag string) (prefix, typ string) {
	tag = strings.TrimSpace(tag)
	if len(tag) > 2 && tag[1] == '-' {
		return strings.ToUpper(tag[:1]), strings.ToUpper(tag[2:])
	}
	return "", strings.ToUpper(tag)
}

// Group merges consecutive tokens into entities.
//
// A token opens a new entity on a B- tag or a type change and extends the open entity on
// I- of the same type. Subword pieces ("##" prefix or touching the previous token) are
// joined without a space. The entity score is the maximum token score. A token scoring
// below its type's threshold closes the open entity and is dropped.
func (a *Adapter) Group(tokens []Token) []detector.RawEntity {
	var (
		out     []detector.RawEntity
		cur     *detector.RawEntity
		text    strings.Builder
		lastEnd int
	)

	flush := func() {
		if cur != nil {
			cur.Text = text.String()
			out = append(out, *cur)
			cur = nil
			text.Reset()
		}
	}

	for _, tok := range tokens {
		prefix, typ := splitTag(tok.Tag)
		if typ == "" || typ == "O" {
			flush()
			continue
		}
		if tok.Score < a.threshold(typ) {
			flush()
			continue
		}

		word := tok.Word
		subword := strings.HasPrefix(word, "##")
		word = strings.TrimPrefix(word, "##")

		if cur != nil && prefix != "B" && cur.EntityType == typ {
			if !subword && tok.Start != lastEnd {
				text.WriteByte(' ')
			}
			text.WriteString(word)
			cur.End = tok.End
			if tok.Score > cur.Score {
				cur.Score = tok.Score
			}
			lastEnd = tok.End
			continue
		}

		flush()
		cur = &detector.RawEntity{
			EntityType: typ,
			Score:      tok.Score,
			Start:      tok.Start,
			End:        tok.End,
		}
		text.WriteString(word)
		lastEnd = tok.End
	}
	flush()

	return out
}

// Extract runs the model and groups its output. When an entity's offsets are valid for text
// its Text is replaced with the exact document substring.
func (a *Adapter) Extract(ctx context.Context, text string) ([]detector.RawEntity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tokens, err := a.Model.Infer(ctx, text)
	if err != nil {
		return nil, err
	}
	entities := a.Group(tokens)
	for i := range entities {
		e := &entities[i]
		if ValidOffsets(text, e.Start, e.End) {
			e.Text = text[e.Start:e.End]
		}
		e.Score = detector.ClampConfidence(e.Score)
	}
	return entities, nil
}

// ValidOffsets reports whether [start,end) is a non-empty rune-aligned range of text
func ValidOffsets(text string, start, end int) bool {
	if start < 0 || end > len(text) || start >= end {
		return false
	}
	return detector.AlignStart(text, start) == start && detector.AlignEnd(text, end) == end
}
