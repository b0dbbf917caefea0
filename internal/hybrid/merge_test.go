// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/detector"
	"piiscope/internal/patterns"
)

func span(text string, start, end int, typ string, conf float64, src detector.Source) detector.DetectionSpan {
	return detector.NewSpan(text, start, end, typ, conf, src)
}

func TestCombine(t *testing.T) {
	tests := []struct {
		p, m, want float64
	}{
		{0.9, 0.5, 0.95},
		{1, 0.3, 1},
		{0, 0, 0},
		{0.5, 0.5, 0.75},
		{1.4, -0.2, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Combine(tt.p, tt.m), 1e-9, "Combine(%v, %v)", tt.p, tt.m)
	}
}

func TestCrossValidate(t *testing.T) {
	in := []detector.DetectionSpan{
		{Text: "ann@example.org", Type: "ORG", Confidence: 0.6, Source: detector.SourceModel},
		{Text: "Maria Garcia", Type: "PER", Confidence: 0.9, Source: detector.SourceModel},
	}
	out := CrossValidate(in, patterns.AllKinds())

	require.Len(t, out, 2)
	assert.Equal(t, "EMAIL", out[0].Type)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Equal(t, detector.SourcePattern, out[0].Source)
	assert.Equal(t, "PER", out[1].Type)
	assert.Equal(t, "ORG", in[0].Type, "input is not modified")
}

func TestCrossValidate_DisabledKindIsDropped(t *testing.T) {
	in := []detector.DetectionSpan{
		{Text: "alice@example.com", Type: "MISC", Confidence: 0.9, Source: detector.SourceModel},
		{Text: "4532015112830366", Type: "MISC", Confidence: 0.9, Source: detector.SourceModel},
		{Text: "Maria Garcia", Type: "PER", Confidence: 0.9, Source: detector.SourceModel},
	}
	out := CrossValidate(in, []patterns.Kind{patterns.KindCards})

	require.Len(t, out, 2)
	assert.Equal(t, patterns.TypeCreditCard, out[0].Type)
	assert.Equal(t, detector.SourcePattern, out[0].Source)
	assert.Equal(t, "Maria Garcia", out[1].Text)
	assert.Equal(t, detector.SourceModel, out[1].Source)
}

func TestProximityBoost(t *testing.T) {
	text := "Maria Garcia 536-90-4399" + string(make([]byte, 200)) + "Far Away"
	pattern := []detector.DetectionSpan{span(text, 13, 24, "SSN", 1, detector.SourcePattern)}
	farStart := len(text) - len("Far Away")
	model := []detector.DetectionSpan{
		span(text, 0, 12, "PER", 0.7, detector.SourceModel),
		span(text, farStart, len(text), "PER", 0.7, detector.SourceModel),
		{Text: "Unplaced", Type: "PER", Confidence: 0.7, Source: detector.SourceModel},
		span(text, 0, 12, "PER", 0.95, detector.SourceModel),
	}

	out := ProximityBoost(model, pattern)
	assert.InDelta(t, 0.84, out[0].Confidence, 1e-9)
	assert.InDelta(t, 0.7, out[1].Confidence, 1e-9)
	assert.InDelta(t, 0.7, out[2].Confidence, 1e-9)
	assert.Equal(t, 1.0, out[3].Confidence, "capped")
	assert.InDelta(t, 0.7, model[0].Confidence, 1e-9, "input is not modified")
}

func TestFilterConfidence(t *testing.T) {
	in := []detector.DetectionSpan{
		{Text: "a", Confidence: 0.79},
		{Text: "b", Confidence: 0.8},
		{Text: "c", Confidence: 0.95},
	}
	out := FilterConfidence(in, 0.8)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Text)
	assert.Equal(t, "c", out[1].Text)
}

func TestOverlaps(t *testing.T) {
	text := "Maria Garcia lives at 1 Main St"
	tests := []struct {
		name string
		a, b detector.DetectionSpan
		want bool
	}{
		{"intersecting ranges", span(text, 0, 12, "PER", 1, detector.SourceModel), span(text, 6, 12, "PER", 1, detector.SourceModel), true},
		{"disjoint ranges", span(text, 0, 5, "PER", 1, detector.SourceModel), span(text, 22, 31, "LOC", 1, detector.SourceModel), false},
		{"same text without positions", detector.DetectionSpan{Text: "maria  GARCIA"}, detector.DetectionSpan{Text: "Maria Garcia"}, true},
		{"contained text", detector.DetectionSpan{Text: "Garcia"}, detector.DetectionSpan{Text: "Maria Garcia"}, true},
		{"empty text", detector.DetectionSpan{Text: " "}, detector.DetectionSpan{Text: "Maria"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
		})
	}
}

func TestSmartMerge(t *testing.T) {
	text := "Contact ann@example.org or Maria Garcia"

	t.Run("pattern wins and absorbs agreeing model confidence", func(t *testing.T) {
		pattern := []detector.DetectionSpan{span(text, 8, 23, "EMAIL", 0.9, detector.SourcePattern)}
		model := []detector.DetectionSpan{span(text, 8, 23, "email", 0.5, detector.SourceModel)}

		out := SmartMerge(pattern, model)
		require.Len(t, out, 1)
		assert.Equal(t, detector.SourcePattern, out[0].Source)
		assert.InDelta(t, 0.95, out[0].Confidence, 1e-9)
	})

	t.Run("disagreeing type leaves pattern confidence", func(t *testing.T) {
		pattern := []detector.DetectionSpan{span(text, 8, 23, "EMAIL", 0.9, detector.SourcePattern)}
		model := []detector.DetectionSpan{span(text, 8, 23, "ORG", 0.8, detector.SourceModel)}

		out := SmartMerge(pattern, model)
		require.Len(t, out, 1)
		assert.Equal(t, "EMAIL", out[0].Type)
		assert.InDelta(t, 0.9, out[0].Confidence, 1e-9)
	})

	t.Run("overlapping model spans keep the stronger", func(t *testing.T) {
		model := []detector.DetectionSpan{
			span(text, 27, 32, "PER", 0.82, detector.SourceModel),
			span(text, 27, 39, "PER", 0.91, detector.SourceModel),
			span(text, 33, 39, "PER", 0.85, detector.SourceModel),
		}
		out := SmartMerge(nil, model)
		require.Len(t, out, 1)
		assert.Equal(t, "Maria Garcia", out[0].Text)
		assert.InDelta(t, 0.91, out[0].Confidence, 1e-9)
	})

	t.Run("independent findings are ordered", func(t *testing.T) {
		pattern := []detector.DetectionSpan{span(text, 8, 23, "EMAIL", 1, detector.SourcePattern)}
		model := []detector.DetectionSpan{span(text, 27, 39, "PER", 0.9, detector.SourceModel)}

		out := SmartMerge(pattern, model)
		require.Len(t, out, 2)
		assert.Equal(t, "EMAIL", out[0].Type)
		assert.Equal(t, "PER", out[1].Type)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		pattern := []detector.DetectionSpan{span(text, 8, 23, "EMAIL", 0.9, detector.SourcePattern)}
		model := []detector.DetectionSpan{span(text, 8, 23, "EMAIL", 0.5, detector.SourceModel)}
		SmartMerge(pattern, model)
		assert.InDelta(t, 0.9, pattern[0].Confidence, 1e-9)
	})
}

func TestRegions(t *testing.T) {
	text := string(make([]byte, 1000))
	spans := []detector.DetectionSpan{
		{Positions: &detector.Positions{Start: 100, End: 110}},
		{Positions: &detector.Positions{Start: 300, End: 310}},
		{Text: "no positions"},
		{Positions: &detector.Positions{Start: 900, End: 950}},
	}
	got := regions(text, spans, 150)
	assert.Equal(t, []detector.Positions{{Start: 0, End: 460}, {Start: 750, End: 1000}}, got)
}
