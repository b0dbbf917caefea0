// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/detector"
)

func TestAdapter_Group(t *testing.T) {
	tests := []struct {
		name   string
		tokens []Token
		want   []detector.RawEntity
	}{
		{
			name: "B then I of same type joins with space",
			tokens: []Token{
				{Word: "Maria", Tag: "B-PER", Score: 0.97, Start: 0, End: 5},
				{Word: "Garcia", Tag: "I-PER", Score: 0.92, Start: 6, End: 12},
			},
			want: []detector.RawEntity{{Text: "Maria Garcia", EntityType: "PER", Score: 0.97, Start: 0, End: 12}},
		},
		{
			name: "subword pieces join without space",
			tokens: []Token{
				{Word: "Jo", Tag: "B-PER", Score: 0.90, Start: 0, End: 2},
				{Word: "##hannes", Tag: "I-PER", Score: 0.95, Start: 2, End: 8},
			},
			want: []detector.RawEntity{{Text: "Johannes", EntityType: "PER", Score: 0.95, Start: 0, End: 8}},
		},
		{
			name: "touching offsets join without space",
			tokens: []Token{
				{Word: "Acme", Tag: "B-ORG", Score: 0.80, Start: 10, End: 14},
				{Word: "Corp", Tag: "I-ORG", Score: 0.85, Start: 14, End: 18},
			},
			want: []detector.RawEntity{{Text: "AcmeCorp", EntityType: "ORG", Score: 0.85, Start: 10, End: 18}},
		},
		{
			name: "B tag starts a new entity even with same type",
			tokens: []Token{
				{Word: "Paris", Tag: "B-LOC", Score: 0.9, Start: 0, End: 5},
				{Word: "Lyon", Tag: "B-LOC", Score: 0.9, Start: 10, End: 14},
			},
			want: []detector.RawEntity{
				{Text: "Paris", EntityType: "LOC", Score: 0.9, Start: 0, End: 5},
				{Text: "Lyon", EntityType: "LOC", Score: 0.9, Start: 10, End: 14},
			},
		},
		{
			name: "type change starts a new entity",
			tokens: []Token{
				{Word: "Ann", Tag: "B-PER", Score: 0.9, Start: 0, End: 3},
				{Word: "Berlin", Tag: "I-LOC", Score: 0.9, Start: 4, End: 10},
			},
			want: []detector.RawEntity{
				{Text: "Ann", EntityType: "PER", Score: 0.9, Start: 0, End: 3},
				{Text: "Berlin", EntityType: "LOC", Score: 0.9, Start: 4, End: 10},
			},
		},
		{
			name: "below threshold closes the open entity",
			tokens: []Token{
				{Word: "Ann", Tag: "B-PER", Score: 0.9, Start: 0, End: 3},
				{Word: "Lee", Tag: "I-PER", Score: 0.5, Start: 4, End: 7},
				{Word: "Kim", Tag: "I-PER", Score: 0.9, Start: 8, End: 11},
			},
			want: []detector.RawEntity{
				{Text: "Ann", EntityType: "PER", Score: 0.9, Start: 0, End: 3},
				{Text: "Kim", EntityType: "PER", Score: 0.9, Start: 8, End: 11},
			},
		},
		{
			name: "LOC threshold is lower than PER",
			tokens: []Token{
				{Word: "Oslo", Tag: "B-LOC", Score: 0.65, Start: 0, End: 4},
				{Word: "Nils", Tag: "B-PER", Score: 0.65, Start: 5, End: 9},
			},
			want: []detector.RawEntity{{Text: "Oslo", EntityType: "LOC", Score: 0.65, Start: 0, End: 4}},
		},
		{
			name: "unknown types use the MISC threshold",
			tokens: []Token{
				{Word: "Mars", Tag: "B-PLANET", Score: 0.72, Start: 0, End: 4},
				{Word: "Venus", Tag: "B-PLANET", Score: 0.69, Start: 5, End: 10},
			},
			want: []detector.RawEntity{{Text: "Mars", EntityType: "PLANET", Score: 0.72, Start: 0, End: 4}},
		},
		{
			name: "O closes the open entity",
			tokens: []Token{
				{Word: "Ann", Tag: "B-PER", Score: 0.9, Start: 0, End: 3},
				{Word: "and", Tag: "O", Score: 0.99, Start: 4, End: 7},
				{Word: "Bob", Tag: "I-PER", Score: 0.9, Start: 8, End: 11},
			},
			want: []detector.RawEntity{
				{Text: "Ann", EntityType: "PER", Score: 0.9, Start: 0, End: 3},
				{Text: "Bob", EntityType: "PER", Score: 0.9, Start: 8, End: 11},
			},
		},
		{
			name: "empty input",
		},
	}

	a := NewAdapter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Group(tt.tokens))
		})
	}
}

func TestAdapter_ExtractUsesDocumentSubstring(t *testing.T) {
	text := "Patient: Zoë  Ångström signed"
	start := 9
	end := start + len("Zoë  Ångström")
	model := Static{
		{Word: "zoe", Tag: "B-PER", Score: 0.93, Start: start, End: start + len("Zoë")},
		{Word: "angstrom", Tag: "I-PER", Score: 0.91, Start: start + len("Zoë  "), End: end},
	}

	got, err := NewAdapter(model).Extract(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Zoë  Ångström", got[0].Text)
	assert.Equal(t, start, got[0].Start)
	assert.Equal(t, end, got[0].End)
}

func TestAdapter_ExtractKeepsWordsForBadOffsets(t *testing.T) {
	model := Static{{Word: "Ann", Tag: "B-PER", Score: 0.9, Start: 40, End: 43}}

	got, err := NewAdapter(model).Extract(context.Background(), "short text")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].Text)
}

func TestAdapter_ExtractPropagatesErrors(t *testing.T) {
	boom := errors.New("runtime unavailable")
	a := NewAdapter(InferFunc(func(ctx context.Context, text string) ([]Token, error) {
		return nil, boom
	}))

	_, err := a.Extract(context.Background(), "Ann Lee")
	assert.ErrorIs(t, err, boom)
}

func TestAdapter_ExtractBlankText(t *testing.T) {
	called := false
	a := NewAdapter(InferFunc(func(ctx context.Context, text string) ([]Token, error) {
		called = true
		return nil, nil
	}))

	got, err := a.Extract(context.Background(), "   \n")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, called)
}

func TestValidOffsets(t *testing.T) {
	text := "née"
	assert.True(t, ValidOffsets(text, 0, len(text)))
	assert.False(t, ValidOffsets(text, 0, 2), "ends inside a rune")
	assert.False(t, ValidOffsets(text, 2, 2))
	assert.False(t, ValidOffsets(text, -1, 2))
	assert.False(t, ValidOffsets(text, 0, 9))
}
