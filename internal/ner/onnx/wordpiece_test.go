// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package onnx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/ner"
)

const testVocab = "[PAD]\n[UNK]\n[CLS]\n[SEP]\nMaria\nGar\n##cia\n,\nOslo\n"

func newTestTokenizer(t *testing.T) *WordPiece {
	t.Helper()
	wp, err := ReadVocab(strings.NewReader(testVocab))
	require.NoError(t, err)
	return wp
}

func TestReadVocab_RequiresSpecialTokens(t *testing.T) {
	_, err := ReadVocab(strings.NewReader("[PAD]\n[CLS]\nhello\n"))
	assert.Error(t, err)
}

func TestWordPiece_Encode(t *testing.T) {
	wp := newTestTokenizer(t)

	enc := wp.Encode("Maria Garcia, Oslo", 8)
	assert.Equal(t, []int64{2, 4, 5, 6, 7, 8, 3, 0}, enc.InputIDs)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 1, 0}, enc.AttentionMask)
	assert.Equal(t, make([]int64, 8), enc.TokenTypeIDs)
	assert.Equal(t, []Piece{
		{ID: 4, Word: "Maria", Start: 0, End: 5},
		{ID: 5, Word: "Gar", Start: 6, End: 9},
		{ID: 6, Word: "##cia", Start: 9, End: 12},
		{ID: 7, Word: ",", Start: 12, End: 13},
		{ID: 8, Word: "Oslo", Start: 14, End: 18},
	}, enc.Pieces)
}

func TestWordPiece_EncodeTruncates(t *testing.T) {
	wp := newTestTokenizer(t)

	enc := wp.Encode("Maria Garcia, Oslo", 4)
	assert.Equal(t, []int64{2, 4, 5, 3}, enc.InputIDs)
	assert.Len(t, enc.Pieces, 2)
}

func TestWordPiece_UnknownWord(t *testing.T) {
	wp := newTestTokenizer(t)

	enc := wp.Encode("Zoë", 6)
	require.Len(t, enc.Pieces, 1)
	assert.Equal(t, Piece{ID: 1, Word: "Zoë", Start: 0, End: len("Zoë")}, enc.Pieces[0])
}

func TestWordPiece_Lowercase(t *testing.T) {
	wp, err := ReadVocab(strings.NewReader("[PAD]\n[UNK]\n[CLS]\n[SEP]\noslo\n"))
	require.NoError(t, err)
	wp.Lowercase = true

	enc := wp.Encode("OSLO", 4)
	require.Len(t, enc.Pieces, 1)
	assert.Equal(t, int64(4), enc.Pieces[0].ID)
}

func TestDecode_FeedsAdapter(t *testing.T) {
	labels := []string{"O", "B-PER", "I-PER"}
	pieces := []Piece{
		{Word: "Gar", Start: 6, End: 9},
		{Word: "##cia", Start: 9, End: 12},
	}
	logits := []float32{
		0, 0, 0, // [CLS]
		0, 5, 0,
		0, 0, 5,
		0, 0, 0, // [SEP]
	}

	tokens := decode(logits, labels, pieces)
	require.Len(t, tokens, 2)
	assert.Equal(t, "B-PER", tokens[0].Tag)
	assert.Equal(t, "I-PER", tokens[1].Tag)
	assert.InDelta(t, 0.9867, tokens[0].Score, 0.001)

	entities := ner.NewAdapter(nil).Group(tokens)
	require.Len(t, entities, 1)
	assert.Equal(t, "Garcia", entities[0].Text)
	assert.Equal(t, 6, entities[0].Start)
	assert.Equal(t, 12, entities[0].End)
}

func TestDecode_ShortLogits(t *testing.T) {
	tokens := decode([]float32{0, 1}, []string{"O", "B-PER"}, []Piece{{Word: "x"}, {Word: "y"}})
	assert.Empty(t, tokens)
}
