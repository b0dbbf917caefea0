// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package onnx runs a BERT-style token-classification model through ONNX Runtime.
// The runtime needs CGO and the onnxruntime shared library; without CGO New returns an error.
package onnx

import (
	"math"

	"piiscope/internal/ner"
)

// DefaultLabels is the CoNLL-2003 label order used by the common bert-base-NER exports
var DefaultLabels = []string{"O", "B-MISC", "I-MISC", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC"}

// Config describes the model files
type Config struct {
	ModelPath         string
	VocabPath         string
	Labels            []string
	MaxTokens         int
	Lowercase         bool
	SharedLibraryPath string
}

func (c *Config) applyDefaults() {
	if len(c.Labels) == 0 {
		c.Labels = DefaultLabels
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 512
	}
}

// decode turns row-major logits of shape [positions, len(labels)] into tokens.
// Position 0 is [CLS]; pieces map onto positions 1..len(pieces).
func decode(logits []float32, labels []string, pieces []Piece) []ner.Token {
	n := len(labels)
	if n == 0 {
		return nil
	}
	out := make([]ner.Token, 0, len(pieces))
	for i, p := range pieces {
		row := (i + 1) * n
		if row+n > len(logits) {
			break
		}
		best, prob := softmaxArgmax(logits[row : row+n])
		out = append(out, ner.Token{
			Word:  p.Word,
			Tag:   labels[best],
			Score: prob,
			Start: p.Start,
			End:   p.End,
		})
	}
	return out
}

func softmaxArgmax(row []float32) (int, float64) {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	top := float64(row[best])
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - top)
	}
	return best, 1 / sum
}
