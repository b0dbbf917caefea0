// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build cgo
// +build cgo

package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"piiscope/internal/ner"
)

// Recognizer is an ner.Inferencer backed by an ONNX Runtime session
type Recognizer struct {
	session   *ort.AdvancedSession
	tokenizer *WordPiece
	labels    []string
	maxTokens int

	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	logitsTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// New loads the vocabulary and creates the session. The environment is initialized on first use.
func New(cfg Config) (*Recognizer, error) {
	cfg.applyDefaults()

	tokenizer, err := LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, err
	}
	tokenizer.Lowercase = cfg.Lowercase

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	seq := int64(cfg.MaxTokens)
	empty := tokenizer.Encode("", cfg.MaxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), empty.InputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, seq), empty.AttentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), empty.TokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	logitsTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seq, int64(len(cfg.Labels))))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create logits tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{logitsTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		logitsTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Recognizer{
		session:             session,
		tokenizer:           tokenizer,
		labels:              cfg.Labels,
		maxTokens:           cfg.MaxTokens,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		logitsTensor:        logitsTensor,
	}, nil
}

// Infer tokenizes text, runs the session and decodes one tag per word piece.
// The session's tensors are shared, so calls are serialized.
func (r *Recognizer) Infer(ctx context.Context, text string) ([]ner.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc := r.tokenizer.Encode(text, r.maxTokens)

	r.mu.Lock()
	defer r.mu.Unlock()

	copy(r.inputIDsTensor.GetData(), enc.InputIDs)
	copy(r.attentionMaskTensor.GetData(), enc.AttentionMask)
	copy(r.tokenTypeIDsTensor.GetData(), enc.TokenTypeIDs)

	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return decode(r.logitsTensor.GetData(), r.labels, enc.Pieces), nil
}

// Close destroys the session and tensors
func (r *Recognizer) Close() error {
	var err error
	if r.session != nil {
		err = r.session.Destroy()
		r.session = nil
	}
	if r.inputIDsTensor != nil {
		_ = r.inputIDsTensor.Destroy()
		r.inputIDsTensor = nil
	}
	if r.attentionMaskTensor != nil {
		_ = r.attentionMaskTensor.Destroy()
		r.attentionMaskTensor = nil
	}
	if r.tokenTypeIDsTensor != nil {
		_ = r.tokenTypeIDsTensor.Destroy()
		r.tokenTypeIDsTensor = nil
	}
	if r.logitsTensor != nil {
		_ = r.logitsTensor.Destroy()
		r.logitsTensor = nil
	}
	return err
}

var _ ner.Inferencer = (*Recognizer)(nil)
