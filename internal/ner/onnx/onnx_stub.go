// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !cgo
// +build !cgo

package onnx

import (
	"context"
	"errors"

	"piiscope/internal/ner"
)

// ErrUnavailable is returned by New when built without CGO
var ErrUnavailable = errors.New("ONNX recognizer requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// Recognizer stub type when built without CGO (see onnx.go for the real implementation)
type Recognizer struct{}

// New returns ErrUnavailable
func New(_ Config) (*Recognizer, error) {
	return nil, ErrUnavailable
}

// Infer returns ErrUnavailable
func (r *Recognizer) Infer(_ context.Context, _ string) ([]ner.Token, error) {
	return nil, ErrUnavailable
}

// Close is a no-op
func (r *Recognizer) Close() error {
	return nil
}
