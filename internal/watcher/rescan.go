// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"

	"go.uber.org/zap"

	"piiscope/internal/core"
)

// Scanner is the part of the engine a rescan needs
type Scanner interface {
	Supports(path string) bool
	Invalidate(ctx context.Context, documentID string)
	ScanFile(ctx context.Context, path string) (*core.Result, error)
}

// ReportFunc receives the outcome of every rescan
type ReportFunc func(path string, result *core.Result, err error)

// Rescanner invalidates and rescans files as they change
type Rescanner struct {
	ctx     context.Context
	scanner Scanner
	report  ReportFunc
	logger  *zap.Logger
}

// NewRescanner creates a Handler that rescans through s. Scans run under ctx.
func NewRescanner(ctx context.Context, s Scanner, report ReportFunc, logger *zap.Logger) *Rescanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rescanner{ctx: ctx, scanner: s, report: report, logger: logger}
}

// Filter reports whether the engine can extract path
func (r *Rescanner) Filter(path string) bool {
	return r.scanner.Supports(path)
}

// Changed drops the stale cache entries of path and scans it again
func (r *Rescanner) Changed(path string) {
	r.scanner.Invalidate(r.ctx, core.DocumentID(path))
	res, err := r.scanner.ScanFile(r.ctx, path)
	if err != nil {
		r.logger.Warn("rescan failed", zap.String("path", path), zap.Error(err))
	} else {
		r.logger.Info("rescanned", zap.String("path", path), zap.Int("spans", res.SpanCount()))
	}
	if r.report != nil {
		r.report(path, res, err)
	}
}

// Removed drops the cache entries of a deleted file
func (r *Rescanner) Removed(path string) {
	r.scanner.Invalidate(r.ctx, core.DocumentID(path))
	r.logger.Debug("document removed", zap.String("path", path))
}
