// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DebugObserver prints an indented step trace for `piiscope scan --debug`
type DebugObserver struct {
	*StandardObserver
	writer io.Writer
	mu     sync.Mutex
	indent int
}

// NewDebugObserver creates a debug observer writing the step trace to writer
func NewDebugObserver(writer io.Writer, logger *zap.Logger) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, logger),
		writer:           writer,
	}
}

// StartStep begins a processing step with indentation
func (d *DebugObserver) StartStep(component, step, subject string) func(success bool, details string) {
	start := time.Now()

	d.mu.Lock()
	fmt.Fprintf(d.writer, "%s> %s: %s (%s)\n", strings.Repeat("  ", d.indent), component, step, subject)
	d.indent++
	d.mu.Unlock()

	return func(success bool, details string) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.indent--
		status := "ok"
		if !success {
			status = "FAILED"
		}
		fmt.Fprintf(d.writer, "%s< %s: %s %s (%dms) %s\n",
			strings.Repeat("  ", d.indent), component, step, status, time.Since(start).Milliseconds(), details)
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.writer, "%s  - %s: %s\n", strings.Repeat("  ", d.indent), component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.writer, "%s  # %s: %s = %v\n", strings.Repeat("  ", d.indent), component, metric, value)
}
