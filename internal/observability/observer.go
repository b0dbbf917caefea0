// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"time"

	"go.uber.org/zap"
)

// StandardObserver records timed operations for every pipeline component
type StandardObserver struct {
	level  ObservabilityLevel
	logger *zap.Logger
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// ParseLevel maps a configuration string onto an observability level; unknown values mean metrics
func ParseLevel(s string) ObservabilityLevel {
	switch s {
	case "off", "none":
		return ObservabilityOff
	case "debug":
		return ObservabilityDebug
	default:
		return ObservabilityMetrics
	}
}

// NewStandardObserver creates observability component. A nil logger discards output.
func NewStandardObserver(level ObservabilityLevel, logger *zap.Logger) *StandardObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardObserver{
		level:  level,
		logger: logger.Named("observer"),
	}
}

// Logger returns the underlying zap logger
func (o *StandardObserver) Logger() *zap.Logger {
	if o == nil {
		return zap.NewNop()
	}
	return o.logger
}

// StartTiming returns a function to complete timing. A nil observer returns a no-op finisher.
func (o *StandardObserver) StartTiming(component, operation, subject string) func(success bool, metadata map[string]interface{}) {
	if o == nil {
		return func(bool, map[string]interface{}) {}
	}
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Subject:    subject,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation logs operation data. Failures are logged at metrics level, everything at debug level.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}
	if data.Success && o.level != ObservabilityDebug {
		return
	}

	fields := []zap.Field{
		zap.String("component", data.Component),
		zap.String("operation", data.Operation),
		zap.Int64("duration_ms", data.DurationMs),
		zap.Bool("success", data.Success),
	}
	if data.Subject != "" {
		fields = append(fields, zap.String("subject", data.Subject))
	}
	if data.Error != "" {
		fields = append(fields, zap.String("error", data.Error))
	}
	if len(data.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", data.Metadata))
	}

	if data.Success {
		o.logger.Debug("operation", fields...)
	} else {
		o.logger.Warn("operation failed", fields...)
	}
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	Subject    string                 `json:"subject,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
