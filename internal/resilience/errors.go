// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Temporary network issues
	ErrorTypePermanent                    // Invalid credentials, missing model files
	ErrorTypeTimeout                      // Inference or store deadline exceeded
	ErrorTypeRateLimit                    // Inference endpoint throttling
	ErrorTypeServiceUnavailable           // Endpoint down or circuit open
	ErrorTypeInvalidInput                 // Bad request or unparseable model output
	ErrorTypeCanceled                     // Caller went away
)

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled, Message: fmt.Sprintf("canceled: %v", err)}
	case errors.Is(err, ErrCircuitOpen):
		return &ClassifiedError{Original: err, Type: ErrorTypeServiceUnavailable, Message: err.Error()}
	case isTimeoutError(err):
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Message: fmt.Sprintf("timeout: %v", err), Retryable: true}
	case isNetworkError(err):
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Message: fmt.Sprintf("network error: %v", err), Retryable: true}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return &ClassifiedError{Original: err, Type: ErrorTypeRateLimit, Message: fmt.Sprintf("rate limit exceeded: %v", err), Retryable: true}

	case strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway"):
		return &ClassifiedError{Original: err, Type: ErrorTypeServiceUnavailable, Message: fmt.Sprintf("service unavailable: %v", err), Retryable: true}

	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "no such file"):
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent, Message: fmt.Sprintf("permanent error: %v", err)}

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "bad request"):
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput, Message: fmt.Sprintf("invalid input: %v", err)}
	}

	return &ClassifiedError{
		Original:  err,
		Type:      ErrorTypeUnknown,
		Message:   fmt.Sprintf("unknown error: %v", err),
		Retryable: false,
	}
}

// FromHTTPStatus classifies an error returned by an HTTP inference endpoint
func FromHTTPStatus(status int, err error) *ClassifiedError {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	msg := fmt.Sprintf("http %d: %v", status, err)
	switch {
	case status == http.StatusTooManyRequests:
		return &ClassifiedError{Original: err, Type: ErrorTypeRateLimit, Message: msg, Retryable: true}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Message: msg, Retryable: true}
	case status >= 500:
		return &ClassifiedError{Original: err, Type: ErrorTypeServiceUnavailable, Message: msg, Retryable: true}
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound:
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent, Message: msg}
	case status >= 400:
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput, Message: msg}
	default:
		return ClassifyError(err)
	}
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeServiceUnavailable:
		return "unavailable"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	case ErrorTypeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}
