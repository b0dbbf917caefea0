// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func failing(ctx context.Context) error { return NewTransientError("endpoint down", nil) }
func succeeding(ctx context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	cfg := DefaultCircuitBreakerConfig("ner")
	cfg.FailureThreshold = 2
	cfg.OnStateChange = func(name string, from, to CircuitBreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after one failure, got %s", cb.GetState())
	}
	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after two failures, got %s", cb.GetState())
	}

	called := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Error("open breaker must not call through")
	}
	if !errors.Is(err, ErrCircuitOpen) || !IsCircuitBreakerError(err) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions %v", transitions)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("ner")
	cfg.FailureThreshold = 1
	cfg.SuccessThreshold = 1
	cfg.Timeout = time.Minute
	cb := NewCircuitBreaker(cfg)
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Execute(context.Background(), succeeding); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("ner")
	cfg.FailureThreshold = 1
	cfg.Timeout = time.Second
	cb := NewCircuitBreaker(cfg)
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failing)
	now = now.Add(2 * time.Second)
	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateOpen {
		t.Errorf("expected open after failed probe, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_IgnoresNonRetryable(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("ner")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return NewPermanentError("bad model path", nil)
	})
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return context.Canceled
	})
	if cb.GetState() != StateClosed {
		t.Errorf("non-retryable errors must not open the breaker, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("ner")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)
	_ = cb.Execute(context.Background(), failing)
	cb.Reset()

	stats := cb.GetStats()
	if stats.State != "closed" || stats.FailureCount != 0 {
		t.Errorf("unexpected stats after reset: %+v", stats)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout, true},
		{"wrapped deadline", fmt.Errorf("infer: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		{"canceled", context.Canceled, ErrorTypeCanceled, false},
		{"circuit open", &CircuitBreakerError{Message: "open"}, ErrorTypeServiceUnavailable, false},
		{"rate limited", errors.New("429 Too Many Requests"), ErrorTypeRateLimit, true},
		{"server error", errors.New("500 internal server error"), ErrorTypeServiceUnavailable, true},
		{"auth", errors.New("401 unauthorized"), ErrorTypePermanent, false},
		{"bad output", errors.New("malformed entity json"), ErrorTypeInvalidInput, false},
		{"other", errors.New("boom"), ErrorTypeUnknown, false},
		{"already classified", fmt.Errorf("wrap: %w", NewTransientError("x", nil)), ErrorTypeTransient, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", got.Retryable, tt.retryable)
			}
		})
	}
	if ClassifyError(nil) != nil {
		t.Error("nil error must classify to nil")
	}
}

func TestFromHTTPStatus(t *testing.T) {
	tests := map[int]ErrorType{
		http.StatusTooManyRequests:     ErrorTypeRateLimit,
		http.StatusGatewayTimeout:      ErrorTypeTimeout,
		http.StatusServiceUnavailable:  ErrorTypeServiceUnavailable,
		http.StatusUnauthorized:        ErrorTypePermanent,
		http.StatusUnprocessableEntity: ErrorTypeInvalidInput,
	}
	for status, want := range tests {
		if got := FromHTTPStatus(status, nil); got.Type != want {
			t.Errorf("status %d: got %s, want %s", status, got.Type, want)
		}
	}
}
