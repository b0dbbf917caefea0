// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Delete("/v1/cache/{document}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, doc := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/cache/"+doc, http.NoBody))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("DELETE", "/v1/cache/{document}", "204"))
	if got < 2 {
		t.Errorf("expected both requests under one route label, got %f", got)
	}
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "200")); got < 1 {
		t.Errorf("expected a 200 sample, got %f", got)
	}
}

func TestObserveStage(t *testing.T) {
	ObserveStage("pattern", time.Now())
	if testutil.CollectAndCount(DetectDuration) == 0 {
		t.Error("expected a detect_duration_seconds series")
	}
}
