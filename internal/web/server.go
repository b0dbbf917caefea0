// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the detection engine over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"piiscope/internal/core"
	"piiscope/internal/metrics"
	"piiscope/internal/version"

	// Import formatters to register them
	_ "piiscope/internal/formatters/csv"
	_ "piiscope/internal/formatters/json"
	_ "piiscope/internal/formatters/text"
	_ "piiscope/internal/formatters/yaml"
)

// WebServer represents the web server instance
type WebServer struct {
	engine  *core.Engine
	logger  *zap.Logger
	maxBody int64
	router  chi.Router
	server  *http.Server
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewWebServer creates a server around engine
func NewWebServer(engine *core.Engine, logger *zap.Logger) *WebServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws := &WebServer{
		engine:  engine,
		logger:  logger.Named("web"),
		maxBody: engine.Config().Server.MaxBodyBytes,
	}
	ws.setupRoutes()
	return ws
}

// Handler returns the routed handler
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

func (ws *WebServer) setupRoutes() {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(ws.logger))
	r.Use(requestID(ws.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", ws.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/formats", ws.handleFormats)
		r.Post("/detect", ws.handleDetect)
		r.Post("/boxes", ws.handleBoxes)
		r.Post("/tables", ws.handleTables)
		r.Post("/forms", ws.handleForms)
		// document IDs are usually file paths, so the rest of the path is the ID
		r.Delete("/cache/*", ws.handleInvalidate)
	})

	ws.router = r
}

// Start listens on addr until Shutdown is called
func (ws *WebServer) Start(addr string) error {
	ws.server = ws.createSecureServer(addr)
	ws.logger.Info("piiscope server started", zap.String("addr", addr), zap.String("version", version.Short()))

	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server != nil {
		return ws.server.Shutdown(ctx)
	}
	return nil
}

// createSecureServer creates an HTTP server with security timeouts
func (ws *WebServer) createSecureServer(addr string) *http.Server {
	// model calls may take up to the detection timeout
	writeTimeout := 30 * time.Second
	if t := ws.engine.Config().Detection.Timeout + 10*time.Second; t > writeTimeout {
		writeTimeout = t
	}
	return &http.Server{
		Addr:    addr,
		Handler: ws.router,
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// handleHealth reports liveness with build information
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Full()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "piiscope",
		"version":   versionInfo["version"],
		"model":     ws.engine.Options().UseModel,
		"build_info": map[string]interface{}{
			"version":    versionInfo["version"],
			"commit":     versionInfo["commit"],
			"build_date": versionInfo["buildDate"],
			"go_version": versionInfo["goVersion"],
			"platform":   versionInfo["platform"],
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sendError writes an error body carrying the request ID
func (ws *WebServer) sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if status >= http.StatusInternalServerError {
		ws.logger.Error("request failed", zap.String("request_id", RequestIDFromContext(r.Context())), zap.String("error", message))
	}
	writeJSON(w, status, ErrorResponse{Error: message, RequestID: RequestIDFromContext(r.Context())})
}
