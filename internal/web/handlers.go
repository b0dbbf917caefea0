// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"piiscope/internal/core"
	"piiscope/internal/detector"
	"piiscope/internal/formatters"
	"piiscope/internal/geometry"
	"piiscope/internal/hybrid"
	"piiscope/internal/observability"
	"piiscope/internal/ocr"
	"piiscope/internal/patterns"
)

// DetectOptions overrides the engine defaults for one request
type DetectOptions struct {
	Categories         []string `json:"categories,omitempty"`
	UseModel           *bool    `json:"use_model,omitempty"`
	ModelMinConfidence *float64 `json:"model_min_confidence,omitempty"`
	RegionGuidance     *bool    `json:"region_guidance,omitempty"`
}

// DetectRequest is the body of POST /v1/detect
type DetectRequest struct {
	Text       string         `json:"text"`
	DocumentID string         `json:"document_id,omitempty"`
	Page       int            `json:"page,omitempty"`
	Options    *DetectOptions `json:"options,omitempty"`
}

// DetectResponse is the JSON answer of POST /v1/detect
type DetectResponse struct {
	DocumentID string                   `json:"document_id"`
	Page       int                      `json:"page"`
	Spans      []detector.DetectionSpan `json:"spans"`
	Degraded   bool                     `json:"degraded"`
	FromCache  bool                     `json:"from_cache"`
}

// BoxesRequest is the body of POST /v1/boxes. Without spans the text is detected first;
// without text the reading order of the words is used.
type BoxesRequest struct {
	Text       string                   `json:"text"`
	Words      []geometry.OCRWord       `json:"words"`
	Spans      []detector.DetectionSpan `json:"spans,omitempty"`
	DocumentID string                   `json:"document_id,omitempty"`
	Page       int                      `json:"page,omitempty"`
	Scale      float64                  `json:"scale,omitempty"`
	Options    *DetectOptions           `json:"options,omitempty"`
}

// BoxesResponse is the answer of POST /v1/boxes
type BoxesResponse struct {
	Boxes    []geometry.BoundingBox   `json:"boxes"`
	Spans    []detector.DetectionSpan `json:"spans"`
	Stats    geometry.Stats           `json:"stats"`
	Degraded bool                     `json:"degraded"`
}

// TablesRequest is the body of POST /v1/tables
type TablesRequest struct {
	Words []geometry.OCRWord `json:"words"`
	Page  int                `json:"page,omitempty"`
	Scale float64            `json:"scale,omitempty"`
}

// TablesResponse is the answer of POST /v1/tables
type TablesResponse struct {
	Table      *geometry.Table        `json:"table"`
	Headers    []string               `json:"headers"`
	PIIColumns []geometry.PIIColumn   `json:"pii_columns"`
	Boxes      []geometry.BoundingBox `json:"boxes"`
}

// FormsRequest is the body of POST /v1/forms
type FormsRequest struct {
	Words  []geometry.OCRWord `json:"words"`
	Labels []geometry.Label   `json:"labels,omitempty"`
}

// FormsResponse is the answer of POST /v1/forms
type FormsResponse struct {
	Template string           `json:"template,omitempty"`
	Fields   []geometry.Field `json:"fields"`
}

// decode reads a size-limited JSON body into v
func (ws *WebServer) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, ws.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ws.sendError(w, r, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		ws.sendError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// resolveOptions applies request overrides on top of the engine defaults
func (ws *WebServer) resolveOptions(o *DetectOptions) (hybrid.Options, error) {
	opts := ws.engine.Options()
	if o == nil {
		return opts, nil
	}
	if len(o.Categories) > 0 {
		kinds := make([]patterns.Kind, 0, len(o.Categories))
		for _, name := range o.Categories {
			k, err := patterns.ParseKind(strings.TrimSpace(name))
			if err != nil {
				return opts, err
			}
			kinds = append(kinds, k)
		}
		opts.Kinds = kinds
	}
	if o.UseModel != nil {
		opts.UseModel = *o.UseModel
	}
	if o.ModelMinConfidence != nil {
		if *o.ModelMinConfidence < 0 || *o.ModelMinConfidence > 1 {
			return opts, fmt.Errorf("model_min_confidence must be between 0 and 1, got %g", *o.ModelMinConfidence)
		}
		opts.ModelMinConfidence = *o.ModelMinConfidence
	}
	if o.RegionGuidance != nil {
		opts.RegionGuidance = *o.RegionGuidance
	}
	return opts, nil
}

func (ws *WebServer) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"formats": formatters.GetSupportedFormats()})
}

// handleDetect runs one page of text through the engine. ?format= selects a formatter
// instead of the raw span list.
func (ws *WebServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if !ws.decode(w, r, &req) {
		return
	}
	if req.Page < 0 {
		ws.sendError(w, r, "page must not be negative", http.StatusBadRequest)
		return
	}
	format := r.URL.Query().Get("format")
	if _, ok := formatters.Get(format); format != "" && !ok {
		ws.sendError(w, r, fmt.Sprintf("unsupported format '%s'. Available formats: %s", format, strings.Join(formatters.List(), ", ")), http.StatusBadRequest)
		return
	}
	opts, err := ws.resolveOptions(req.Options)
	if err != nil {
		ws.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}

	res, err := ws.engine.Detect(r.Context(), req.DocumentID, req.Page, req.Text, opts)
	if err != nil {
		ws.sendError(w, r, "detection failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if res.Degraded {
		observability.FromContext(r.Context()).Warn("model unavailable, returning pattern results",
			zap.String("document_id", req.DocumentID), zap.Int("page", req.Page))
	}

	spans := res.Spans
	if spans == nil {
		spans = []detector.DetectionSpan{}
	}

	if format != "" {
		result := &core.Result{
			DocumentID: req.DocumentID,
			Pages: []core.PageResult{{
				Index: req.Page, Text: req.Text, Spans: spans,
				Degraded: res.Degraded, FromCache: res.FromCache,
			}},
		}
		options := formatters.FormatterOptions{
			NoColor:   true,
			ShowMatch: r.URL.Query().Get("show_match") == "true",
			Verbose:   r.URL.Query().Get("verbose") == "true",
		}
		content, mimeType, filename, err := formatters.ExportForWeb(format, []*core.Result{result}, options)
		if err != nil {
			ws.sendError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(content))
		return
	}

	writeJSON(w, http.StatusOK, DetectResponse{
		DocumentID: req.DocumentID,
		Page:       req.Page,
		Spans:      spans,
		Degraded:   res.Degraded,
		FromCache:  res.FromCache,
	})
}

// handleBoxes projects spans onto OCR words
func (ws *WebServer) handleBoxes(w http.ResponseWriter, r *http.Request) {
	var req BoxesRequest
	if !ws.decode(w, r, &req) {
		return
	}
	if len(req.Words) == 0 {
		ws.sendError(w, r, "words are required", http.StatusBadRequest)
		return
	}
	if req.Scale < 0 {
		ws.sendError(w, r, "scale must not be negative", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		req.Text = ocr.ReadingText(req.Words)
	}

	resp := BoxesResponse{Spans: req.Spans}
	if resp.Spans == nil {
		opts, err := ws.resolveOptions(req.Options)
		if err != nil {
			ws.sendError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		if req.DocumentID == "" {
			req.DocumentID = uuid.NewString()
		}
		res, err := ws.engine.Detect(r.Context(), req.DocumentID, req.Page, req.Text, opts)
		if err != nil {
			ws.sendError(w, r, "detection failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Spans = res.Spans
		resp.Degraded = res.Degraded
	}

	resp.Boxes, resp.Stats = ws.engine.Boxes(resp.Spans, req.Words, req.Text, req.Page, req.Scale)
	if resp.Boxes == nil {
		resp.Boxes = []geometry.BoundingBox{}
	}
	if resp.Spans == nil {
		resp.Spans = []detector.DetectionSpan{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTables rebuilds a table and returns the boxes of its PII columns
func (ws *WebServer) handleTables(w http.ResponseWriter, r *http.Request) {
	var req TablesRequest
	if !ws.decode(w, r, &req) {
		return
	}
	if len(req.Words) == 0 {
		ws.sendError(w, r, "words are required", http.StatusBadRequest)
		return
	}

	t := ws.engine.Table(req.Words)
	resp := TablesResponse{
		Table:      t,
		Headers:    t.Headers(),
		PIIColumns: t.PIIColumns(),
		Boxes:      ws.engine.TableBoxes(t, req.Page, req.Scale),
	}
	if resp.PIIColumns == nil {
		resp.PIIColumns = []geometry.PIIColumn{}
	}
	if resp.Boxes == nil {
		resp.Boxes = []geometry.BoundingBox{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleForms reads label/value pairs from a form
func (ws *WebServer) handleForms(w http.ResponseWriter, r *http.Request) {
	var req FormsRequest
	if !ws.decode(w, r, &req) {
		return
	}
	template, fields := ws.engine.Forms(req.Words, req.Labels)
	if fields == nil {
		fields = []geometry.Field{}
	}
	writeJSON(w, http.StatusOK, FormsResponse{Template: template, Fields: fields})
}

// handleInvalidate drops every cached page of a document
func (ws *WebServer) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "*")
	if documentID == "" {
		ws.sendError(w, r, "document id is required", http.StatusBadRequest)
		return
	}
	// file paths lose their leading slash in the route
	if !strings.HasPrefix(documentID, "/") && strings.Contains(documentID, "/") {
		documentID = "/" + documentID
	}
	ws.engine.Invalidate(r.Context(), documentID)
	observability.FromContext(r.Context()).Info("cache invalidated", zap.String("document_id", documentID))
	w.WriteHeader(http.StatusNoContent)
}
