// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"sort"

	"piiscope/internal/core"
	"piiscope/internal/detector"
	"piiscope/internal/formatters"
	"piiscope/internal/geometry"
)

// Redacted replaces matched text unless ShowMatch is set
const Redacted = "[REDACTED]"

// JSONResponse represents the top-level response structure for JSON/YAML output
type JSONResponse struct {
	Results []JSONDocument `json:"results" yaml:"results"`
	Summary Summary        `json:"summary" yaml:"summary"`
}

// JSONDocument is one scanned document
type JSONDocument struct {
	DocumentID string     `json:"document_id" yaml:"document_id"`
	Path       string     `json:"path,omitempty" yaml:"path,omitempty"`
	Format     string     `json:"format,omitempty" yaml:"format,omitempty"`
	Pages      []JSONPage `json:"pages" yaml:"pages"`
}

// JSONPage is one page of a document
type JSONPage struct {
	Index     int                    `json:"index" yaml:"index"`
	Spans     []JSONSpan             `json:"spans" yaml:"spans"`
	Boxes     []geometry.BoundingBox `json:"boxes,omitempty" yaml:"boxes,omitempty"`
	Degraded  bool                   `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	FromCache bool                   `json:"from_cache,omitempty" yaml:"from_cache,omitempty"`
}

// JSONSpan represents a single span in JSON/YAML format
type JSONSpan struct {
	Text            string              `json:"text" yaml:"text"`
	Type            string              `json:"type" yaml:"type"`
	Confidence      float64             `json:"confidence" yaml:"confidence"`
	ConfidenceLevel string              `json:"confidence_level" yaml:"confidence_level"`
	Source          detector.Source     `json:"source" yaml:"source"`
	Positions       *detector.Positions `json:"positions,omitempty" yaml:"positions,omitempty"`
	FullLine        string              `json:"full_line,omitempty" yaml:"full_line,omitempty"`
	BeforeText      string              `json:"before_text,omitempty" yaml:"before_text,omitempty"`
	AfterText       string              `json:"after_text,omitempty" yaml:"after_text,omitempty"`
}

// Summary counts what the results contain after filtering
type Summary struct {
	Documents int            `json:"documents" yaml:"documents"`
	Pages     int            `json:"pages" yaml:"pages"`
	Spans     int            `json:"spans" yaml:"spans"`
	Boxes     int            `json:"boxes" yaml:"boxes"`
	Degraded  int            `json:"degraded_pages" yaml:"degraded_pages"`
	ByType    map[string]int `json:"by_type" yaml:"by_type"`
}

// Record is one span flattened with its document and page, for row-oriented formats
type Record struct {
	File            string
	Page            int
	Span            detector.DetectionSpan
	ConfidenceLevel string
	Context         detector.ContextInfo
	Boxes           []geometry.BoundingBox
}

// GetConfidenceLevel returns the confidence level of a [0,1] confidence as a string
func GetConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "HIGH"
	case confidence >= 0.6:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Included reports whether a span passes the confidence level filter
func Included(span detector.DetectionSpan, options formatters.FormatterOptions) bool {
	if len(options.ConfidenceLevel) == 0 {
		return true
	}
	switch GetConfidenceLevel(span.Confidence) {
	case "HIGH":
		return options.ConfidenceLevel["high"]
	case "MEDIUM":
		return options.ConfidenceLevel["medium"]
	default:
		return options.ConfidenceLevel["low"]
	}
}

// DisplayText returns the span text, or the redaction marker unless ShowMatch is set
func DisplayText(text string, options formatters.FormatterOptions) string {
	if options.ShowMatch {
		return text
	}
	return Redacted
}

func fileName(r *core.Result) string {
	if r.Path != "" {
		return r.Path
	}
	return r.DocumentID
}

// Records flattens results into filtered records in document, page and position order
func Records(results []*core.Result, options formatters.FormatterOptions) []Record {
	extractor := detector.NewContextExtractor()
	var out []Record
	for _, r := range results {
		for _, p := range r.Pages {
			for _, s := range p.Spans {
				if !Included(s, options) {
					continue
				}
				rec := Record{
					File:            fileName(r),
					Page:            p.Index,
					Span:            s,
					ConfidenceLevel: GetConfidenceLevel(s.Confidence),
					Boxes:           boxesFor(p.Boxes, s),
				}
				if options.Verbose && s.Positions != nil && p.Text != "" {
					rec.Context = extractor.ExtractContext(p.Text, s.Positions.Start, s.Positions.End)
				}
				out = append(out, rec)
			}
		}
	}
	return out
}

// boxesFor returns the boxes produced for a span, matched by type and text
func boxesFor(boxes []geometry.BoundingBox, s detector.DetectionSpan) []geometry.BoundingBox {
	var out []geometry.BoundingBox
	for _, b := range boxes {
		if b.Type == s.Type && b.Text == s.Text {
			out = append(out, b)
		}
	}
	return out
}

// ConvertToJSONFormat converts scan results to the JSON/YAML response structure
func ConvertToJSONFormat(results []*core.Result, options formatters.FormatterOptions) JSONResponse {
	extractor := detector.NewContextExtractor()
	response := JSONResponse{
		Results: make([]JSONDocument, 0, len(results)),
		Summary: Summary{ByType: make(map[string]int)},
	}

	for _, r := range results {
		doc := JSONDocument{DocumentID: r.DocumentID, Path: r.Path, Format: r.Format, Pages: make([]JSONPage, 0, len(r.Pages))}
		for _, p := range r.Pages {
			page := JSONPage{Index: p.Index, Spans: []JSONSpan{}, Degraded: p.Degraded, FromCache: p.FromCache}
			for _, s := range p.Spans {
				if !Included(s, options) {
					continue
				}
				js := JSONSpan{
					Text:            DisplayText(s.Text, options),
					Type:            s.Type,
					Confidence:      s.Confidence,
					ConfidenceLevel: GetConfidenceLevel(s.Confidence),
					Source:          s.Source,
				}
				if s.Positions != nil {
					pos := *s.Positions
					js.Positions = &pos
				}
				if options.Verbose && options.ShowMatch && s.Positions != nil && p.Text != "" {
					info := extractor.ExtractContext(p.Text, s.Positions.Start, s.Positions.End)
					js.FullLine, js.BeforeText, js.AfterText = info.FullLine, info.BeforeText, info.AfterText
				}
				page.Spans = append(page.Spans, js)
				response.Summary.ByType[s.Type]++
			}
			for _, b := range p.Boxes {
				b.Text = DisplayText(b.Text, options)
				page.Boxes = append(page.Boxes, b)
			}
			response.Summary.Spans += len(page.Spans)
			response.Summary.Boxes += len(page.Boxes)
			if p.Degraded {
				response.Summary.Degraded++
			}
			doc.Pages = append(doc.Pages, page)
		}
		response.Summary.Pages += len(doc.Pages)
		response.Results = append(response.Results, doc)
	}
	response.Summary.Documents = len(response.Results)
	return response
}

// TypeCounts returns span types sorted by descending count, then name
func TypeCounts(byType map[string]int) []string {
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if byType[types[i]] != byType[types[j]] {
			return byType[types[i]] > byType[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}
