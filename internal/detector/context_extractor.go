// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
)

// ContextInfo stores the text surrounding a span
type ContextInfo struct {
	// Text before and after the span, bounded by ContextChars
	BeforeText string
	AfterText  string

	// Line containing the span
	FullLine string
}

// Window returns before + span + after as a single string
func (c ContextInfo) Window(span string) string {
	return c.BeforeText + span + c.AfterText
}

// ContextExtractor extracts context from a document around a byte range
type ContextExtractor struct {
	// Number of bytes before and after the span to consider
	ContextChars int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		ContextChars: 50,
	}
}

// WithContextChars sets the number of context characters
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.ContextChars = chars
	return ce
}

// ExtractContext returns the context around [start,end) of text. Out-of-range offsets are clamped.
func (ce *ContextExtractor) ExtractContext(text string, start, end int) ContextInfo {
	start = AlignStart(text, start)
	end = AlignEnd(text, end)
	if end < start {
		end = start
	}

	info := ContextInfo{}

	beforeStart := AlignStart(text, start-ce.ContextChars)
	info.BeforeText = text[beforeStart:start]

	afterEnd := AlignEnd(text, end+ce.ContextChars)
	info.AfterText = text[end:afterEnd]

	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := len(text)
	if idx := strings.IndexByte(text[end:], '\n'); idx >= 0 {
		lineEnd = end + idx
	}
	info.FullLine = text[lineStart:lineEnd]

	return info
}
