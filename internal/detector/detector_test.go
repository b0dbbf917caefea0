// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"testing"
)

func TestNewSpanSatisfiesInvariants(t *testing.T) {
	doc := "Contact test@test.com today"
	span := NewSpan(doc, 8, 21, "EMAIL", 1.4, SourcePattern)

	if span.Text != "test@test.com" {
		t.Fatalf("expected span text test@test.com, got %q", span.Text)
	}
	if span.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", span.Confidence)
	}
	if err := span.Validate(doc); err != nil {
		t.Errorf("expected valid span, got %v", err)
	}
}

func TestValidateRejectsBrokenSpans(t *testing.T) {
	doc := "hello world"
	tests := []struct {
		name string
		span DetectionSpan
	}{
		{"confidence above one", DetectionSpan{Text: "x", Confidence: 1.1}},
		{"negative confidence", DetectionSpan{Text: "x", Confidence: -0.1}},
		{"empty range", DetectionSpan{Text: "", Confidence: 0.5, Positions: &Positions{Start: 3, End: 3}}},
		{"past end", DetectionSpan{Text: "world", Confidence: 0.5, Positions: &Positions{Start: 6, End: 20}}},
		{"text mismatch", DetectionSpan{Text: "World", Confidence: 0.5, Positions: &Positions{Start: 6, End: 11}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.span.Validate(doc); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestCloneDoesNotShareRange(t *testing.T) {
	orig := []DetectionSpan{{Text: "a", Positions: &Positions{Start: 0, End: 1}}}
	cp := CloneSpans(orig)
	cp[0].Positions.Start = 5
	if orig[0].Positions.Start != 0 {
		t.Error("clone mutated original positions")
	}
	if CloneSpans(nil) != nil {
		t.Error("expected nil clone of nil slice")
	}
}

func TestSortSpans(t *testing.T) {
	spans := []DetectionSpan{
		{Text: "b"},
		{Text: "late", Positions: &Positions{Start: 10, End: 14}},
		{Text: "early", Positions: &Positions{Start: 2, End: 7}},
	}
	SortSpans(spans)
	if spans[0].Text != "early" || spans[1].Text != "late" || spans[2].Text != "b" {
		t.Errorf("unexpected order: %v", spans)
	}
}

func TestRedact(t *testing.T) {
	doc := "SSN 123-45-6789 and Müller"
	spans := []DetectionSpan{
		NewSpan(doc, 4, 15, "SSN", 1, SourcePattern),
		NewSpan(doc, 20, len(doc), "PER", 0.9, SourceModel),
		{Text: "unpositioned"},
	}
	got := Redact(doc, spans, '*')
	want := "SSN *********** and ******"
	if got != want {
		t.Errorf("Redact() = %q, want %q", got, want)
	}
}

func TestAlign(t *testing.T) {
	s := "aé b"
	// é occupies bytes 1..2
	if got := AlignStart(s, 2); got != 1 {
		t.Errorf("AlignStart = %d, want 1", got)
	}
	if got := AlignEnd(s, 2); got != 3 {
		t.Errorf("AlignEnd = %d, want 3", got)
	}
	if AlignStart(s, -4) != 0 || AlignEnd(s, 99) != len(s) {
		t.Error("expected clamping at the edges")
	}
}

func TestExtractContext(t *testing.T) {
	doc := "line one\nName: Jane Roe here\nline three"
	start := 15
	end := 23
	info := NewContextExtractor().WithContextChars(6).ExtractContext(doc, start, end)

	if info.FullLine != "Name: Jane Roe here" {
		t.Errorf("FullLine = %q", info.FullLine)
	}
	if info.BeforeText != "Name: " {
		t.Errorf("BeforeText = %q", info.BeforeText)
	}
	if info.AfterText != " here\n" {
		t.Errorf("AfterText = %q", info.AfterText)
	}
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		s, keyword string
		want       bool
	}{
		{"tin: 123", "tin", true},
		{"the meeting", "tin", false},
		{"continue", "tin", false},
		{"hotel", "tel", false},
		{"tel. 555", "tel", true},
		{"ss#123", "ss#", true},
		{"online banking", "bank", true},
		{"databank", "bank", false},
		{"routing and tin", "tin", true},
		{"番号: 個人番号", "個人番号", true},
		{"anything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.s+"/"+tt.keyword, func(t *testing.T) {
			if got := ContainsKeyword(tt.s, tt.keyword); got != tt.want {
				t.Errorf("ContainsKeyword(%q, %q) = %v, want %v", tt.s, tt.keyword, got, tt.want)
			}
		})
	}
}
