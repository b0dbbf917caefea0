// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"piiscope/internal/core"
	"piiscope/internal/formatters"
	"piiscope/internal/formatters/shared"
	"piiscope/internal/geometry"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(results []*core.Result, options formatters.FormatterOptions) (string, error) {
	records := shared.Records(results, options)

	withBoxes := false
	for _, r := range results {
		for _, p := range r.Pages {
			if len(p.Boxes) > 0 {
				withBoxes = true
			}
		}
	}

	headers := []string{"Filename", "Page", "Type", "Source", "Confidence Level", "Confidence", "Start", "End", "Text"}
	if withBoxes {
		headers = append(headers, "Boxes")
	}
	if options.Verbose {
		headers = append(headers, "Line")
	}

	csvRows := []string{strings.Join(headers, ",")}
	for _, rec := range records {
		csvRows = append(csvRows, f.createCSVRow(rec, options, withBoxes))
	}
	return strings.Join(csvRows, "\n"), nil
}

// createCSVRow creates a CSV row for a record
func (f *Formatter) createCSVRow(rec shared.Record, options formatters.FormatterOptions, withBoxes bool) string {
	start, end := "", ""
	if rec.Span.Positions != nil {
		start = fmt.Sprintf("%d", rec.Span.Positions.Start)
		end = fmt.Sprintf("%d", rec.Span.Positions.End)
	}

	row := []string{
		f.escapeCSVField(rec.File),
		fmt.Sprintf("%d", rec.Page),
		f.escapeCSVField(rec.Span.Type),
		f.escapeCSVField(string(rec.Span.Source)),
		rec.ConfidenceLevel,
		fmt.Sprintf("%.3f", rec.Span.Confidence),
		start,
		end,
		f.escapeCSVField(shared.DisplayText(rec.Span.Text, options)),
	}
	if withBoxes {
		row = append(row, f.escapeCSVField(formatBoxes(rec.Boxes)))
	}
	if options.Verbose {
		line := ""
		if options.ShowMatch {
			line = rec.Context.FullLine
		}
		row = append(row, f.escapeCSVField(line))
	}
	return strings.Join(row, ",")
}

// formatBoxes writes boxes as "x y w h" groups separated by semicolons
func formatBoxes(boxes []geometry.BoundingBox) string {
	parts := make([]string, len(boxes))
	for i, b := range boxes {
		parts[i] = fmt.Sprintf("%.1f %.1f %.1f %.1f", b.X, b.Y, b.W, b.H)
	}
	return strings.Join(parts, ";")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	// Prevent CSV injection by sanitizing formula characters
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes fields that spreadsheets would evaluate as formulas
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
