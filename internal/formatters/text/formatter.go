// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"piiscope/internal/core"
	"piiscope/internal/formatters"
	"piiscope/internal/formatters/shared"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and columns"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(results []*core.Result, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	records := shared.Records(results, options)
	var builder strings.Builder

	if len(records) == 0 {
		if len(options.ConfidenceLevel) > 0 {
			builder.WriteString("No matches found at the specified confidence levels.\n")
		} else {
			builder.WriteString("No matches found.\n")
		}
		f.appendDegradedNotice(&builder, results, options)
		return builder.String(), nil
	}

	f.sortRecords(records)
	if !options.Verbose {
		f.appendHeaders(&builder, records, options)
	}
	for _, rec := range records {
		if options.Verbose {
			f.appendDetailedMatch(&builder, rec, options)
			continue
		}
		f.appendSummaryLine(&builder, rec, records, options)
	}

	f.appendFooter(&builder, records, options)
	f.appendDegradedNotice(&builder, results, options)
	return builder.String(), nil
}

// paint applies a named color unless colors are disabled
func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) levelColor(level string) string {
	switch level {
	case "HIGH":
		return "red"
	case "MEDIUM":
		return "yellow"
	default:
		return "green"
	}
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, records []shared.Record, options formatters.FormatterOptions) {
	matchWidth := f.calculateMatchColumnWidth(records, options)
	builder.WriteString(f.paint("white", options, "%-8s %-8s %-20s %-8s %-9s %-*s %s\n",
		"LEVEL", "SOURCE", "TYPE", "CONF%", "PAGE", matchWidth, "MATCH", "FILE"))

	totalWidth := 8 + 1 + 8 + 1 + 20 + 1 + 8 + 1 + 9 + 1 + matchWidth + 1 + 10
	builder.WriteString(f.paint("white", options, "%s\n", strings.Repeat("-", totalWidth)))
}

// calculateMatchColumnWidth calculates the optimal width for the match column
func (f *Formatter) calculateMatchColumnWidth(records []shared.Record, options formatters.FormatterOptions) int {
	maxWidth := len(shared.Redacted)
	if options.ShowMatch {
		for _, rec := range records {
			if n := len([]rune(flatten(rec.Span.Text))); n > maxWidth {
				maxWidth = n
			}
		}
	}
	// Cap at 30 characters for readability
	if maxWidth > 30 {
		maxWidth = 30
	}
	return maxWidth
}

func flatten(s string) string {
	return strings.NewReplacer("\n", " ", "\t", " ", "\f", " ").Replace(s)
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, rec shared.Record, all []shared.Record, options formatters.FormatterOptions) {
	level := rec.ConfidenceLevel
	levelStr := f.paint(f.levelColor(level), options, "[%-6s]", level)
	sourceStr := f.paint("green", options, "%-8s", rec.Span.Source)

	typeDisplay := rec.Span.Type
	if len(typeDisplay) > 20 {
		typeDisplay = typeDisplay[:17] + "..."
	}
	typeStr := f.paint("cyan", options, "%-20s", typeDisplay)
	confidenceStr := f.paint("blue", options, "%7.2f%%", rec.Span.Confidence*100)
	pageStr := f.paint("magenta", options, "page %4d", rec.Page+1)

	targetWidth := f.calculateMatchColumnWidth(all, options)
	matchText := shared.DisplayText(flatten(rec.Span.Text), options)
	if runes := []rune(matchText); len(runes) > targetWidth {
		matchText = string(runes[:targetWidth-3]) + "..."
	}
	if pad := targetWidth - len([]rune(matchText)); pad > 0 {
		matchText += strings.Repeat(" ", pad)
	}

	filenameStr := f.paint("white", options, "%s", f.getSmartFilename(rec.File, all))

	fmt.Fprintf(builder, "%s %s %s %s %s %s %s\n",
		levelStr, sourceStr, typeStr, confidenceStr, pageStr, matchText, filenameStr)
}

// appendDetailedMatch adds detailed span information to the string builder
func (f *Formatter) appendDetailedMatch(builder *strings.Builder, rec shared.Record, options formatters.FormatterOptions) {
	builder.WriteString(f.paint("white", options, "=== Match Details ===\n"))
	fmt.Fprintf(builder, "%s%s%s%s: %s\n",
		f.paint("cyan", options, "Match found in "),
		f.paint("white", options, "%s", rec.File),
		f.paint("cyan", options, " on "),
		f.paint("magenta", options, "page %d", rec.Page+1),
		shared.DisplayText(rec.Span.Text, options))

	fmt.Fprintf(builder, "%s%s\n", f.paint("cyan", options, "Type: "), f.paint("white", options, "%s", rec.Span.Type))
	fmt.Fprintf(builder, "%s%s\n", f.paint("cyan", options, "Source: "), f.paint("white", options, "%s", rec.Span.Source))
	fmt.Fprintf(builder, "%s%s %s\n",
		f.paint("cyan", options, "Confidence level: "),
		f.paint("white", options, "%.2f%%", rec.Span.Confidence*100),
		f.paint(f.levelColor(rec.ConfidenceLevel), options, "(%s)", rec.ConfidenceLevel))

	if p := rec.Span.Positions; p != nil {
		fmt.Fprintf(builder, "%s%d-%d\n", f.paint("cyan", options, "Offsets: "), p.Start, p.End)
	}
	if options.ShowMatch && rec.Context.FullLine != "" {
		fmt.Fprintf(builder, "%s%s\n", f.paint("cyan", options, "Line: "), flatten(rec.Context.FullLine))
	}
	for _, b := range rec.Boxes {
		fmt.Fprintf(builder, "%s(%.1f, %.1f) %.1fx%.1f\n", f.paint("cyan", options, "Box: "), b.X, b.Y, b.W, b.H)
	}
	builder.WriteString("\n")
}

// appendFooter prints totals per type
func (f *Formatter) appendFooter(builder *strings.Builder, records []shared.Record, options formatters.FormatterOptions) {
	byType := make(map[string]int)
	files := make(map[string]bool)
	for _, rec := range records {
		byType[rec.Span.Type]++
		files[rec.File] = true
	}

	parts := make([]string, 0, len(byType))
	for _, t := range shared.TypeCounts(byType) {
		parts = append(parts, fmt.Sprintf("%s=%d", t, byType[t]))
	}
	builder.WriteString(f.paint("white", options, "\n%d matches in %d file(s): %s\n",
		len(records), len(files), strings.Join(parts, ", ")))
}

// appendDegradedNotice warns about pages where the model pass was skipped
func (f *Formatter) appendDegradedNotice(builder *strings.Builder, results []*core.Result, options formatters.FormatterOptions) {
	for _, r := range results {
		for _, p := range r.Pages {
			if p.Degraded {
				builder.WriteString(f.paint("yellow", options,
					"warning: model unavailable for %s page %d; pattern results only\n", r.DocumentID, p.Index+1))
			}
		}
	}
}

// sortRecords orders records by confidence level, then confidence, then file and position
func (f *Formatter) sortRecords(records []shared.Record) {
	rank := map[string]int{"HIGH": 0, "MEDIUM": 1, "LOW": 2}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if rank[a.ConfidenceLevel] != rank[b.ConfidenceLevel] {
			return rank[a.ConfidenceLevel] < rank[b.ConfidenceLevel]
		}
		if a.Span.Confidence != b.Span.Confidence {
			return a.Span.Confidence > b.Span.Confidence
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Page < b.Page
	})
}

// getSmartFilename returns the basename unless two files in the output share it
func (f *Formatter) getSmartFilename(fullPath string, all []shared.Record) string {
	base := filepath.Base(fullPath)
	for _, rec := range all {
		if rec.File != fullPath && filepath.Base(rec.File) == base {
			return fullPath
		}
	}
	return base
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
