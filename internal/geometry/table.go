// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"math"
	"sort"
	"strings"

	"piiscope/internal/detector"
)

const (
	// DefaultRowTolerance is the maximum vertical distance between word centers on one row
	DefaultRowTolerance = 10.0
	// DefaultColumnMinShare is the fraction of rows a column cluster must appear in
	DefaultColumnMinShare = 0.5
	// DefaultColumnGap is the horizontal distance that separates two column clusters
	DefaultColumnGap = 20.0
)

// headerCategories maps header keywords to PII categories. The first matching entry wins.
var headerCategories = []struct {
	keyword  string
	category string
}{
	{"social security", "ssn"},
	{"ssn", "ssn"},
	{"e-mail", "email"},
	{"email", "email"},
	{"phone", "phone"},
	{"mobile", "phone"},
	{"tel", "phone"},
	{"birth", "date_of_birth"},
	{"dob", "date_of_birth"},
	{"passport", "passport"},
	{"iban", "bank_account"},
	{"account", "bank_account"},
	{"card", "credit_card"},
	{"address", "address"},
	{"name", "name"},
}

// GroupRows groups words into rows by vertical proximity and sorts each row left to right.
// Rows are returned top to bottom.
func GroupRows(words []OCRWord, tolerance float64) [][]OCRWord {
	if len(words) == 0 {
		return nil
	}
	if tolerance <= 0 {
		tolerance = DefaultRowTolerance
	}

	sorted := append([]OCRWord(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.CenterY() < sorted[j].BBox.CenterY()
	})

	var rows [][]OCRWord
	var rowY float64
	for _, w := range sorted {
		cy := w.BBox.CenterY()
		if n := len(rows); n > 0 && math.Abs(cy-rowY) <= tolerance {
			rows[n-1] = append(rows[n-1], w)
			// running mean keeps slightly slanted rows together
			rowY += (cy - rowY) / float64(len(rows[n-1]))
			continue
		}
		rows = append(rows, []OCRWord{w})
		rowY = cy
	}

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].BBox.X < row[j].BBox.X })
	}
	return rows
}

// DetectColumns clusters the left edges of words and returns the centroids of the clusters
// present in at least minShare of the rows, left to right
func DetectColumns(rows [][]OCRWord, minShare float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	if minShare <= 0 {
		minShare = DefaultColumnMinShare
	}

	type point struct {
		x   float64
		row int
	}
	var points []point
	for r, row := range rows {
		for _, w := range row {
			points = append(points, point{x: w.BBox.X, row: r})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].x < points[j].x })

	type cluster struct {
		sum  float64
		n    int
		last float64
		rows map[int]bool
	}
	var clusters []*cluster
	for _, p := range points {
		if n := len(clusters); n > 0 && p.x-clusters[n-1].last <= DefaultColumnGap {
			c := clusters[n-1]
			c.sum += p.x
			c.n++
			c.last = p.x
			c.rows[p.row] = true
			continue
		}
		clusters = append(clusters, &cluster{sum: p.x, n: 1, last: p.x, rows: map[int]bool{p.row: true}})
	}

	var out []float64
	for _, c := range clusters {
		if float64(len(c.rows))/float64(len(rows)) >= minShare {
			out = append(out, c.sum/float64(c.n))
		}
	}
	return out
}

// Cell is one grid position of a reconstructed table
type Cell struct {
	Text  string    `json:"text"`
	Words []OCRWord `json:"-"`
	BBox  BBox      `json:"bbox"`
}

// Table is a row by column grid; row 0 holds the headers
type Table struct {
	Columns []float64 `json:"columns"`
	Rows    [][]Cell  `json:"rows"`
}

// PIIColumn is a column whose header names a PII category
type PIIColumn struct {
	Index    int    `json:"index"`
	Header   string `json:"header"`
	Category string `json:"category"`
}

// BuildTable reconstructs a table from words. Each word is assigned to the nearest column
// centroid. A zero tolerance or share selects the default.
func BuildTable(words []OCRWord, rowTolerance, minShare float64) *Table {
	rows := GroupRows(words, rowTolerance)
	cols := DetectColumns(rows, minShare)
	t := &Table{Columns: cols}
	if len(cols) == 0 {
		return t
	}

	for _, row := range rows {
		cells := make([]Cell, len(cols))
		for _, w := range row {
			c := nearestColumn(cols, w.BBox.X)
			cell := &cells[c]
			if len(cell.Words) == 0 {
				cell.BBox = w.BBox
				cell.Text = w.Text
			} else {
				cell.BBox = cell.BBox.Union(w.BBox)
				cell.Text += " " + w.Text
			}
			cell.Words = append(cell.Words, w)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func nearestColumn(cols []float64, x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range cols {
		if d := math.Abs(x - c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Headers returns the text of row 0
func (t *Table) Headers() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	out := make([]string, len(t.Rows[0]))
	for i, c := range t.Rows[0] {
		out[i] = c.Text
	}
	return out
}

// PIIColumns maps header text onto PII categories
func (t *Table) PIIColumns() []PIIColumn {
	var out []PIIColumn
	for i, h := range t.Headers() {
		if cat, ok := headerCategory(h); ok {
			out = append(out, PIIColumn{Index: i, Header: h, Category: cat})
		}
	}
	return out
}

func headerCategory(header string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return "", false
	}
	for _, hc := range headerCategories {
		if detector.ContainsKeyword(h, hc.keyword) {
			return hc.category, true
		}
	}
	return "", false
}

// ColumnBoxes returns the boxes of every non-empty body cell in column col
func (t *Table) ColumnBoxes(col int) []BBox {
	if col < 0 || col >= len(t.Columns) {
		return nil
	}
	var out []BBox
	for r := 1; r < len(t.Rows); r++ {
		if c := t.Rows[r][col]; len(c.Words) > 0 {
			out = append(out, c.BBox)
		}
	}
	return out
}

// RedactionBoxes returns the body cell boxes of every PII column, scaled and padded by m
func (t *Table) RedactionBoxes(m *Mapper) []BoundingBox {
	var out []BoundingBox
	for _, pc := range t.PIIColumns() {
		for r := 1; r < len(t.Rows); r++ {
			c := t.Rows[r][pc.Index]
			if len(c.Words) == 0 {
				continue
			}
			out = append(out, m.finish(c.BBox, tableSpan(c, pc.Category)))
		}
	}
	return out
}

// tableSpan describes a cell selected by its column header. Header keywords are
// deterministic, so the cell is reported as a pattern detection.
func tableSpan(c Cell, category string) detector.DetectionSpan {
	conf := 0.0
	for _, w := range c.Words {
		conf += w.Confidence
	}
	return detector.DetectionSpan{
		Text:       c.Text,
		Type:       category,
		Confidence: detector.ClampConfidence(conf / float64(len(c.Words))),
		Source:     detector.SourcePattern,
	}
}
