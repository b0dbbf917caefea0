// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package geometry

import (
	"math"
	"strings"
	"unicode"

	"piiscope/internal/detector"
)

const (
	templateBoost = 1.2

	// maxLabelWords bounds the phrase length tried when recognizing labels
	maxLabelWords = 6
)

// Label is a form label alias and the field type it announces
type Label struct {
	Alias string `json:"alias" yaml:"alias"`
	Type  string `json:"type" yaml:"type"`
}

// DefaultLabels returns the generic labels recognized on any form
func DefaultLabels() []Label {
	return []Label{
		{"name", "name"},
		{"full name", "name"},
		{"first name", "first_name"},
		{"last name", "last_name"},
		{"surname", "last_name"},
		{"ssn", "ssn"},
		{"social security number", "ssn"},
		{"social security no", "ssn"},
		{"email", "email"},
		{"e-mail", "email"},
		{"email address", "email"},
		{"phone", "phone"},
		{"telephone", "phone"},
		{"phone number", "phone"},
		{"mobile", "phone"},
		{"date of birth", "date_of_birth"},
		{"dob", "date_of_birth"},
		{"address", "address"},
		{"street address", "address"},
		{"account number", "bank_account"},
		{"iban", "bank_account"},
		{"routing number", "routing_number"},
		{"passport number", "passport"},
		{"passport no", "passport"},
		{"employee id", "employee_id"},
	}
}

// Field is a label and the value read next to it
type Field struct {
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	LabelBox   BBox    `json:"label_box"`
	ValueBox   BBox    `json:"value_box"`
}

// FormLabels returns the generic labels followed by the aliases of every built-in template.
// An alias already present keeps its first type.
func FormLabels() []Label {
	labels := DefaultLabels()
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		seen[normalizeLabel(l.Alias)] = true
	}
	for _, t := range DefaultTemplates() {
		for _, l := range t.Fields {
			if key := normalizeLabel(l.Alias); !seen[key] {
				seen[key] = true
				labels = append(labels, l)
			}
		}
	}
	return labels
}

// DetectFields finds labels among the words and reads each label's value: the nearest word to
// the right on the same line, or failing that the nearest word below within the label's
// horizontal band. Following words on the value's line are appended until the next label.
// Without labels FormLabels is used.
func DetectFields(words []OCRWord, labels []Label, rowTolerance float64) []Field {
	if len(labels) == 0 {
		labels = FormLabels()
	}
	index := make(map[string]Label, len(labels))
	for _, l := range labels {
		index[normalizeLabel(l.Alias)] = l
	}

	rows := GroupRows(words, rowTolerance)
	isLabel := make([][]int, len(rows)) // phrase length of a label starting at each word
	for r, row := range rows {
		isLabel[r] = make([]int, len(row))
		for i := 0; i < len(row); i++ {
			if n, _ := matchLabel(row, i, index); n > 0 {
				isLabel[r][i] = n
				i += n - 1
			}
		}
	}

	var out []Field
	for r, row := range rows {
		for i := 0; i < len(row); i++ {
			n := isLabel[r][i]
			if n == 0 {
				continue
			}
			_, label := matchLabel(row, i, index)
			labelBox := row[i].BBox
			var parts []string
			for _, w := range row[i : i+n] {
				labelBox = labelBox.Union(w.BBox)
				parts = append(parts, w.Text)
			}

			f := Field{
				Label:    strings.Join(parts, " "),
				Type:     label.Type,
				LabelBox: labelBox,
			}
			var value []OCRWord
			if i+n < len(row) && isLabel[r][i+n] == 0 {
				value = continuation(row, i+n, isLabel[r])
			} else if vr, vi, ok := below(rows, r, labelBox, isLabel); ok {
				value = continuation(rows[vr], vi, isLabel[vr])
			}
			if len(value) > 0 {
				f.Value, f.ValueBox, f.Confidence = joinWords(value)
				out = append(out, f)
			}
			i += n - 1
		}
	}
	return out
}

// matchLabel returns the length of the longest label phrase starting at row[i]
func matchLabel(row []OCRWord, i int, index map[string]Label) (int, Label) {
	best, bestLabel := 0, Label{}
	var phrase []string
	for j := i; j < len(row) && j-i < maxLabelWords; j++ {
		phrase = append(phrase, row[j].Text)
		if l, ok := index[normalizeLabel(strings.Join(phrase, " "))]; ok {
			best, bestLabel = j-i+1, l
		}
		if strings.HasSuffix(strings.TrimSpace(row[j].Text), ":") {
			break
		}
	}
	return best, bestLabel
}

// continuation collects row[from:] up to the next label
func continuation(row []OCRWord, from int, labels []int) []OCRWord {
	var out []OCRWord
	for j := from; j < len(row); j++ {
		if labels[j] > 0 {
			break
		}
		out = append(out, row[j])
	}
	return out
}

// below finds the nearest non-label word under the label whose horizontal extent overlaps
// the label's band
func below(rows [][]OCRWord, r int, band BBox, labels [][]int) (int, int, bool) {
	for vr := r + 1; vr < len(rows); vr++ {
		bestIdx, bestDist := -1, math.Inf(1)
		for j, w := range rows[vr] {
			if labels[vr][j] > 0 || w.BBox.Right() < band.X || w.BBox.X > band.Right() {
				continue
			}
			if d := math.Abs(w.BBox.X - band.X); d < bestDist {
				bestIdx, bestDist = j, d
			}
		}
		if bestIdx >= 0 {
			return vr, bestIdx, true
		}
	}
	return 0, 0, false
}

func joinWords(words []OCRWord) (string, BBox, float64) {
	parts := make([]string, 0, len(words))
	box := words[0].BBox
	conf := 0.0
	for _, w := range words {
		parts = append(parts, w.Text)
		box = box.Union(w.BBox)
		conf += w.Confidence
	}
	return strings.Join(parts, " "), box, detector.ClampConfidence(conf / float64(len(words)))
}

// normalizeLabel lowercases, drops punctuation other than hyphens and collapses spaces
func normalizeLabel(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Template is a known form layout: field label aliases and the type each one carries
type Template struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Label `json:"fields" yaml:"fields"`
}

// Labels returns the template aliases for use with DetectFields
func (t Template) Labels() []Label {
	return append([]Label(nil), t.Fields...)
}

// W2Template is the IRS W-2 wage and tax statement
func W2Template() Template {
	return Template{Name: "W-2", Fields: []Label{
		{"employee's social security number", "ssn"},
		{"employer identification number", "ein"},
		{"ein", "ein"},
		{"employer's name address and zip code", "employer"},
		{"employee's first name and initial", "first_name"},
		{"last name", "last_name"},
		{"employee's address and zip code", "address"},
		{"wages tips other compensation", "wages"},
		{"federal income tax withheld", "federal_tax"},
		{"control number", "control_number"},
	}}
}

// I9Template is the USCIS I-9 employment eligibility verification
func I9Template() Template {
	return Template{Name: "I-9", Fields: []Label{
		{"last name family name", "last_name"},
		{"first name given name", "first_name"},
		{"middle initial", "middle_initial"},
		{"other last names used", "other_names"},
		{"address street number and name", "address"},
		{"date of birth", "date_of_birth"},
		{"u s social security number", "ssn"},
		{"employee's e-mail address", "email"},
		{"employee's telephone number", "phone"},
		{"uscis a-number", "a_number"},
		{"form i-94 admission number", "i94_number"},
		{"foreign passport number", "passport"},
	}}
}

// DefaultTemplates returns the built-in form templates
func DefaultTemplates() []Template {
	return []Template{W2Template(), I9Template()}
}

// MatchTemplate picks the template sharing the most labels with fields, retypes the matching
// fields and boosts their confidence by 20%, capped at 1. It returns the template name, or ""
// when no template label matches. The input is not modified.
func MatchTemplate(fields []Field, templates []Template) (string, []Field) {
	out := append([]Field(nil), fields...)

	bestName, bestHits := "", 0
	var best map[string]string
	for _, t := range templates {
		aliases := make(map[string]string, len(t.Fields))
		for _, l := range t.Fields {
			aliases[normalizeLabel(l.Alias)] = l.Type
		}
		hits := 0
		for _, f := range fields {
			if _, ok := aliases[normalizeLabel(f.Label)]; ok {
				hits++
			}
		}
		if hits > bestHits {
			bestName, bestHits, best = t.Name, hits, aliases
		}
	}
	if bestHits == 0 {
		return "", out
	}

	for i := range out {
		if typ, ok := best[normalizeLabel(out[i].Label)]; ok {
			out[i].Type = typ
			out[i].Confidence = detector.ClampConfidence(out[i].Confidence * templateBoost)
		}
	}
	return bestName, out
}
