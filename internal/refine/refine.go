// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package refine filters model entities that are unlikely to be real PII and boosts
// the confidence of those with supporting evidence in the surrounding text.
package refine

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"piiscope/internal/detector"
	"piiscope/internal/ner"
	"piiscope/internal/patterns"
)

const (
	placeholderRadius = 50
	titleRadius       = 30

	commonNameBoost = 1.15
	titleBoost      = 1.20
	multiTokenBoost = 1.10
)

// DefaultMinLengths is the minimum entity length in runes per type
func DefaultMinLengths() map[string]int {
	return map[string]int{
		ner.TypePerson:       2,
		ner.TypeOrganization: 2,
		ner.TypeLocation:     2,
		ner.TypeMisc:         3,
	}
}

var stopwords = map[string]bool{
	"the": true, "and": true, "or": true, "of": true, "to": true, "in": true, "on": true,
	"a": true, "an": true, "for": true, "with": true, "by": true, "at": true, "from": true,
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sir": true, "madam": true,
	"name": true, "first name": true, "last name": true, "full name": true, "signature": true,
	"date": true, "address": true, "phone": true, "email": true, "page": true, "total": true,
	"yes": true, "no": true, "n/a": true, "none": true, "unknown": true, "other": true,
	"dear": true, "regards": true, "sincerely": true, "thanks": true, "thank you": true,
	"employee": true, "employer": true, "applicant": true, "patient": true, "customer": true,
	"inc": true, "llc": true, "ltd": true, "corp": true, "company": true,
}

var placeholderNames = map[string]bool{
	"john doe": true, "jane doe": true, "john smith": true, "jane smith": true,
	"joe bloggs": true, "john q public": true, "john q. public": true, "richard roe": true,
	"max mustermann": true, "erika mustermann": true, "foo bar": true, "test user": true,
	"sample name": true, "example name": true, "first last": true, "firstname lastname": true,
	"your name": true,
}

var (
	placeholderContextRe = regexp.MustCompile(`(?i)\b(?:example|sample|placeholder|dummy|fictitious|fictional|template|specimen|test(?:ing)?|copyright|all rights reserved|lorem ipsum)\b|©|\(c\)`)
	titleBeforeRe        = regexp.MustCompile(`(?i)\b(?:mr|mrs|ms|miss|mx|dr|prof|professor|sir|dame|lord|lady|rev|hon)\b\.?`)
	titleAfterRe         = regexp.MustCompile(`(?i)^[\s,]*(?:jr|sr|ii|iii|iv|phd|ph\.d|md|m\.d|esq|cpa|dds)\b`)
)

// Refiner applies the keep rules and confidence boosts
type Refiner struct {
	MinLengths map[string]int
	names      map[string]bool
	logger     *zap.Logger
}

// New creates a refiner with the default rules. When the embedded name list cannot be
// decoded the common-name boost is disabled and the error is logged.
func New(logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	names, err := loadFirstNames()
	if err != nil {
		logger.Warn("first name list unavailable", zap.Error(err))
	}
	return &Refiner{
		MinLengths: DefaultMinLengths(),
		names:      names,
		logger:     logger,
	}
}

// Refine drops rejected entities and boosts the rest. The input is not modified.
func (r *Refiner) Refine(entities []detector.RawEntity, text string) []detector.RawEntity {
	var out []detector.RawEntity
	for _, e := range entities {
		if !r.Keep(e, text) {
			r.logger.Debug("entity rejected", zap.String("type", e.EntityType), zap.Int("start", e.Start))
			continue
		}
		e.Score = r.Boost(e, text)
		out = append(out, e)
	}
	return out
}

func (r *Refiner) minLength(typ string) int {
	if n, ok := r.MinLengths[typ]; ok {
		return n
	}
	return r.MinLengths[ner.TypeMisc]
}

// Keep reports whether an entity survives validation
func (r *Refiner) Keep(e detector.RawEntity, text string) bool {
	value := strings.TrimSpace(e.Text)
	if utf8.RuneCountInString(value) < r.minLength(e.EntityType) {
		return false
	}
	// whole-text identifiers are left for cross-validation to retype
	if _, ok := patterns.Classify(value); ok {
		return true
	}
	if e.EntityType == ner.TypePerson || e.EntityType == ner.TypeMisc {
		first, _ := utf8.DecodeRuneInString(value)
		if !unicode.IsUpper(first) {
			return false
		}
	}

	lower := detector.NormalizeText(value)
	if stopwords[lower] {
		return false
	}
	if patterns.LooksLikeContact(value) {
		return false
	}
	if placeholderNames[strings.TrimRight(lower, ".")] {
		ctx := surrounding(text, e.Start, e.End, placeholderRadius)
		if placeholderContextRe.MatchString(ctx) {
			return false
		}
	}
	return true
}

// Boost returns the entity score after the common-name, title and multi-token
// multipliers, capped at 1
func (r *Refiner) Boost(e detector.RawEntity, text string) float64 {
	score := e.Score
	words := strings.Fields(e.Text)

	for _, w := range words {
		if r.names[nameKey(w)] {
			score *= commonNameBoost
			break
		}
	}

	if hasTitle(text, e.Start, e.End) {
		score *= titleBoost
	}

	if len(words) > 1 {
		score *= multiTokenBoost
	}

	return detector.ClampConfidence(score)
}

func hasTitle(text string, start, end int) bool {
	if !ner.ValidOffsets(text, start, end) {
		return false
	}
	before := text[detector.AlignStart(text, start-titleRadius):start]
	if titleBeforeRe.MatchString(before) {
		return true
	}
	after := text[end:detector.AlignEnd(text, end+titleRadius)]
	return titleAfterRe.MatchString(after)
}

// surrounding returns the text within radius bytes of [start,end), excluding the entity itself
func surrounding(text string, start, end, radius int) string {
	if !ner.ValidOffsets(text, start, end) {
		return ""
	}
	lo := detector.AlignStart(text, start-radius)
	hi := detector.AlignEnd(text, end+radius)
	return text[lo:start] + " " + text[end:hi]
}
