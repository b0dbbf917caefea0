// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package hybrid

import (
	"strings"

	"piiscope/internal/detector"
	"piiscope/internal/patterns"
)

const (
	// RegionRadius is how far around each pattern hit the model is run with region guidance
	RegionRadius = 150
	// ProximityRadius is the distance from a pattern range that earns a model span the proximity boost
	ProximityRadius = 50

	proximityBoost = 1.2
)

// Combine merges two independent confidences: 1 - (1-p)(1-m)
func Combine(p, m float64) float64 {
	p, m = detector.ClampConfidence(p), detector.ClampConfidence(m)
	return detector.ClampConfidence(1 - (1-p)*(1-m))
}

// CrossValidate retypes model spans whose whole text is a validated pattern identifier.
// Such spans become fully confident pattern spans when their kind is enabled and are dropped
// when it is not.
func CrossValidate(model []detector.DetectionSpan, enabled []patterns.Kind) []detector.DetectionSpan {
	on := make(map[patterns.Kind]bool, len(enabled))
	for _, k := range enabled {
		on[k] = true
	}
	out := make([]detector.DetectionSpan, 0, len(model))
	for _, s := range model {
		s = s.Clone()
		if k, typ, ok := patterns.ClassifyKind(s.Text); ok {
			if !on[k] {
				continue
			}
			s.Type = typ
			s.Confidence = 1.0
			s.Source = detector.SourcePattern
		}
		out = append(out, s)
	}
	return out
}

// ProximityBoost multiplies the confidence of model spans lying within 50 bytes of a pattern
// range by 1.2, capped at 1
func ProximityBoost(model, pattern []detector.DetectionSpan) []detector.DetectionSpan {
	out := detector.CloneSpans(model)
	for i := range out {
		s := &out[i]
		if s.Source != detector.SourceModel || s.Positions == nil {
			continue
		}
		for _, p := range pattern {
			if p.Positions == nil {
				continue
			}
			if p.Positions.End >= s.Positions.Start-ProximityRadius && p.Positions.Start <= s.Positions.End+ProximityRadius {
				s.Confidence = detector.ClampConfidence(s.Confidence * proximityBoost)
				break
			}
		}
	}
	return out
}

// FilterConfidence drops spans below threshold
func FilterConfidence(spans []detector.DetectionSpan, threshold float64) []detector.DetectionSpan {
	var out []detector.DetectionSpan
	for _, s := range spans {
		if s.Confidence >= threshold {
			out = append(out, s)
		}
	}
	return out
}

// Overlaps reports whether two spans describe the same finding: their normalized texts are
// equal or one contains the other, or their ranges intersect
func Overlaps(a, b detector.DetectionSpan) bool {
	if a.Positions != nil && b.Positions != nil && a.Positions.Intersects(*b.Positions) {
		return true
	}
	na, nb := detector.NormalizeText(a.Text), detector.NormalizeText(b.Text)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// SmartMerge combines pattern and model results. Pattern results are always kept. A model
// result overlapping a pattern result is dropped, and when their types agree the pattern
// confidence absorbs it via Combine. Among overlapping model results the more confident one
// keeps the earlier slot.
func SmartMerge(pattern, model []detector.DetectionSpan) []detector.DetectionSpan {
	out := detector.CloneSpans(pattern)
	nPattern := len(out)

	for _, m := range model {
		covered := false
		for i := 0; i < nPattern; i++ {
			if !Overlaps(out[i], m) {
				continue
			}
			covered = true
			if strings.EqualFold(out[i].Type, m.Type) {
				out[i].Confidence = Combine(out[i].Confidence, m.Confidence)
			}
		}
		if covered {
			continue
		}

		replaced := false
		for i := nPattern; i < len(out); i++ {
			if !Overlaps(out[i], m) {
				continue
			}
			if m.Confidence > out[i].Confidence {
				out[i] = m.Clone()
			}
			replaced = true
			break
		}
		if !replaced {
			out = append(out, m.Clone())
		}
	}

	detector.SortSpans(out)
	return out
}

// regions returns the merged [start-radius, end+radius) ranges around positioned spans,
// clipped to the text and aligned to rune boundaries. spans must be sorted by start.
func regions(text string, spans []detector.DetectionSpan, radius int) []detector.Positions {
	var out []detector.Positions
	for _, s := range spans {
		if s.Positions == nil {
			continue
		}
		r := detector.Positions{
			Start: detector.AlignStart(text, s.Positions.Start-radius),
			End:   detector.AlignEnd(text, s.Positions.End+radius),
		}
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			if r.End > out[n-1].End {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
