// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"sort"
	"strings"

	"piiscope/internal/detector"
)

// Match is a validated candidate located in the scanned text.
// Value is the normalized identifier (separators removed, upper-cased where the format is case-insensitive).
type Match struct {
	Value string
	Type  string
	Start int
	End   int
}

// acceptFunc validates the raw matched text and returns the normalized value
type acceptFunc func(text string, start, end int) (string, bool)

// scan runs re over text and keeps the candidates accepted by fn. When group > 0 the
// location of that capture group is used as the candidate. Each call uses a fresh iterator.
func scan(text string, re *regexp.Regexp, group int, typ string, fn acceptFunc) []Match {
	var out []Match
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if group > 0 {
			if 2*group+1 >= len(loc) || loc[2*group] < 0 {
				continue
			}
			start, end = loc[2*group], loc[2*group+1]
		}
		if start >= end {
			continue
		}
		value, ok := fn(text, start, end)
		if !ok {
			continue
		}
		out = append(out, Match{Value: value, Type: typ, Start: start, End: end})
	}
	return out
}

// values returns the distinct match values in order of first appearance
func values(matches []Match) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if seen[m.Value] {
			continue
		}
		seen[m.Value] = true
		out = append(out, m.Value)
	}
	return out
}

// normalizeMatches sorts by start and drops matches contained in a longer match of the same type
func normalizeMatches(matches []Match) []Match {
	if len(matches) < 2 {
		return matches
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	out := matches[:0:0]
	for _, m := range matches {
		contained := false
		for _, k := range out {
			if k.Type == m.Type && k.Start <= m.Start && m.End <= k.End {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, m)
		}
	}
	return out
}

// anchorAll compiles whole-string variants of the given patterns
func anchorAll(res ...*regexp.Regexp) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(res))
	for i, re := range res {
		out[i] = regexp.MustCompile(`^(?:` + re.String() + `)$`)
	}
	return out
}

// isBlank reports whether the input has nothing to scan
func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// digitsOnly strips every non-digit byte
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// stripSeparators removes spaces, dashes, dots and slashes and upper-cases the result
func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '-', '.', '/', '\t':
			continue
		}
		b.WriteByte(s[i])
	}
	return strings.ToUpper(b.String())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isUpperAlnum(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// allSame reports whether every byte of s is identical
func allSame(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// keywordNear reports whether any keyword starts a word within radius bytes before start or after end
func keywordNear(text string, start, end, radius int, keywords []string) bool {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:start] + " " + text[end:hi])
	for _, kw := range keywords {
		if detector.ContainsKeyword(window, kw) {
			return true
		}
	}
	return false
}

// boundaryOK reports whether the bytes adjacent to [start,end) are not alphanumeric.
// RE2 has no lookaround, so finders that cannot rely on \b check edges here.
func boundaryOK(text string, start, end int) bool {
	if start > 0 && isAlnumByte(text[start-1]) {
		return false
	}
	if end < len(text) && isAlnumByte(text[end]) {
		return false
	}
	return true
}

func isAlnumByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
