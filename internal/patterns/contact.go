// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]{1,64}@[A-Za-z0-9-]{1,63}(?:\.[A-Za-z0-9-]{1,63}){0,8}\.[A-Za-z]{2,24}\b`)

	// NANP with optional +1 prefix; separators or parentheses are required so bare
	// ten-digit runs (account numbers, timestamps) are not reported.
	nanpPhoneRe = regexp.MustCompile(`(?:\+1[-.\s]?)?(?:\(\d{3}\)\s?|\b\d{3}[-.\s])\d{3}[-.\s]\d{4}\b|\+1\d{10}\b`)

	// International E.164-style numbers must carry the leading +
	intlPhoneRe = regexp.MustCompile(`\+[1-9]\d{0,2}(?:[-.\s]?\(?\d{1,4}\)?){1,5}[-.\s]?\d{2,4}\b`)

	contactShapes = anchorAll(emailRe, nanpPhoneRe, intlPhoneRe, ssnShapeRe)
)

// FindEmails returns the email addresses in text
func FindEmails(text string) []string {
	return values(findEmails(text))
}

func findEmails(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, emailRe, 0, TypeEmail, func(text string, start, end int) (string, bool) {
		return validateEmail(text[start:end])
	})
}

func validateEmail(email string) (string, bool) {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	local, domain := email[:at], email[at+1:]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return "", false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", false
		}
	}
	return strings.ToLower(email), true
}

// FindPhones returns phone numbers in E.164 form (+ followed by digits)
func FindPhones(text string) []string {
	return values(findPhones(text))
}

func findPhones(text string) []Match {
	if isBlank(text) {
		return nil
	}
	matches := scan(text, nanpPhoneRe, 0, TypePhone, func(text string, start, end int) (string, bool) {
		return validateNANP(text[start:end])
	})
	matches = append(matches, scan(text, intlPhoneRe, 0, TypePhone, func(text string, start, end int) (string, bool) {
		return validateInternational(text[start:end])
	})...)
	return normalizeMatches(dropOverlapping(matches))
}

func validateNANP(raw string) (string, bool) {
	digits := digitsOnly(raw)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 || allSame(digits) {
		return "", false
	}
	area, exchange := digits[0:3], digits[3:6]
	if area[0] < '2' || exchange[0] < '2' {
		return "", false
	}
	// N11 codes are service codes, never area codes or exchanges
	if area[1:] == "11" || exchange[1:] == "11" {
		return "", false
	}
	return "+1" + digits, true
}

func validateInternational(raw string) (string, bool) {
	if strings.HasPrefix(raw, "+1") {
		if v, ok := validateNANP(raw); ok {
			return v, true
		}
	}
	digits := digitsOnly(raw)
	if len(digits) < 8 || len(digits) > 15 || allSame(digits[1:]) {
		return "", false
	}
	return "+" + digits, true
}

// dropOverlapping keeps the first (longest at equal start) of overlapping matches
func dropOverlapping(matches []Match) []Match {
	matches = normalizeMatches(matches)
	var out []Match
	for _, m := range matches {
		if len(out) > 0 && m.Start < out[len(out)-1].End {
			if m.End-m.Start > out[len(out)-1].End-out[len(out)-1].Start {
				out[len(out)-1] = m
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

// LooksLikeContact reports whether s, as a whole, has the shape of an email,
// phone number or SSN. Checksums are not applied.
func LooksLikeContact(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, re := range contactShapes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
