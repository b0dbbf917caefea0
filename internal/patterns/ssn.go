// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
)

var (
	ssnRe      = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{3}\s\d{2}\s\d{4}\b|\b\d{9}\b`)
	ssnShapeRe = regexp.MustCompile(`\d{3}[-\s]?\d{2}[-\s]?\d{4}`)

	ssnKeywords = []string{"ssn", "social security", "soc sec", "ss#", "ss #", "taxpayer", "tin"}

	// Numbers issued in advertising and reported invalid by the SSA
	ssnBlocklist = map[string]bool{
		"078051120": true,
		"219099999": true,
		"457555462": true,
	}
)

// FindSSNs returns US Social Security Numbers as nine digits. Unseparated nine-digit
// runs are only reported next to an SSN keyword.
func FindSSNs(text string) []string {
	return values(findSSNs(text))
}

func findSSNs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, ssnRe, 0, TypeSSN, func(text string, start, end int) (string, bool) {
		raw := text[start:end]
		digits := digitsOnly(raw)
		if len(raw) == 9 && !keywordNear(text, start, end, 40, ssnKeywords) {
			return "", false
		}
		if !ValidateSSN(digits) {
			return "", false
		}
		return digits, true
	})
}

// ValidateSSN applies the SSA allocation rules to a nine-digit string:
// area not 000, 666 or 900-999; group not 00; serial not 0000.
func ValidateSSN(digits string) bool {
	if len(digits) != 9 || !isDigits(digits) || allSame(digits) {
		return false
	}
	area, group, serial := digits[0:3], digits[3:5], digits[5:9]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}
	return !ssnBlocklist[digits]
}
