// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

var (
	// TD3 machine readable zone, second line (44 characters)
	mrzLine2Re = regexp.MustCompile(`\b([A-Z0-9<]{9})(\d)([A-Z<]{3})(\d{6})(\d)([MFX<])(\d{6})(\d)([A-Z0-9<]{14})([\d<])(\d)\b`)

	// US next generation, US legacy and UK, DE, FR, then the common two-letter form (IN, CA)
	passportNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z]\d{8}\b`),
		regexp.MustCompile(`\b\d{9}\b`),
		regexp.MustCompile(`\b[CFGHJK][0-9CFGHJKLMNPRTVWXYZ]{8}\b`),
		regexp.MustCompile(`\b\d{2}[A-Z]{2}\d{5}\b`),
		regexp.MustCompile(`\b[A-Z]{2}\d{7}\b`),
	}

	passportKeywords = []string{"passport", "passeport", "reisepass", "pasaporte", "passaporto", "travel document"}
)

// FindPassports returns passport numbers taken from MRZ lines (check digits verified) and
// from number formats that appear next to passport vocabulary.
func FindPassports(text string) []string {
	return values(findPassports(text))
}

func findPassports(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	for _, loc := range mrzLine2Re.FindAllStringSubmatchIndex(text, -1) {
		line := text[loc[0]:loc[1]]
		if !ValidateMRZLine2(line) {
			continue
		}
		number := strings.TrimRight(text[loc[2]:loc[3]], "<")
		out = append(out, Match{Value: number, Type: TypePassport, Start: loc[2], End: loc[2] + len(number)})
	}
	for _, re := range passportNumberRes {
		out = append(out, scan(text, re, 0, TypePassport, func(text string, start, end int) (string, bool) {
			v := text[start:end]
			if allSame(digitsOnly(v)) || !keywordNear(text, start, end, 60, passportKeywords) {
				return "", false
			}
			return v, true
		})...)
	}
	return dropOverlapping(out)
}

// ValidateMRZLine2 verifies every ICAO 9303 check digit on a TD3 second line:
// document number, birth date, expiry, optional data and the composite.
func ValidateMRZLine2(line string) bool {
	if len(line) != 44 {
		return false
	}
	check := func(field string, digit byte) bool {
		if digit == '<' {
			return strings.Trim(field, "<") == ""
		}
		return icaoCheckDigit(field) == int(digit-'0')
	}
	if !check(line[0:9], line[9]) || !check(line[13:19], line[19]) || !check(line[21:27], line[27]) {
		return false
	}
	if !check(line[28:42], line[42]) {
		return false
	}
	composite := line[0:10] + line[13:20] + line[21:43]
	return icaoCheckDigit(composite) == int(line[43]-'0')
}
