// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})([/.-])(\d{1,2})([/.-])(\d{4}|\d{2})\b`)
	monthDayRe    = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s{1,3}(\d{1,2})(?:st|nd|rd|th)?,?\s{1,3}(\d{4})\b`)
	dayMonthRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s{1,3}(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s{1,3}(\d{4})\b`)

	monthNames = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
)

// FindDates returns calendar-valid dates normalized to YYYY-MM-DD. Numeric forms are read
// month-first and fall back to day-first when month-first is not a real date.
func FindDates(text string) []string {
	return values(findDates(text))
}

func findDates(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	for _, loc := range isoDateRe.FindAllStringSubmatchIndex(text, -1) {
		y, m, d := atoiAt(text, loc, 1), atoiAt(text, loc, 2), atoiAt(text, loc, 3)
		if v, ok := calendarDate(y, m, d); ok {
			out = append(out, Match{Value: v, Type: TypeDate, Start: loc[0], End: loc[1]})
		}
	}
	for _, loc := range numericDateRe.FindAllStringSubmatchIndex(text, -1) {
		// Both separators must agree: 12/05-2020 is not a date
		if text[loc[4]:loc[5]] != text[loc[8]:loc[9]] {
			continue
		}
		a, b := atoiAt(text, loc, 1), atoiAt(text, loc, 3)
		y := expandYear(text[loc[10]:loc[11]])
		v, ok := calendarDate(y, a, b)
		if !ok {
			v, ok = calendarDate(y, b, a)
		}
		if ok {
			out = append(out, Match{Value: v, Type: TypeDate, Start: loc[0], End: loc[1]})
		}
	}
	for _, loc := range monthDayRe.FindAllStringSubmatchIndex(text, -1) {
		m := monthNames[strings.ToLower(text[loc[2]:loc[2]+3])]
		if v, ok := calendarDate(atoiAt(text, loc, 3), m, atoiAt(text, loc, 2)); ok {
			out = append(out, Match{Value: v, Type: TypeDate, Start: loc[0], End: loc[1]})
		}
	}
	for _, loc := range dayMonthRe.FindAllStringSubmatchIndex(text, -1) {
		m := monthNames[strings.ToLower(text[loc[4]:loc[4]+3])]
		if v, ok := calendarDate(atoiAt(text, loc, 3), m, atoiAt(text, loc, 1)); ok {
			out = append(out, Match{Value: v, Type: TypeDate, Start: loc[0], End: loc[1]})
		}
	}
	return dropOverlapping(out)
}

// atoiAt parses capture group g of a submatch index slice
func atoiAt(text string, loc []int, g int) int {
	if loc[2*g] < 0 {
		return -1
	}
	n, err := strconv.Atoi(text[loc[2*g]:loc[2*g+1]])
	if err != nil {
		return -1
	}
	return n
}

// expandYear maps two-digit years onto 1950-2049
func expandYear(y string) int {
	n, err := strconv.Atoi(y)
	if err != nil {
		return -1
	}
	if len(y) == 2 {
		if n < 50 {
			return 2000 + n
		}
		return 1900 + n
	}
	return n
}

// calendarDate rejects dates that time.Date would normalize (Feb 30, month 13)
func calendarDate(y, m, d int) (string, bool) {
	if y < 1800 || y > 2199 || m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
