// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strconv"
)

// BINRange maps a six-digit issuer prefix range to a card network
type BINRange struct {
	Start  int
	End    int
	Vendor string
}

var (
	// Groups of digits separated by single spaces or dashes, 13 to 19 digits in total
	panRe = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)

	binRanges = []BINRange{
		{400000, 499999, "Visa"},
		{510000, 559999, "MasterCard"},
		{222100, 272099, "MasterCard"},
		{340000, 349999, "American Express"},
		{370000, 379999, "American Express"},
		{601100, 601199, "Discover"},
		{644000, 649999, "Discover"},
		{650000, 659999, "Discover"},
		{352800, 358999, "JCB"},
		{300000, 305999, "Diners Club"},
		{360000, 369999, "Diners Club"},
		{380000, 399999, "Diners Club"},
		{620000, 629999, "UnionPay"},
		{810000, 817199, "UnionPay"},
		{500000, 509999, "Maestro"},
		{560000, 589999, "Maestro"},
		{639000, 639999, "Maestro"},
		{220000, 220499, "Mir"},
		{508500, 508999, "RuPay"},
		{606985, 607984, "RuPay"},
	}
)

// FindLikelyPANs returns payment card numbers as digit strings. A candidate must be
// 13-19 digits, fall in a known issuer range, pass Luhn and not be a single repeated digit.
func FindLikelyPANs(text string) []string {
	return values(findPANs(text))
}

func findPANs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, panRe, 0, TypeCreditCard, func(text string, start, end int) (string, bool) {
		raw := text[start:end]
		if !consistentSeparators(raw) {
			return "", false
		}
		digits := digitsOnly(raw)
		if !ValidatePAN(digits) {
			return "", false
		}
		return digits, true
	})
}

// ValidatePAN checks length, issuer range, repetition and the Luhn digit
func ValidatePAN(digits string) bool {
	if len(digits) < 13 || len(digits) > 19 || !isDigits(digits) {
		return false
	}
	if allSame(digits) {
		return false
	}
	if CardVendor(digits) == "" {
		return false
	}
	return ValidateLuhn(digits)
}

// CardVendor returns the network owning the number's issuer prefix, or "" if unknown
func CardVendor(digits string) string {
	if len(digits) < 6 {
		return ""
	}
	bin, err := strconv.Atoi(digits[:6])
	if err != nil {
		return ""
	}
	// Specific ranges are listed after broad ones in a few places, so prefer the narrowest hit.
	vendor, width := "", -1
	for _, r := range binRanges {
		if bin >= r.Start && bin <= r.End {
			if w := r.End - r.Start; width < 0 || w < width {
				vendor, width = r.Vendor, w
			}
		}
	}
	return vendor
}

// consistentSeparators rejects mixed separators such as "4532 0151-1283 0366"
func consistentSeparators(raw string) bool {
	var sep byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == ' ' || c == '-' {
			if sep == 0 {
				sep = c
			} else if sep != c {
				return false
			}
		}
	}
	return true
}
