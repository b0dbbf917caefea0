// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

var (
	streetRe = regexp.MustCompile(`\b\d{1,6}(?:-\d{1,4})?\s{1,2}(?:(?:[NSEW]|North|South|East|West)\.?\s{1,2})?` +
		`(?:[A-Z][A-Za-z0-9'-]{0,24}\.?\s{1,2}){1,4}` +
		`(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Terrace|Ter|Circle|Cir|Parkway|Pkwy|Highway|Hwy|Square|Sq|Trail|Trl)\b\.?` +
		`(?:,?\s{1,2}(?:Apt|Apartment|Suite|Ste|Unit|#)\.?\s{0,2}[A-Za-z0-9-]{1,6})?`)
	stateZipRe = regexp.MustCompile(`\b([A-Z]{2})\s{1,2}(\d{5})(?:-\d{4})?\b`)

	usStates = toSet(strings.Fields(`
		AL AK AZ AR CA CO CT DE FL GA HI ID IL IN IA KS KY LA ME MD MA MI MN MS MO MT NE NV NH NJ
		NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV WI WY DC PR GU VI`))
)

// FindAddresses returns US street lines ("221 Baker Street, Apt 4") and "ST 12345" state/ZIP pairs
func FindAddresses(text string) []string {
	return values(findAddresses(text))
}

func findAddresses(text string) []Match {
	if isBlank(text) {
		return nil
	}
	matches := scan(text, streetRe, 0, TypeAddress, func(text string, start, end int) (string, bool) {
		return strings.Join(strings.Fields(text[start:end]), " "), true
	})
	matches = append(matches, scan(text, stateZipRe, 0, TypeAddress, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		if !usStates[v[:2]] {
			return "", false
		}
		zip := digitsOnly(v[2:])
		if allSame(zip[:5]) {
			return "", false
		}
		return strings.Join(strings.Fields(v), " "), true
	})...)
	return normalizeMatches(matches)
}
