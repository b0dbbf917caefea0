// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

var (
	swiftRe = regexp.MustCompile(`\b[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}(?:[A-Z0-9]{3})?\b`)
	abaRe   = regexp.MustCompile(`\b\d{9}\b|\b\d{4}-\d{4}-\d\b`)
	clabeRe = regexp.MustCompile(`\b\d{3}[ -]?\d{3}[ -]?\d{11}[ -]?\d\b`)
	ibanRe  = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,4})?\b`)

	swiftKeywords = []string{"swift", "bic", "bank", "wire", "transfer", "beneficiary"}
	abaKeywords   = []string{"routing", "aba", "rtn", "transit", "bank"}
	clabeKeywords = []string{"clabe", "cuenta", "transferencia", "spei", "bank"}

	// IBAN lengths per ISO 13616 registry
	ibanLengths = map[string]int{
		"AD": 24, "AE": 23, "AL": 28, "AT": 20, "AZ": 28, "BA": 20, "BE": 16, "BG": 22, "BH": 22,
		"BR": 29, "BY": 28, "CH": 21, "CR": 22, "CY": 28, "CZ": 24, "DE": 22, "DK": 18, "DO": 28,
		"EE": 20, "EG": 29, "ES": 24, "FI": 18, "FO": 18, "FR": 27, "GB": 22, "GE": 22, "GI": 23,
		"GL": 18, "GR": 27, "GT": 28, "HR": 21, "HU": 28, "IE": 22, "IL": 23, "IQ": 23, "IS": 26,
		"IT": 27, "JO": 30, "KW": 30, "KZ": 20, "LB": 28, "LC": 32, "LI": 21, "LT": 20, "LU": 20,
		"LV": 21, "MC": 27, "MD": 24, "ME": 22, "MK": 19, "MR": 27, "MT": 31, "MU": 30, "NL": 18,
		"NO": 15, "PK": 24, "PL": 28, "PS": 29, "PT": 25, "QA": 29, "RO": 24, "RS": 22, "SA": 24,
		"SC": 31, "SE": 24, "SI": 19, "SK": 24, "SM": 27, "ST": 25, "SV": 28, "TL": 23, "TN": 24,
		"TR": 26, "UA": 29, "VA": 22, "VG": 24, "XK": 20,
	}

	// ISO 3166-1 alpha-2 codes used by SWIFT/BIC
	countryCodes = toSet(strings.Fields(`
		AD AE AF AG AI AL AM AO AR AT AU AW AZ BA BB BD BE BF BG BH BI BJ BM BN BO BR BS BT BW BY BZ
		CA CD CF CG CH CI CK CL CM CN CO CR CU CV CW CY CZ DE DJ DK DM DO DZ EC EE EG ER ES ET FI FJ
		FK FO FR GA GB GD GE GG GH GI GL GM GN GQ GR GT GW GY HK HN HR HT HU ID IE IL IM IN IQ IR IS
		IT JE JM JO JP KE KG KH KM KN KP KR KW KY KZ LA LB LC LI LK LR LS LT LU LV LY MA MC MD ME MG
		MK ML MM MN MO MR MS MT MU MV MW MX MY MZ NA NE NG NI NL NO NP NZ OM PA PE PG PH PK PL PS PT
		PY QA RO RS RU RW SA SB SC SD SE SG SI SK SL SM SN SO SR SS ST SV SX SY SZ TC TD TG TH TJ TL
		TM TN TO TR TT TW TZ UA UG US UY UZ VA VC VE VG VN VU WS XK YE ZA ZM ZW`))

	// Federal Reserve routing symbol prefixes
	abaPrefixes = func() map[int]bool {
		m := make(map[int]bool)
		for p := 0; p <= 12; p++ {
			m[p] = true
		}
		for p := 21; p <= 32; p++ {
			m[p] = true
		}
		for p := 61; p <= 72; p++ {
			m[p] = true
		}
		m[80] = true
		return m
	}()
)

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// FindSWIFTCodes returns SWIFT/BIC codes mentioned alongside banking vocabulary
func FindSWIFTCodes(text string) []string {
	return values(findSWIFT(text))
}

func findSWIFT(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, swiftRe, 0, TypeSWIFT, func(text string, start, end int) (string, bool) {
		code := text[start:end]
		if !ValidateSWIFT(code) || !keywordNear(text, start, end, 50, swiftKeywords) {
			return "", false
		}
		return code, true
	})
}

// ValidateSWIFT checks the BIC layout: 4-letter institution, ISO country,
// 2-char location and optional 3-char branch.
func ValidateSWIFT(code string) bool {
	if len(code) != 8 && len(code) != 11 {
		return false
	}
	if !isUpperAlnum(code) {
		return false
	}
	for i := 0; i < 6; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	if !countryCodes[code[4:6]] {
		return false
	}
	// Location "00" is not assigned; a second location char of '0' marks test BICs
	return code[6:8] != "00" && code[7] != '0'
}

// FindABARoutingNumbers returns US ABA routing transit numbers mentioned with routing vocabulary
func FindABARoutingNumbers(text string) []string {
	return values(findABA(text))
}

func findABA(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, abaRe, 0, TypeABARouting, func(text string, start, end int) (string, bool) {
		digits := digitsOnly(text[start:end])
		if !ValidateABA(digits) || !keywordNear(text, start, end, 50, abaKeywords) {
			return "", false
		}
		return digits, true
	})
}

// ValidateABA applies the 3-7-1 weighted checksum and the Federal Reserve prefix rule
func ValidateABA(digits string) bool {
	if len(digits) != 9 || !isDigits(digits) || allSame(digits) {
		return false
	}
	prefix := int(digits[0]-'0')*10 + int(digits[1]-'0')
	if !abaPrefixes[prefix] {
		return false
	}
	sum := weightedSum(digits, []int{3, 7, 1, 3, 7, 1, 3, 7, 1})
	return sum%10 == 0
}

// FindCLABEs returns Mexican 18-digit CLABE interbank account numbers
func FindCLABEs(text string) []string {
	return values(findCLABE(text))
}

func findCLABE(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, clabeRe, 0, TypeCLABE, func(text string, start, end int) (string, bool) {
		raw := text[start:end]
		digits := digitsOnly(raw)
		if !ValidateCLABE(digits) {
			return "", false
		}
		// A bare 18-digit run is too generic without banking context
		if len(raw) == 18 && !keywordNear(text, start, end, 50, clabeKeywords) {
			return "", false
		}
		return digits, true
	})
}

// ValidateCLABE checks the weighted mod-10 control digit (weights 3,7,1)
func ValidateCLABE(digits string) bool {
	if len(digits) != 18 || !isDigits(digits) || allSame(digits) {
		return false
	}
	weights := [3]int{3, 7, 1}
	sum := 0
	for i := 0; i < 17; i++ {
		sum += (int(digits[i]-'0') * weights[i%3]) % 10
	}
	return (10-sum%10)%10 == int(digits[17]-'0')
}

// FindIBANs returns IBANs without spaces
func FindIBANs(text string) []string {
	return values(findIBANs(text))
}

func findIBANs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, ibanRe, 0, TypeIBAN, func(text string, start, end int) (string, bool) {
		iban := strings.ReplaceAll(text[start:end], " ", "")
		if !ValidateIBAN(iban) {
			return "", false
		}
		return iban, true
	})
}

// ValidateIBAN checks the country length and the ISO 7064 mod-97 check digits
func ValidateIBAN(iban string) bool {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(iban) < 15 || !isUpperAlnum(iban) {
		return false
	}
	want, ok := ibanLengths[iban[:2]]
	if !ok || len(iban) != want {
		return false
	}
	if !isDigits(iban[2:4]) {
		return false
	}
	rem, ok := mod97(iban[4:] + iban[:4])
	return ok && rem == 1
}
