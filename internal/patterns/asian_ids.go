// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"time"
)

var (
	chineseIDRe = regexp.MustCompile(`\b[1-9]\d{5}(?:18|19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[\dXx]\b`)
	koreanRRNRe = regexp.MustCompile(`\b\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])[- ]?[1-8]\d{6}\b`)
	thaiIDRe    = regexp.MustCompile(`\b[1-8][ -]?\d{4}[ -]?\d{5}[ -]?\d{2}[ -]?\d\b`)
	taiwanIDRe  = regexp.MustCompile(`\b[A-Z][1289]\d{8}\b`)
	nricRe      = regexp.MustCompile(`\b[STFG]\d{7}[A-Z]\b`)
	aadhaarRe   = regexp.MustCompile(`\b[2-9]\d{3}[ -]?\d{4}[ -]?\d{4}\b`)
	myNumberRe  = regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}\b`)

	myNumberKeywords = []string{"my number", "mynumber", "individual number", "マイナンバー", "個人番号"}
	thaiKeywords     = []string{"thai", "citizen", "national id", "บัตรประชาชน", "เลขประจำตัว"}

	chineseIDWeights = []int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
	koreanRRNWeights = []int{2, 3, 4, 5, 6, 7, 8, 9, 2, 3, 4, 5}
	nricWeights      = []int{2, 7, 6, 5, 4, 3, 2}

	// Taiwanese ID leading letter to its two-digit area code
	taiwanLetters = map[byte]int{
		'A': 10, 'B': 11, 'C': 12, 'D': 13, 'E': 14, 'F': 15, 'G': 16, 'H': 17, 'I': 34,
		'J': 18, 'K': 19, 'L': 20, 'M': 21, 'N': 22, 'O': 35, 'P': 23, 'Q': 24, 'R': 25,
		'S': 26, 'T': 27, 'U': 28, 'V': 29, 'W': 32, 'X': 30, 'Y': 31, 'Z': 33,
	}
)

// FindAsianNationalIDs returns Chinese, Korean, Thai, Taiwanese, Singaporean, Indian
// and Japanese national identifiers
func FindAsianNationalIDs(text string) []string {
	return values(findAsianNationalIDs(text))
}

func findAsianNationalIDs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	out = append(out, scan(text, chineseIDRe, 0, TypeCNResidentID, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		if v[17] == 'x' {
			v = v[:17] + "X"
		}
		return v, ValidateChineseID(v)
	})...)
	out = append(out, scan(text, koreanRRNRe, 0, TypeKRRRN, func(text string, start, end int) (string, bool) {
		v := digitsOnly(text[start:end])
		return v, ValidateKoreanRRN(v)
	})...)
	out = append(out, scan(text, thaiIDRe, 0, TypeTHID, func(text string, start, end int) (string, bool) {
		raw := text[start:end]
		v := digitsOnly(raw)
		// The unseparated form collides with other 13-digit numbers
		if len(raw) == 13 && !keywordNear(text, start, end, 40, thaiKeywords) {
			return "", false
		}
		return v, ValidateThaiID(v)
	})...)
	out = append(out, scan(text, taiwanIDRe, 0, TypeTWID, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateTaiwanID(v)
	})...)
	out = append(out, scan(text, nricRe, 0, TypeSGNRIC, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateNRIC(v)
	})...)
	out = append(out, scan(text, aadhaarRe, 0, TypeINAadhaar, func(text string, start, end int) (string, bool) {
		v := digitsOnly(text[start:end])
		return v, ValidateAadhaar(v)
	})...)
	out = append(out, scan(text, myNumberRe, 0, TypeJPMyNumber, func(text string, start, end int) (string, bool) {
		v := digitsOnly(text[start:end])
		if !keywordNear(text, start, end, 40, myNumberKeywords) {
			return "", false
		}
		return v, ValidateMyNumber(v)
	})...)
	return normalizeMatches(out)
}

// ValidateChineseID checks an 18-character resident ID: birth date and the ISO 7064 MOD 11-2 check character
func ValidateChineseID(id string) bool {
	if len(id) != 18 || !isDigits(id[:17]) {
		return false
	}
	if _, err := time.Parse("20060102", id[6:14]); err != nil {
		return false
	}
	r := weightedSum(id[:17], chineseIDWeights) % 11
	return id[17] == "10X98765432"[r]
}

// ValidateKoreanRRN checks a 13-digit resident registration number: YYMMDD, gender digit and mod-11 check
func ValidateKoreanRRN(rrn string) bool {
	if len(rrn) != 13 || !isDigits(rrn) {
		return false
	}
	century := map[byte]string{'1': "19", '2': "19", '3': "20", '4': "20", '5': "19", '6': "19", '7': "20", '8': "20"}[rrn[6]]
	if century == "" {
		return false
	}
	if _, err := time.Parse("20060102", century+rrn[:6]); err != nil {
		return false
	}
	return mod11Check(weightedSum(rrn, koreanRRNWeights)) == int(rrn[12]-'0')
}

// ValidateThaiID checks a 13-digit Thai citizen ID with descending weights 13..2
func ValidateThaiID(id string) bool {
	if len(id) != 13 || !isDigits(id) || id[0] == '0' || id[0] == '9' || allSame(id) {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		sum += int(id[i]-'0') * (13 - i)
	}
	return mod11Check(sum) == int(id[12]-'0')
}

// ValidateTaiwanID checks a Taiwanese national ID: area letter, gender digit, seven digits and a check digit
func ValidateTaiwanID(id string) bool {
	if len(id) != 10 || !isDigits(id[1:]) {
		return false
	}
	area, ok := taiwanLetters[id[0]]
	if !ok {
		return false
	}
	switch id[1] {
	case '1', '2', '8', '9':
	default:
		return false
	}
	sum := area/10 + (area%10)*9
	weights := []int{8, 7, 6, 5, 4, 3, 2, 1, 1}
	sum += weightedSum(id[1:], weights)
	return sum%10 == 0
}

// ValidateNRIC checks a Singapore NRIC/FIN: prefix S/T/F/G, seven digits and a check letter
func ValidateNRIC(id string) bool {
	if len(id) != 9 || !isDigits(id[1:8]) {
		return false
	}
	sum := weightedSum(id[1:8], nricWeights)
	var table string
	switch id[0] {
	case 'S':
		table = "JZIHGFEDCBA"
	case 'T':
		table = "JZIHGFEDCBA"
		sum += 4
	case 'F':
		table = "XWUTRQPNMLK"
	case 'G':
		table = "XWUTRQPNMLK"
		sum += 4
	default:
		return false
	}
	return id[8] == table[sum%11]
}

// ValidateAadhaar checks a 12-digit Aadhaar number: no leading 0/1 and a Verhoeff check digit
func ValidateAadhaar(id string) bool {
	if len(id) != 12 || !isDigits(id) || id[0] < '2' || allSame(id) {
		return false
	}
	// Palindromic numbers are not issued
	palindrome := true
	for i := 0; i < 6; i++ {
		if id[i] != id[11-i] {
			palindrome = false
			break
		}
	}
	if palindrome {
		return false
	}
	return ValidateVerhoeff(id)
}

// ValidateMyNumber checks a 12-digit Japanese individual number:
// check = 11 - (sum of P_n*Q_n mod 11), or 0 when the remainder is 0 or 1.
func ValidateMyNumber(id string) bool {
	if len(id) != 12 || !isDigits(id) || allSame(id) {
		return false
	}
	sum := 0
	for n := 1; n <= 11; n++ {
		p := int(id[11-n] - '0')
		q := n + 1
		if n > 6 {
			q = n - 5
		}
		sum += p * q
	}
	r := sum % 11
	check := 0
	if r > 1 {
		check = 11 - r
	}
	return check == int(id[11]-'0')
}
