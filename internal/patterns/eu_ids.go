// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	dniRe   = regexp.MustCompile(`\b\d{8}[ -]?[A-Z]\b`)
	nieRe   = regexp.MustCompile(`\b[XYZ][ -]?\d{7}[ -]?[A-Z]\b`)
	bsnRe   = regexp.MustCompile(`\b\d{4}\.?\d{2}\.?\d{3}\b|\b\d{3}[ -]\d{3}[ -]\d{3}\b`)
	cfRe    = regexp.MustCompile(`\b[A-Z]{6}[0-9LMNPQRSTUV]{2}[ABCDEHLMPRST][0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{3}[A-Z]\b`)
	inseeRe = regexp.MustCompile(`\b[12][ ]?\d{2}[ ]?\d{2}[ ]?(?:\d{2}|2[AB])[ ]?\d{3}[ ]?\d{3}[ ]?\d{2}\b`)

	bsnKeywords = []string{"bsn", "burgerservicenummer", "sofinummer", "sofi", "citizen service"}

	// Codice Fiscale values for characters in odd (1-based) positions
	cfOdd = map[byte]int{
		'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15, '7': 17, '8': 19, '9': 21,
		'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15, 'H': 17, 'I': 19, 'J': 21,
		'K': 2, 'L': 4, 'M': 18, 'N': 20, 'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14,
		'U': 16, 'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
	}
)

// FindEUNationalIDs returns Spanish DNI/NIE, Dutch BSN, Italian Codice Fiscale and French NIR numbers
func FindEUNationalIDs(text string) []string {
	return values(findEUNationalIDs(text))
}

func findEUNationalIDs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	out = append(out, scan(text, dniRe, 0, TypeESDNI, func(text string, start, end int) (string, bool) {
		v := stripSeparators(text[start:end])
		return v, ValidateDNIES(v)
	})...)
	out = append(out, scan(text, nieRe, 0, TypeESNIE, func(text string, start, end int) (string, bool) {
		v := stripSeparators(text[start:end])
		return v, ValidateNIE(v)
	})...)
	out = append(out, scan(text, bsnRe, 0, TypeNLBSN, func(text string, start, end int) (string, bool) {
		v := digitsOnly(text[start:end])
		if !keywordNear(text, start, end, 40, bsnKeywords) {
			return "", false
		}
		return v, ValidateBSN(v)
	})...)
	out = append(out, scan(text, cfRe, 0, TypeITCodiceFiscale, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateCodiceFiscale(v)
	})...)
	out = append(out, scan(text, inseeRe, 0, TypeFRINSEE, func(text string, start, end int) (string, bool) {
		v := strings.ReplaceAll(text[start:end], " ", "")
		return v, ValidateINSEE(v)
	})...)
	return normalizeMatches(out)
}

// ValidateDNIES checks a Spanish DNI: eight digits and the mod-23 control letter
func ValidateDNIES(dni string) bool {
	dni = stripSeparators(dni)
	if len(dni) != 9 || !isDigits(dni[:8]) {
		return false
	}
	n, err := strconv.Atoi(dni[:8])
	if err != nil {
		return false
	}
	return dni[8] == dniLetters[n%23]
}

// ValidateNIE checks a Spanish foreigner ID: X/Y/Z prefix mapped to 0/1/2, then the DNI rule
func ValidateNIE(nie string) bool {
	nie = stripSeparators(nie)
	if len(nie) != 9 {
		return false
	}
	prefix := strings.IndexByte("XYZ", nie[0])
	if prefix < 0 {
		return false
	}
	return ValidateDNIES(strconv.Itoa(prefix) + nie[1:])
}

// ValidateBSN applies the Dutch elfproef to a nine-digit burgerservicenummer
func ValidateBSN(bsn string) bool {
	if len(bsn) == 8 {
		bsn = "0" + bsn
	}
	if len(bsn) != 9 || !isDigits(bsn) || allSame(bsn) {
		return false
	}
	return elfproef(bsn)
}

// elfproef: sum of d[i]*(9-i) for the first eight digits minus the last digit is divisible by 11
func elfproef(digits string) bool {
	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(digits[i]-'0') * (9 - i)
	}
	sum -= int(digits[8] - '0')
	return sum%11 == 0
}

// ValidateCodiceFiscale checks the Italian fiscal code control letter
func ValidateCodiceFiscale(cf string) bool {
	cf = strings.ToUpper(cf)
	if len(cf) != 16 || !isUpperAlnum(cf) {
		return false
	}
	sum := 0
	for i := 0; i < 15; i++ {
		c := cf[i]
		if i%2 == 0 {
			v, ok := cfOdd[c]
			if !ok {
				return false
			}
			sum += v
		} else if c >= '0' && c <= '9' {
			sum += int(c - '0')
		} else {
			sum += int(c - 'A')
		}
	}
	return cf[15] == byte('A'+sum%26)
}

// ValidateINSEE checks a French NIR: 13 characters plus a key of 97 - (number mod 97).
// Corsican departments 2A and 2B count as 19 and 18.
func ValidateINSEE(nir string) bool {
	if len(nir) != 15 {
		return false
	}
	body := nir[:13]
	switch body[5:7] {
	case "2A":
		body = body[:5] + "19" + body[7:]
	case "2B":
		body = body[:5] + "18" + body[7:]
	}
	if !isDigits(body) || !isDigits(nir[13:]) {
		return false
	}
	n, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return false
	}
	key, _ := strconv.Atoi(nir[13:])
	return key == int(97-n%97)
}
