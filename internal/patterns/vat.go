// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strconv"
)

var vatRe = regexp.MustCompile(`\b(?:FR[ ]?[0-9A-HJ-NP-Z]{2}[ ]?\d{3}[ ]?\d{3}[ ]?\d{3}` +
	`|DE[ ]?\d{9}` +
	`|IT[ ]?\d{11}` +
	`|ES[ ]?[0-9A-Z]\d{7}[0-9A-Z]` +
	`|NL[ ]?\d{9}B\d{2}` +
	`|BE[ ]?[01]\d{3}[ .]?\d{3}[ .]?\d{3}` +
	`|PL[ ]?\d{10}` +
	`|ATU[ ]?\d{8}` +
	`|GB[ ]?\d{3}[ ]?\d{4}[ ]?\d{2})\b`)

// vatValidators holds the per-country check for the national part of a VAT number
var vatValidators = map[string]func(string) bool{
	"FR": validateVATFR,
	"DE": validateVATDE,
	"IT": validateVATIT,
	"ES": validateVATES,
	"NL": validateVATNL,
	"BE": validateVATBE,
	"PL": validateVATPL,
	"AT": validateVATAT,
	"GB": validateVATGB,
}

// FindVATNumbers returns EU and UK VAT identifiers with their country prefix and no separators
func FindVATNumbers(text string) []string {
	return values(findVAT(text))
}

func findVAT(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, vatRe, 0, TypeVAT, func(text string, start, end int) (string, bool) {
		vat := stripSeparators(text[start:end])
		if !ValidateVAT(vat) {
			return "", false
		}
		return vat, true
	})
}

// ValidateVAT checks a VAT number including its two-letter country prefix
func ValidateVAT(vat string) bool {
	if len(vat) < 4 {
		return false
	}
	fn, ok := vatValidators[vat[:2]]
	if !ok {
		return false
	}
	return fn(vat[2:])
}

// FR: 2-char key + 9-digit SIREN, key = (12 + 3*(SIREN mod 97)) mod 97
func validateVATFR(s string) bool {
	if len(s) != 11 || !isDigits(s[2:]) {
		return false
	}
	if !isDigits(s[:2]) {
		// Alphanumeric keys belong to the newer scheme; only the layout is checked
		return isUpperAlnum(s[:2])
	}
	siren, err := strconv.Atoi(s[2:])
	if err != nil {
		return false
	}
	key, _ := strconv.Atoi(s[:2])
	return key == (12+3*(siren%97))%97
}

// DE: ISO 7064 MOD 11,10 over the first eight digits
func validateVATDE(s string) bool {
	if len(s) != 9 || !isDigits(s) || s[0] == '0' {
		return false
	}
	return iso7064Hybrid(s[:8]) == int(s[8]-'0')
}

// IT: Luhn over the 11-digit partita IVA
func validateVATIT(s string) bool {
	if len(s) != 11 || !isDigits(s) || allSame(s) {
		return false
	}
	return ValidateLuhn(s)
}

// ES: NIF (DNI/NIE rules) or CIF (organisation letter + 7 digits + control)
func validateVATES(s string) bool {
	if len(s) != 9 {
		return false
	}
	if ValidateDNIES(s) || ValidateNIE(s) {
		return true
	}
	return validateCIF(s)
}

func validateCIF(s string) bool {
	if len(s) != 9 || s[0] < 'A' || s[0] > 'W' || !isDigits(s[1:8]) {
		return false
	}
	sum := 0
	for i := 1; i <= 7; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 2
			d = d/10 + d%10
		}
		sum += d
	}
	control := (10 - sum%10) % 10
	last := s[8]
	return last == byte('0'+control) || last == "JABCDEFGHI"[control]
}

// NL: elfproef on the nine digits, or the mod-97 scheme introduced for sole traders
func validateVATNL(s string) bool {
	if len(s) != 12 || s[9] != 'B' || !isDigits(s[:9]) || !isDigits(s[10:]) {
		return false
	}
	if elfproef(s[:9]) {
		return true
	}
	rem, ok := mod97("NL" + s)
	return ok && rem == 1
}

// BE: last two digits = 97 - (first eight mod 97)
func validateVATBE(s string) bool {
	if len(s) != 10 || !isDigits(s) || (s[0] != '0' && s[0] != '1') {
		return false
	}
	base, _ := strconv.Atoi(s[:8])
	check, _ := strconv.Atoi(s[8:])
	return 97-base%97 == check
}

// PL: NIP weights 6,5,7,2,3,4,5,6,7, remainder 10 is never issued
func validateVATPL(s string) bool {
	if len(s) != 10 || !isDigits(s) {
		return false
	}
	r := weightedSum(s, []int{6, 5, 7, 2, 3, 4, 5, 6, 7}) % 11
	return r != 10 && r == int(s[9]-'0')
}

// AT: "U" + 8 digits, Luhn-like doubling on even positions with a +4 offset
func validateVATAT(s string) bool {
	if len(s) != 9 || s[0] != 'U' || !isDigits(s[1:]) {
		return false
	}
	d := s[1:]
	sum := 0
	for i := 0; i < 7; i++ {
		v := int(d[i] - '0')
		if i%2 == 1 {
			v *= 2
			v = v/10 + v%10
		}
		sum += v
	}
	return (10-(sum+4)%10)%10 == int(d[7]-'0')
}

// GB: weights 8..2 plus the two check digits must be divisible by 97 (or by 97 after +55)
func validateVATGB(s string) bool {
	if len(s) != 9 || !isDigits(s) {
		return false
	}
	check, _ := strconv.Atoi(s[7:])
	total := weightedSum(s, []int{8, 7, 6, 5, 4, 3, 2}) + check
	return total%97 == 0 || (total+55)%97 == 0
}
