// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
	"time"
)

// CURP characters in check-digit order; Ñ sits between N and O
var curpAlphabet = []rune("0123456789ABCDEFGHIJKLMNÑOPQRSTUVWXYZ")

var (
	curpRe = regexp.MustCompile(`\b[A-Z][AEIOUX][A-Z]{2}\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])[HMX](?:AS|BC|BS|CC|CL|CM|CS|CH|DF|DG|GT|GR|HG|JC|MC|MN|MS|NT|NL|OC|PL|QT|QR|SP|SL|SR|TC|TS|TL|VZ|YN|ZS|NE)[B-DF-HJ-NP-TV-Z]{3}[A-Z\d]\d\b`)
	cpfRe  = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	cnpjRe = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	cuitRe = regexp.MustCompile(`\b(?:20|23|24|27|30|33|34)-?\d{8}-?\d\b`)
	rutRe  = regexp.MustCompile(`\b\d{1,2}\.?\d{3}\.?\d{3}-[\dkK]\b`)

	cuitKeywords = []string{"cuit", "cuil", "afip"}
	cpfKeywords  = []string{"cpf", "cadastro", "contribuinte"}

	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cuitWeights  = []int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
)

// FindLatAmNationalIDs returns Mexican CURP, Brazilian CPF/CNPJ, Argentine CUIT and Chilean RUT numbers
func FindLatAmNationalIDs(text string) []string {
	return values(findLatAmNationalIDs(text))
}

func findLatAmNationalIDs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	out = append(out, scan(text, curpRe, 0, TypeMXCURP, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateCURP(v)
	})...)
	out = append(out, scan(text, cpfRe, 0, TypeBRCPF, func(text string, start, end int) (string, bool) {
		raw := text[start:end]
		// Unformatted 11-digit runs need a CPF keyword nearby
		if len(raw) == 11 && !keywordNear(text, start, end, 40, cpfKeywords) {
			return "", false
		}
		v := digitsOnly(raw)
		return v, ValidateCPF(v)
	})...)
	out = append(out, scan(text, cnpjRe, 0, TypeBRCNPJ, func(text string, start, end int) (string, bool) {
		v := digitsOnly(text[start:end])
		return v, ValidateCNPJ(v)
	})...)
	out = append(out, scan(text, cuitRe, 0, TypeARCUIT, func(text string, start, end int) (string, bool) {
		raw := text[start:end]
		if !strings.Contains(raw, "-") && !keywordNear(text, start, end, 40, cuitKeywords) {
			return "", false
		}
		v := digitsOnly(raw)
		return v, ValidateCUIT(v)
	})...)
	out = append(out, scan(text, rutRe, 0, TypeCLRUT, func(text string, start, end int) (string, bool) {
		v := strings.ToUpper(strings.ReplaceAll(text[start:end], ".", ""))
		return v, ValidateRUT(v)
	})...)
	return normalizeMatches(out)
}

// ValidateCURP checks the 18th character of a Mexican CURP:
// (10 - sum(value(c_i) * (18 - i)) mod 10) mod 10 over the first 17 characters.
func ValidateCURP(curp string) bool {
	runes := []rune(strings.ToUpper(curp))
	if len(runes) != 18 {
		return false
	}
	if _, err := time.Parse("060102", string(runes[4:10])); err != nil {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		v := indexRune(curpAlphabet, runes[i])
		if v < 0 {
			return false
		}
		sum += v * (18 - i)
	}
	last := runes[17]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}

func indexRune(alphabet []rune, r rune) int {
	for i, a := range alphabet {
		if a == r {
			return i
		}
	}
	return -1
}

// ValidateCPF checks both mod-11 verification digits of a Brazilian CPF. Repeated digits are never issued.
func ValidateCPF(cpf string) bool {
	if len(cpf) != 11 || !isDigits(cpf) || allSame(cpf) {
		return false
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(cpf[i]-'0') * (n + 1 - i)
		}
		if (sum*10)%11%10 != int(cpf[n]-'0') {
			return false
		}
	}
	return true
}

// ValidateCNPJ checks both verification digits of a Brazilian company registration number
func ValidateCNPJ(cnpj string) bool {
	if len(cnpj) != 14 || !isDigits(cnpj) || allSame(cnpj) {
		return false
	}
	dv := func(digits string, weights []int) int {
		r := weightedSum(digits, weights) % 11
		if r < 2 {
			return 0
		}
		return 11 - r
	}
	return dv(cnpj[:12], cnpjWeights1) == int(cnpj[12]-'0') &&
		dv(cnpj[:13], cnpjWeights2) == int(cnpj[13]-'0')
}

// ValidateCUIT checks an Argentine CUIT/CUIL; a computed check of 10 is never issued
func ValidateCUIT(cuit string) bool {
	if len(cuit) != 11 || !isDigits(cuit) {
		return false
	}
	switch cuit[:2] {
	case "20", "23", "24", "27", "30", "33", "34":
	default:
		return false
	}
	r := 11 - weightedSum(cuit, cuitWeights)%11
	if r == 11 {
		r = 0
	}
	return r != 10 && r == int(cuit[10]-'0')
}

// ValidateRUT checks a Chilean RUT in "body-DV" form; DV is 0-9 or K
func ValidateRUT(rut string) bool {
	rut = strings.ToUpper(strings.ReplaceAll(rut, ".", ""))
	dash := strings.IndexByte(rut, '-')
	if dash < 1 || dash != len(rut)-2 {
		return false
	}
	body, dv := rut[:dash], rut[dash+1]
	if !isDigits(body) || len(body) > 8 {
		return false
	}
	sum, mul := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * mul
		mul++
		if mul > 7 {
			mul = 2
		}
	}
	var want byte
	switch r := 11 - sum%11; r {
	case 11:
		want = '0'
	case 10:
		want = 'K'
	default:
		want = byte('0' + r)
	}
	return dv == want
}
