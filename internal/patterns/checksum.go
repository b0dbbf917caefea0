// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

// ValidateLuhn checks the Luhn (mod 10) check digit of a digit string.
// Separators are not accepted; callers strip them first.
func ValidateLuhn(number string) bool {
	if len(number) < 2 || !isDigits(number) {
		return false
	}

	sum := 0
	isDouble := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if isDouble {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		isDouble = !isDouble
	}
	return sum%10 == 0
}

var (
	verhoeffD = [10][10]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
		{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
		{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
		{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
		{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
		{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
		{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
		{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
		{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
	}
	verhoeffP = [8][10]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
		{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
		{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
		{9, 4, 5, 3, 1, 2, 8, 7, 6, 0},
		{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
		{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
		{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
	}
)

// ValidateVerhoeff checks a digit string whose last digit is a Verhoeff check digit
func ValidateVerhoeff(number string) bool {
	if len(number) < 2 || !isDigits(number) {
		return false
	}
	c := 0
	for i := 0; i < len(number); i++ {
		digit := int(number[len(number)-1-i] - '0')
		c = verhoeffD[c][verhoeffP[i%8][digit]]
	}
	return c == 0
}

// alnumValue maps 0-9 to 0-9 and A-Z to 10-35; -1 for anything else
func alnumValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	default:
		return -1
	}
}

// mod97 computes the ISO 7064 MOD 97-10 remainder of an alphanumeric string,
// expanding letters to two digits (A=10 ... Z=35).
func mod97(s string) (int, bool) {
	rem := 0
	for i := 0; i < len(s); i++ {
		v := alnumValue(s[i])
		if v < 0 {
			return 0, false
		}
		if v >= 10 {
			rem = (rem*100 + v) % 97
		} else {
			rem = (rem*10 + v) % 97
		}
	}
	return rem, true
}

// iso7064Hybrid computes the hybrid MOD 11,10 check digit over a digit string
func iso7064Hybrid(digits string) int {
	p := 10
	for i := 0; i < len(digits); i++ {
		s := (int(digits[i]-'0') + p) % 10
		if s == 0 {
			s = 10
		}
		p = (2 * s) % 11
	}
	check := 11 - p
	if check == 10 {
		return 0
	}
	return check
}

// weightedSum multiplies each digit by the weight at the same index
func weightedSum(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		if i >= len(digits) {
			break
		}
		sum += int(digits[i]-'0') * w
	}
	return sum
}

// mod11Check returns 11 - sum%11 folded into a single digit using the
// convention shared by Korean RRN and Thai ID: (11 - r) % 10.
func mod11Check(sum int) int {
	return (11 - sum%11) % 10
}

// icaoCheckDigit computes the ICAO 9303 7-3-1 check digit. '<' counts as zero.
func icaoCheckDigit(s string) int {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		v := 0
		if s[i] != '<' {
			v = alnumValue(s[i])
			if v < 0 {
				return -1
			}
		}
		sum += v * weights[i%3]
	}
	return sum % 10
}
