// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"regexp"
	"strings"
)

var (
	cusipRe  = regexp.MustCompile(`\b[0-9]{3}[0-9A-Z]{5}[0-9]\b`)
	isinRe   = regexp.MustCompile(`\b[A-Z]{2}[0-9A-Z]{9}[0-9]\b`)
	sedolRe  = regexp.MustCompile(`\b[0-9BCDFGHJKLMNPQRSTVWXYZ]{6}[0-9]\b`)
	tickerRe = regexp.MustCompile(`(?:\$|\b(?:NYSE|NASDAQ|Nasdaq|AMEX|LSE|TSX)\s?:\s?)([A-Z]{1,5})\b|\b([A-Z]{1,5})\b`)

	cusipKeywords  = []string{"cusip"}
	sedolKeywords  = []string{"sedol"}
	tickerKeywords = []string{"ticker", "stock", "shares", "symbol", "nyse", "nasdaq", "equity", "traded"}

	// Symbols that are common enough to report without an exchange prefix
	commonTickers = toSet(strings.Fields(`
		AAPL MSFT GOOG GOOGL AMZN META TSLA NVDA BRK JPM JNJ V MA PG UNH HD DIS BAC XOM CVX PFE KO
		PEP CSCO ORCL INTC AMD IBM NFLX ADBE CRM PYPL WMT T VZ NKE MRK ABBV LLY COST MCD QCOM TXN
		AVGO SBUX GS MS C WFC BA CAT GE F GM UBER LYFT SHOP SQ SNAP PINS ZM SPOT TSM BABA BIDU
		SPY QQQ DIA IWM VOO VTI`))

	// Upper-case tokens that look like symbols but are ordinary words or acronyms
	tickerStopwords = toSet(strings.Fields(`
		A I AN AND ARE AS AT BE BY CEO CFO CTO DO FOR FYI HR ID IF IN IS IT ME MY NO NOT OF OK ON OR
		PDF SSN DOB USA US UK EU TO UP WE PO RE CC BCC FAQ ETA ASAP USD EUR GBP IRS LLC INC LTD
		NA TBD TBA PM AM VS ATM API URL HTML JSON CSV XML SQL`))
)

// FindCUSIPs returns CUSIP identifiers; all-numeric candidates need the CUSIP keyword nearby
func FindCUSIPs(text string) []string {
	return values(findCUSIPs(text))
}

func findCUSIPs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, cusipRe, 0, TypeCUSIP, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		if isDigits(v) && !keywordNear(text, start, end, 40, cusipKeywords) {
			return "", false
		}
		return v, ValidateCUSIP(v)
	})
}

// ValidateCUSIP checks the "double-add-double" check digit (every second character doubled, digits summed)
func ValidateCUSIP(cusip string) bool {
	if len(cusip) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < 8; i++ {
		var v int
		switch c := cusip[i]; {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		case c == '*':
			v = 36
		case c == '@':
			v = 37
		case c == '#':
			v = 38
		default:
			return false
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}
	last := cusip[8]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}

// FindISINs returns ISINs: country code, nine-character NSIN and a Luhn check digit
func FindISINs(text string) []string {
	return values(findISINs(text))
}

func findISINs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, isinRe, 0, TypeISIN, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateISIN(v)
	})
}

// ValidateISIN expands letters to their two-digit values and runs Luhn over the result
func ValidateISIN(isin string) bool {
	if len(isin) != 12 || !isUpperAlnum(isin) {
		return false
	}
	if isin[0] < 'A' || isin[0] > 'Z' || isin[1] < 'A' || isin[1] > 'Z' {
		return false
	}
	var b strings.Builder
	for i := 0; i < len(isin); i++ {
		v := alnumValue(isin[i])
		if v >= 10 {
			b.WriteByte(byte('0' + v/10))
			b.WriteByte(byte('0' + v%10))
		} else {
			b.WriteByte(byte('0' + v))
		}
	}
	return ValidateLuhn(b.String())
}

// FindSEDOLs returns London Stock Exchange SEDOL codes mentioned with the SEDOL keyword
func FindSEDOLs(text string) []string {
	return values(findSEDOLs(text))
}

func findSEDOLs(text string) []Match {
	if isBlank(text) {
		return nil
	}
	return scan(text, sedolRe, 0, TypeSEDOL, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		if !keywordNear(text, start, end, 40, sedolKeywords) {
			return "", false
		}
		return v, ValidateSEDOL(v)
	})
}

// ValidateSEDOL checks the weighted (1,3,1,7,3,9) mod-10 check digit; vowels are never used
func ValidateSEDOL(sedol string) bool {
	if len(sedol) != 7 || !isUpperAlnum(sedol) || strings.ContainsAny(sedol, "AEIOU") {
		return false
	}
	weights := [6]int{1, 3, 1, 7, 3, 9}
	sum := 0
	for i := 0; i < 6; i++ {
		sum += alnumValue(sedol[i]) * weights[i]
	}
	last := sedol[6]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}

// FindTickers returns stock symbols. A token qualifies when it carries a cashtag or exchange
// prefix, or when it is on the common-symbol list and market vocabulary appears nearby.
// Stopwords never qualify, and single letters need an explicit prefix.
func FindTickers(text string) []string {
	return values(findTickers(text))
}

func findTickers(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	for _, loc := range tickerRe.FindAllStringSubmatchIndex(text, -1) {
		var start, end int
		prefixed := loc[2] >= 0
		if prefixed {
			start, end = loc[2], loc[3]
		} else {
			start, end = loc[4], loc[5]
		}
		sym := text[start:end]
		if tickerStopwords[sym] && !prefixed {
			continue
		}
		if !prefixed {
			if len(sym) == 1 || !commonTickers[sym] || !keywordNear(text, start, end, 60, tickerKeywords) {
				continue
			}
		}
		out = append(out, Match{Value: sym, Type: TypeTicker, Start: start, End: end})
	}
	return out
}
