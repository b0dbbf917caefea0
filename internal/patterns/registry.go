// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"fmt"
	"regexp"
	"strings"

	"piiscope/internal/detector"
)

// Span type tags produced by the pattern library
const (
	TypeEmail           = "EMAIL"
	TypePhone           = "PHONE"
	TypeSSN             = "SSN"
	TypeCreditCard      = "CREDIT_CARD"
	TypeSWIFT           = "SWIFT_BIC"
	TypeABARouting      = "ABA_ROUTING"
	TypeCLABE           = "CLABE"
	TypeIBAN            = "IBAN"
	TypeVAT             = "VAT_NUMBER"
	TypePassport        = "PASSPORT"
	TypeESDNI           = "ES_DNI"
	TypeESNIE           = "ES_NIE"
	TypeNLBSN           = "NL_BSN"
	TypeITCodiceFiscale = "IT_CODICE_FISCALE"
	TypeFRINSEE         = "FR_INSEE"
	TypeCNResidentID    = "CN_RESIDENT_ID"
	TypeKRRRN           = "KR_RRN"
	TypeTHID            = "TH_NATIONAL_ID"
	TypeTWID            = "TW_NATIONAL_ID"
	TypeSGNRIC          = "SG_NRIC"
	TypeINAadhaar       = "IN_AADHAAR"
	TypeJPMyNumber      = "JP_MY_NUMBER"
	TypeMXCURP          = "MX_CURP"
	TypeBRCPF           = "BR_CPF"
	TypeBRCNPJ          = "BR_CNPJ"
	TypeARCUIT          = "AR_CUIT"
	TypeCLRUT           = "CL_RUT"
	TypeCryptoAddress   = "CRYPTO_ADDRESS"
	TypeCUSIP           = "CUSIP"
	TypeISIN            = "ISIN"
	TypeSEDOL           = "SEDOL"
	TypeTicker          = "TICKER"
	TypeDate            = "DATE"
	TypeAddress         = "ADDRESS"
)

// Kind is one member of the closed set of pattern detector categories
type Kind int

const (
	KindEmails Kind = iota
	KindPhones
	KindSSNs
	KindCards
	KindDates
	KindAddresses
	KindBankAccounts
	KindCrypto
	KindInvestments
	KindEUIDs
	KindAsianIDs
	KindLatAmIDs
	KindPassports
	kindCount
)

type kindSpec struct {
	name  string
	find  func(string) []Match
	cross bool // participates in cross-validation of model entities
}

var kinds = [kindCount]kindSpec{
	KindEmails:    {"emails", findEmails, true},
	KindPhones:    {"phones", findPhones, true},
	KindSSNs:      {"ssns", findSSNs, true},
	KindCards:     {"cards", findPANs, true},
	KindDates:     {"dates", findDates, false},
	KindAddresses: {"addresses", findAddresses, false},
	KindBankAccounts: {"bank_accounts", func(text string) []Match {
		var out []Match
		out = append(out, findIBANs(text)...)
		out = append(out, findSWIFT(text)...)
		out = append(out, findABA(text)...)
		out = append(out, findCLABE(text)...)
		return normalizeMatches(out)
	}, true},
	KindCrypto: {"crypto", findCrypto, true},
	KindInvestments: {"investments", func(text string) []Match {
		var out []Match
		out = append(out, findISINs(text)...)
		out = append(out, findCUSIPs(text)...)
		out = append(out, findSEDOLs(text)...)
		out = append(out, findTickers(text)...)
		return normalizeMatches(out)
	}, false},
	KindEUIDs: {"eu_ids", func(text string) []Match {
		return normalizeMatches(append(findEUNationalIDs(text), findVAT(text)...))
	}, true},
	KindAsianIDs:  {"asian_ids", findAsianNationalIDs, true},
	KindLatAmIDs:  {"latam_ids", findLatAmNationalIDs, true},
	KindPassports: {"passports", findPassports, true},
}

// AllKinds returns every kind in declaration order
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a kind from its configuration name (e.g. "bank_accounts")
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := Kind(0); k < kindCount; k++ {
		if kinds[k].name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pattern kind %q", name)
}

func (k Kind) valid() bool {
	return k >= 0 && k < kindCount
}

// String returns the configuration name of the kind
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// Matches returns the validated, positioned matches of this kind
func (k Kind) Matches(text string) []Match {
	if !k.valid() || isBlank(text) {
		return nil
	}
	return kinds[k].find(text)
}

// Find implements detector.Finder. Pattern spans are always fully confident.
func (k Kind) Find(text string) []detector.DetectionSpan {
	matches := k.Matches(text)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]detector.DetectionSpan, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, detector.NewSpan(text, m.Start, m.End, m.Type, 1.0, detector.SourcePattern))
	}
	return spans
}

// FindAll runs every given kind over text and returns the combined spans ordered by position
func FindAll(text string, enabled []Kind) []detector.DetectionSpan {
	var spans []detector.DetectionSpan
	for _, k := range enabled {
		spans = append(spans, k.Find(text)...)
	}
	detector.SortSpans(spans)
	return spans
}

// Classify reports the pattern type of s when s, trimmed, is exactly one validated
// identifier of a cross-validating kind.
func Classify(s string) (string, bool) {
	_, typ, ok := ClassifyKind(s)
	return typ, ok
}

// ClassifyKind is Classify that also reports the kind that validated s
func ClassifyKind(s string) (Kind, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", false
	}
	for k := Kind(0); k < kindCount; k++ {
		if !kinds[k].cross {
			continue
		}
		for _, m := range kinds[k].find(s) {
			if m.Start == 0 && m.End == len(s) {
				return k, m.Type, true
			}
		}
	}
	return 0, "", false
}

// PIILike returns the positions of substrings that have the shape of common PII
// (emails, phones, SSN-like digit groups, card-like digit runs, dates). No checksums are applied.
func PIILike(text string) []detector.Positions {
	if isBlank(text) {
		return nil
	}
	var out []detector.Positions
	for _, re := range piiShapeRes {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, detector.Positions{Start: loc[0], End: loc[1]})
		}
	}
	return out
}

var piiShapeRes = []*regexp.Regexp{emailRe, nanpPhoneRe, intlPhoneRe, ssnShapeRe, panRe, isoDateRe, numericDateRe}
