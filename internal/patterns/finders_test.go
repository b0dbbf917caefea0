// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"reflect"
	"testing"
)

func TestFinders(t *testing.T) {
	tests := []struct {
		name string
		find func(string) []string
		text string
		want []string
	}{
		{"formatted card", FindLikelyPANs, "Card: 4532-0151-1283-0366", []string{"4532015112830366"}},
		{"card failing luhn", FindLikelyPANs, "Card: 1234567812345678", nil},
		{"mixed card separators", FindLikelyPANs, "Card: 4532 0151-1283 0366", nil},
		{"emails", FindEmails, "Contact John.Doe@Example.com or bad..dots@x.com", []string{"john.doe@example.com"}},
		{"phones", FindPhones, "Call (415) 555-2671 or +44 20 7946 0958.", []string{"+14155552671", "+442079460958"}},
		{"n11 exchange rejected", FindPhones, "Call 415-911-2671", nil},
		{"formatted ssn", FindSSNs, "SSN: 123-45-6789", []string{"123456789"}},
		{"bare ssn with keyword", FindSSNs, "ssn 536221234", []string{"536221234"}},
		{"bare ssn without keyword", FindSSNs, "order 536221234", nil},
		{"bare ssn with tin", FindSSNs, "TIN: 536221234", []string{"536221234"}},
		{"keyword inside a word", FindSSNs, "meeting 536221234, continue", nil},
		{"invalid ssn area", FindSSNs, "SSN: 666-45-6789", nil},
		{"dates", FindDates, "DOB 04/27/1985, due 2024-02-30, signed 3 March 2021", []string{"1985-04-27", "2021-03-03"}},
		{"day-first fallback", FindDates, "on 31.12.99", []string{"1999-12-31"}},
		{"ibans", FindIBANs, "IBAN: GB82 WEST 1234 5698 7654 32 and DE89370400440532013000", []string{"GB82WEST12345698765432", "DE89370400440532013000"}},
		{"swift with context", FindSWIFTCodes, "Wire to DEUTDEFF500 today", []string{"DEUTDEFF500"}},
		{"swift without context", FindSWIFTCodes, "The DEUTDEFF code", nil},
		{"aba", FindABARoutingNumbers, "Routing number 021000021", []string{"021000021"}},
		{"clabe with keyword", FindCLABEs, "CLABE 002180012345678906", []string{"002180012345678906"}},
		{"clabe without keyword", FindCLABEs, "ref 002180012345678906", nil},
		{"vat", FindVATNumbers, "VAT FR83404833048 / DE 136597953", []string{"FR83404833048", "DE136597953"}},
		{"dni", FindEUNationalIDs, "DNI 12345678Z", []string{"12345678Z"}},
		{"bsn with keyword", FindEUNationalIDs, "BSN: 1112.22.333", []string{"111222333"}},
		{"codice fiscale", FindEUNationalIDs, "CF RSSMRA85T10A562S", []string{"RSSMRA85T10A562S"}},
		{"aadhaar", FindAsianNationalIDs, "Aadhaar 2341 2341 2346", []string{"234123412346"}},
		{"chinese id", FindAsianNationalIDs, "ID 11010519491231002X", []string{"11010519491231002X"}},
		{"nric", FindAsianNationalIDs, "NRIC S1234567D", []string{"S1234567D"}},
		{"cpf", FindLatAmNationalIDs, "CPF 529.982.247-25", []string{"52998224725"}},
		{"rut", FindLatAmNationalIDs, "RUT 12.345.678-5", []string{"12345678-5"}},
		{"curp", FindLatAmNationalIDs, "CURP HEGG560427MVZRRL04", []string{"HEGG560427MVZRRL04"}},
		{"bitcoin", FindCryptoAddresses, "send to 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa now", []string{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}},
		{"bad bitcoin", FindCryptoAddresses, "send to 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb now", nil},
		{"mrz passport", FindPassports, "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<\nL898902C36UTO7408122F1204159ZE184226B<<<<<10", []string{"L898902C3"}},
		{"passport keyword", FindPassports, "Passport number: 123456789", []string{"123456789"}},
		{"cusip", FindCUSIPs, "CUSIP 037833100", []string{"037833100"}},
		{"isin", FindISINs, "ISIN US0378331005", []string{"US0378331005"}},
		{"sedol", FindSEDOLs, "SEDOL B0YBKJ7", []string{"B0YBKJ7"}},
		{"tickers", FindTickers, "Shares of $AAPL and NASDAQ: MSFT rose; I bought IBM stock; A B C", []string{"AAPL", "MSFT", "IBM"}},
		{"ticker without market context", FindTickers, "IBM called", nil},
		{"addresses", FindAddresses, "Ship to 221 Baker Street, Apt 4, Springfield, IL 62704.", []string{"221 Baker Street, Apt 4", "IL 62704"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.find(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFinders_EmptyInput(t *testing.T) {
	finders := []func(string) []string{
		FindEmails, FindPhones, FindSSNs, FindLikelyPANs, FindSWIFTCodes, FindABARoutingNumbers,
		FindCLABEs, FindIBANs, FindVATNumbers, FindPassports, FindEUNationalIDs, FindAsianNationalIDs,
		FindLatAmNationalIDs, FindCryptoAddresses, FindCUSIPs, FindISINs, FindSEDOLs, FindTickers,
		FindDates, FindAddresses,
	}
	for i, find := range finders {
		for _, in := range []string{"", "   ", "\n\t"} {
			if got := find(in); len(got) != 0 {
				t.Errorf("finder %d returned %q for blank input", i, got)
			}
		}
	}
}

func TestFinders_Deterministic(t *testing.T) {
	text := "SSN 123-45-6789, card 4532015112830366, mail a@b.co, IBAN DE89370400440532013000"
	first := FindAll(text, AllKinds())
	for i := 0; i < 5; i++ {
		if again := FindAll(text, AllKinds()); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestFinders_DuplicatesCollapsed(t *testing.T) {
	got := FindEmails("a@b.co and again a@b.co")
	if len(got) != 1 {
		t.Errorf("expected one distinct email, got %q", got)
	}
}

func TestLooksLikeContact(t *testing.T) {
	tests := map[string]bool{
		"john@example.com":      true,
		"(415) 555-2671":        true,
		"123-45-6789":           true,
		"John Smith":            false,
		"call john@example.com": false,
	}
	for in, want := range tests {
		if got := LooksLikeContact(in); got != want {
			t.Errorf("LooksLikeContact(%q) = %v, want %v", in, got, want)
		}
	}
}
