// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"piiscope/internal/ner"
	"piiscope/internal/patterns"
)

// CategoryInfo describes one detection category
type CategoryInfo struct {
	Name        string   // configuration name (e.g. "bank_accounts")
	Description string   // one-line summary for the categories list
	Details     string   // what is matched and how it is validated
	Types       []string // span types the category emits
	Examples    []string // sample values that are detected
}

// Categories returns the built-in pattern categories in configuration order
func Categories() []CategoryInfo {
	return []CategoryInfo{
		{"emails", "Email addresses", "RFC 5322 style local parts with a dotted domain and a known-length TLD.",
			[]string{patterns.TypeEmail}, []string{"ann@example.org"}},
		{"phones", "Phone numbers", "North American and E.164 international numbers with plausible digit counts.",
			[]string{patterns.TypePhone}, []string{"(415) 555-0132", "+44 20 7946 0958"}},
		{"ssns", "US Social Security Numbers", "Dashed or spaced SSNs checked against SSA allocation rules; bare nine-digit runs need a nearby keyword.",
			[]string{patterns.TypeSSN}, []string{"536-90-4399"}},
		{"cards", "Payment card numbers", "13 to 19 digit PANs with a known issuer prefix and a valid Luhn checksum.",
			[]string{patterns.TypeCreditCard}, []string{"4532-0151-1283-0366"}},
		{"dates", "Dates", "Numeric and month-name dates with calendar validation.",
			[]string{patterns.TypeDate}, []string{"1984-07-12", "12 July 1984"}},
		{"addresses", "Street addresses", "House number, street name and street suffix, optionally followed by unit, city, state and ZIP.",
			[]string{patterns.TypeAddress}, []string{"1600 Pennsylvania Ave NW"}},
		{"bank_accounts", "Bank identifiers", "IBAN (mod 97), SWIFT/BIC, ABA routing numbers (checksum) and Mexican CLABE.",
			[]string{patterns.TypeIBAN, patterns.TypeSWIFT, patterns.TypeABARouting, patterns.TypeCLABE}, []string{"DE89 3704 0044 0532 0130 00"}},
		{"crypto", "Cryptocurrency addresses", "Bitcoin base58check and bech32, and Ethereum hex addresses.",
			[]string{patterns.TypeCryptoAddress}, []string{"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"}},
		{"investments", "Securities identifiers", "ISIN, CUSIP and SEDOL with check digits, and exchange-qualified tickers.",
			[]string{patterns.TypeISIN, patterns.TypeCUSIP, patterns.TypeSEDOL, patterns.TypeTicker}, []string{"US0378331005"}},
		{"eu_ids", "European national IDs", "Spanish DNI/NIE, Dutch BSN, Italian codice fiscale, French INSEE and EU VAT numbers.",
			[]string{patterns.TypeESDNI, patterns.TypeESNIE, patterns.TypeNLBSN, patterns.TypeITCodiceFiscale, patterns.TypeFRINSEE, patterns.TypeVAT},
			[]string{"12345678Z"}},
		{"asian_ids", "Asian national IDs", "Chinese resident ID, Korean RRN, Thai and Taiwanese IDs, Singapore NRIC, Indian Aadhaar and Japanese My Number.",
			[]string{patterns.TypeCNResidentID, patterns.TypeKRRRN, patterns.TypeTHID, patterns.TypeTWID, patterns.TypeSGNRIC, patterns.TypeINAadhaar, patterns.TypeJPMyNumber},
			[]string{"S1234567D"}},
		{"latam_ids", "Latin American national IDs", "Mexican CURP, Brazilian CPF and CNPJ, Argentine CUIT and Chilean RUT with check digits.",
			[]string{patterns.TypeMXCURP, patterns.TypeBRCPF, patterns.TypeBRCNPJ, patterns.TypeARCUIT, patterns.TypeCLRUT},
			[]string{"529.982.247-25"}},
		{"passports", "Passport numbers", "Passport numbers next to a passport keyword, and machine readable zone lines.",
			[]string{patterns.TypePassport}, []string{"Passport No: X1234567"}},
	}
}

// System prints help content
type System struct {
	out     io.Writer
	noColor bool
	colors  map[string]*color.Color
	byName  map[string]CategoryInfo
}

// NewSystem creates a new help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	h := &System{
		out:     out,
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"example":  color.New(color.FgMagenta),
		},
		byName: make(map[string]CategoryInfo),
	}
	for _, c := range Categories() {
		h.byName[c.Name] = c
	}
	return h
}

func (h *System) println(style, format string, args ...interface{}) {
	if h.noColor {
		fmt.Fprintf(h.out, format+"\n", args...)
		return
	}
	h.colors[style].Fprintf(h.out, format+"\n", args...)
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.println("title", "piiscope - PII detection for documents and OCR output")
	fmt.Fprintln(h.out, "==========================================================")
	fmt.Fprintln(h.out)
	h.println("header", "USAGE:")
	fmt.Fprintln(h.out, "  piiscope [options] <file|dir|glob>...")
	fmt.Fprintln(h.out, "  piiscope --ocr page1.json [--image page1.png] [options]")
	fmt.Fprintln(h.out, "  piiscope --watch <dir> [options]")
	fmt.Fprintln(h.out, "  piiscope --web [--addr :8080]")
	fmt.Fprintln(h.out)

	h.println("header", "OPTIONS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --file\t<path>\tFile, directory or glob pattern to scan (also accepted as arguments)")
	fmt.Fprintln(w, "  --recursive\t\tRecursively scan directories")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --list-profiles\t\tList available profiles")
	fmt.Fprintln(w, "  --format\t<format>\tOutput format: text, json, csv, yaml (default: text)")
	fmt.Fprintln(w, "  --checks\t<categories>\tCategories to detect, e.g. emails,ssns,cards or all (default: all)")
	fmt.Fprintln(w, "  --confidence\t<levels>\tConfidence levels to display: high,medium,low,all (default: all)")
	fmt.Fprintln(w, "  --no-model\t\tSkip the entity model and use patterns only")
	fmt.Fprintln(w, "  --show-match\t\tDisplay the matched text (otherwise shows [REDACTED])")
	fmt.Fprintln(w, "  --verbose\t\tDisplay detailed information for each finding")
	fmt.Fprintln(w, "  --output\t<path>\tWrite results to a file instead of stdout")
	fmt.Fprintln(w, "  --ocr\t<path>\tOCR page JSON; maps detections onto redaction boxes (repeatable)")
	fmt.Fprintln(w, "  --image\t<path>\tPage image whose EXIF resolution sets the box scale")
	fmt.Fprintln(w, "  --scale\t<factor>\tExplicit OCR-to-output coordinate scale")
	fmt.Fprintln(w, "  --watch\t<dir>\tRescan files under dir whenever they change")
	fmt.Fprintln(w, "  --web\t\tStart the HTTP API")
	fmt.Fprintln(w, "  --addr\t<addr>\tListen address for --web (default from config, :8080)")
	fmt.Fprintln(w, "  --debug\t\tEnable debug logging and a step trace on stderr")
	fmt.Fprintln(w, "  --quiet\t\tSuppress progress output")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help categories\t\tList detection categories")
	fmt.Fprintln(w, "  --help <category>\t\tShow detailed help for a category")
	w.Flush()

	fmt.Fprintln(h.out)
	h.println("header", "EXAMPLES:")
	h.println("example", "  piiscope intake.pdf")
	h.println("example", "  piiscope --recursive --format json --confidence high ./scans")
	h.println("example", "  piiscope --profile financial --show-match statement.xlsx")
	h.println("example", "  piiscope --ocr page1.json --image page1.png --format json")
	h.println("example", "  piiscope --web --addr :9000")

	fmt.Fprintln(h.out)
	h.println("header", "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Search order: $PIISCOPE_CONFIG, ./.piiscope.yaml, ~/.piiscope.yaml, $XDG_CONFIG_HOME/piiscope/config.yaml")
	fmt.Fprintln(h.out, "  Secrets: llm.api_key and cache.redis.password accept ${VAR} references")
	fmt.Fprintln(h.out, "  Environment: PIISCOPE_DEBUG=1 enables debug logging")
}

// ShowCategoriesHelp lists every detection category
func (h *System) ShowCategoriesHelp() {
	h.println("title", "Detection categories")
	fmt.Fprintln(h.out, "====================")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  CATEGORY\tDESCRIPTION")
	fmt.Fprintln(w, "  --------\t-----------")
	for _, c := range Categories() {
		fmt.Fprintf(w, "  %s\t%s\n", c.Name, c.Description)
	}
	w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintf(h.out, "The entity model adds %s, %s, %s and %s spans when enabled.\n",
		ner.TypePerson, ner.TypeOrganization, ner.TypeLocation, ner.TypeMisc)
	fmt.Fprintln(h.out, "For details about one category, use:")
	h.println("example", "  piiscope --help %s", Categories()[0].Name)
}

// ShowCategoryHelp displays detailed help for one category
func (h *System) ShowCategoryHelp(name string) bool {
	c, ok := h.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		h.println("negative", "Error: category '%s' not found.", name)
		fmt.Fprintln(h.out, "Use 'piiscope --help categories' to see the available categories.")
		return false
	}

	h.println("title", "%s", c.Name)
	fmt.Fprintln(h.out, strings.Repeat("=", len(c.Name)))
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, c.Details)
	fmt.Fprintln(h.out)

	h.println("header", "SPAN TYPES:")
	types := append([]string(nil), c.Types...)
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(h.out, "  %s\n", t)
	}
	fmt.Fprintln(h.out)

	h.println("header", "EXAMPLES:")
	for _, e := range c.Examples {
		fmt.Fprintf(h.out, "  %s\n", e)
	}
	fmt.Fprintln(h.out)
	h.println("example", "  piiscope --checks %s <file>", c.Name)
	return true
}
