// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocr loads word-level OCR output produced by an external engine and derives the
// scale between OCR pixels and output units.
package ocr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"piiscope/internal/geometry"
)

// PointsPerInch is the PDF user-space resolution
const PointsPerInch = 72.0

// ErrNoWords is returned for OCR output without any words
var ErrNoWords = errors.New("ocr output contains no words")

// Page is one OCR'd page
type Page struct {
	Words  []geometry.OCRWord `json:"words"`
	Text   string             `json:"text"`
	Width  float64            `json:"width"`
	Height float64            `json:"height"`
	DPI    float64            `json:"dpi"`
}

// LoadPage reads an OCR JSON file
func LoadPage(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening OCR file: %w", err)
	}
	defer f.Close()

	page, err := DecodePage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return page, nil
}

// DecodePage parses OCR JSON. Confidences reported as percentages are scaled to [0,1], and
// a missing text is rebuilt from the words in reading order.
func DecodePage(r io.Reader) (*Page, error) {
	var page Page
	if err := json.NewDecoder(r).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to parse OCR JSON: %w", err)
	}
	if len(page.Words) == 0 {
		return nil, ErrNoWords
	}

	for i := range page.Words {
		c := page.Words[i].Confidence
		if c > 1 {
			c /= 100
		}
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		page.Words[i].Confidence = c
	}

	if strings.TrimSpace(page.Text) == "" {
		page.Text = ReadingText(page.Words)
	}
	return &page, nil
}

// ReadingText joins words row by row, top to bottom and left to right
func ReadingText(words []geometry.OCRWord) string {
	var b strings.Builder
	for i, row := range geometry.GroupRows(words, geometry.DefaultRowTolerance) {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, w := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.Text)
		}
	}
	return b.String()
}

// Scale returns the factor that converts this page's OCR pixels into units of targetDPI.
// Pages without a DPI are assumed to already be in target units.
func (p *Page) Scale(targetDPI float64) float64 {
	if p.DPI <= 0 || targetDPI <= 0 {
		return 1
	}
	return targetDPI / p.DPI
}

// ScaleFromImage reads the EXIF resolution of the image the OCR ran on and returns the factor
// that converts its pixels into units of targetDPI
func ScaleFromImage(path string, targetDPI float64) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()
	return ScaleFromEXIF(f, targetDPI)
}

// ScaleFromEXIF is ScaleFromImage over a reader
func ScaleFromEXIF(r io.Reader, targetDPI float64) (float64, error) {
	dpi, err := ResolutionDPI(r)
	if err != nil {
		return 0, err
	}
	if targetDPI <= 0 {
		targetDPI = PointsPerInch
	}
	return targetDPI / dpi, nil
}

// ResolutionDPI returns the horizontal resolution recorded in EXIF, in dots per inch
func ResolutionDPI(r io.Reader) (float64, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return 0, fmt.Errorf("no EXIF data found: %w", err)
	}

	tag, err := x.Get(exif.XResolution)
	if err != nil {
		return 0, fmt.Errorf("no resolution in EXIF: %w", err)
	}
	rat, err := tag.Rat(0)
	if err != nil {
		return 0, fmt.Errorf("invalid EXIF resolution: %w", err)
	}
	res, _ := rat.Float64()
	if res <= 0 {
		return 0, fmt.Errorf("invalid EXIF resolution %v", res)
	}

	// ResolutionUnit 3 is centimeters; 2 (inches) is the default
	if unit, err := x.Get(exif.ResolutionUnit); err == nil {
		if u, err := unit.Int(0); err == nil && u == 3 {
			res *= 2.54
		}
	}
	return res, nil
}
