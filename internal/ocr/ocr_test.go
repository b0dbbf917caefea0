// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `{
  "width": 2550, "height": 3300, "dpi": 300,
  "words": [
    {"text": "Mail", "bbox": {"x": 10, "y": 10, "width": 40, "height": 12}, "confidence": 97},
    {"text": "ann@example.org", "bbox": {"x": 60, "y": 11, "width": 150, "height": 12}, "confidence": 0.88},
    {"text": "Oslo", "bbox": {"x": 10, "y": 40, "width": 40, "height": 12}, "confidence": 91.5}
  ]
}`

func TestDecodePage(t *testing.T) {
	page, err := DecodePage(strings.NewReader(samplePage))
	require.NoError(t, err)

	require.Len(t, page.Words, 3)
	assert.InDelta(t, 0.97, page.Words[0].Confidence, 1e-9)
	assert.InDelta(t, 0.88, page.Words[1].Confidence, 1e-9)
	assert.InDelta(t, 0.915, page.Words[2].Confidence, 1e-9)
	assert.Equal(t, "Mail ann@example.org\nOslo", page.Text)
	assert.Equal(t, 300.0, page.DPI)
	assert.InDelta(t, 0.24, page.Scale(PointsPerInch), 1e-9)
}

func TestDecodePage_KeepsSuppliedText(t *testing.T) {
	page, err := DecodePage(strings.NewReader(`{"text": "Mail  ann@example.org", "words": [{"text": "Mail"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Mail  ann@example.org", page.Text)
	assert.Equal(t, 1.0, page.Scale(72), "no dpi means no scaling")
}

func TestDecodePage_Errors(t *testing.T) {
	_, err := DecodePage(strings.NewReader(`{"words": []}`))
	assert.ErrorIs(t, err, ErrNoWords)

	_, err = DecodePage(strings.NewReader(`{"words": [`))
	assert.Error(t, err)
}

func TestLoadPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePage), 0o600))

	page, err := LoadPage(path)
	require.NoError(t, err)
	assert.Len(t, page.Words, 3)

	_, err = LoadPage(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// tiffWithResolution builds a minimal little-endian TIFF carrying XResolution and
// ResolutionUnit
func tiffWithResolution(num, den uint32, unit uint16) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("II")
	binary.Write(&b, le, uint16(42))
	binary.Write(&b, le, uint32(8))

	binary.Write(&b, le, uint16(2))
	// XResolution, RATIONAL, value stored after the IFD
	binary.Write(&b, le, uint16(0x011A))
	binary.Write(&b, le, uint16(5))
	binary.Write(&b, le, uint32(1))
	binary.Write(&b, le, uint32(8+2+2*12+4))
	// ResolutionUnit, SHORT, inline
	binary.Write(&b, le, uint16(0x0128))
	binary.Write(&b, le, uint16(3))
	binary.Write(&b, le, uint32(1))
	binary.Write(&b, le, unit)
	binary.Write(&b, le, uint16(0))
	// no next IFD
	binary.Write(&b, le, uint32(0))

	binary.Write(&b, le, num)
	binary.Write(&b, le, den)
	return b.Bytes()
}

func TestResolutionDPI(t *testing.T) {
	dpi, err := ResolutionDPI(bytes.NewReader(tiffWithResolution(300, 1, 2)))
	require.NoError(t, err)
	assert.InDelta(t, 300, dpi, 1e-9)

	dpi, err = ResolutionDPI(bytes.NewReader(tiffWithResolution(118, 1, 3)))
	require.NoError(t, err)
	assert.InDelta(t, 299.72, dpi, 1e-9)
}

func TestScaleFromImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.tif")
	require.NoError(t, os.WriteFile(path, tiffWithResolution(600, 2, 2), 0o600))

	scale, err := ScaleFromImage(path, PointsPerInch)
	require.NoError(t, err)
	assert.InDelta(t, 0.24, scale, 1e-9)

	_, err = ScaleFromEXIF(strings.NewReader("not an image"), PointsPerInch)
	assert.Error(t, err)
}
