// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/config"
	"piiscope/internal/formatters/shared"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// emptyConfig keeps the developer's own config files out of the test
func emptyConfig(t *testing.T) string {
	return writeFile(t, t.TempDir(), "piiscope.yaml", "defaults:\n  log_level: error\n")
}

func TestRun_ScanJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "intake.txt", "Contact ann@example.org\nSSN 536-90-4399")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", emptyConfig(t), "--format", "json", "--show-match", "--quiet", path}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var resp shared.JSONResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 2, resp.Summary.Spans)
	assert.Equal(t, map[string]int{"EMAIL": 1, "SSN": 1}, resp.Summary.ByType)
	assert.Equal(t, "ann@example.org", resp.Results[0].Pages[0].Spans[0].Text)
}

func TestRun_ChecksAndConfidence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "intake.txt", "Contact ann@example.org\nSSN 536-90-4399")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", emptyConfig(t), "--format", "csv", "--checks", "ssns", "--confidence", "high", "--quiet", path}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",SSN,pattern,HIGH,")
	assert.Contains(t, lines[1], shared.Redacted)
}

func TestRun_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "ann@example.org")
	out := filepath.Join(dir, "report.yaml")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", emptyConfig(t), "--format", "yaml", "--output", out, "--quiet", "--file", path}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "EMAIL")
}

func TestRun_OCR(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page1.json", `{
		"text": "mail ann@example.org",
		"words": [
			{"text": "mail", "bbox": {"x": 0, "y": 10, "width": 40, "height": 10}, "confidence": 0.9},
			{"text": "ann@example.org", "bbox": {"x": 50, "y": 10, "width": 150, "height": 10}, "confidence": 0.9}
		]
	}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", emptyConfig(t), "--format", "json", "--ocr", page, "--scale", "1"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var resp shared.JSONResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	require.Len(t, resp.Results[0].Pages[0].Boxes, 1)
	assert.Equal(t, 46.0, resp.Results[0].Pages[0].Boxes[0].X)
	assert.Equal(t, 1, resp.Summary.Boxes)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	unsupported := writeFile(t, dir, "archive.zip", "PK")
	txt := writeFile(t, dir, "a.txt", "x")

	cases := []struct {
		name string
		args []string
		code int
	}{
		{"no inputs", nil, exitError},
		{"missing file", []string{filepath.Join(dir, "missing.txt")}, exitError},
		{"only unsupported", []string{unsupported}, exitNoFiles},
		{"bad format", []string{"--format", "sarif", txt}, exitError},
		{"bad checks", []string{"--checks", "dna", txt}, exitError},
		{"bad profile", []string{"--profile", "nope", txt}, exitError},
		{"bad flag", []string{"--frobnicate"}, exitError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append([]string{"--config", emptyConfig(t), "--quiet"}, tc.args...)
			assert.Equal(t, tc.code, run(args, &stdout, &stderr))
		})
	}
}

func TestRun_InfoCommands(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "piiscope "))

	stdout.Reset()
	require.Equal(t, exitOK, run([]string{"--help", "ssns"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "SSN")

	stdout.Reset()
	require.Equal(t, exitOK, run([]string{"--config", emptyConfig(t), "--list-profiles"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "financial")
	assert.Contains(t, stdout.String(), "patterns-only")
}

func TestResolveConfiguration(t *testing.T) {
	fs, f := newFlagSet(&bytes.Buffer{})
	require.NoError(t, fs.Parse([]string{"--profile", "financial", "--format", "CSV", "--no-model", "--checks", "emails,cards"}))

	cfg := config.Default()
	require.NoError(t, resolveConfiguration(cfg, fs, f))
	assert.Equal(t, "csv", cfg.Defaults.Format)
	assert.False(t, cfg.Detection.UseModel)
	assert.Equal(t, []string{"emails", "cards"}, cfg.Detection.EnabledCategories())
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "b.zip", "x")
	nested := writeFile(t, dir, "sub/c.txt", "x")
	writeFile(t, dir, ".git/d.txt", "x")
	supports := func(p string) bool { return strings.HasSuffix(p, ".txt") }

	flat, err := collectFiles([]string{dir}, false, supports)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, flat.FilesToProcess)
	require.Len(t, flat.SkippedFiles, 1)
	assert.True(t, flat.SkippedFiles[0].Silent)

	deep, err := collectFiles([]string{dir, a}, true, supports)
	require.NoError(t, err)
	assert.Equal(t, []string{a, nested}, deep.FilesToProcess)

	glob, err := collectFiles([]string{filepath.Join(dir, "*.txt")}, false, supports)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, glob.FilesToProcess)

	_, err = collectFiles([]string{filepath.Join(dir, "*.pdf")}, false, supports)
	assert.Error(t, err)
}
