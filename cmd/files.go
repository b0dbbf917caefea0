// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxFileSize bounds the files handed to the extractors
const maxFileSize = 100 * 1024 * 1024

// ProcessingResult holds the result of file processing discovery
type ProcessingResult struct {
	FilesToProcess []string
	SkippedFiles   []SkippedFile
}

// SkippedFile represents a file that was skipped during processing
type SkippedFile struct {
	Path   string
	Reason string
	Silent bool // true = don't show to user, false = show as warning
}

func (r *ProcessingResult) merge(o *ProcessingResult) {
	r.FilesToProcess = append(r.FilesToProcess, o.FilesToProcess...)
	r.SkippedFiles = append(r.SkippedFiles, o.SkippedFiles...)
}

// getFilesToProcess expands a file, directory or glob into the files the engine can read.
// supports filters by extension; unsupported files in directories are skipped silently.
func getFilesToProcess(inputPath string, recursive bool, supports func(string) bool) (*ProcessingResult, error) {
	result := &ProcessingResult{}

	if _, err := os.Stat(inputPath); err != nil && strings.ContainsAny(inputPath, "*?[") {
		expanded := inputPath
		if strings.HasPrefix(inputPath, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				expanded = filepath.Join(home, inputPath[2:])
			}
		}
		matches, err := filepath.Glob(expanded)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", inputPath)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			result.add(filepath.Clean(m), info, supports, true)
		}
		return result, nil
	}

	cleanPath := filepath.Clean(inputPath)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist or is not accessible: %w", err)
	}

	if info.Mode().IsRegular() {
		result.add(cleanPath, info, supports, false)
		return result, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is neither a regular file nor a directory")
	}

	err = filepath.Walk(cleanPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.SkippedFiles = append(result.SkippedFiles, SkippedFile{Path: path, Reason: err.Error()})
			return nil
		}
		if info.IsDir() {
			if path != cleanPath && (!recursive || strings.HasPrefix(info.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			result.add(path, info, supports, true)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error accessing directory: %w", err)
	}
	return result, nil
}

// add records path as processable or skipped. Explicitly named files that cannot be read are
// reported; files found by walking or globbing are skipped quietly.
func (r *ProcessingResult) add(path string, info os.FileInfo, supports func(string) bool, discovered bool) {
	switch {
	case supports != nil && !supports(path):
		r.SkippedFiles = append(r.SkippedFiles, SkippedFile{Path: path, Reason: "unsupported file type", Silent: discovered})
	case info.Size() > maxFileSize:
		r.SkippedFiles = append(r.SkippedFiles, SkippedFile{
			Path:   path,
			Reason: fmt.Sprintf("file too large (max size: %dMB)", maxFileSize/(1024*1024)),
		})
	default:
		r.FilesToProcess = append(r.FilesToProcess, path)
	}
}

// collectFiles expands every input and removes duplicates, keeping first-seen order
func collectFiles(inputs []string, recursive bool, supports func(string) bool) (*ProcessingResult, error) {
	all := &ProcessingResult{}
	for _, in := range inputs {
		r, err := getFilesToProcess(in, recursive, supports)
		if err != nil {
			return nil, err
		}
		all.merge(r)
	}

	seen := make(map[string]bool, len(all.FilesToProcess))
	unique := all.FilesToProcess[:0]
	for _, f := range all.FilesToProcess {
		if !seen[f] {
			seen[f] = true
			unique = append(unique, f)
		}
	}
	all.FilesToProcess = unique
	sort.SliceStable(all.SkippedFiles, func(i, j int) bool { return all.SkippedFiles[i].Path < all.SkippedFiles[j].Path })
	return all, nil
}
