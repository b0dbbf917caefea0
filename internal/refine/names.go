// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package refine

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"fmt"
	"strings"
	"sync"
)

// Embedded compressed first-name list, one lowercase name per line
//
//go:embed data/first_names.txt.gz
var firstNamesDataGZ []byte

var (
	firstNames    map[string]bool
	namesLoadOnce sync.Once
	namesLoadErr  error
)

// loadFirstNames decompresses the embedded list once. The map is read-only afterwards.
func loadFirstNames() (map[string]bool, error) {
	namesLoadOnce.Do(func() {
		firstNames, namesLoadErr = decodeNames(firstNamesDataGZ)
	})
	return firstNames, namesLoadErr
}

func decodeNames(compressed []byte) (map[string]bool, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	names := make(map[string]bool, 512)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		name := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if len(name) >= 2 && len(name) <= 30 {
			names[name] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading decompressed names: %w", err)
	}
	return names, nil
}

var accentFold = strings.NewReplacer(
	"á", "a", "à", "a", "ä", "a", "â", "a", "ã", "a", "å", "a",
	"é", "e", "è", "e", "ë", "e", "ê", "e",
	"í", "i", "ì", "i", "ï", "i", "î", "i",
	"ó", "o", "ò", "o", "ö", "o", "ô", "o", "õ", "o",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
	"ñ", "n", "ç", "c", "ý", "y", "ÿ", "y",
)

// nameKey lowercases, folds common accents and strips surrounding punctuation
func nameKey(word string) string {
	word = strings.Trim(word, ".,;:!?\"'()[]{}")
	return accentFold.Replace(strings.ToLower(word))
}
