// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package onnx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenPAD = "[PAD]"
	tokenUNK = "[UNK]"

	maxWordRunes = 100
)

// Piece is one word piece with its byte range in the source text
type Piece struct {
	ID    int64
	Word  string
	Start int
	End   int
}

// Encoding is a padded model input plus the pieces that carry text
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	// Pieces[i] corresponds to position i+1 (after [CLS])
	Pieces []Piece
}

// WordPiece is a BERT-style tokenizer that tracks byte offsets
type WordPiece struct {
	vocab     map[string]int64
	Lowercase bool
}

// LoadVocab reads a vocab.txt file with one token per line
func LoadVocab(path string) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return ReadVocab(f)
}

// ReadVocab builds a tokenizer from vocab lines. The token id is the line index.
func ReadVocab(r io.Reader) (*WordPiece, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	for _, special := range []string{tokenCLS, tokenSEP, tokenPAD, tokenUNK} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab is missing %s", special)
		}
	}
	return &WordPiece{vocab: vocab}, nil
}

// Encode tokenizes text into at most maxTokens positions including [CLS] and [SEP].
// Pieces past the limit are dropped.
func (w *WordPiece) Encode(text string, maxTokens int) Encoding {
	if maxTokens < 2 {
		maxTokens = 2
	}
	pieces := w.pieces(text)
	if len(pieces) > maxTokens-2 {
		pieces = pieces[:maxTokens-2]
	}

	enc := Encoding{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
		Pieces:        pieces,
	}
	for i := range enc.InputIDs {
		enc.InputIDs[i] = w.vocab[tokenPAD]
	}
	enc.InputIDs[0] = w.vocab[tokenCLS]
	enc.AttentionMask[0] = 1
	for i, p := range pieces {
		enc.InputIDs[i+1] = p.ID
		enc.AttentionMask[i+1] = 1
	}
	enc.InputIDs[len(pieces)+1] = w.vocab[tokenSEP]
	enc.AttentionMask[len(pieces)+1] = 1
	return enc
}

func (w *WordPiece) pieces(text string) []Piece {
	var out []Piece
	for _, span := range splitWords(text) {
		out = append(out, w.wordPieces(text, span[0], span[1])...)
	}
	return out
}

// wordPieces runs greedy longest-match-first over one pre-tokenized word
func (w *WordPiece) wordPieces(text string, start, end int) []Piece {
	word := text[start:end]
	if utf8.RuneCountInString(word) > maxWordRunes {
		return []Piece{{ID: w.vocab[tokenUNK], Word: word, Start: start, End: end}}
	}

	var out []Piece
	pos := 0
	for pos < len(word) {
		found := false
		for stop := len(word); stop > pos; {
			candidate := word[pos:stop]
			if w.Lowercase {
				candidate = strings.ToLower(candidate)
			}
			if pos > 0 {
				candidate = "##" + candidate
			}
			if id, ok := w.vocab[candidate]; ok {
				out = append(out, Piece{ID: id, Word: candidate, Start: start + pos, End: start + stop})
				pos = stop
				found = true
				break
			}
			_, size := utf8.DecodeLastRuneInString(word[pos:stop])
			stop -= size
		}
		if !found {
			return []Piece{{ID: w.vocab[tokenUNK], Word: word, Start: start, End: end}}
		}
	}
	return out
}

// splitWords splits on whitespace and isolates punctuation, returning byte ranges
func splitWords(text string) [][2]int {
	var out [][2]int
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			if start >= 0 {
				out = append(out, [2]int{start, i})
				start = -1
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			if start >= 0 {
				out = append(out, [2]int{start, i})
				start = -1
			}
			out = append(out, [2]int{i, i + size})
		default:
			if start < 0 {
				start = i
			}
		}
		i += size
	}
	if start >= 0 {
		out = append(out, [2]int{start, len(text)})
	}
	return out
}
