// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package llm implements ner.Inferencer on top of an OpenAI-compatible chat completion endpoint.
// The model is asked for a JSON array of entities; each one is located in the source text and
// returned as a single B- token so the adapter's grouping and thresholds still apply.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"piiscope/internal/ner"
	"piiscope/internal/resilience"
)

const systemPrompt = `You extract named entities for PII review.
Return ONLY a JSON array. Each item must have:
- "text": the entity exactly as it appears in the input
- "type": one of PER, ORG, LOC, MISC
- "confidence": float 0.0-1.0
Return [] when there are no entities. Example: [{"text":"Maria Garcia","type":"PER","confidence":0.95}]`

// Config holds the endpoint settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Recognizer asks a chat model for entities
type Recognizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// New creates a recognizer. An empty BaseURL uses the OpenAI default.
func New(cfg *Config) *Recognizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

type detection struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Infer implements ner.Inferencer
func (r *Recognizer) Infer(ctx context.Context, text string) ([]ner.Token, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, resilience.NewTransientError("empty chat completion response", nil)
	}

	detections, err := parseDetections(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Debug("unparseable model output", zap.Error(err))
		return nil, err
	}
	return locate(text, detections), nil
}

// parseDetections extracts the first JSON array from the model response
func parseDetections(raw string) ([]detection, error) {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, &resilience.ClassifiedError{
			Type:    resilience.ErrorTypeInvalidInput,
			Message: "no JSON array in model response",
		}
	}

	var out []detection
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, &resilience.ClassifiedError{
			Original: err,
			Type:     resilience.ErrorTypeInvalidInput,
			Message:  fmt.Sprintf("detection parse error: %v", err),
		}
	}
	return out, nil
}

// locate turns each detection into one token per occurrence in text. Overlapping
// occurrences keep the earlier, longer match.
func locate(text string, detections []detection) []ner.Token {
	var tokens []ner.Token
	for _, d := range detections {
		needle := strings.TrimSpace(d.Text)
		if needle == "" {
			continue
		}
		tag := "B-" + normalizeType(d.Type)
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], needle)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(needle)
			tokens = append(tokens, ner.Token{Word: needle, Tag: tag, Score: d.Confidence, Start: start, End: end})
			from = end
		}
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Start != tokens[j].Start {
			return tokens[i].Start < tokens[j].Start
		}
		return tokens[i].End > tokens[j].End
	})
	out := tokens[:0]
	lastEnd := -1
	for _, t := range tokens {
		if t.Start < lastEnd {
			continue
		}
		out = append(out, t)
		lastEnd = t.End
	}
	return out
}

func normalizeType(t string) string {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "PER", "PERSON", "NAME":
		return ner.TypePerson
	case "ORG", "ORGANIZATION", "COMPANY":
		return ner.TypeOrganization
	case "LOC", "LOCATION", "GPE", "ADDRESS":
		return ner.TypeLocation
	default:
		return ner.TypeMisc
	}
}

// classifyAPIError maps client errors onto resilience classes so the circuit breaker
// only counts endpoint health problems
func classifyAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.FromHTTPStatus(reqErr.HTTPStatusCode, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.FromHTTPStatus(apiErr.HTTPStatusCode, err)
	}
	return resilience.ClassifyError(err)
}

var _ ner.Inferencer = (*Recognizer)(nil)
