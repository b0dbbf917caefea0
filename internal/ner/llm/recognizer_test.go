// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"piiscope/internal/ner"
	"piiscope/internal/resilience"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream says no","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func newTestRecognizer(url string) *Recognizer {
	return New(&Config{APIKey: "test-key", BaseURL: url, Model: "test-model", Logger: zap.NewNop()})
}

func TestRecognizer_Infer(t *testing.T) {
	content := "Sure!\n```json\n" +
		`[{"text":"Maria Garcia","type":"person","confidence":0.93},{"text":"Lisbon","type":"LOC","confidence":0.8}]` +
		"\n```"
	srv := chatServer(t, http.StatusOK, content)
	defer srv.Close()

	text := "Maria Garcia moved to Lisbon. Maria Garcia stayed."
	tokens, err := newTestRecognizer(srv.URL).Infer(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []ner.Token{
		{Word: "Maria Garcia", Tag: "B-PER", Score: 0.93, Start: 0, End: 12},
		{Word: "Lisbon", Tag: "B-LOC", Score: 0.8, Start: 22, End: 28},
		{Word: "Maria Garcia", Tag: "B-PER", Score: 0.93, Start: 30, End: 42},
	}, tokens)

	entities, err := ner.NewAdapter(newTestRecognizer(srv.URL)).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, entities, 3)
}

func TestRecognizer_ServerErrorIsRetryable(t *testing.T) {
	srv := chatServer(t, http.StatusServiceUnavailable, "")
	defer srv.Close()

	_, err := newTestRecognizer(srv.URL).Infer(context.Background(), "Ann Lee")
	require.Error(t, err)
	assert.True(t, resilience.IsRetryable(err))
}

func TestRecognizer_UnparseableOutput(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I could not find anything.")
	defer srv.Close()

	_, err := newTestRecognizer(srv.URL).Infer(context.Background(), "Ann Lee")
	require.Error(t, err)
	assert.False(t, resilience.IsRetryable(err))
}

func TestLocate_OverlapsKeepLongest(t *testing.T) {
	text := "Dr Ann Lee"
	tokens := locate(text, []detection{
		{Text: "Ann", Type: "PER", Confidence: 0.9},
		{Text: "Ann Lee", Type: "PER", Confidence: 0.95},
		{Text: "  ", Type: "PER", Confidence: 0.95},
		{Text: "Bob", Type: "PER", Confidence: 0.95},
	})
	require.Len(t, tokens, 1)
	assert.Equal(t, "Ann Lee", tokens[0].Word)
	assert.Equal(t, 3, tokens[0].Start)
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"person":       ner.TypePerson,
		"ORG":          ner.TypeOrganization,
		" location ":   ner.TypeLocation,
		"date":         ner.TypeMisc,
		"Organization": ner.TypeOrganization,
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeType(in), in)
	}
}
