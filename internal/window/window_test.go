// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/detector"
)

// needleExtractor reports every occurrence of needle as a PER entity
type needleExtractor struct {
	needle string
	calls  int32
	fail   string
}

func (n *needleExtractor) Extract(ctx context.Context, text string) ([]detector.RawEntity, error) {
	atomic.AddInt32(&n.calls, 1)
	if n.fail != "" && strings.Contains(text, n.fail) {
		return nil, errors.New("model crashed")
	}
	var out []detector.RawEntity
	for from := 0; ; {
		i := strings.Index(text[from:], n.needle)
		if i < 0 {
			break
		}
		start := from + i
		out = append(out, detector.RawEntity{Text: n.needle, EntityType: "PER", Score: 0.9, Start: start, End: start + len(n.needle)})
		from = start + len(n.needle)
	}
	return out, nil
}

func TestSplit(t *testing.T) {
	w := New(nil, 512, 0.25, 2, nil)

	t.Run("short text is one window", func(t *testing.T) {
		got := w.Split("hello")
		assert.Equal(t, []detector.TextWindow{{Text: "hello", Start: 0, End: 5, Index: 0}}, got)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Nil(t, w.Split(""))
	})

	t.Run("stride and final window", func(t *testing.T) {
		text := strings.Repeat("a", 1000)
		got := w.Split(text)
		require.Len(t, got, 3)
		assert.Equal(t, [2]int{0, 512}, [2]int{got[0].Start, got[0].End})
		assert.Equal(t, [2]int{384, 896}, [2]int{got[1].Start, got[1].End})
		assert.Equal(t, [2]int{768, 1000}, [2]int{got[2].Start, got[2].End})
		for i, win := range got {
			assert.Equal(t, i, win.Index)
			assert.Equal(t, text[win.Start:win.End], win.Text)
		}
	})

	t.Run("windows stay on rune boundaries", func(t *testing.T) {
		text := strings.Repeat("é", 700)
		for _, win := range New(nil, 101, 0.3, 1, nil).Split(text) {
			assert.True(t, utf8.ValidString(win.Text), "window %d splits a rune", win.Index)
		}
	})

	t.Run("full overlap still advances", func(t *testing.T) {
		ww := &Windower{Size: 4, Overlap: 0.99}
		got := ww.Split("abcdefgh")
		require.NotEmpty(t, got)
		assert.Equal(t, 8, got[len(got)-1].End)
	})
}

func TestDetect_ShortTextIsSingleCall(t *testing.T) {
	ex := &needleExtractor{needle: "Maria"}
	w := New(ex, 512, 0.25, 4, nil)

	text := "Maria signed the form."
	got, err := w.Detect(context.Background(), text)
	require.NoError(t, err)

	direct, err := (&needleExtractor{needle: "Maria"}).Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, direct, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ex.calls))
}

func TestDetect_LongTextShiftsAndMerges(t *testing.T) {
	ex := &needleExtractor{needle: "Maria Garcia"}
	w := New(ex, 512, 0.25, 3, nil)

	text := strings.Repeat("x ", 200) + "Maria Garcia" + strings.Repeat(" y", 300)
	got, err := w.Detect(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, got, 1, "the overlap copy must be merged")
	assert.Equal(t, 400, got[0].Start)
	assert.Equal(t, "Maria Garcia", text[got[0].Start:got[0].End])
	assert.Equal(t, int32(3), atomic.LoadInt32(&ex.calls))
}

func TestDetect_WindowFailureFailsCall(t *testing.T) {
	ex := &needleExtractor{needle: "Maria", fail: "BOOM"}
	w := New(ex, 100, 0.25, 2, nil)

	text := strings.Repeat("Maria ", 50) + "BOOM"
	got, err := w.Detect(context.Background(), text)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestMerge(t *testing.T) {
	in := []detector.RawEntity{
		{Text: "ACME", EntityType: "ORG", Score: 0.8, Start: 50, End: 54},
		{Text: "Maria", EntityType: "PER", Score: 0.7, Start: 10, End: 15},
		{Text: "maria", EntityType: "PER", Score: 0.9, Start: 10, End: 15},
		{Text: "Maria", EntityType: "PER", Score: 0.95, Start: 200, End: 205},
		{Text: "Acme", EntityType: "ORG", Score: 0.6, Start: 50, End: 54},
	}

	got := Merge(in)
	require.Len(t, got, 3)
	assert.Equal(t, detector.RawEntity{Text: "maria", EntityType: "PER", Score: 0.9, Start: 10, End: 15}, got[0])
	assert.Equal(t, "ACME", got[1].Text)
	assert.Equal(t, 0.8, got[1].Score)
	assert.Equal(t, 200, got[2].Start)

	assert.Equal(t, "ACME", in[0].Text, "input must not be reordered")
	assert.Nil(t, Merge(nil))
}

func TestMerge_ComparesWithLastKeptOnly(t *testing.T) {
	in := []detector.RawEntity{
		{Text: "Acme Corp", EntityType: "ORG", Score: 0.7, Start: 0, End: 9},
		{Text: "Bob", EntityType: "PER", Score: 0.9, Start: 5, End: 8},
		{Text: "acme corp", EntityType: "ORG", Score: 0.95, Start: 6, End: 15},
	}

	got := Merge(in)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Start, got[i].Start)
	}
	assert.Equal(t, in, got)
}

func TestContextBoost(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		value string
		want  float64
	}{
		{"no context", "We met Maria Garcia yesterday.", "Maria Garcia", 0.6},
		{"label on the line", "Patient Name: Maria Garcia", "Maria Garcia", 0.6 * 1.25},
		{"label on previous line does not count", "Name:\nMaria Garcia", "Maria Garcia", 0.6},
		{"dense PII nearby", "Maria Garcia 078-05-1120 maria@example.org", "Maria Garcia", 0.6 * 1.15},
		{"one nearby hit is not enough", "Maria Garcia 078-05-1120", "Maria Garcia", 0.6},
		{"both", "Name: Maria Garcia, SSN 078-05-1120, DOB 1985-04-27", "Maria Garcia", 0.6 * 1.25 * 1.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := strings.Index(tt.text, tt.value)
			e := detector.RawEntity{Text: tt.value, EntityType: "PER", Score: 0.6, Start: i, End: i + len(tt.value)}
			got := ContextBoost([]detector.RawEntity{e}, tt.text)
			require.Len(t, got, 1)
			assert.InDelta(t, tt.want, got[0].Score, 1e-9)
		})
	}
}

func TestContextBoost_Capped(t *testing.T) {
	text := "Name: Maria Garcia, SSN 078-05-1120, DOB 1985-04-27"
	i := strings.Index(text, "Maria")
	e := detector.RawEntity{Text: "Maria Garcia", Score: 0.95, Start: i, End: i + 12}
	got := ContextBoost([]detector.RawEntity{e}, text)
	assert.Equal(t, 1.0, got[0].Score)
}
