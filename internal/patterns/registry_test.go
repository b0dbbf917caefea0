// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/detector"
)

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	k, err := ParseKind("  Bank_Accounts ")
	require.NoError(t, err)
	assert.Equal(t, KindBankAccounts, k)

	_, err = ParseKind("faxes")
	assert.Error(t, err)
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestKindFind_SpanInvariants(t *testing.T) {
	text := "Email a@b.co, SSN 123-45-6789"
	spans := FindAll(text, AllKinds())
	require.Len(t, spans, 2)

	assert.Equal(t, TypeEmail, spans[0].Type)
	assert.Equal(t, "a@b.co", spans[0].Text)
	assert.Equal(t, TypeSSN, spans[1].Type)
	assert.Equal(t, "123-45-6789", spans[1].Text)

	for _, s := range spans {
		assert.Equal(t, 1.0, s.Confidence)
		assert.Equal(t, detector.SourcePattern, s.Source)
		require.NotNil(t, s.Positions)
		assert.Equal(t, s.Text, text[s.Positions.Start:s.Positions.End])
		assert.NoError(t, s.Validate(text))
	}
}

func TestKindFind_DisabledKindsSkipped(t *testing.T) {
	text := "Email a@b.co, SSN 123-45-6789"
	spans := FindAll(text, []Kind{KindSSNs})
	require.Len(t, spans, 1)
	assert.Equal(t, TypeSSN, spans[0].Type)

	assert.Empty(t, FindAll(text, nil))
	assert.Empty(t, Kind(-1).Find(text))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"4532015112830366", TypeCreditCard, true},
		{" John@Example.com ", TypeEmail, true},
		{"123-45-6789", TypeSSN, true},
		{"12345678Z", TypeESDNI, true},
		{"DE89370400440532013000", TypeIBAN, true},
		{"S1234567D", TypeSGNRIC, true},
		{"call 123-45-6789", "", false},
		{"AAPL", "", false},
		{"Jane Roe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Classify(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyKind(t *testing.T) {
	k, typ, ok := ClassifyKind("ann@example.org")
	assert.True(t, ok)
	assert.Equal(t, KindEmails, k)
	assert.Equal(t, TypeEmail, typ)

	k, typ, ok = ClassifyKind("DE89370400440532013000")
	assert.True(t, ok)
	assert.Equal(t, KindBankAccounts, k)
	assert.Equal(t, TypeIBAN, typ)

	_, _, ok = ClassifyKind("Jane Roe")
	assert.False(t, ok)
}

func TestPIILike(t *testing.T) {
	got := PIILike("call 415-555-2671 or mail x@y.com")
	assert.GreaterOrEqual(t, len(got), 2)
	for _, p := range got {
		assert.Less(t, p.Start, p.End)
	}
	assert.Empty(t, PIILike("   "))
}
