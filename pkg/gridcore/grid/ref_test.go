package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnName(t *testing.T) {
	tests := []struct {
		col      int
		expected string
	}{
		{0, "A"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
		{9999, "NTP"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ColumnName(tt.col), "ColumnName(%d)", tt.col)
		idx, err := ColumnIndex(tt.expected)
		require.NoError(t, err)
		assert.Equal(t, tt.col, idx)
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		input    string
		expected Ref
		wantErr  bool
	}{
		{"A1", Ref{0, 0}, false},
		{"b12", Ref{11, 1}, false},
		{"$C$3", Ref{2, 2}, false},
		{"AA10", Ref{9, 26}, false},
		{"A0", Ref{}, true},
		{"1A", Ref{}, true},
		{"", Ref{}, true},
	}

	for _, tt := range tests {
		got, err := ParseRef(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidReference, "ParseRef(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "ParseRef(%q)", tt.input)
		assert.Equal(t, tt.expected, got)
	}
}

func TestRefStringAndKey(t *testing.T) {
	r := Ref{Row: 4, Col: 27}
	assert.Equal(t, "AB5", r.String())
	assert.Equal(t, "4-27", r.Key())

	back, err := ParseKey(r.Key())
	require.NoError(t, err)
	assert.Equal(t, r, back)

	for _, bad := range []string{"4", "a-1", "1-b", "-1-2"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrInvalidReference, "ParseKey(%q)", bad)
	}
}

func TestRangeNormalize(t *testing.T) {
	r := NewRange(Ref{5, 3}, Ref{1, 7})
	assert.Equal(t, Ref{1, 3}, r.Start)
	assert.Equal(t, Ref{5, 7}, r.End)
	assert.Equal(t, 5, r.Rows())
	assert.Equal(t, 5, r.Cols())
	assert.Equal(t, 25, r.Size())
	assert.True(t, r.Contains(Ref{3, 5}))
	assert.False(t, r.Contains(Ref{0, 5}))

	single := Single(Ref{2, 2})
	assert.Equal(t, 1, single.Size())
	assert.Equal(t, "C3", single.String())
}

func TestRangeCellsRowMajor(t *testing.T) {
	var got []Ref
	for ref := range NewRange(Ref{1, 1}, Ref{0, 0}).Cells() {
		got = append(got, ref)
	}
	assert.Equal(t, []Ref{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, got)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"A1:D10", "A1:D10", false},
		{"$A$1:$D$10", "A1:D10", false},
		{"D10:A1", "A1:D10", false},
		{"b2", "B2", false},
		{"A1:B2:C3", "", true},
		{"A1:", "", true},
	}

	for _, tt := range tests {
		r, err := ParseRange(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "ParseRange(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "ParseRange(%q)", tt.input)
		assert.Equal(t, tt.expected, r.String())
	}
}
