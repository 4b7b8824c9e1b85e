package layout

import (
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLeftDefaults(t *testing.T) {
	ix := Build(100, 100, nil, nil, DefaultOptions())

	for c := 0; c <= 100; c++ {
		assert.Equal(t, float64(c)*DefaultColWidth, ix.ColumnLeft(c), "ColumnLeft(%d)", c)
	}
	assert.Equal(t, 100*DefaultColWidth, ix.TotalWidth())
	assert.Equal(t, 100*DefaultRowHeight, ix.TotalHeight())
	assert.Equal(t, ix.TotalWidth(), ix.ColumnLeft(500), "clamped to the total extent")
}

func TestColumnOverrideShiftsFollowingColumns(t *testing.T) {
	base := Build(10, 10, nil, nil, DefaultOptions())
	ix := Build(10, 10, map[int]float64{2: 50}, nil, DefaultOptions())

	for c := 0; c <= 2; c++ {
		assert.Equal(t, base.ColumnLeft(c), ix.ColumnLeft(c), "ColumnLeft(%d)", c)
	}
	for c := 3; c <= 10; c++ {
		assert.Equal(t, base.ColumnLeft(c)-50, ix.ColumnLeft(c), "ColumnLeft(%d)", c)
	}
	assert.Equal(t, 50.0, ix.ColumnWidth(2))
}

func TestBuildIgnoresInvalidOverrides(t *testing.T) {
	ix := Build(5, 5, map[int]float64{-1: 10, 7: 10, 1: -20}, nil, Options{})

	assert.Equal(t, 5*DefaultColWidth, ix.TotalWidth())
	assert.Equal(t, DefaultColWidth, ix.ColumnWidth(1))
}

func TestFindRowAtOffset(t *testing.T) {
	heights := map[int]float64{1: 0, 3: 60, 4: 12.5}
	ix := Build(50, 1, nil, heights, DefaultOptions())

	for y := 0.0; y < ix.TotalHeight(); y += 3.5 {
		i := ix.FindRowAtOffset(y)
		assert.LessOrEqual(t, ix.RowTop(i), y, "offset %v", y)
		assert.Less(t, y, ix.RowTop(i+1), "offset %v", y)
	}

	assert.Equal(t, 2, ix.FindRowAtOffset(28), "zero-height rows are never returned")
	assert.Equal(t, 0, ix.FindRowAtOffset(-10))
	assert.Equal(t, 49, ix.FindRowAtOffset(ix.TotalHeight()+100))
}

func TestFindColAtOffset(t *testing.T) {
	ix := Build(1, 20, map[int]float64{0: 30}, nil, DefaultOptions())

	assert.Equal(t, 0, ix.FindColAtOffset(29.9))
	assert.Equal(t, 1, ix.FindColAtOffset(30))
	assert.Equal(t, 2, ix.FindColAtOffset(130))
}

func TestVisibleRange(t *testing.T) {
	ix := Build(10000, 10000, nil, nil, DefaultOptions())

	tests := []struct {
		name      string
		scrollTop float64
		expected  Window
	}{
		{"top", 0, Window{StartRow: 0, EndRow: 30, StartCol: 0, EndCol: 14}},
		{"middle", 280, Window{StartRow: 5, EndRow: 35, StartCol: 0, EndCol: 14}},
		{"bottom", 28 * 9995, Window{StartRow: 9990, EndRow: 10000, StartCol: 0, EndCol: 14}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.VisibleRange(tt.scrollTop, 0, 20, 10, 5, 2)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestVisibleRangeForViewport(t *testing.T) {
	ix := Build(1000, 1000, nil, nil, DefaultOptions())

	got := ix.VisibleRangeForViewport(0, 0, 250, 280, 0, 0)
	assert.Equal(t, Window{StartRow: 0, EndRow: 11, StartCol: 0, EndCol: 3}, got)
}

func TestSizesRebuildOnChange(t *testing.T) {
	s := NewSizes(100, 100, DefaultOptions(), nil)

	before := s.Index()
	assert.Same(t, before, s.Index(), "unchanged overrides reuse the index")

	require.NoError(t, s.SetColumnWidth(2, 50))
	after := s.Index()
	assert.NotSame(t, before, after)
	assert.Equal(t, 250.0, after.ColumnLeft(3))
	assert.Equal(t, 300.0, before.ColumnLeft(3), "built indices are immutable")

	s.ResetColumnWidth(2)
	assert.Equal(t, 300.0, s.Index().ColumnLeft(3))

	require.NoError(t, s.SetRowHeight(0, 40))
	assert.Equal(t, 40.0, s.Index().RowTop(1))
	assert.Equal(t, map[int]float64{0: 40}, s.RowHeights())
}

func TestSizesRejectInvalid(t *testing.T) {
	s := NewSizes(10, 10, DefaultOptions(), nil)

	assert.ErrorIs(t, s.SetColumnWidth(-1, 10), ErrInvalidSize)
	assert.ErrorIs(t, s.SetColumnWidth(10, 10), ErrInvalidSize)
	assert.ErrorIs(t, s.SetRowHeight(0, -1), ErrInvalidSize)
	assert.Empty(t, s.ColumnWidths())
	assert.Empty(t, s.RowHeights())
}

func TestSizesShift(t *testing.T) {
	s := NewSizes(10, 10, DefaultOptions(), nil)
	s.Replace(map[int]float64{1: 50, 3: 70, 9: 20, 42: 5}, nil)
	require.Equal(t, []int{1, 3, 9}, slices.Sorted(maps.Keys(s.ColumnWidths())))

	s.InsertCols(2, 2)
	assert.Equal(t, map[int]float64{1: 50, 5: 70}, s.ColumnWidths(), "override pushed past the edge is dropped")
	assert.Equal(t, 70.0, s.Index().ColumnWidth(5))

	s.DeleteCols(1, 1)
	assert.Equal(t, map[int]float64{4: 70}, s.ColumnWidths())

	require.NoError(t, s.SetRowHeight(2, 40))
	s.InsertRows(0, 1)
	assert.Equal(t, map[int]float64{3: 40}, s.RowHeights())
	s.DeleteRows(3, 1)
	assert.Empty(t, s.RowHeights())
}

func TestUnits(t *testing.T) {
	assert.Equal(t, 13.57, PixelsToColumnChars(100))
	assert.Equal(t, 100.0, ColumnCharsToPixels(13.57))
	assert.Equal(t, 64.0, ColumnCharsToPixels(8.43))
	assert.Equal(t, 0.0, PixelsToColumnChars(3))
	assert.Equal(t, 21.0, PixelsToPoints(28))
	assert.Equal(t, 28.0, PointsToPixels(21))
}

func TestAutoFitWidth(t *testing.T) {
	opts := DefaultFitOptions()

	tests := []struct {
		name     string
		texts    []string
		expected float64
	}{
		{"empty", nil, opts.MinWidth},
		{"blank strings", []string{""}, opts.MinWidth},
		{"short", []string{"ab"}, opts.MinWidth},
		{"longest wins", []string{"abc", "hello world"}, 11*8 + 16},
		{"multi-line", []string{"ab\nabcdef"}, 6*8 + 16},
		{"wide glyphs", []string{"日本"}, 4*8 + 16},
		{"clamped", []string{strings.Repeat("x", 100)}, opts.MaxWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AutoFitWidth(slices.Values(tt.texts), opts))
		})
	}
}
