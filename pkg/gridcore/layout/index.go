// Package layout maps between pixel scroll offsets and grid indices for
// virtualized rendering.
//
// An Index holds two prefix-sum arrays, one for row tops and one for column
// lefts, each with one more element than the number of rows or columns so
// that the last element is the total extent. Building costs O(rows+cols);
// offset lookups are O(1) and reverse lookups are binary searches.
package layout

import "sort"

const (
	// DefaultRowHeight is the height of a row without an override.
	DefaultRowHeight = 28.0
	// DefaultColWidth is the width of a column without an override.
	DefaultColWidth = 100.0
)

// Options holds the default track sizes.
type Options struct {
	RowHeight float64
	ColWidth  float64
}

// DefaultOptions returns the default row height and column width.
func DefaultOptions() Options {
	return Options{
		RowHeight: DefaultRowHeight,
		ColWidth:  DefaultColWidth,
	}
}

// WithDefaults replaces non-positive sizes with the package defaults.
func (o Options) WithDefaults() Options {
	if o.RowHeight <= 0 {
		o.RowHeight = DefaultRowHeight
	}
	if o.ColWidth <= 0 {
		o.ColWidth = DefaultColWidth
	}
	return o
}

// Window is the block of rows and columns to render. End indices are
// exclusive.
type Window struct {
	StartRow int `json:"startRow"`
	EndRow   int `json:"endRow"`
	StartCol int `json:"startCol"`
	EndCol   int `json:"endCol"`
}

// Index is an immutable position index. Build a new one whenever a size
// override changes, or use Sizes which does so automatically.
type Index struct {
	rowTops  []float64
	colLefts []float64
}

// Build computes the index for a grid of maxRows by maxCols. Overrides
// outside the grid or with a negative size are ignored.
func Build(maxRows, maxCols int, colWidths, rowHeights map[int]float64, opts Options) *Index {
	opts = opts.WithDefaults()
	return &Index{
		rowTops:  prefixSums(max(maxRows, 0), rowHeights, opts.RowHeight),
		colLefts: prefixSums(max(maxCols, 0), colWidths, opts.ColWidth),
	}
}

func prefixSums(n int, overrides map[int]float64, def float64) []float64 {
	sums := make([]float64, n+1)
	for i := 0; i < n; i++ {
		size := def
		if v, ok := overrides[i]; ok && v >= 0 {
			size = v
		}
		sums[i+1] = sums[i] + size
	}
	return sums
}

// RowCount returns the number of rows covered.
func (ix *Index) RowCount() int { return len(ix.rowTops) - 1 }

// ColCount returns the number of columns covered.
func (ix *Index) ColCount() int { return len(ix.colLefts) - 1 }

// RowTop returns the offset of the top edge of row. row is clamped to
// [0, RowCount()], so RowTop(RowCount()) is the total height.
func (ix *Index) RowTop(row int) float64 {
	return ix.rowTops[clamp(row, 0, ix.RowCount())]
}

// ColumnLeft returns the offset of the left edge of col, clamped like RowTop.
func (ix *Index) ColumnLeft(col int) float64 {
	return ix.colLefts[clamp(col, 0, ix.ColCount())]
}

// RowHeight returns the height of row.
func (ix *Index) RowHeight(row int) float64 {
	return ix.RowTop(row+1) - ix.RowTop(row)
}

// ColumnWidth returns the width of col.
func (ix *Index) ColumnWidth(col int) float64 {
	return ix.ColumnLeft(col+1) - ix.ColumnLeft(col)
}

// TotalHeight returns the height of all rows.
func (ix *Index) TotalHeight() float64 { return ix.rowTops[len(ix.rowTops)-1] }

// TotalWidth returns the width of all columns.
func (ix *Index) TotalWidth() float64 { return ix.colLefts[len(ix.colLefts)-1] }

// FindRowAtOffset returns the row i with RowTop(i) <= y < RowTop(i+1),
// clamped to [0, RowCount()-1].
func (ix *Index) FindRowAtOffset(y float64) int {
	return find(ix.rowTops, y)
}

// FindColAtOffset returns the column containing horizontal offset x,
// clamped like FindRowAtOffset.
func (ix *Index) FindColAtOffset(x float64) int {
	return find(ix.colLefts, x)
}

// find returns the last i in [0, len(sums)-2] with sums[i] <= offset.
func find(sums []float64, offset float64) int {
	count := len(sums) - 1
	if count <= 0 {
		return 0
	}
	i := sort.Search(len(sums), func(i int) bool { return sums[i] > offset }) - 1
	return clamp(i, 0, count-1)
}

// VisibleRange returns the window to render for the given scroll position
// and viewport size in rows and columns. The window starts buffer tracks
// before the first visible one and spans viewport+2*buffer tracks, bounded
// by the grid size.
func (ix *Index) VisibleRange(scrollTop, scrollLeft float64, viewportRows, viewportCols, bufferRows, bufferCols int) Window {
	startRow := max(0, ix.FindRowAtOffset(scrollTop)-bufferRows)
	startCol := max(0, ix.FindColAtOffset(scrollLeft)-bufferCols)
	return Window{
		StartRow: startRow,
		EndRow:   min(ix.RowCount(), startRow+viewportRows+2*bufferRows),
		StartCol: startCol,
		EndCol:   min(ix.ColCount(), startCol+viewportCols+2*bufferCols),
	}
}

// VisibleRangeForViewport is VisibleRange with the viewport given in pixels.
// The row and column counts are those of the tracks intersecting the
// viewport at the current scroll position.
func (ix *Index) VisibleRangeForViewport(scrollTop, scrollLeft, width, height float64, bufferRows, bufferCols int) Window {
	rows := ix.FindRowAtOffset(scrollTop+height) - ix.FindRowAtOffset(scrollTop) + 1
	cols := ix.FindColAtOffset(scrollLeft+width) - ix.FindColAtOffset(scrollLeft) + 1
	return ix.VisibleRange(scrollTop, scrollLeft, rows, cols, bufferRows, bufferCols)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
