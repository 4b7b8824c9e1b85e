package grid

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Ref addresses a single cell by zero-based row and column.
type Ref struct {
	Row int
	Col int
}

// String returns the A1 name of r, e.g. {0,0} -> "A1".
func (r Ref) String() string {
	name, err := excelize.CoordinatesToCellName(r.Col+1, r.Row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", r.Row, r.Col)
	}
	return name
}

// Key returns the persisted "row-col" key of r.
func (r Ref) Key() string {
	return strconv.Itoa(r.Row) + "-" + strconv.Itoa(r.Col)
}

// ParseKey parses a persisted "row-col" key.
func ParseKey(key string) (Ref, error) {
	rowStr, colStr, ok := strings.Cut(key, "-")
	if !ok {
		return Ref{}, fmt.Errorf("%w: key %q", ErrInvalidReference, key)
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil || row < 0 {
		return Ref{}, fmt.Errorf("%w: key %q", ErrInvalidReference, key)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col < 0 {
		return Ref{}, fmt.Errorf("%w: key %q", ErrInvalidReference, key)
	}
	return Ref{Row: row, Col: col}, nil
}

// ParseRef parses an A1 reference. Matching is case-insensitive and "$"
// anchors are ignored.
func ParseRef(s string) (Ref, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.TrimSpace(s))
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
	}
	return Ref{Row: row - 1, Col: col - 1}, nil
}

// ColumnName converts a zero-based column index to letters: 0 -> "A",
// 25 -> "Z", 26 -> "AA".
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}

// ColumnIndex converts column letters to a zero-based index.
func ColumnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.ReplaceAll(name, "$", ""))
	if err != nil {
		return -1, fmt.Errorf("%w: column %q: %v", ErrInvalidReference, name, err)
	}
	return n - 1, nil
}

// Range is a rectangle of cells. Use NewRange or Normalize so that Start is
// the top-left corner and End the bottom-right one.
type Range struct {
	Start Ref
	End   Ref
}

// NewRange returns the normalized range spanning the two corners.
func NewRange(a, b Ref) Range {
	return Range{Start: a, End: b}.Normalize()
}

// Single returns the one-cell range at r.
func Single(r Ref) Range {
	return Range{Start: r, End: r}
}

// Normalize orders the corners as (minRow,minCol)-(maxRow,maxCol).
func (r Range) Normalize() Range {
	return Range{
		Start: Ref{Row: min(r.Start.Row, r.End.Row), Col: min(r.Start.Col, r.End.Col)},
		End:   Ref{Row: max(r.Start.Row, r.End.Row), Col: max(r.Start.Col, r.End.Col)},
	}
}

// Contains reports whether ref lies inside r.
func (r Range) Contains(ref Ref) bool {
	n := r.Normalize()
	return ref.Row >= n.Start.Row && ref.Row <= n.End.Row &&
		ref.Col >= n.Start.Col && ref.Col <= n.End.Col
}

// Rows returns the number of rows spanned.
func (r Range) Rows() int {
	n := r.Normalize()
	return n.End.Row - n.Start.Row + 1
}

// Cols returns the number of columns spanned.
func (r Range) Cols() int {
	n := r.Normalize()
	return n.End.Col - n.Start.Col + 1
}

// Size returns the number of cells in r.
func (r Range) Size() int {
	return r.Rows() * r.Cols()
}

// Cells iterates the range row by row.
func (r Range) Cells() iter.Seq[Ref] {
	n := r.Normalize()
	return func(yield func(Ref) bool) {
		for row := n.Start.Row; row <= n.End.Row; row++ {
			for col := n.Start.Col; col <= n.End.Col; col++ {
				if !yield(Ref{Row: row, Col: col}) {
					return
				}
			}
		}
	}
}

// String returns the A1 form, e.g. "A1:B3", or "A1" for a single cell.
func (r Range) String() string {
	n := r.Normalize()
	if n.Start == n.End {
		return n.Start.String()
	}
	return n.Start.String() + ":" + n.End.String()
}

// ParseRange parses a range such as "A1:D10" or "$A$1:$D$10". A single
// reference yields a one-cell range.
func ParseRange(s string) (Range, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "$", "")
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		ref, err := ParseRef(parts[0])
		if err != nil {
			return Range{}, err
		}
		return Single(ref), nil
	case 2:
		start, err := ParseRef(parts[0])
		if err != nil {
			return Range{}, err
		}
		end, err := ParseRef(parts[1])
		if err != nil {
			return Range{}, err
		}
		return NewRange(start, end), nil
	default:
		return Range{}, fmt.Errorf("%w: range %q", ErrInvalidReference, s)
	}
}
