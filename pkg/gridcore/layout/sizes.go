package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
)

// ErrInvalidSize is returned when a size override is rejected.
var ErrInvalidSize = errors.New("invalid size override")

// Sizes owns the sparse column width and row height overrides of a sheet
// and the Index derived from them. The index is rebuilt on the first call
// to Index after any override changes, so a stale index is never returned.
//
// Sizes is not safe for concurrent use.
type Sizes struct {
	maxRows int
	maxCols int
	opts    Options
	widths  map[int]float64
	heights map[int]float64
	index   *Index
	logger  *slog.Logger
}

// NewSizes returns overrides for a grid of maxRows by maxCols.
func NewSizes(maxRows, maxCols int, opts Options, logger *slog.Logger) *Sizes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sizes{
		maxRows: maxRows,
		maxCols: maxCols,
		opts:    opts.WithDefaults(),
		widths:  make(map[int]float64),
		heights: make(map[int]float64),
		logger:  logger.With(slog.String("component", "layout")),
	}
}

// Defaults returns the default track sizes.
func (s *Sizes) Defaults() Options { return s.opts }

// Index returns the current position index.
func (s *Sizes) Index() *Index {
	if s.index == nil {
		s.index = Build(s.maxRows, s.maxCols, s.widths, s.heights, s.opts)
		s.logger.Debug("position index rebuilt",
			slog.Int("width_overrides", len(s.widths)),
			slog.Int("height_overrides", len(s.heights)))
	}
	return s.index
}

// SetColumnWidth overrides the width of col.
func (s *Sizes) SetColumnWidth(col int, width float64) error {
	if err := check("column", col, s.maxCols, width); err != nil {
		return err
	}
	s.widths[col] = width
	s.index = nil
	return nil
}

// SetRowHeight overrides the height of row.
func (s *Sizes) SetRowHeight(row int, height float64) error {
	if err := check("row", row, s.maxRows, height); err != nil {
		return err
	}
	s.heights[row] = height
	s.index = nil
	return nil
}

// ResetColumnWidth removes the override of col.
func (s *Sizes) ResetColumnWidth(col int) {
	if _, ok := s.widths[col]; ok {
		delete(s.widths, col)
		s.index = nil
	}
}

// ResetRowHeight removes the override of row.
func (s *Sizes) ResetRowHeight(row int) {
	if _, ok := s.heights[row]; ok {
		delete(s.heights, row)
		s.index = nil
	}
}

// ColumnWidths returns a copy of the width overrides.
func (s *Sizes) ColumnWidths() map[int]float64 { return maps.Clone(s.widths) }

// RowHeights returns a copy of the height overrides.
func (s *Sizes) RowHeights() map[int]float64 { return maps.Clone(s.heights) }

// Replace discards all overrides and installs the given ones. Invalid
// entries are logged and skipped.
func (s *Sizes) Replace(widths, heights map[int]float64) {
	s.widths = make(map[int]float64, len(widths))
	s.heights = make(map[int]float64, len(heights))
	for col, w := range widths {
		if err := s.SetColumnWidth(col, w); err != nil {
			s.logger.Warn("width override skipped", slog.Any("error", err))
		}
	}
	for row, h := range heights {
		if err := s.SetRowHeight(row, h); err != nil {
			s.logger.Warn("height override skipped", slog.Any("error", err))
		}
	}
	s.index = nil
}

// InsertRows shifts height overrides at and below at down by n.
func (s *Sizes) InsertRows(at, n int) { s.shift(s.heights, s.maxRows, at, n) }

// DeleteRows drops the height overrides of rows [at, at+n) and shifts the
// rest up.
func (s *Sizes) DeleteRows(at, n int) { s.shift(s.heights, s.maxRows, at, -n) }

// InsertCols shifts width overrides at and right of at by n.
func (s *Sizes) InsertCols(at, n int) { s.shift(s.widths, s.maxCols, at, n) }

// DeleteCols drops the width overrides of columns [at, at+n) and shifts the
// rest left.
func (s *Sizes) DeleteCols(at, n int) { s.shift(s.widths, s.maxCols, at, -n) }

// shift moves every override at or after at by delta. A negative delta
// removes the tracks [at, at-delta).
func (s *Sizes) shift(m map[int]float64, limit, at, delta int) {
	if at < 0 || at >= limit || delta == 0 {
		return
	}
	moved := make(map[int]float64, len(m))
	for i, v := range m {
		switch {
		case i < at:
			moved[i] = v
		case delta < 0 && i < at-delta:
		case i+delta < limit:
			moved[i+delta] = v
		}
	}
	clear(m)
	maps.Copy(m, moved)
	s.index = nil
}

func check(kind string, i, limit int, size float64) error {
	if i < 0 || i >= limit {
		return fmt.Errorf("%w: %s %d outside [0, %d)", ErrInvalidSize, kind, i, limit)
	}
	if size < 0 {
		return fmt.Errorf("%w: %s %d size %v is negative", ErrInvalidSize, kind, i, size)
	}
	return nil
}
