// Package grid provides the sparse cell store and A1 addressing helpers.
package grid

import (
	"cmp"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

const (
	// RowLimit is the largest row capacity a store accepts.
	RowLimit = 10000
	// ColLimit is the largest column capacity a store accepts.
	ColLimit = 10000

	// DefaultMaxRows is the default logical row capacity.
	DefaultMaxRows = RowLimit
	// DefaultMaxCols is the default logical column capacity.
	DefaultMaxCols = ColLimit
)

// Options configures a Store.
type Options struct {
	// MaxRows is the row capacity. Zero means DefaultMaxRows; values above
	// RowLimit are lowered to it.
	MaxRows int
	// MaxCols is the column capacity. Zero means DefaultMaxCols; values
	// above ColLimit are lowered to it.
	MaxCols int
	// Logger receives warnings about rejected writes. Nil means the
	// default logger.
	Logger *slog.Logger
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		MaxRows: DefaultMaxRows,
		MaxCols: DefaultMaxCols,
	}
}

// Entry is a materialized cell and its position.
type Entry struct {
	Ref
	Cell models.Cell
}

// Store is a sparse grid of cells. Only cells that differ from the default
// are materialized. Store is not safe for concurrent use.
//
// Cells returned by Get and All share pointed-to values with the store and
// must be treated as read-only; use Set to change them.
type Store struct {
	cells   map[Ref]models.Cell
	maxRows int
	maxCols int
	logger  *slog.Logger
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.MaxCols <= 0 {
		opts.MaxCols = DefaultMaxCols
	}
	opts.MaxRows = min(opts.MaxRows, RowLimit)
	opts.MaxCols = min(opts.MaxCols, ColLimit)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cells:   make(map[Ref]models.Cell),
		maxRows: opts.MaxRows,
		maxCols: opts.MaxCols,
		logger:  logger.With(slog.String("component", "grid")),
	}
}

// MaxRows returns the row capacity.
func (s *Store) MaxRows() int { return s.maxRows }

// MaxCols returns the column capacity.
func (s *Store) MaxCols() int { return s.maxCols }

// InBounds reports whether (row, col) is addressable.
func (s *Store) InBounds(row, col int) bool {
	return row >= 0 && row < s.maxRows && col >= 0 && col < s.maxCols
}

// Validate returns a *CoordinateError when (row, col) is out of bounds.
func (s *Store) Validate(row, col int) error {
	if s.InBounds(row, col) {
		return nil
	}
	return &CoordinateError{Row: row, Col: col, MaxRows: s.maxRows, MaxCols: s.maxCols}
}

// Get returns the cell at (row, col), or the default cell when nothing is
// stored there. Get never creates an entry.
func (s *Store) Get(row, col int) models.Cell {
	return s.cells[Ref{Row: row, Col: col}]
}

// Set merges the supplied members of partial onto the stored cell. Members
// left nil keep their previous value. Out-of-range coordinates and invalid
// attributes are logged and ignored. A merge that leaves the cell in its
// default state removes the entry.
func (s *Store) Set(row, col int, partial models.Cell) {
	if err := s.Validate(row, col); err != nil {
		s.logger.Warn("set ignored", slog.Any("error", err))
		return
	}
	if err := partial.Validate(); err != nil {
		s.logger.Warn("set ignored",
			slog.String("cell", Ref{Row: row, Col: col}.String()),
			slog.Any("error", err))
		return
	}
	ref := Ref{Row: row, Col: col}
	merged := s.cells[ref].Merge(partial)
	if merged.IsDefault() {
		delete(s.cells, ref)
		return
	}
	s.cells[ref] = merged
}

// Delete removes the entry at (row, col) if present.
func (s *Store) Delete(row, col int) {
	if err := s.Validate(row, col); err != nil {
		s.logger.Warn("delete ignored", slog.Any("error", err))
		return
	}
	delete(s.cells, Ref{Row: row, Col: col})
}

// All iterates the materialized entries in unspecified order.
func (s *Store) All() iter.Seq2[Ref, models.Cell] {
	return func(yield func(Ref, models.Cell) bool) {
		for ref, cell := range s.cells {
			if !yield(ref, cell) {
				return
			}
		}
	}
}

// Entries returns the materialized entries in row-major order.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.cells))
	for ref, cell := range s.cells {
		entries = append(entries, Entry{Ref: ref, Cell: cell})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return entries
}

// Count returns the number of materialized entries.
func (s *Store) Count() int {
	return len(s.cells)
}

// Export returns a shallow copy of the materialized entries.
func (s *Store) Export() map[Ref]models.Cell {
	return maps.Clone(s.cells)
}

// Replace discards the current contents and takes ownership of entries.
// Out-of-range and default entries are dropped.
func (s *Store) Replace(entries map[Ref]models.Cell) {
	cells := make(map[Ref]models.Cell, len(entries))
	dropped := 0
	for ref, cell := range entries {
		if !s.InBounds(ref.Row, ref.Col) {
			dropped++
			continue
		}
		cell = cell.Normalize()
		if cell.IsDefault() {
			continue
		}
		cells[ref] = cell
	}
	if dropped > 0 {
		s.logger.Warn("replace dropped out-of-range entries", slog.Int("dropped", dropped))
	}
	s.cells = cells
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.cells = make(map[Ref]models.Cell)
}

// InsertRows shifts rows at and below at down by n. Entries pushed past
// the last row are dropped.
func (s *Store) InsertRows(at, n int) {
	if !s.validShift("insert rows", at, n, s.maxRows) {
		return
	}
	s.shift(func(r Ref) (Ref, bool) {
		if r.Row >= at {
			r.Row += n
		}
		return r, true
	})
}

// DeleteRows removes rows [at, at+n) and shifts the rows below up.
func (s *Store) DeleteRows(at, n int) {
	if !s.validShift("delete rows", at, n, s.maxRows) {
		return
	}
	s.shift(func(r Ref) (Ref, bool) {
		switch {
		case r.Row < at:
			return r, true
		case r.Row < at+n:
			return r, false
		default:
			r.Row -= n
			return r, true
		}
	})
}

// InsertCols shifts columns at and to the right of at by n.
func (s *Store) InsertCols(at, n int) {
	if !s.validShift("insert columns", at, n, s.maxCols) {
		return
	}
	s.shift(func(r Ref) (Ref, bool) {
		if r.Col >= at {
			r.Col += n
		}
		return r, true
	})
}

// DeleteCols removes columns [at, at+n) and shifts the columns to the right
// left.
func (s *Store) DeleteCols(at, n int) {
	if !s.validShift("delete columns", at, n, s.maxCols) {
		return
	}
	s.shift(func(r Ref) (Ref, bool) {
		switch {
		case r.Col < at:
			return r, true
		case r.Col < at+n:
			return r, false
		default:
			r.Col -= n
			return r, true
		}
	})
}

func (s *Store) validShift(op string, at, n, limit int) bool {
	if at < 0 || at >= limit || n <= 0 {
		s.logger.Warn(op+" ignored", slog.Int("at", at), slog.Int("count", n), slog.Int("limit", limit))
		return false
	}
	return true
}

// shift rebuilds the map with every entry moved by move. Entries for which
// move returns false, or that land outside the bounds, are dropped.
func (s *Store) shift(move func(Ref) (Ref, bool)) {
	cells := make(map[Ref]models.Cell, len(s.cells))
	overflow := 0
	for ref, cell := range s.cells {
		to, keep := move(ref)
		if !keep {
			continue
		}
		if !s.InBounds(to.Row, to.Col) {
			overflow++
			continue
		}
		cells[to] = cell
	}
	if overflow > 0 {
		s.logger.Warn("shift dropped entries past the grid edge", slog.Int("dropped", overflow))
	}
	s.cells = cells
}
