package gridcore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/formula"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/history"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/stream"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/workbook"
)

// Session owns the cell store of one worksheet and the components that
// read and write it. Every discrete user action takes one undo snapshot
// before mutating the store.
//
// A Session follows the single-writer rule: direct edits must not be made
// while a stream started by StartStream or RunStream is writing. Edits made
// during a stream fail with ErrStreaming. Session is not safe for
// concurrent use, except for the methods of Writer.
type Session struct {
	opts   Options
	logger *slog.Logger

	sheet   models.Sheet
	store   *grid.Store
	eval    *formula.Evaluator
	sizes   *layout.Sizes
	history *history.Manager
	writer  *stream.Writer
}

// NewSession returns a session holding an empty sheet.
func NewSession(opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "session")),
	}
	sheet := workbook.NewSheet(workbook.DefaultSheetName, opts.Grid.MaxRows, opts.Grid.MaxCols)
	store := grid.NewStore(opts.gridOptions())
	sizes := layout.NewSizes(store.MaxRows(), store.MaxCols(), opts.layoutOptions(), opts.Logger)
	s.attach(sheet, store, sizes)
	return s, nil
}

// attach wires the components around store. Undo history does not survive
// a sheet switch.
func (s *Session) attach(sheet models.Sheet, store *grid.Store, sizes *layout.Sizes) {
	s.sheet = sheet
	s.store = store
	s.sizes = sizes
	s.eval = formula.New(store, formula.WithLogger(s.opts.Logger))
	s.history = history.New(store, s.opts.History.Depth)
	s.writer = stream.NewWriter(store, s.eval, s.opts.streamOptions())
}

// Store returns the cell store. Callers must not mutate it directly while
// relying on undo.
func (s *Session) Store() *grid.Store { return s.store }

// Evaluator returns the formula evaluator bound to the store.
func (s *Session) Evaluator() *formula.Evaluator { return s.eval }

// Sizes returns the row height and column width overrides.
func (s *Session) Sizes() *layout.Sizes { return s.sizes }

// Index returns the position index for the current size overrides.
func (s *Session) Index() *layout.Index { return s.sizes.Index() }

// Writer returns the stream writer, for Pause, Resume, Cancel and status.
func (s *Session) Writer() *stream.Writer { return s.writer }

// History returns the undo manager.
func (s *Session) History() *history.Manager { return s.history }

// begin checks that the session accepts a user action and takes the undo
// snapshot for it.
func (s *Session) begin(action string) error {
	if s.writer.Status().Active() {
		return newActionError(action, ErrStreaming)
	}
	s.history.Snapshot()
	s.logger.Debug("action", slog.String("action", action))
	return nil
}

// Edit commits raw text typed into a cell. Text starting with "=" is stored
// as a formula next to its evaluated result; any other text replaces the
// value and clears a previous formula.
func (s *Session) Edit(row, col int, raw string) error {
	if err := s.store.Validate(row, col); err != nil {
		return newActionError("edit", err)
	}
	if err := s.begin("edit"); err != nil {
		return err
	}
	s.store.Set(row, col, s.cellFor(raw))
	return nil
}

// cellFor returns the partial update storing raw.
func (s *Session) cellFor(raw string) models.Cell {
	if formula.IsFormula(raw) {
		return models.Cell{Formula: models.String(raw), Value: models.String(s.eval.Evaluate(raw))}
	}
	return models.Cell{Value: models.String(raw), Formula: models.String("")}
}

// Format merges the presentation attributes of partial onto every cell of
// rng. Values and formulas in partial are ignored.
func (s *Session) Format(rng grid.Range, partial models.Cell) error {
	rng, err := s.clip("format", rng)
	if err != nil {
		return err
	}
	partial.Value, partial.Formula = nil, nil
	if err := partial.Validate(); err != nil {
		return newActionError("format", err)
	}
	if err := s.begin("format"); err != nil {
		return err
	}
	for ref := range rng.Cells() {
		s.store.Set(ref.Row, ref.Col, partial)
	}
	return nil
}

// Paste writes a block of raw texts with its top-left corner at origin.
// Each text is handled as by Edit. Cells falling outside the grid are
// skipped. It returns the number of cells written.
func (s *Session) Paste(origin grid.Ref, block [][]string) (int, error) {
	if err := s.store.Validate(origin.Row, origin.Col); err != nil {
		return 0, newActionError("paste", err)
	}
	if err := s.begin("paste"); err != nil {
		return 0, err
	}
	n := 0
	for dr, line := range block {
		for dc, raw := range line {
			row, col := origin.Row+dr, origin.Col+dc
			if !s.store.InBounds(row, col) {
				continue
			}
			s.store.Set(row, col, s.cellFor(raw))
			n++
		}
	}
	return n, nil
}

// Clear removes every cell of rng, values and formatting alike.
func (s *Session) Clear(rng grid.Range) error {
	rng, err := s.clip("clear", rng)
	if err != nil {
		return err
	}
	if err := s.begin("clear"); err != nil {
		return err
	}
	for _, e := range s.store.Entries() {
		if rng.Contains(e.Ref) {
			s.store.Delete(e.Row, e.Col)
		}
	}
	return nil
}

// ClearContents removes values and formulas in rng and keeps formatting.
func (s *Session) ClearContents(rng grid.Range) error {
	rng, err := s.clip("clear_contents", rng)
	if err != nil {
		return err
	}
	if err := s.begin("clear_contents"); err != nil {
		return err
	}
	empty := models.Cell{Value: models.String(""), Formula: models.String("")}
	for _, e := range s.store.Entries() {
		if rng.Contains(e.Ref) {
			s.store.Set(e.Row, e.Col, empty)
		}
	}
	return nil
}

// InsertRows inserts n empty rows before row at.
func (s *Session) InsertRows(at, n int) error {
	return s.shift("insert_rows", at, n, s.store.MaxRows(), s.store.InsertRows, s.sizes.InsertRows)
}

// DeleteRows removes n rows starting at row at.
func (s *Session) DeleteRows(at, n int) error {
	return s.shift("delete_rows", at, n, s.store.MaxRows(), s.store.DeleteRows, s.sizes.DeleteRows)
}

// InsertCols inserts n empty columns before column at.
func (s *Session) InsertCols(at, n int) error {
	return s.shift("insert_cols", at, n, s.store.MaxCols(), s.store.InsertCols, s.sizes.InsertCols)
}

// DeleteCols removes n columns starting at column at.
func (s *Session) DeleteCols(at, n int) error {
	return s.shift("delete_cols", at, n, s.store.MaxCols(), s.store.DeleteCols, s.sizes.DeleteCols)
}

func (s *Session) shift(action string, at, n, limit int, cells, sizes func(at, n int)) error {
	if at < 0 || at >= limit || n <= 0 {
		return newActionError(action, fmt.Errorf("%w: position %d count %d", grid.ErrOutOfRange, at, n))
	}
	if err := s.begin(action); err != nil {
		return err
	}
	cells(at, n)
	sizes(at, n)
	return nil
}

// SetColumnWidth overrides the width of col. Size changes are not part of
// the undo history.
func (s *Session) SetColumnWidth(col int, width float64) error {
	if err := s.sizes.SetColumnWidth(col, width); err != nil {
		return newActionError("set_column_width", err)
	}
	return nil
}

// SetRowHeight overrides the height of row. Size changes are not part of
// the undo history.
func (s *Session) SetRowHeight(row int, height float64) error {
	if err := s.sizes.SetRowHeight(row, height); err != nil {
		return newActionError("set_row_height", err)
	}
	return nil
}

// AutoFitColumn sizes col to its longest displayed text and returns the
// new width.
func (s *Session) AutoFitColumn(col int, opts layout.FitOptions) (float64, error) {
	texts := func(yield func(string) bool) {
		for ref, c := range s.store.All() {
			if ref.Col == col && !yield(c.Display()) {
				return
			}
		}
	}
	width := layout.AutoFitWidth(texts, opts)
	if err := s.SetColumnWidth(col, width); err != nil {
		return 0, err
	}
	return width, nil
}

// StartStream queues entries and processes them as a single undoable
// action. It blocks until the stream completes, is canceled or ctx is done.
func (s *Session) StartStream(ctx context.Context, entries []stream.Entry) error {
	if err := s.begin("stream"); err != nil {
		return err
	}
	for _, e := range entries {
		s.writer.Queue(e.Row, e.Col, e.Value, e.Delay)
	}
	return s.writer.Process(ctx)
}

// RunStream processes entries pulled from src as a single undoable action.
func (s *Session) RunStream(ctx context.Context, src stream.Source) error {
	if err := s.begin("stream"); err != nil {
		return err
	}
	return s.writer.Run(ctx, src)
}

// Undo restores the state before the last action.
func (s *Session) Undo() bool {
	if s.writer.Status().Active() {
		return false
	}
	return s.history.Undo()
}

// Redo reapplies the last undone action.
func (s *Session) Redo() bool {
	if s.writer.Status().Active() {
		return false
	}
	return s.history.Redo()
}

// VisibleWindow returns the rows and columns to render for a viewport of
// width by height pixels scrolled to (scrollLeft, scrollTop).
func (s *Session) VisibleWindow(scrollTop, scrollLeft, width, height float64, bufferRows, bufferCols int) layout.Window {
	return s.sizes.Index().VisibleRangeForViewport(scrollTop, scrollLeft, width, height, bufferRows, bufferCols)
}

// IsRecent reports whether the stream wrote the cell within the recent
// window.
func (s *Session) IsRecent(row, col int) bool {
	return s.writer.IsRecent(row, col)
}

// LoadSheet replaces the grid with sheet. Cells and size overrides come
// from sheet; the undo history is discarded.
func (s *Session) LoadSheet(sheet models.Sheet) error {
	if s.writer.Status().Active() {
		return newActionError("load_sheet", ErrStreaming)
	}
	store, sizes, err := workbook.StoreFromSheet(&sheet, s.opts.gridOptions(), s.opts.layoutOptions())
	if err != nil {
		return newActionError("load_sheet", err)
	}
	s.attach(sheet, store, sizes)
	s.logger.Info("sheet loaded",
		slog.String("sheet", sheet.Name),
		slog.Int("cells", store.Count()))
	return nil
}

// SheetData exports the current grid as a persisted sheet, keeping the
// identity, charts and conditional formats of the loaded sheet.
func (s *Session) SheetData() models.Sheet {
	return workbook.SheetFromStore(s.sheet, s.store, s.sizes)
}

// Recalculate re-evaluates every formula in the store in row-major order
// and returns the number of cells whose value changed. Formulas are not
// dependency tracked, so a formula reading a later formula sees its value
// from before this pass.
func (s *Session) Recalculate() (int, error) {
	if err := s.begin("recalculate"); err != nil {
		return 0, err
	}
	changed := 0
	for _, e := range s.store.Entries() {
		if e.Cell.Formula == nil {
			continue
		}
		v := s.eval.Evaluate(*e.Cell.Formula)
		if v != e.Cell.Display() {
			s.store.Set(e.Row, e.Col, models.Cell{Value: models.String(v)})
			changed++
		}
	}
	return changed, nil
}

// clip validates rng against the grid and clips it to the grid bounds.
func (s *Session) clip(action string, rng grid.Range) (grid.Range, error) {
	rng = rng.Normalize()
	if err := s.store.Validate(rng.Start.Row, rng.Start.Col); err != nil {
		return rng, newActionError(action, err)
	}
	rng.End.Row = min(rng.End.Row, s.store.MaxRows()-1)
	rng.End.Col = min(rng.End.Col, s.store.MaxCols()-1)
	return rng, nil
}

// Stats summarizes the session for diagnostics.
type Stats struct {
	Cells        int           `json:"cells"`
	UsedRange    string        `json:"usedRange,omitempty"`
	ColumnWidths int           `json:"columnWidths"`
	RowHeights   int           `json:"rowHeights"`
	Undo         int           `json:"undo"`
	Redo         int           `json:"redo"`
	Stream       stream.Status `json:"stream"`
	RecentWindow time.Duration `json:"recentWindow"`
}

// Stats returns diagnostic counters.
func (s *Session) Stats() Stats {
	st := Stats{
		Cells:        s.store.Count(),
		ColumnWidths: len(s.sizes.ColumnWidths()),
		RowHeights:   len(s.sizes.RowHeights()),
		Stream:       s.writer.Status(),
		RecentWindow: s.opts.Stream.RecentWindow,
	}
	if rng, ok := grid.UsedRange(s.store); ok {
		st.UsedRange = rng.String()
	}
	st.Undo, st.Redo = s.history.Len()
	return st
}

// Copy returns the raw texts of rng, formulas included, row by row. It is
// the inverse of Paste. Rows and columns past the last used cell are left
// out, so a range with no cells at or before its end copies as nil.
func (s *Session) Copy(rng grid.Range) ([][]string, error) {
	rng, err := s.clip("copy", rng)
	if err != nil {
		return nil, err
	}
	used, ok := grid.UsedRange(s.store)
	if !ok {
		return nil, nil
	}
	rng.End.Row = min(rng.End.Row, used.End.Row)
	rng.End.Col = min(rng.End.Col, used.End.Col)
	if rng.End.Row < rng.Start.Row || rng.End.Col < rng.Start.Col {
		return nil, nil
	}
	block := make([][]string, rng.Rows())
	for i := range block {
		block[i] = make([]string, rng.Cols())
	}
	for ref, c := range s.store.All() {
		if rng.Contains(ref) {
			block[ref.Row-rng.Start.Row][ref.Col-rng.Start.Col] = c.FormulaText()
		}
	}
	return block, nil
}
