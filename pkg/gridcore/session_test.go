package gridcore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/stream"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/workbook"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	opts := DefaultOptions()
	opts.Grid.MaxRows = 100
	opts.Grid.MaxCols = 26
	opts.Stream.RevealDelay = 0
	s, err := NewSession(opts)
	require.NoError(t, err)
	return s
}

func mustRange(t *testing.T, s string) grid.Range {
	t.Helper()
	r, err := grid.ParseRange(s)
	require.NoError(t, err)
	return r
}

func TestEditStoresFormulaAndResult(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "1"))
	require.NoError(t, s.Edit(1, 0, "2"))
	require.NoError(t, s.Edit(2, 0, "3"))
	require.NoError(t, s.Edit(3, 0, "=SUM(A1:A3)"))

	c := s.Store().Get(3, 0)
	assert.Equal(t, "6", c.Display())
	assert.Equal(t, "=SUM(A1:A3)", *c.Formula)

	// Not recalculated when an input changes.
	require.NoError(t, s.Edit(0, 0, "10"))
	assert.Equal(t, "6", s.Store().Get(3, 0).Display())

	// A plain value replaces the formula.
	require.NoError(t, s.Edit(3, 0, "done"))
	c = s.Store().Get(3, 0)
	assert.Equal(t, "done", c.Display())
	assert.Nil(t, c.Formula)
}

func TestEditOutOfRange(t *testing.T) {
	s := newTestSession(t)
	err := s.Edit(100, 0, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, grid.ErrOutOfRange)
	assert.False(t, s.History().CanUndo())
	assert.Equal(t, 0, s.Store().Count())
}

func TestUndoRedoPerAction(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "a"))
	require.NoError(t, s.Format(mustRange(t, "A1:B2"), models.Cell{Text: &models.TextStyle{Bold: models.Bool(true)}}))
	assert.Equal(t, 4, s.Store().Count())

	require.True(t, s.Undo())
	assert.Equal(t, 1, s.Store().Count())
	assert.Nil(t, s.Store().Get(0, 0).Text)

	require.True(t, s.Undo())
	assert.Equal(t, 0, s.Store().Count())
	assert.False(t, s.Undo())

	require.True(t, s.Redo())
	require.True(t, s.Redo())
	assert.Equal(t, 4, s.Store().Count())
	assert.True(t, *s.Store().Get(1, 1).Text.Bold)
	assert.Equal(t, "a", s.Store().Get(0, 0).Display())
}

func TestFormatIgnoresValues(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "keep"))
	require.NoError(t, s.Format(mustRange(t, "A1"), models.Cell{
		Value:        models.String("lost"),
		NumberFormat: models.String("0.00"),
	}))
	c := s.Store().Get(0, 0)
	assert.Equal(t, "keep", c.Display())
	assert.Equal(t, "0.00", *c.NumberFormat)

	err := s.Format(mustRange(t, "A1"), models.Cell{Align: &models.Alignment{Indent: models.Int(99)}})
	assert.ErrorIs(t, err, models.ErrInvalidAttribute)
}

func TestPasteAndCopy(t *testing.T) {
	s := newTestSession(t)
	n, err := s.Paste(grid.Ref{Row: 98, Col: 24}, [][]string{
		{"1", "2", "clipped"},
		{"=SUM(Y99:Z99)", "", "clipped"},
		{"clipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "3", s.Store().Get(99, 24).Display())
	assert.Equal(t, 3, s.Store().Count())

	block, err := s.Copy(mustRange(t, "Y99:Z100"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"=SUM(Y99:Z99)", ""}}, block)

	require.True(t, s.Undo())
	assert.Equal(t, 0, s.Store().Count())
}

func TestClearAndClearContents(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "a"))
	require.NoError(t, s.Edit(0, 1, "b"))
	require.NoError(t, s.Format(mustRange(t, "A1:B1"), models.Cell{Text: &models.TextStyle{Italic: models.Bool(true)}}))

	require.NoError(t, s.ClearContents(mustRange(t, "A1")))
	a := s.Store().Get(0, 0)
	assert.Empty(t, a.Display())
	assert.True(t, *a.Text.Italic)

	require.NoError(t, s.Clear(mustRange(t, "A1:Z100")))
	assert.Equal(t, 0, s.Store().Count())

	err := s.Clear(mustRange(t, "A200:A300"))
	assert.ErrorIs(t, err, grid.ErrOutOfRange)
}

func TestInsertRowsShiftsCellsAndSizes(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(2, 0, "x"))
	require.NoError(t, s.SetRowHeight(2, 50))

	require.NoError(t, s.InsertRows(1, 2))
	assert.Equal(t, "x", s.Store().Get(4, 0).Display())
	assert.Equal(t, 50.0, s.Index().RowHeight(4))
	assert.Equal(t, float64(layout.DefaultRowHeight), s.Index().RowHeight(2))

	require.NoError(t, s.DeleteCols(0, 1))
	assert.Equal(t, 0, s.Store().Count())

	assert.ErrorIs(t, s.InsertRows(-1, 1), grid.ErrOutOfRange)
	assert.ErrorIs(t, s.DeleteRows(0, 0), grid.ErrOutOfRange)
}

func TestAutoFitColumn(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 1, "short"))
	require.NoError(t, s.Edit(5, 1, "a considerably longer text"))

	opts := layout.DefaultFitOptions()
	width, err := s.AutoFitColumn(1, opts)
	require.NoError(t, err)
	assert.Equal(t, float64(26*opts.CharWidth+opts.Padding), width)
	assert.Equal(t, width, s.Index().ColumnWidth(1))
	assert.Equal(t, width, s.Index().ColumnLeft(2)-s.Index().ColumnLeft(1))
}

func TestStartStreamIsOneUndoStep(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "seed"))

	err := s.StartStream(context.Background(), []stream.Entry{
		{Row: 1, Col: 0, Value: "1"},
		{Row: 2, Col: 0, Value: "2"},
		{Row: 3, Col: 0, Value: "=SUM(A2:A3)"},
	})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusCompleted, s.Writer().Status())
	assert.Equal(t, stream.Progress{Current: 3, Total: 3}, s.Writer().Progress())
	assert.Equal(t, "3", s.Store().Get(3, 0).Display())
	assert.True(t, s.IsRecent(3, 0))

	require.True(t, s.Undo())
	assert.Equal(t, 1, s.Store().Count())
	assert.Equal(t, "seed", s.Store().Get(0, 0).Display())
}

func TestEditRejectedWhileStreaming(t *testing.T) {
	opts := DefaultOptions()
	opts.Stream.RevealDelay = 0
	var s *Session
	var editErr error
	opts.Observer = func(e stream.Event) {
		if e.Kind == stream.EventReveal && editErr == nil {
			editErr = s.Edit(5, 5, "direct")
			if editErr == nil {
				editErr = assert.AnError
			}
		}
	}
	s, err := NewSession(opts)
	require.NoError(t, err)

	require.NoError(t, s.StartStream(context.Background(), []stream.Entry{{Row: 0, Col: 0, Value: "ai"}}))
	assert.ErrorIs(t, editErr, ErrStreaming)
	assert.Equal(t, 1, s.Store().Count())
}

func TestRunStreamFromJSONL(t *testing.T) {
	s := newTestSession(t)
	src := stream.NewJSONLSource(strings.NewReader(
		`{"cell":"B2","value":"4"}`+"\n"+`{"row":2,"col":1,"value":"=B2"}`+"\n"), 0)
	require.NoError(t, s.RunStream(context.Background(), src))
	assert.Equal(t, "4", s.Store().Get(2, 1).Display())
}

func TestVisibleWindow(t *testing.T) {
	s := newTestSession(t)
	w := s.VisibleWindow(0, 0, 500, 280, 2, 2)
	assert.Equal(t, layout.Window{StartRow: 0, EndRow: 15, StartCol: 0, EndCol: 10}, w)
}

func TestLoadSheetAndSheetData(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "old"))

	sheet := workbook.NewSheet("Imported", 50, 10)
	sheet.Data.Cells["1-1"] = models.Cell{Value: models.String("7")}
	sheet.ColumnWidths = map[string]float64{"1": 60}
	sheet.Charts = []models.Chart{{ID: "c", Type: models.ChartLine, DataRange: "B2"}}
	require.NoError(t, s.LoadSheet(sheet))

	assert.False(t, s.History().CanUndo())
	assert.Equal(t, 50, s.Store().MaxRows())
	assert.Equal(t, 1, s.Store().Count())
	assert.Equal(t, 60.0, s.Index().ColumnWidth(1))

	require.NoError(t, s.Edit(2, 1, "=B2"))
	out := s.SheetData()
	assert.Equal(t, sheet.ID, out.ID)
	assert.Equal(t, sheet.Charts, out.Charts)
	assert.Equal(t, "7", out.Data.Cells["2-1"].Display())
	assert.Equal(t, 10, out.Data.ColCount)

	bad := workbook.NewSheet("Bad", 5, 5)
	bad.Data.Cells["x"] = models.Cell{}
	assert.ErrorIs(t, s.LoadSheet(bad), grid.ErrInvalidReference)
}

func TestRecalculate(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(0, 0, "1"))
	require.NoError(t, s.Edit(1, 0, "=A1"))
	require.NoError(t, s.Edit(0, 0, "5"))
	assert.Equal(t, "1", s.Store().Get(1, 0).Display())

	n, err := s.Recalculate()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "5", s.Store().Get(1, 0).Display())
	assert.Equal(t, "=A1", *s.Store().Get(1, 0).Formula)
}

func TestStats(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Edit(1, 1, "x"))
	require.NoError(t, s.Edit(3, 2, "y"))
	require.NoError(t, s.SetColumnWidth(0, 10))

	st := s.Stats()
	assert.Equal(t, 2, st.Cells)
	assert.Equal(t, "B2:C4", st.UsedRange)
	assert.Equal(t, 1, st.ColumnWidths)
	assert.Equal(t, 2, st.Undo)
	assert.Equal(t, stream.StatusIdle, st.Stream)
}

func TestNewSessionValidatesOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.History.Depth = 0
	_, err := NewSession(opts)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	opts = DefaultOptions()
	opts.Stream.RecentWindow = -time.Second
	_, err = NewSession(opts)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadSheetUsesConfiguredGrid(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.LoadSheet(workbook.NewSheet("Blank", 0, 0)))
	assert.Equal(t, 100, s.Store().MaxRows())
	assert.Equal(t, 26, s.Store().MaxCols())

	big := workbook.NewSheet("Big", 5000, 10)
	big.Data.Cells["4000-0"] = models.Cell{Value: models.String("dropped")}
	require.NoError(t, s.LoadSheet(big))
	assert.Equal(t, 100, s.Store().MaxRows())
	assert.Equal(t, 10, s.Store().MaxCols())
	assert.Equal(t, 0, s.Store().Count())
	assert.Equal(t, 100, s.SheetData().Data.RowCount)
}

func TestLoadSheetRejectsOversizedSheet(t *testing.T) {
	s := newTestSession(t)

	err := s.LoadSheet(workbook.NewSheet("Huge", 1<<40, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, workbook.ErrInvalidFormat)
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "load_sheet", ae.Action)

	assert.Equal(t, 100, s.Store().MaxRows())
	w := s.VisibleWindow(0, 0, 800, 600, 2, 2)
	assert.LessOrEqual(t, w.EndRow, 100)
}

func TestCopyStopsAtUsedRange(t *testing.T) {
	opts := DefaultOptions()
	opts.Stream.RevealDelay = 0
	s, err := NewSession(opts)
	require.NoError(t, err)

	block, err := s.Copy(mustRange(t, "A1:NTP10000"))
	require.NoError(t, err)
	assert.Nil(t, block)

	require.NoError(t, s.Edit(2, 1, "x"))
	block, err = s.Copy(mustRange(t, "A1:NTP10000"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"", ""}, {"", ""}, {"", "x"}}, block)

	block, err = s.Copy(mustRange(t, "D5:Z90"))
	require.NoError(t, err)
	assert.Nil(t, block)
}
