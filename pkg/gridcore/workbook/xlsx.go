package workbook

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/formula"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// Column width and row height excelize reports for tracks without an
// explicit size.
const (
	xlsxDefaultColWidth  = 9.140625
	xlsxDefaultRowHeight = 15
)

// XLSXOptions configures xlsx import and export.
type XLSXOptions struct {
	// Layout holds the default track sizes in pixels.
	Layout layout.Options
	// Logger receives warnings about content that cannot be carried over.
	// Nil means the default logger.
	Logger *slog.Logger
}

// DefaultXLSXOptions returns the default xlsx options.
func DefaultXLSXOptions() XLSXOptions {
	return XLSXOptions{Layout: layout.DefaultOptions()}
}

func (o XLSXOptions) logger() *slog.Logger {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String("component", "xlsx"))
}

var chartTypes = map[models.ChartType]excelize.ChartType{
	models.ChartBar:  excelize.Col,
	models.ChartLine: excelize.Line,
	models.ChartPie:  excelize.Pie,
	models.ChartArea: excelize.Area,
}

// cfCriteria maps rule operators to the names excelize reports on read.
var cfCriteria = map[string]string{
	">":  "greater than",
	">=": "greater than or equal to",
	"<":  "less than",
	"<=": "less than or equal to",
	"=":  "equal to",
	"<>": "not equal to",
}

// ExportXLSX writes wb as an xlsx file. Cell values are written as cached
// values next to their formulas.
func ExportXLSX(wb *models.Workbook, w io.Writer, opts XLSXOptions) error {
	if err := Validate(wb); err != nil {
		return err
	}
	opts.Layout = opts.Layout.WithDefaults()
	log := opts.logger()

	f := excelize.NewFile()
	defer f.Close()

	x := &xlsxWriter{f: f, opts: opts, log: log, styles: map[string]int{}}
	for i := range wb.Sheets {
		sheet := &wb.Sheets[i]
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return newSheetError(sheet.Name, "cells", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return newSheetError(sheet.Name, "cells", err)
		}
		if err := x.writeSheet(sheet); err != nil {
			return err
		}
	}

	if active, ok := wb.Active(); ok {
		if idx, err := f.GetSheetIndex(active.Name); err == nil && idx >= 0 {
			f.SetActiveSheet(idx)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

type xlsxWriter struct {
	f      *excelize.File
	opts   XLSXOptions
	log    *slog.Logger
	styles map[string]int
}

func (x *xlsxWriter) writeSheet(sheet *models.Sheet) error {
	name := sheet.Name
	entries, err := Entries(sheet)
	if err != nil {
		return err
	}
	widths, heights, err := SizeOverrides(sheet)
	if err != nil {
		return err
	}

	if err := x.f.SetSheetProps(name, &excelize.SheetPropsOptions{
		DefaultColWidth:  float64Ptr(layout.PixelsToColumnChars(x.opts.Layout.ColWidth)),
		DefaultRowHeight: float64Ptr(layout.PixelsToPoints(x.opts.Layout.RowHeight)),
		CustomHeight:     boolPtr(true),
	}); err != nil {
		return newSheetError(name, "sizes", err)
	}

	refs := slices.SortedFunc(maps.Keys(entries), compareRefs)
	for _, ref := range refs {
		if err := x.writeCell(name, ref, entries[ref]); err != nil {
			return newSheetError(name, "cells", fmt.Errorf("%s: %w", ref, err))
		}
	}

	for col, px := range widths {
		colName := grid.ColumnName(col)
		if err := x.f.SetColWidth(name, colName, colName, layout.PixelsToColumnChars(px)); err != nil {
			return newSheetError(name, "sizes", err)
		}
	}
	for row, px := range heights {
		if err := x.f.SetRowHeight(name, row+1, layout.PixelsToPoints(px)); err != nil {
			return newSheetError(name, "sizes", err)
		}
	}

	if len(sheet.Charts) > 0 {
		ix := layout.Build(max(sheet.Data.RowCount, grid.DefaultMaxRows), max(sheet.Data.ColCount, grid.DefaultMaxCols), widths, heights, x.opts.Layout)
		for _, c := range sheet.Charts {
			if err := x.writeChart(name, ix, c); err != nil {
				return newSheetError(name, "charts", fmt.Errorf("chart %q: %w", c.ID, err))
			}
		}
	}

	if err := x.writeConditionalFormats(name, sheet.ConditionalFormats); err != nil {
		return newSheetError(name, "conditional_formats", err)
	}
	return nil
}

func (x *xlsxWriter) writeCell(sheet string, ref grid.Ref, c models.Cell) error {
	cell := ref.String()
	if c.Value != nil || c.Formula != nil {
		if err := x.f.SetCellDefault(sheet, cell, c.Display()); err != nil {
			return err
		}
	}
	if c.Formula != nil {
		if err := x.f.SetCellFormula(sheet, cell, strings.TrimPrefix(*c.Formula, "=")); err != nil {
			return err
		}
	}
	if !hasStyle(c) {
		return nil
	}
	id, err := x.styleID(c)
	if err != nil {
		return err
	}
	return x.f.SetCellStyle(sheet, cell, cell, id)
}

// styleID registers the style of c once per distinct attribute set.
func (x *xlsxWriter) styleID(c models.Cell) (int, error) {
	key, err := json.Marshal(models.Cell{Text: c.Text, Align: c.Align, Border: c.Border, NumberFormat: c.NumberFormat})
	if err != nil {
		return 0, err
	}
	if id, ok := x.styles[string(key)]; ok {
		return id, nil
	}
	id, err := x.f.NewStyle(toStyle(c))
	if err != nil {
		return 0, err
	}
	x.styles[string(key)] = id
	return id, nil
}

func (x *xlsxWriter) writeChart(sheet string, ix *layout.Index, c models.Chart) error {
	typ, ok := chartTypes[c.Type]
	if !ok {
		return fmt.Errorf("%w: chart type %q", ErrInvalidFormat, c.Type)
	}
	series := c.Series
	if len(series) == 0 {
		series = []models.ChartSeries{{Name: c.Title, Range: c.DataRange}}
	}
	chart := &excelize.Chart{
		Type:      typ,
		Dimension: excelize.ChartDimension{Width: uint(max(c.W, 1)), Height: uint(max(c.H, 1))},
	}
	if c.Title != "" {
		chart.Title = []excelize.RichTextRun{{Text: c.Title}}
	}
	for _, s := range series {
		values, err := absoluteRange(sheet, s.Range)
		if err != nil {
			return err
		}
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:   `"` + strings.ReplaceAll(s.Name, `"`, `""`) + `"`,
			Values: values,
		})
	}

	row := ix.FindRowAtOffset(float64(c.T))
	col := ix.FindColAtOffset(float64(c.L))
	chart.Format = excelize.GraphicOptions{
		OffsetX: int(math.Round(float64(c.L) - ix.ColumnLeft(col))),
		OffsetY: int(math.Round(float64(c.T) - ix.RowTop(row))),
	}
	return x.f.AddChart(sheet, grid.Ref{Row: row, Col: col}.String(), chart)
}

func (x *xlsxWriter) writeConditionalFormats(sheet string, cfs []models.ConditionalFormat) error {
	byRange := map[string][]excelize.ConditionalFormatOptions{}
	var order []string
	for _, cf := range cfs {
		rng, err := grid.ParseRange(cf.Range)
		if err != nil {
			return fmt.Errorf("rule %q: %w", cf.ID, err)
		}
		opt, ok := cfOptions(cf.Rule)
		if !ok {
			x.log.Warn("skipping conditional format",
				slog.String("sheet", sheet), slog.String("rule", cf.ID), slog.String("kind", string(cf.Rule.Kind)))
			continue
		}
		if cf.Style != nil {
			id, err := x.f.NewConditionalStyle(toStyle(models.Cell{Text: cf.Style}))
			if err != nil {
				return fmt.Errorf("rule %q: %w", cf.ID, err)
			}
			opt.Format = &id
		}
		key := rng.String()
		if _, seen := byRange[key]; !seen {
			order = append(order, key)
		}
		byRange[key] = append(byRange[key], opt)
	}
	for _, key := range order {
		if err := x.f.SetConditionalFormat(sheet, key, byRange[key]); err != nil {
			return fmt.Errorf("range %s: %w", key, err)
		}
	}
	return nil
}

func cfOptions(r models.Rule) (excelize.ConditionalFormatOptions, bool) {
	switch r.Kind {
	case models.RuleCellValue:
		if _, ok := cfCriteria[r.Operator]; !ok {
			return excelize.ConditionalFormatOptions{}, false
		}
		value := r.Value
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			value = `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
		}
		return excelize.ConditionalFormatOptions{Type: "cell", Criteria: r.Operator, Value: value}, true
	case models.RuleTextContains:
		return excelize.ConditionalFormatOptions{Type: "text", Criteria: "containing", Value: r.Value}, true
	case models.RuleEmpty:
		return excelize.ConditionalFormatOptions{Type: "blanks"}, true
	}
	return excelize.ConditionalFormatOptions{}, false
}

// ImportXLSX reads an xlsx file into a workbook. Formula cells without a
// cached value are evaluated once after the sheet is loaded. Bar, line, pie
// and area charts are read back from the drawing parts.
func ImportXLSX(r io.Reader, opts XLSXOptions) (*models.Workbook, error) {
	opts.Layout = opts.Layout.WithDefaults()
	log := opts.logger()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	rd := &xlsxReader{f: f, zip: zr, opts: opts, log: log, styles: map[int]models.Cell{}}
	rd.charts = sheetCharts(zr)
	wb := &models.Workbook{}
	for _, name := range f.GetSheetList() {
		sheet, err := rd.readSheet(name)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrInvalidFormat)
	}
	wb.ActiveSheetID = wb.Sheets[0].ID
	if idx := f.GetActiveSheetIndex(); idx >= 0 {
		if s, ok := wb.SheetByName(f.GetSheetName(idx)); ok {
			wb.ActiveSheetID = s.ID
		}
	}
	return wb, nil
}

type xlsxReader struct {
	f      *excelize.File
	zip    *zip.Reader
	opts   XLSXOptions
	log    *slog.Logger
	styles map[int]models.Cell
	charts map[string][]drawnChart
}

func (rd *xlsxReader) readSheet(name string) (models.Sheet, error) {
	rows, err := rd.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return models.Sheet{}, newSheetError(name, "cells", err)
	}

	sheet := NewSheet(name, grid.DefaultMaxRows, grid.DefaultMaxCols)
	if len(rows) > grid.RowLimit {
		rd.log.Warn("rows beyond grid limit dropped",
			slog.String("sheet", name),
			slog.Int("rows", len(rows)),
			slog.Int("limit", grid.RowLimit))
		rows = rows[:grid.RowLimit]
	}
	usedCols := 0
	for r, row := range rows {
		if len(row) > grid.ColLimit {
			rd.log.Warn("columns beyond grid limit dropped",
				slog.String("sheet", name),
				slog.Int("row", r),
				slog.Int("cols", len(row)))
			row = row[:grid.ColLimit]
		}
		usedCols = max(usedCols, len(row))
		for c, value := range row {
			cell, err := rd.readCell(name, r, c, value)
			if err != nil {
				return models.Sheet{}, newSheetError(name, "cells", err)
			}
			if !cell.IsDefault() {
				sheet.Data.Cells[grid.Ref{Row: r, Col: c}.Key()] = cell
			}
		}
	}

	if err := rd.readSizes(&sheet, len(rows), usedCols); err != nil {
		return models.Sheet{}, newSheetError(name, "sizes", err)
	}
	if len(rd.charts[name]) > 0 {
		widths, heights, err := SizeOverrides(&sheet)
		if err != nil {
			return models.Sheet{}, newSheetError(name, "charts", err)
		}
		rd.readCharts(&sheet, layout.Build(sheet.Data.RowCount, sheet.Data.ColCount, widths, heights, rd.opts.Layout))
	}
	if err := rd.readConditionalFormats(&sheet); err != nil {
		return models.Sheet{}, newSheetError(name, "conditional_formats", err)
	}
	if err := rd.evaluatePending(&sheet); err != nil {
		return models.Sheet{}, err
	}
	return sheet, nil
}

func (rd *xlsxReader) readCell(sheet string, row, col int, value string) (models.Cell, error) {
	name := grid.Ref{Row: row, Col: col}.String()
	var cell models.Cell
	if value != "" {
		cell.Value = models.String(value)
	}
	f, err := rd.f.GetCellFormula(sheet, name)
	if err != nil {
		return cell, err
	}
	if f != "" {
		cell.Formula = models.String("=" + f)
	}

	idx, err := rd.f.GetCellStyle(sheet, name)
	if err != nil {
		return cell, err
	}
	if idx == 0 {
		return cell, nil
	}
	style, ok := rd.styles[idx]
	if !ok {
		s, err := rd.f.GetStyle(idx)
		if err != nil {
			return cell, err
		}
		style = fromStyle(s)
		rd.styles[idx] = style
	}
	return cell.Merge(style), nil
}

func (rd *xlsxReader) readSizes(sheet *models.Sheet, usedRows, usedCols int) error {
	props, err := rd.f.GetSheetProps(sheet.Name)
	if err != nil {
		return err
	}
	defCol := float64(xlsxDefaultColWidth)
	if props.DefaultColWidth != nil && *props.DefaultColWidth > 0 {
		defCol = *props.DefaultColWidth
	}
	defRow := float64(xlsxDefaultRowHeight)
	if props.CustomHeight != nil && *props.CustomHeight && props.DefaultRowHeight != nil && *props.DefaultRowHeight > 0 {
		defRow = *props.DefaultRowHeight
	}

	widths := map[int]float64{}
	for col := range usedCols {
		w, err := rd.f.GetColWidth(sheet.Name, grid.ColumnName(col))
		if err != nil {
			return err
		}
		if !sameSize(w, defCol) {
			widths[col] = layout.ColumnCharsToPixels(w)
		}
	}
	heights := map[int]float64{}
	for row := range usedRows {
		h, err := rd.f.GetRowHeight(sheet.Name, row+1)
		if err != nil {
			return err
		}
		if !sameSize(h, defRow) {
			heights[row] = layout.PointsToPixels(h)
		}
	}
	sheet.ColumnWidths = formatSizes(widths)
	sheet.RowHeights = formatSizes(heights)
	return nil
}

func (rd *xlsxReader) readConditionalFormats(sheet *models.Sheet) error {
	all, err := rd.f.GetConditionalFormats(sheet.Name)
	if err != nil {
		return err
	}
	keys := slices.Sorted(maps.Keys(all))
	for _, sqref := range keys {
		// Multi-area references are space separated; only the first area
		// is kept.
		area, _, _ := strings.Cut(sqref, " ")
		rng, err := grid.ParseRange(area)
		if err != nil {
			rd.log.Warn("skipping conditional format", slog.String("sheet", sheet.Name), slog.String("range", sqref), slog.Any("error", err))
			continue
		}
		for _, opt := range all[sqref] {
			rule, ok := ruleFromOptions(opt)
			if !ok {
				rd.log.Debug("unsupported conditional format", slog.String("sheet", sheet.Name), slog.String("type", opt.Type))
				continue
			}
			cf := models.ConditionalFormat{ID: uuid.NewString(), Range: rng.String(), Rule: rule}
			if opt.Format != nil {
				style, err := rd.f.GetConditionalStyle(*opt.Format)
				if err != nil {
					return err
				}
				cf.Style = fromStyle(style).Text
			}
			sheet.ConditionalFormats = append(sheet.ConditionalFormats, cf)
		}
	}
	return nil
}

func ruleFromOptions(opt excelize.ConditionalFormatOptions) (models.Rule, bool) {
	switch opt.Type {
	case "cell":
		for op, criteria := range cfCriteria {
			if criteria == opt.Criteria {
				return models.Rule{Kind: models.RuleCellValue, Operator: op, Value: unquote(opt.Value)}, true
			}
		}
	case "text":
		if opt.Criteria == "containing" {
			return models.Rule{Kind: models.RuleTextContains, Value: opt.Value}, true
		}
	case "blanks":
		return models.Rule{Kind: models.RuleEmpty}, true
	}
	return models.Rule{}, false
}

// evaluatePending fills in formula cells that were saved without a cached
// value.
func (rd *xlsxReader) evaluatePending(sheet *models.Sheet) error {
	var pending []string
	for key, c := range sheet.Data.Cells {
		if c.Formula != nil && c.Value == nil {
			pending = append(pending, key)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	store, _, err := StoreFromSheet(sheet, grid.Options{Logger: rd.opts.Logger}, rd.opts.Layout)
	if err != nil {
		return err
	}
	ev := formula.New(store, formula.WithLogger(rd.opts.Logger))
	slices.Sort(pending)
	for _, key := range pending {
		c := sheet.Data.Cells[key]
		c.Value = models.String(ev.Evaluate(*c.Formula))
		sheet.Data.Cells[key] = c
	}
	return nil
}

// absoluteRange turns an A1 range into a sheet-qualified absolute reference.
func absoluteRange(sheet, s string) (string, error) {
	rng, err := grid.ParseRange(s)
	if err != nil {
		return "", err
	}
	start, err := excelize.CoordinatesToCellName(rng.Start.Col+1, rng.Start.Row+1, true)
	if err != nil {
		return "", err
	}
	end, err := excelize.CoordinatesToCellName(rng.End.Col+1, rng.End.Row+1, true)
	if err != nil {
		return "", err
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + start + ":" + end, nil
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

func sameSize(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func compareRefs(a, b grid.Ref) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}

func float64Ptr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }
