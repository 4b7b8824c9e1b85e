package workbook

import (
	"log/slog"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// Entries parses the "row-col" keyed cells of sheet.
func Entries(sheet *models.Sheet) (map[grid.Ref]models.Cell, error) {
	entries := make(map[grid.Ref]models.Cell, len(sheet.Data.Cells))
	for key, cell := range sheet.Data.Cells {
		ref, err := grid.ParseKey(key)
		if err != nil {
			return nil, newSheetError(sheet.Name, "cells", err)
		}
		entries[ref] = cell.Clone()
	}
	return entries, nil
}

// SizeOverrides parses the column width and row height overrides of sheet.
func SizeOverrides(sheet *models.Sheet) (widths, heights map[int]float64, err error) {
	if widths, err = parseSizes(sheet.ColumnWidths); err != nil {
		return nil, nil, newSheetError(sheet.Name, "sizes", err)
	}
	if heights, err = parseSizes(sheet.RowHeights); err != nil {
		return nil, nil, newSheetError(sheet.Name, "sizes", err)
	}
	return widths, heights, nil
}

// StoreFromSheet builds a store and size overrides holding sheet. The
// capacity in gridOpts is used when the sheet has no row or column count
// and caps the sheet's counts otherwise; cells beyond the cap are dropped.
func StoreFromSheet(sheet *models.Sheet, gridOpts grid.Options, sizeOpts layout.Options) (*grid.Store, *layout.Sizes, error) {
	if err := checkDimensions(sheet); err != nil {
		return nil, nil, err
	}
	entries, err := Entries(sheet)
	if err != nil {
		return nil, nil, err
	}
	widths, heights, err := SizeOverrides(sheet)
	if err != nil {
		return nil, nil, err
	}

	opts := gridOpts
	if opts.MaxRows <= 0 {
		opts.MaxRows = grid.DefaultMaxRows
	}
	if opts.MaxCols <= 0 {
		opts.MaxCols = grid.DefaultMaxCols
	}
	if rows := sheet.Data.RowCount; rows > 0 {
		opts.MaxRows = min(rows, opts.MaxRows)
	}
	if cols := sheet.Data.ColCount; cols > 0 {
		opts.MaxCols = min(cols, opts.MaxCols)
	}
	if opts.MaxRows < sheet.Data.RowCount || opts.MaxCols < sheet.Data.ColCount {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("sheet dimensions capped",
			slog.String("sheet", sheet.Name),
			slog.Int("rows", sheet.Data.RowCount),
			slog.Int("cols", sheet.Data.ColCount),
			slog.Int("max_rows", opts.MaxRows),
			slog.Int("max_cols", opts.MaxCols))
	}

	store := grid.NewStore(opts)
	store.Replace(entries)
	sizes := layout.NewSizes(store.MaxRows(), store.MaxCols(), sizeOpts, opts.Logger)
	sizes.Replace(widths, heights)
	return store, sizes, nil
}

// SheetFromStore returns base with its cells, dimensions and size overrides
// taken from store and sizes. Identity, charts and conditional formats are
// kept from base.
func SheetFromStore(base models.Sheet, store *grid.Store, sizes *layout.Sizes) models.Sheet {
	cells := make(map[string]models.Cell, store.Count())
	for ref, cell := range store.All() {
		cells[ref.Key()] = cell.Clone()
	}
	base.Data = models.SheetData{
		Cells:    cells,
		RowCount: store.MaxRows(),
		ColCount: store.MaxCols(),
	}
	base.ColumnWidths = nil
	base.RowHeights = nil
	if sizes != nil {
		base.ColumnWidths = formatSizes(sizes.ColumnWidths())
		base.RowHeights = formatSizes(sizes.RowHeights())
	}
	return base
}
