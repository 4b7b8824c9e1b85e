// Package workbook reads and writes the persisted form of a workbook: the
// JSON document exchanged with the UI and xlsx files.
package workbook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// DefaultSheetName is the name given to the first sheet of a new workbook.
const DefaultSheetName = "Sheet1"

// New returns a workbook with one empty sheet that is active.
func New() *models.Workbook {
	sheet := NewSheet(DefaultSheetName, grid.DefaultMaxRows, grid.DefaultMaxCols)
	return &models.Workbook{
		Sheets:        []models.Sheet{sheet},
		ActiveSheetID: sheet.ID,
	}
}

// NewSheet returns an empty sheet with a fresh ID.
func NewSheet(name string, rowCount, colCount int) models.Sheet {
	return models.Sheet{
		ID:   uuid.NewString(),
		Name: name,
		Data: models.SheetData{
			Cells:    map[string]models.Cell{},
			RowCount: rowCount,
			ColCount: colCount,
		},
	}
}

// Load decodes and validates a JSON workbook.
func Load(r io.Reader) (*models.Workbook, error) {
	var wb models.Workbook
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := Validate(&wb); err != nil {
		return nil, err
	}
	return &wb, nil
}

// ToJSON serializes wb, indented when pretty is set.
func ToJSON(wb *models.Workbook, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(wb); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Validate checks sheet identity, cell keys, size keys and the ranges of
// charts and conditional formats.
func Validate(wb *models.Workbook) error {
	if len(wb.Sheets) == 0 {
		return fmt.Errorf("%w: no sheets", ErrInvalidFormat)
	}
	ids := make(map[string]bool, len(wb.Sheets))
	for i := range wb.Sheets {
		sheet := &wb.Sheets[i]
		if sheet.ID == "" {
			return fmt.Errorf("%w: sheet %d has no id", ErrInvalidFormat, i)
		}
		if ids[sheet.ID] {
			return fmt.Errorf("%w: duplicate sheet id %q", ErrInvalidFormat, sheet.ID)
		}
		ids[sheet.ID] = true
		if err := validateSheet(sheet); err != nil {
			return err
		}
	}
	if wb.ActiveSheetID != "" && !ids[wb.ActiveSheetID] {
		return fmt.Errorf("%w: active sheet %q", ErrUnknownSheet, wb.ActiveSheetID)
	}
	return nil
}

func validateSheet(sheet *models.Sheet) error {
	if err := checkDimensions(sheet); err != nil {
		return err
	}
	for key, cell := range sheet.Data.Cells {
		if _, err := grid.ParseKey(key); err != nil {
			return newSheetError(sheet.Name, "cells", fmt.Errorf("%w: %v", ErrInvalidFormat, err))
		}
		if err := cell.Validate(); err != nil {
			return newSheetError(sheet.Name, "cells", fmt.Errorf("cell %s: %w", key, err))
		}
	}
	if _, err := parseSizes(sheet.ColumnWidths); err != nil {
		return newSheetError(sheet.Name, "sizes", err)
	}
	if _, err := parseSizes(sheet.RowHeights); err != nil {
		return newSheetError(sheet.Name, "sizes", err)
	}
	for _, c := range sheet.Charts {
		if _, err := grid.ParseRange(c.DataRange); err != nil {
			return newSheetError(sheet.Name, "charts", fmt.Errorf("chart %q: %w", c.ID, err))
		}
		for _, s := range c.Series {
			if _, err := grid.ParseRange(s.Range); err != nil {
				return newSheetError(sheet.Name, "charts", fmt.Errorf("chart %q series %q: %w", c.ID, s.Name, err))
			}
		}
	}
	for _, cf := range sheet.ConditionalFormats {
		if _, err := grid.ParseRange(cf.Range); err != nil {
			return newSheetError(sheet.Name, "conditional_formats", fmt.Errorf("rule %q: %w", cf.ID, err))
		}
	}
	return nil
}

// checkDimensions rejects row and column counts outside 0..grid limits.
func checkDimensions(sheet *models.Sheet) error {
	d := sheet.Data
	switch {
	case d.RowCount < 0 || d.ColCount < 0:
		return newSheetError(sheet.Name, "cells", fmt.Errorf("%w: negative dimensions", ErrInvalidFormat))
	case d.RowCount > grid.RowLimit || d.ColCount > grid.ColLimit:
		return newSheetError(sheet.Name, "cells", fmt.Errorf("%w: dimensions %dx%d exceed %dx%d",
			ErrInvalidFormat, d.RowCount, d.ColCount, grid.RowLimit, grid.ColLimit))
	}
	return nil
}

// FindSheet returns the sheet whose ID or name is key.
func FindSheet(wb *models.Workbook, key string) (*models.Sheet, error) {
	if s, ok := wb.Sheet(key); ok {
		return s, nil
	}
	if s, ok := wb.SheetByName(key); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, key)
}

func parseSizes(m map[string]float64) (map[int]float64, error) {
	out := make(map[int]float64, len(m))
	for key, v := range m {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%w: size key %q", ErrInvalidFormat, key)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: size %q is negative", ErrInvalidFormat, key)
		}
		out[i] = v
	}
	return out, nil
}

func formatSizes(m map[int]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for i, v := range m {
		out[strconv.Itoa(i)] = v
	}
	return out
}
