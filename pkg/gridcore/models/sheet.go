package models

// Sheet represents the persisted data of a single worksheet.
type Sheet struct {
	// ID is the stable sheet identifier.
	ID string `json:"id"`
	// Name is the tab label.
	Name string `json:"name"`
	// Data holds the materialized cells and the logical grid size.
	Data SheetData `json:"data"`
	// ColumnWidths maps a column index (decimal string) to its width.
	ColumnWidths map[string]float64 `json:"columnWidths,omitempty"`
	// RowHeights maps a row index (decimal string) to its height.
	RowHeights map[string]float64 `json:"rowHeights,omitempty"`
	// Charts contains chart definitions anchored on the sheet.
	Charts []Chart `json:"charts,omitempty"`
	// ConditionalFormats contains conditional formatting rules.
	ConditionalFormats []ConditionalFormat `json:"conditionalFormats,omitempty"`
}

// SheetData holds the cells of a sheet.
type SheetData struct {
	// Cells maps a zero-based "row-col" key to the cell fields.
	Cells map[string]Cell `json:"cells"`
	// RowCount is the logical number of rows.
	RowCount int `json:"rowCount"`
	// ColCount is the logical number of columns.
	ColCount int `json:"colCount"`
}
