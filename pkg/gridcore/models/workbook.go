package models

// Workbook is the persisted form of a set of worksheets.
type Workbook struct {
	// Sheets lists the worksheets in tab order.
	Sheets []Sheet `json:"sheets"`
	// ActiveSheetID is the ID of the sheet shown when the workbook opens.
	ActiveSheetID string `json:"activeSheetId"`
}

// Sheet returns the sheet with the given ID.
func (w *Workbook) Sheet(id string) (*Sheet, bool) {
	for i := range w.Sheets {
		if w.Sheets[i].ID == id {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// SheetByName returns the first sheet with the given name.
func (w *Workbook) SheetByName(name string) (*Sheet, bool) {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// Active returns the active sheet, falling back to the first one.
func (w *Workbook) Active() (*Sheet, bool) {
	if s, ok := w.Sheet(w.ActiveSheetID); ok {
		return s, true
	}
	if len(w.Sheets) == 0 {
		return nil, false
	}
	return &w.Sheets[0], true
}
