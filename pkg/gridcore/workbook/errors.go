package workbook

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat indicates malformed persisted workbook data.
var ErrInvalidFormat = errors.New("invalid workbook format")

// ErrUnknownSheet indicates a sheet lookup that matched nothing.
var ErrUnknownSheet = errors.New("unknown sheet")

// SheetError reports a problem with one part of one sheet.
type SheetError struct {
	SheetName string
	Component string // "cells", "sizes", "charts", "conditional_formats", "styles"
	Err       error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q (%s): %v", e.SheetName, e.Component, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

func newSheetError(sheetName, component string, err error) *SheetError {
	return &SheetError{
		SheetName: sheetName,
		Component: component,
		Err:       err,
	}
}
