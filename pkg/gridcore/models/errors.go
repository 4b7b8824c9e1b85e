package models

import "errors"

// ErrInvalidAttribute indicates a cell attribute outside its allowed values.
var ErrInvalidAttribute = errors.New("invalid cell attribute")
