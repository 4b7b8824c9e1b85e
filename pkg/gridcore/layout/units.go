package layout

import "math"

// Display units are CSS pixels at 96 DPI. xlsx stores column widths in
// characters of the default font's maximum digit width and row heights in
// points.
const (
	// PixelsPerInch is the display resolution.
	PixelsPerInch = 96
	// PointsPerInch is the typographic point resolution.
	PointsPerInch = 72
	// MaxDigitWidth is the pixel width of the widest digit of the default
	// xlsx font (Calibri 11).
	MaxDigitWidth = 7
	// ColumnPadding is the cell margin Excel adds to every column, in pixels.
	ColumnPadding = 5
)

// PixelsToColumnChars converts a display width to an xlsx column width,
// rounded to two decimals.
func PixelsToColumnChars(px float64) float64 {
	if px <= ColumnPadding {
		return 0
	}
	return math.Round((px-ColumnPadding)/MaxDigitWidth*100) / 100
}

// ColumnCharsToPixels converts an xlsx column width to whole display pixels.
func ColumnCharsToPixels(chars float64) float64 {
	if chars <= 0 {
		return 0
	}
	return math.Round(chars*MaxDigitWidth + ColumnPadding)
}

// PixelsToPoints converts a display height to points.
func PixelsToPoints(px float64) float64 {
	return px * PointsPerInch / PixelsPerInch
}

// PointsToPixels converts a height in points to whole display pixels.
func PointsToPixels(pt float64) float64 {
	return math.Round(pt * PixelsPerInch / PointsPerInch)
}
