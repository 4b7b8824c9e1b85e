package workbook

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// Fonts matching the xlsx defaults are not carried into cell attributes.
const (
	defaultFontFamily = "Calibri"
	defaultFontSize   = 11
)

// borderStyleIndex maps border styles to excelize border style indices.
var borderStyleIndex = map[models.BorderStyle]int{
	models.BorderThin:   1,
	models.BorderMedium: 2,
	models.BorderDashed: 3,
	models.BorderDotted: 4,
	models.BorderThick:  5,
	models.BorderDouble: 6,
}

// builtinNumFmt lists the built-in number formats likely to appear in files
// written by spreadsheet applications.
var builtinNumFmt = map[int]string{
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	14: "m/d/yyyy",
	49: "@",
}

// hasStyle reports whether c carries any attribute stored in an xlsx style.
func hasStyle(c models.Cell) bool {
	return c.Text != nil || c.Align != nil || c.Border != nil || c.NumberFormat != nil
}

// toStyle converts the presentation attributes of c to an excelize style.
func toStyle(c models.Cell) *excelize.Style {
	style := &excelize.Style{}
	if t := c.Text; t != nil {
		font := &excelize.Font{
			Bold:   deref(t.Bold),
			Italic: deref(t.Italic),
			Strike: deref(t.Strikethrough),
			Family: deref(t.FontFamily),
			Size:   deref(t.FontSize),
			Color:  xlsxColor(deref(t.Color)),
		}
		if deref(t.Underline) {
			font.Underline = "single"
		}
		style.Font = font
		if bg := xlsxColor(deref(t.Background)); bg != "" {
			style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{bg}}
		}
	}
	if a := c.Align; a != nil {
		align := &excelize.Alignment{
			Indent:   deref(a.Indent),
			WrapText: deref(a.Wrap),
		}
		if a.Horizontal != nil {
			align.Horizontal = string(*a.Horizontal)
		}
		if a.Vertical != nil {
			align.Vertical = string(*a.Vertical)
			if *a.Vertical == models.VAlignMiddle {
				align.Vertical = "center"
			}
		}
		style.Alignment = align
	}
	if b := c.Border; b != nil {
		sides := []struct {
			name string
			edge *models.Edge
		}{{"left", b.Left}, {"right", b.Right}, {"top", b.Top}, {"bottom", b.Bottom}}
		for _, side := range sides {
			if side.edge == nil {
				continue
			}
			style.Border = append(style.Border, excelize.Border{
				Type:  side.name,
				Color: xlsxColor(side.edge.Color),
				Style: borderStyleIndex[side.edge.Style],
			})
		}
	}
	if c.NumberFormat != nil {
		code := *c.NumberFormat
		style.CustomNumFmt = &code
	}
	return style
}

// fromStyle converts an excelize style back to cell attributes.
func fromStyle(style *excelize.Style) models.Cell {
	var c models.Cell
	text := &models.TextStyle{}
	if f := style.Font; f != nil {
		text.Bold = optBool(f.Bold)
		text.Italic = optBool(f.Italic)
		text.Strikethrough = optBool(f.Strike)
		text.Underline = optBool(f.Underline != "" && f.Underline != "none")
		if f.Family != "" && f.Family != defaultFontFamily {
			text.FontFamily = models.String(f.Family)
		}
		if f.Size != 0 && f.Size != defaultFontSize {
			text.FontSize = models.Float(f.Size)
		}
		if color := hexColor(f.Color); color != "" {
			text.Color = models.String(color)
		}
	}
	if style.Fill.Type == "pattern" && style.Fill.Pattern == 1 && len(style.Fill.Color) > 0 {
		if bg := hexColor(style.Fill.Color[0]); bg != "" {
			text.Background = models.String(bg)
		}
	}
	c.Text = text

	if a := style.Alignment; a != nil {
		align := &models.Alignment{Wrap: optBool(a.WrapText)}
		switch a.Horizontal {
		case "left", "center", "right":
			h := models.HAlign(a.Horizontal)
			align.Horizontal = &h
		}
		switch a.Vertical {
		case "top", "bottom":
			v := models.VAlign(a.Vertical)
			align.Vertical = &v
		case "center":
			v := models.VAlignMiddle
			align.Vertical = &v
		}
		if a.Indent > 0 {
			align.Indent = models.Int(min(a.Indent, models.MaxIndent))
		}
		c.Align = align
	}

	if len(style.Border) > 0 {
		borders := &models.Borders{}
		for _, b := range style.Border {
			e := &models.Edge{Style: borderStyleName(b.Style), Color: hexColor(b.Color)}
			switch b.Type {
			case "top":
				borders.Top = e
			case "right":
				borders.Right = e
			case "bottom":
				borders.Bottom = e
			case "left":
				borders.Left = e
			}
		}
		c.Border = borders
	}

	switch {
	case style.CustomNumFmt != nil:
		c.NumberFormat = models.String(*style.CustomNumFmt)
	case style.NumFmt != 0:
		if code, ok := builtinNumFmt[style.NumFmt]; ok {
			c.NumberFormat = models.String(code)
		}
	}
	return c.Normalize()
}

// borderStyleName maps an excelize border style index to the closest
// supported style.
func borderStyleName(idx int) models.BorderStyle {
	for name, i := range borderStyleIndex {
		if i == idx {
			return name
		}
	}
	switch idx {
	case 0:
		return ""
	case 8, 9, 10, 11, 12, 13:
		return models.BorderDashed
	default:
		return models.BorderThin
	}
}

// xlsxColor converts "#rgb", "#rrggbb" or "#rrggbbaa" to the "#RRGGBB"
// form accepted by excelize.
func xlsxColor(s string) string {
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	case 8:
		hex = hex[:6]
	default:
		return ""
	}
	return "#" + strings.ToUpper(hex)
}

// hexColor converts an excelize "RRGGBB" or "AARRGGBB" color to "#rrggbb".
func hexColor(s string) string {
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 6:
	case 8:
		hex = hex[2:]
	default:
		return ""
	}
	return "#" + strings.ToLower(hex)
}

func optBool(b bool) *bool {
	if !b {
		return nil
	}
	return models.Bool(true)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
