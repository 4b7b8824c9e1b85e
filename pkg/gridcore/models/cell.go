// Package models defines the cell value type and the persisted workbook
// structures shared by the gridcore packages.
package models

import (
	"fmt"
	"strings"

	"github.com/tiendc/go-deepcopy"
	"github.com/xuri/nfp"
)

// HAlign is a horizontal alignment keyword.
type HAlign string

const (
	HAlignLeft   HAlign = "left"
	HAlignCenter HAlign = "center"
	HAlignRight  HAlign = "right"
)

// VAlign is a vertical alignment keyword.
type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignMiddle VAlign = "middle"
	VAlignBottom VAlign = "bottom"
)

// BorderStyle is the line style of a single cell edge.
type BorderStyle string

const (
	BorderThin   BorderStyle = "thin"
	BorderMedium BorderStyle = "medium"
	BorderThick  BorderStyle = "thick"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
	BorderDouble BorderStyle = "double"
)

const (
	// MaxIndent is the largest accepted indent level.
	MaxIndent = 15
	// MaxFontSize is the largest accepted font size in points.
	MaxFontSize = 409
)

// Cell is the content of one grid position. Every member is optional: a nil
// pointer means the attribute is unset. When a Cell is used as a partial
// update, a pointer to the zero value clears the attribute.
type Cell struct {
	// Value is the displayed text.
	Value *string `json:"value,omitempty"`
	// Formula is the raw formula text, starting with "=".
	Formula *string `json:"formula,omitempty"`
	// Text holds font and color attributes.
	Text *TextStyle `json:"text,omitempty"`
	// Align holds alignment, indent and wrapping.
	Align *Alignment `json:"align,omitempty"`
	// Border holds the per-edge borders.
	Border *Borders `json:"border,omitempty"`
	// NumberFormat is an Excel number format code such as "0.00".
	NumberFormat *string `json:"numberFormat,omitempty"`
}

// TextStyle groups the font attributes of a cell.
type TextStyle struct {
	Bold          *bool    `json:"bold,omitempty"`
	Italic        *bool    `json:"italic,omitempty"`
	Underline     *bool    `json:"underline,omitempty"`
	Strikethrough *bool    `json:"strikethrough,omitempty"`
	FontFamily    *string  `json:"fontFamily,omitempty"`
	FontSize      *float64 `json:"fontSize,omitempty"`
	Color         *string  `json:"color,omitempty"`
	Background    *string  `json:"background,omitempty"`
}

// Alignment groups the layout attributes of a cell.
type Alignment struct {
	Horizontal *HAlign `json:"horizontal,omitempty"`
	Vertical   *VAlign `json:"vertical,omitempty"`
	Indent     *int    `json:"indent,omitempty"`
	Wrap       *bool   `json:"wrap,omitempty"`
}

// Borders holds one optional edge per side.
type Borders struct {
	Top    *Edge `json:"top,omitempty"`
	Right  *Edge `json:"right,omitempty"`
	Bottom *Edge `json:"bottom,omitempty"`
	Left   *Edge `json:"left,omitempty"`
}

// Edge is a single border line. An Edge with an empty Style is cleared.
type Edge struct {
	Style BorderStyle `json:"style"`
	Color string      `json:"color,omitempty"`
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Display returns the displayed text, or "" when unset.
func (c Cell) Display() string {
	if c.Value == nil {
		return ""
	}
	return *c.Value
}

// FormulaText returns the text shown while editing the cell: the formula
// when one is set, otherwise the displayed value.
func (c Cell) FormulaText() string {
	if c.Formula == nil {
		return c.Display()
	}
	return *c.Formula
}

// IsDefault reports whether the cell carries no value and no attributes.
func (c Cell) IsDefault() bool {
	return c.Value == nil && c.Formula == nil && c.Text == nil &&
		c.Align == nil && c.Border == nil && c.NumberFormat == nil
}

// Merge overlays every member supplied in partial onto c and returns the
// normalized result. c is not modified.
func (c Cell) Merge(partial Cell) Cell {
	out := c.Clone()
	if partial.Value != nil {
		out.Value = String(*partial.Value)
	}
	if partial.Formula != nil {
		out.Formula = String(*partial.Formula)
	}
	if partial.NumberFormat != nil {
		out.NumberFormat = String(*partial.NumberFormat)
	}
	if partial.Text != nil {
		if out.Text == nil {
			out.Text = &TextStyle{}
		}
		out.Text.merge(partial.Text)
	}
	if partial.Align != nil {
		if out.Align == nil {
			out.Align = &Alignment{}
		}
		out.Align.merge(partial.Align)
	}
	if partial.Border != nil {
		if out.Border == nil {
			out.Border = &Borders{}
		}
		out.Border.merge(partial.Border)
	}
	return out.Normalize()
}

// Normalize drops zero-valued members so that an attribute that was
// cleared is indistinguishable from one that was never set.
func (c Cell) Normalize() Cell {
	c.Value = nonEmpty(c.Value)
	c.Formula = nonEmpty(c.Formula)
	c.NumberFormat = nonEmpty(c.NumberFormat)
	if c.Text != nil && c.Text.normalize() {
		c.Text = nil
	}
	if c.Align != nil && c.Align.normalize() {
		c.Align = nil
	}
	if c.Border != nil && c.Border.normalize() {
		c.Border = nil
	}
	return c
}

// Clone returns a deep copy of c.
func (c Cell) Clone() Cell {
	var out Cell
	if err := deepcopy.Copy(&out, &c); err != nil {
		// Cell only holds pointers to plain values, so this cannot fail
		// short of a library bug.
		panic(fmt.Sprintf("models: clone cell: %v", err))
	}
	return out
}

// Validate checks the presentation attributes of c.
func (c Cell) Validate() error {
	if c.Formula != nil && *c.Formula != "" && !strings.HasPrefix(*c.Formula, "=") {
		return fmt.Errorf("%w: formula %q must start with '='", ErrInvalidAttribute, *c.Formula)
	}
	if c.Text != nil {
		if err := c.Text.validate(); err != nil {
			return err
		}
	}
	if c.Align != nil {
		if err := c.Align.validate(); err != nil {
			return err
		}
	}
	if c.Border != nil {
		for side, e := range c.Border.edges() {
			if e == nil {
				continue
			}
			if err := e.validate(); err != nil {
				return fmt.Errorf("%s border: %w", side, err)
			}
		}
	}
	if c.NumberFormat != nil && *c.NumberFormat != "" {
		if err := ValidateNumberFormat(*c.NumberFormat); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNumberFormat parses code as an Excel number format.
func ValidateNumberFormat(code string) error {
	ps := nfp.NumberFormatParser()
	sections := ps.Parse(code)
	if len(sections) == 0 {
		return fmt.Errorf("%w: empty number format %q", ErrInvalidAttribute, code)
	}
	for _, section := range sections {
		for _, token := range section.Items {
			if token.TType == nfp.TokenTypeUnknown {
				return fmt.Errorf("%w: number format %q: unexpected %q", ErrInvalidAttribute, code, token.TValue)
			}
		}
	}
	return nil
}

func (t *TextStyle) merge(p *TextStyle) {
	if p.Bold != nil {
		t.Bold = Bool(*p.Bold)
	}
	if p.Italic != nil {
		t.Italic = Bool(*p.Italic)
	}
	if p.Underline != nil {
		t.Underline = Bool(*p.Underline)
	}
	if p.Strikethrough != nil {
		t.Strikethrough = Bool(*p.Strikethrough)
	}
	if p.FontFamily != nil {
		t.FontFamily = String(*p.FontFamily)
	}
	if p.FontSize != nil {
		t.FontSize = Float(*p.FontSize)
	}
	if p.Color != nil {
		t.Color = String(*p.Color)
	}
	if p.Background != nil {
		t.Background = String(*p.Background)
	}
}

// normalize clears zero members and reports whether t is now empty.
func (t *TextStyle) normalize() bool {
	t.Bold = nonFalse(t.Bold)
	t.Italic = nonFalse(t.Italic)
	t.Underline = nonFalse(t.Underline)
	t.Strikethrough = nonFalse(t.Strikethrough)
	t.FontFamily = nonEmpty(t.FontFamily)
	t.Color = nonEmpty(t.Color)
	t.Background = nonEmpty(t.Background)
	if t.FontSize != nil && *t.FontSize == 0 {
		t.FontSize = nil
	}
	return t.Bold == nil && t.Italic == nil && t.Underline == nil && t.Strikethrough == nil &&
		t.FontFamily == nil && t.FontSize == nil && t.Color == nil && t.Background == nil
}

func (t *TextStyle) validate() error {
	if t.FontSize != nil && (*t.FontSize < 0 || *t.FontSize > MaxFontSize) {
		return fmt.Errorf("%w: font size %v out of range", ErrInvalidAttribute, *t.FontSize)
	}
	for _, color := range []*string{t.Color, t.Background} {
		if color != nil && *color != "" && !isHexColor(*color) {
			return fmt.Errorf("%w: color %q", ErrInvalidAttribute, *color)
		}
	}
	return nil
}

func (a *Alignment) merge(p *Alignment) {
	if p.Horizontal != nil {
		h := *p.Horizontal
		a.Horizontal = &h
	}
	if p.Vertical != nil {
		v := *p.Vertical
		a.Vertical = &v
	}
	if p.Indent != nil {
		a.Indent = Int(*p.Indent)
	}
	if p.Wrap != nil {
		a.Wrap = Bool(*p.Wrap)
	}
}

func (a *Alignment) normalize() bool {
	if a.Horizontal != nil && *a.Horizontal == "" {
		a.Horizontal = nil
	}
	if a.Vertical != nil && *a.Vertical == "" {
		a.Vertical = nil
	}
	if a.Indent != nil && *a.Indent == 0 {
		a.Indent = nil
	}
	a.Wrap = nonFalse(a.Wrap)
	return a.Horizontal == nil && a.Vertical == nil && a.Indent == nil && a.Wrap == nil
}

func (a *Alignment) validate() error {
	if a.Horizontal != nil {
		switch *a.Horizontal {
		case "", HAlignLeft, HAlignCenter, HAlignRight:
		default:
			return fmt.Errorf("%w: horizontal alignment %q", ErrInvalidAttribute, *a.Horizontal)
		}
	}
	if a.Vertical != nil {
		switch *a.Vertical {
		case "", VAlignTop, VAlignMiddle, VAlignBottom:
		default:
			return fmt.Errorf("%w: vertical alignment %q", ErrInvalidAttribute, *a.Vertical)
		}
	}
	if a.Indent != nil && (*a.Indent < 0 || *a.Indent > MaxIndent) {
		return fmt.Errorf("%w: indent %d out of range", ErrInvalidAttribute, *a.Indent)
	}
	return nil
}

func (b *Borders) merge(p *Borders) {
	if p.Top != nil {
		e := *p.Top
		b.Top = &e
	}
	if p.Right != nil {
		e := *p.Right
		b.Right = &e
	}
	if p.Bottom != nil {
		e := *p.Bottom
		b.Bottom = &e
	}
	if p.Left != nil {
		e := *p.Left
		b.Left = &e
	}
}

func (b *Borders) normalize() bool {
	for _, e := range []**Edge{&b.Top, &b.Right, &b.Bottom, &b.Left} {
		if *e != nil && (*e).Style == "" {
			*e = nil
		}
	}
	return b.Top == nil && b.Right == nil && b.Bottom == nil && b.Left == nil
}

func (b *Borders) edges() map[string]*Edge {
	return map[string]*Edge{"top": b.Top, "right": b.Right, "bottom": b.Bottom, "left": b.Left}
}

func (e *Edge) validate() error {
	switch e.Style {
	case "", BorderThin, BorderMedium, BorderThick, BorderDashed, BorderDotted, BorderDouble:
	default:
		return fmt.Errorf("%w: border style %q", ErrInvalidAttribute, e.Style)
	}
	if e.Color != "" && !isHexColor(e.Color) {
		return fmt.Errorf("%w: border color %q", ErrInvalidAttribute, e.Color)
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nonFalse(b *bool) *bool {
	if b == nil || !*b {
		return nil
	}
	return b
}

// isHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func isHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 && len(hex) != 8 {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
