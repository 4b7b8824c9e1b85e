package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverlaysSuppliedFields(t *testing.T) {
	base := Cell{
		Value: String("10"),
		Text:  &TextStyle{Bold: Bool(true), Color: String("#000")},
	}

	h := HAlignRight
	merged := base.Merge(Cell{
		Text:  &TextStyle{Italic: Bool(true)},
		Align: &Alignment{Horizontal: &h},
	})

	assert.Equal(t, "10", merged.Display())
	require.NotNil(t, merged.Text)
	assert.True(t, *merged.Text.Bold)
	assert.True(t, *merged.Text.Italic)
	assert.Equal(t, "#000", *merged.Text.Color)
	require.NotNil(t, merged.Align)
	assert.Equal(t, HAlignRight, *merged.Align.Horizontal)

	assert.Nil(t, base.Text.Italic, "receiver must not change")
	assert.Nil(t, base.Align)
}

func TestMergeZeroValuesClear(t *testing.T) {
	base := Cell{
		Value:        String("x"),
		Formula:      String("=A1"),
		NumberFormat: String("0.00"),
		Text:         &TextStyle{Bold: Bool(true)},
		Border:       &Borders{Top: &Edge{Style: BorderThin}},
	}

	merged := base.Merge(Cell{
		Value:        String(""),
		Formula:      String(""),
		NumberFormat: String(""),
		Text:         &TextStyle{Bold: Bool(false)},
		Border:       &Borders{Top: &Edge{}},
	})

	assert.True(t, merged.IsDefault(), "got %+v", merged)
}

func TestMergeDoesNotAliasPartial(t *testing.T) {
	partial := Cell{Value: String("a"), Border: &Borders{Left: &Edge{Style: BorderDouble}}}
	merged := Cell{}.Merge(partial)

	*partial.Value = "b"
	partial.Border.Left.Style = BorderThick

	assert.Equal(t, "a", merged.Display())
	assert.Equal(t, BorderDouble, merged.Border.Left.Style)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Cell{
		Value: String("v"),
		Text:  &TextStyle{FontSize: Float(12)},
		Align: &Alignment{Indent: Int(2)},
	}

	clone := orig.Clone()
	*clone.Value = "changed"
	*clone.Text.FontSize = 20
	*clone.Align.Indent = 4

	assert.Equal(t, "v", *orig.Value)
	assert.Equal(t, 12.0, *orig.Text.FontSize)
	assert.Equal(t, 2, *orig.Align.Indent)
}

func TestFormulaText(t *testing.T) {
	assert.Equal(t, "plain", Cell{Value: String("plain")}.FormulaText())
	assert.Equal(t, "=SUM(A1:A3)", Cell{Value: String("6"), Formula: String("=SUM(A1:A3)")}.FormulaText())
	assert.Equal(t, "", Cell{}.FormulaText())
}

func TestValidate(t *testing.T) {
	badH := HAlign("justify")
	tests := []struct {
		name    string
		cell    Cell
		wantErr bool
	}{
		{"empty", Cell{}, false},
		{"full", Cell{
			Formula:      String("=A1"),
			Text:         &TextStyle{FontSize: Float(11), Color: String("#1a2B3c"), Background: String("#ffffff80")},
			Align:        &Alignment{Indent: Int(MaxIndent)},
			Border:       &Borders{Bottom: &Edge{Style: BorderDashed, Color: "#abc"}},
			NumberFormat: String("#,##0.00"),
		}, false},
		{"formula without equals", Cell{Formula: String("SUM(A1)")}, true},
		{"bad color", Cell{Text: &TextStyle{Color: String("red")}}, true},
		{"short hex", Cell{Text: &TextStyle{Background: String("#ab")}}, true},
		{"font too large", Cell{Text: &TextStyle{FontSize: Float(MaxFontSize + 1)}}, true},
		{"indent too large", Cell{Align: &Alignment{Indent: Int(MaxIndent + 1)}}, true},
		{"negative indent", Cell{Align: &Alignment{Indent: Int(-1)}}, true},
		{"unknown alignment", Cell{Align: &Alignment{Horizontal: &badH}}, true},
		{"unknown border", Cell{Border: &Borders{Right: &Edge{Style: "wavy"}}}, true},
		{"bad number format", Cell{NumberFormat: String("[Zork]0.00")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cell.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAttribute)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWorkbookLookup(t *testing.T) {
	wb := Workbook{
		Sheets: []Sheet{
			{ID: "s1", Name: "Sheet1"},
			{ID: "s2", Name: "Data"},
		},
		ActiveSheetID: "s2",
	}

	active, ok := wb.Active()
	require.True(t, ok)
	assert.Equal(t, "Data", active.Name)

	byName, ok := wb.SheetByName("Sheet1")
	require.True(t, ok)
	assert.Equal(t, "s1", byName.ID)

	_, ok = wb.Sheet("missing")
	assert.False(t, ok)

	wb.ActiveSheetID = "gone"
	active, ok = wb.Active()
	require.True(t, ok)
	assert.Equal(t, "s1", active.ID)
}
