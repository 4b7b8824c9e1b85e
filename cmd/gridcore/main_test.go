package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/workbook"
)

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	wb := workbook.New()
	sheet := &wb.Sheets[0]
	sheet.Data.RowCount = 50
	sheet.Data.ColCount = 10
	sheet.Data.Cells["0-0"] = models.Cell{Value: models.String("1")}
	sheet.Data.Cells["1-0"] = models.Cell{Value: models.String("2")}

	data, err := workbook.ToJSON(wb, false)
	require.NoError(t, err)
	path := filepath.Join(dir, "book.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GRIDCORE_CONFIG", "")
	t.Setenv("GRIDCORE_STREAM_REVEAL_DELAY", "0s")
	t.Setenv("GRIDCORE_STREAM_DEFAULT_DELAY", "0s")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvalCommand(t *testing.T) {
	path := writeWorkbook(t, t.TempDir())

	out, err := execute(t, "eval", path, "=SUM(A1:A2)")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = execute(t, "eval", "--sheet", workbook.DefaultSheetName, path, "=A9")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, err = execute(t, "eval", "--sheet", "Nope", path, "=A1")
	assert.ErrorIs(t, err, workbook.ErrUnknownSheet)
}

func TestStreamCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir)
	entries := filepath.Join(dir, "entries.jsonl")
	require.NoError(t, os.WriteFile(entries, []byte(strings.Join([]string{
		`{"cell":"B1","value":"hello"}`,
		`{"row":2,"col":0,"value":"=SUM(A1:A2)"}`,
	}, "\n")), 0o644))
	outPath := filepath.Join(dir, "out.json")

	_, err := execute(t, "stream", path, entries, "-o", outPath)
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	wb, err := workbook.Load(f)
	require.NoError(t, err)
	cells := wb.Sheets[0].Data.Cells
	assert.Equal(t, "hello", cells["0-1"].Display())
	assert.Equal(t, "3", cells["2-0"].Display())
	assert.Equal(t, "=SUM(A1:A2)", *cells["2-0"].Formula)
}

func TestViewportCommand(t *testing.T) {
	path := writeWorkbook(t, t.TempDir())

	out, err := execute(t, "viewport", path, "--width", "500", "--height", "280", "--buffer-rows", "2", "--buffer-cols", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"window":{"startRow":0,"endRow":15,"startCol":0,"endCol":10}`)
	assert.Contains(t, out, `"usedRange":"A1:A2"`)
}

func TestExportImportCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir)
	xlsxPath := filepath.Join(dir, "book.xlsx")

	_, err := execute(t, "export", path, "-o", xlsxPath)
	require.NoError(t, err)
	require.FileExists(t, xlsxPath)

	out, err := execute(t, "import", xlsxPath)
	require.NoError(t, err)
	wb, err := workbook.Load(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, workbook.DefaultSheetName, wb.Sheets[0].Name)
	assert.Equal(t, "2", wb.Sheets[0].Data.Cells["1-0"].Display())

	_, err = execute(t, "import", filepath.Join(dir, "missing.xlsx"))
	assert.Error(t, err)
}
