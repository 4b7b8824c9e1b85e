package workbook

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/layout"
	"github.com/ukaji3/gridcore-go/pkg/gridcore/models"
)

// chartElements maps plot area elements to chart types. Types without a
// counterpart are skipped on import.
var chartElements = map[string]models.ChartType{
	"barChart":  models.ChartBar,
	"lineChart": models.ChartLine,
	"pieChart":  models.ChartPie,
	"areaChart": models.ChartArea,
}

// anchor is a cell position with an offset in EMU.
type anchor struct {
	col, colOff int
	row, rowOff int
}

// drawnChart is a chart frame found in a drawing part.
type drawnChart struct {
	name     string
	part     string
	from, to anchor
}

// parsedChart is the content of a chart part.
type parsedChart struct {
	typ    models.ChartType
	title  string
	series []models.ChartSeries
}

// sheetCharts maps each sheet name to the charts anchored on it. Parts that
// cannot be read are skipped.
func sheetCharts(r *zip.Reader) map[string][]drawnChart {
	result := make(map[string][]drawnChart)

	workbookXML := readPart(r, "xl/workbook.xml")
	wbRelsXML := readPart(r, "xl/_rels/workbook.xml.rels")
	if workbookXML == nil || wbRelsXML == nil {
		return result
	}

	sheetIDs := make(map[string]string) // rId -> sheet name
	eachElement(workbookXML, "sheet", func(attrs map[string]string) {
		if attrs["name"] != "" && attrs["id"] != "" {
			sheetIDs[attrs["id"]] = attrs["name"]
		}
	})

	sheetParts := make(map[string]string) // sheet name -> part
	eachElement(wbRelsXML, "Relationship", func(attrs map[string]string) {
		if name, ok := sheetIDs[attrs["Id"]]; ok && strings.Contains(strings.ToLower(attrs["Target"]), "worksheet") {
			sheetParts[name] = resolvePart(attrs["Target"], "xl")
		}
	})

	for name, part := range sheetParts {
		relsXML := readPart(r, relsPart(part))
		if relsXML == nil {
			continue
		}
		var drawing string
		eachElement(relsXML, "Relationship", func(attrs map[string]string) {
			if drawing == "" && strings.HasSuffix(strings.ToLower(attrs["Type"]), "/drawing") {
				drawing = resolvePart(attrs["Target"], "xl/worksheets")
			}
		})
		if drawing == "" {
			continue
		}
		if charts := drawingCharts(r, drawing); len(charts) > 0 {
			result[name] = charts
		}
	}
	return result
}

// drawingCharts returns the chart frames of a drawing part in document order.
func drawingCharts(r *zip.Reader, drawing string) []drawnChart {
	drawingXML := readPart(r, drawing)
	relsXML := readPart(r, relsPart(drawing))
	if drawingXML == nil || relsXML == nil {
		return nil
	}

	targets := make(map[string]string) // rId -> chart part
	eachElement(relsXML, "Relationship", func(attrs map[string]string) {
		if strings.HasSuffix(strings.ToLower(attrs["Type"]), "/chart") {
			targets[attrs["Id"]] = resolvePart(attrs["Target"], "xl/drawings")
		}
	})

	var result []drawnChart
	decoder := xml.NewDecoder(strings.NewReader(string(drawingXML)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "twoCellAnchor" {
			c, rID := parseTwoCellAnchor(decoder)
			if part, ok := targets[rID]; ok {
				c.part = part
				result = append(result, c)
			}
		}
	}
	return result
}

// parseTwoCellAnchor reads a twoCellAnchor up to its end element and returns
// the frame with the relationship ID of its chart, if any.
func parseTwoCellAnchor(decoder *xml.Decoder) (drawnChart, string) {
	var c drawnChart
	var rID string
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "from":
				c.from = parseAnchor(decoder)
				depth--
			case "to":
				c.to = parseAnchor(decoder)
				depth--
			case "cNvPr":
				c.name = attr(t, "name")
			case "chart":
				rID = attr(t, "id")
			}
		case xml.EndElement:
			depth--
		}
	}
	return c, rID
}

func parseAnchor(decoder *xml.Decoder) anchor {
	var a anchor
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			txt, err := readElementText(decoder)
			depth--
			if err != nil {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(txt))
			if err != nil {
				continue
			}
			switch t.Name.Local {
			case "col":
				a.col = v
			case "colOff":
				a.colOff = v
			case "row":
				a.row = v
			case "rowOff":
				a.rowOff = v
			}
		case xml.EndElement:
			depth--
		}
	}
	return a
}

// parseChartPart reads the type, title and series of a chart part. ok is
// false for chart types that have no counterpart.
func parseChartPart(data []byte) (parsedChart, bool) {
	var pc parsedChart
	found := false
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "title":
			if pc.title == "" && !found {
				pc.title = parseRichText(decoder)
			}
		default:
			if typ, ok := chartElements[se.Name.Local]; ok && !found {
				pc.typ = typ
				pc.series = parsePlotSeries(decoder)
				found = true
			}
		}
	}
	return pc, found
}

// parseRichText returns the text runs below the current element.
func parseRichText(decoder *xml.Decoder) string {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "t" {
				if txt, err := readElementText(decoder); err == nil {
					b.WriteString(txt)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	return strings.TrimSpace(b.String())
}

func parsePlotSeries(decoder *xml.Decoder) []models.ChartSeries {
	var series []models.ChartSeries
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "ser" {
				series = append(series, parseSeries(decoder))
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	return series
}

func parseSeries(decoder *xml.Decoder) models.ChartSeries {
	var s models.ChartSeries
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "tx":
				s.Name = unquote(firstFormulaOrValue(decoder))
				depth--
			case "val":
				s.Range = relativeRange(firstFormulaOrValue(decoder))
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	return s
}

// firstFormulaOrValue returns the text of the first f or v element below
// the current element.
func firstFormulaOrValue(decoder *xml.Decoder) string {
	var out string
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if (t.Name.Local == "f" || t.Name.Local == "v") && out == "" {
				if txt, err := readElementText(decoder); err == nil {
					out = strings.TrimSpace(txt)
				}
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	return out
}

// readCharts converts the charts anchored on sheet. Positions are taken
// from the sheet's own layout; sizes are measured the way excelize measures
// them when it anchors a chart.
func (rd *xlsxReader) readCharts(sheet *models.Sheet, ix *layout.Index) {
	for _, dc := range rd.charts[sheet.Name] {
		data := readPart(rd.zip, dc.part)
		if data == nil {
			continue
		}
		pc, ok := parseChartPart(data)
		if !ok {
			rd.log.Debug("unsupported chart", slog.String("sheet", sheet.Name), slog.String("chart", dc.name))
			continue
		}

		w, h, err := rd.anchorSize(sheet.Name, dc.from, dc.to)
		if err != nil {
			rd.log.Warn("skipping chart", slog.String("sheet", sheet.Name), slog.String("chart", dc.name), slog.Any("error", err))
			continue
		}
		chart := models.Chart{
			ID:     uuid.NewString(),
			Type:   pc.typ,
			Title:  pc.title,
			Series: pc.series,
			L:      int(math.Round(ix.ColumnLeft(dc.from.col) + emuToPixels(dc.from.colOff))),
			T:      int(math.Round(ix.RowTop(dc.from.row) + emuToPixels(dc.from.rowOff))),
			W:      w,
			H:      h,
		}
		chart.DataRange = seriesBounds(pc.series)
		sheet.Charts = append(sheet.Charts, chart)
	}
}

// anchorSize measures the span between two anchors in excelize's pixel
// model.
func (rd *xlsxReader) anchorSize(sheet string, from, to anchor) (int, int, error) {
	w := emuToPixels(to.colOff) - emuToPixels(from.colOff)
	for col := from.col; col < to.col; col++ {
		chars, err := rd.f.GetColWidth(sheet, grid.ColumnName(col))
		if err != nil {
			return 0, 0, err
		}
		w += float64(int(chars*8 + 0.5))
	}
	h := emuToPixels(to.rowOff) - emuToPixels(from.rowOff)
	for row := from.row; row < to.row; row++ {
		pt, err := rd.f.GetRowHeight(sheet, row+1)
		if err != nil {
			return 0, 0, err
		}
		h += math.Ceil(4.0 / 3.4 * pt)
	}
	return int(math.Round(w)), int(math.Round(h)), nil
}

// seriesBounds returns the smallest range covering every series range.
func seriesBounds(series []models.ChartSeries) string {
	var bounds grid.Range
	found := false
	for _, s := range series {
		rng, err := grid.ParseRange(s.Range)
		if err != nil {
			continue
		}
		if !found {
			bounds, found = rng, true
			continue
		}
		bounds.Start.Row = min(bounds.Start.Row, rng.Start.Row)
		bounds.Start.Col = min(bounds.Start.Col, rng.Start.Col)
		bounds.End.Row = max(bounds.End.Row, rng.End.Row)
		bounds.End.Col = max(bounds.End.Col, rng.End.Col)
	}
	if !found {
		return ""
	}
	return bounds.String()
}

// relativeRange strips the sheet qualifier and absolute markers from a
// reference such as 'Sheet 1'!$A$1:$A$3.
func relativeRange(ref string) string {
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.ReplaceAll(ref, "$", "")
}

func emuToPixels(emu int) float64 {
	return float64(emu) / float64(excelize.EMU)
}

func readPart(r *zip.Reader, name string) []byte {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return data
	}
	return nil
}

// relsPart returns the relationships part of part, e.g.
// xl/drawings/_rels/drawing1.xml.rels for xl/drawings/drawing1.xml.
func relsPart(part string) string {
	dir, file := "", part
	if i := strings.LastIndex(part, "/"); i >= 0 {
		dir, file = part[:i+1], part[i+1:]
	}
	return dir + "_rels/" + file + ".rels"
}

// resolvePart resolves a relationship target relative to baseDir.
func resolvePart(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	parts := strings.Split(baseDir, "/")
	for strings.HasPrefix(target, "../") {
		target = strings.TrimPrefix(target, "../")
		if len(parts) > 0 {
			parts = parts[:len(parts)-1]
		}
	}
	if len(parts) == 0 {
		return target
	}
	return strings.Join(parts, "/") + "/" + target
}

// eachElement calls fn with the attributes of every element named local.
func eachElement(data []byte, local string, fn func(attrs map[string]string)) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			return
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != local {
			continue
		}
		attrs := make(map[string]string, len(se.Attr))
		for _, a := range se.Attr {
			attrs[a.Name.Local] = a.Value
		}
		fn(attrs)
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func readElementText(decoder *xml.Decoder) (string, error) {
	var text strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text.String(), nil
}
