package models

// ChartType names a chart kind. The core stores charts as metadata only.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
	ChartArea ChartType = "area"
)

// ChartSeries represents one plotted series.
type ChartSeries struct {
	// Name is the series display name.
	Name string `json:"name"`
	// Range is the A1 range holding the series values.
	Range string `json:"range"`
}

// Chart represents a chart definition anchored on a sheet.
type Chart struct {
	// ID is the chart identifier.
	ID string `json:"id"`
	// Type is the chart kind.
	Type ChartType `json:"type"`
	// Title is the chart title.
	Title string `json:"title,omitempty"`
	// DataRange is the A1 range the chart was created from.
	DataRange string `json:"dataRange"`
	// Series is the list of series included in the chart.
	Series []ChartSeries `json:"series,omitempty"`
	// L is the left offset in pixels.
	L int `json:"l"`
	// T is the top offset in pixels.
	T int `json:"t"`
	// W is the chart width in pixels.
	W int `json:"w"`
	// H is the chart height in pixels.
	H int `json:"h"`
}
