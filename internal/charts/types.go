// Package charts renders the dashboard charts as standalone SVG documents.
package charts

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	Theme       Theme
	Padding     float64
	ShowDots    bool
	TickCount   int
	// TickFormat overrides the y axis labels.
	TickFormat func(float64) string
}

// BarOpts customises the grouped bar renderer.
type BarOpts struct {
	Title        string
	Description  string
	SeriesALabel string
	SeriesBLabel string
	Theme        Theme
	Padding      float64
	TickCount    int
	TickFormat   func(float64) string
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)
