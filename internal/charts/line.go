package charts

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Line renders a line chart of series over labels.
func Line(width, height int, series []float64, labels []string, opts LineOpts) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("charts: series required")
	}
	if len(series) != len(labels) {
		return nil, fmt.Errorf("charts: %d labels for %d points", len(labels), len(series))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	tickFormat := opts.TickFormat
	if tickFormat == nil {
		tickFormat = formatTick
	}
	theme := opts.Theme.orDefault()
	stroke := theme.ColorFor(0)

	plotW := float64(width) - 2*padding
	plotH := float64(height) - 2*padding
	if plotW <= 0 || plotH <= 0 {
		return nil, fmt.Errorf("charts: viewport too small")
	}

	lo, hi := bounds(series)
	lo = math.Min(lo, 0)
	hi = math.Max(hi, 0)
	if almostEqual(lo, hi) {
		hi = lo + 1
	}
	scale := plotH / (hi - lo)
	xAt := func(i int) float64 {
		if len(series) == 1 {
			return padding + plotW/2
		}
		return padding + float64(i)*plotW/float64(len(series)-1)
	}
	yAt := func(v float64) float64 {
		return padding + plotH - (v-lo)*scale
	}

	var path strings.Builder
	for i, v := range series {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			path.WriteByte(' ')
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xAt(i), yAt(v))
	}

	titleID := makeID(opts.Title, "line-title")
	descID := makeID(opts.Title, "line-desc")

	var b strings.Builder
	openSVG(&b, width, height, theme, titleID, descID, fallback(opts.Title, "Line chart"), fallback(opts.Description, "Trend data"))
	writeGrid(&b, padding, plotW, plotH, lo, hi, ticks, theme, tickFormat)
	writeAxes(&b, padding, plotW, plotH, padding+plotH, theme)

	base := padding + plotH
	fmt.Fprintf(&b, "<path d=\"%s L%.2f %.2f L%.2f %.2f Z\" fill=\"%s\" stroke=\"none\" aria-hidden=\"true\"></path>",
		path.String(), xAt(len(series)-1), base, xAt(0), base, theme.Fill)
	fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\"></path>", path.String(), stroke)

	if opts.ShowDots {
		for i, v := range series {
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"><title>%s: %s</title></circle>",
				xAt(i), yAt(v), stroke, template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(tickFormat(v)))
		}
	}

	every := labelStride(len(labels), plotW)
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>",
			xAt(i), base+14, theme.Axis, template.HTMLEscapeString(label))
	}

	b.WriteString("</svg>")
	return []byte(b.String()), nil
}

func openSVG(b *strings.Builder, width, height int, theme Theme, titleID, descID, title, desc string) {
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(title))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(desc))
	fmt.Fprintf(b, "<rect width=\"100%%\" height=\"100%%\" fill=\"%s\"></rect>", theme.Background)
}

func writeGrid(b *strings.Builder, padding, plotW, plotH, lo, hi float64, ticks int, theme Theme, format func(float64) string) {
	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		y := padding + plotH - ratio*plotH
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>",
			padding, y, padding+plotW, y, theme.Grid)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>",
			padding-6, y+4, theme.Axis, template.HTMLEscapeString(format(lo+(hi-lo)*ratio)))
	}
}

func writeAxes(b *strings.Builder, padding, plotW, plotH, zeroY float64, theme Theme) {
	fmt.Fprintf(b, "<g stroke=\"%s\" aria-label=\"Axes\">", theme.Axis)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, padding+plotH)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, zeroY, padding+plotW, zeroY)
	b.WriteString("</g>")
}

// labelStride thins x labels so roughly one fits per 48px.
func labelStride(n int, plotW float64) int {
	fit := int(plotW / 48)
	if fit < 1 {
		fit = 1
	}
	if n <= fit {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(fit)))
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func bounds(series []float64) (float64, float64) {
	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
