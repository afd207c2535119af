package charts

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a grouped bar chart comparing up to two series.
func Bars(width, height int, seriesA, seriesB []float64, labels []string, opts BarOpts) ([]byte, error) {
	if len(seriesA) == 0 && len(seriesB) == 0 {
		return nil, fmt.Errorf("charts: at least one series required")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("charts: labels required")
	}
	if len(seriesA) > 0 && len(seriesA) != len(labels) {
		return nil, fmt.Errorf("charts: series A has %d points for %d labels", len(seriesA), len(labels))
	}
	if len(seriesB) > 0 && len(seriesB) != len(labels) {
		return nil, fmt.Errorf("charts: series B has %d points for %d labels", len(seriesB), len(labels))
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
	colorA, colorB := theme.ColorFor(0), theme.ColorFor(1)
	labelA := fallback(opts.SeriesALabel, "Series A")
	labelB := fallback(opts.SeriesBLabel, "Series B")

	plotW := float64(width) - 2*padding
	plotH := float64(height) - 2*padding
	if plotW <= 0 || plotH <= 0 {
		return nil, fmt.Errorf("charts: viewport too small")
	}

	lo, hi := 0.0, 0.0
	for _, s := range [][]float64{seriesA, seriesB} {
		if len(s) == 0 {
			continue
		}
		l, h := bounds(s)
		lo = math.Min(lo, l)
		hi = math.Max(hi, h)
	}
	if almostEqual(lo, hi) {
		hi = lo + 1
	}
	scale := plotH / (hi - lo)
	bottom := padding + plotH
	zeroY := bottom + lo*scale

	groupW := plotW / float64(len(labels))
	barW := groupW / 3

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	openSVG(&b, width, height, theme, titleID, descID, fallback(opts.Title, "Bar chart"), fallback(opts.Description, "Grouped bar comparison"))
	writeGrid(&b, padding, plotW, plotH, lo, hi, ticks, theme, tickFormat)
	writeAxes(&b, padding, plotW, plotH, zeroY, theme)

	every := labelStride(len(labels), plotW)
	for i, label := range labels {
		x := padding + float64(i)*groupW
		if len(seriesA) > 0 {
			y, h := barRect(seriesA[i], scale, zeroY, padding, bottom)
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"><title>%s %s: %s</title></rect>",
				x+barW*0.3, y, barW, h, colorA, template.HTMLEscapeString(labelA), template.HTMLEscapeString(label), template.HTMLEscapeString(tickFormat(seriesA[i])))
		}
		if len(seriesB) > 0 {
			y, h := barRect(seriesB[i], scale, zeroY, padding, bottom)
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"><title>%s %s: %s</title></rect>",
				x+barW*1.4, y, barW, h, colorB, template.HTMLEscapeString(labelB), template.HTMLEscapeString(label), template.HTMLEscapeString(tickFormat(seriesB[i])))
		}
		if i%every == 0 || i == len(labels)-1 {
			fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>",
				x+groupW/2, bottom+14, theme.Axis, template.HTMLEscapeString(label))
		}
	}

	legendY := math.Max(padding-12, 12)
	legendX := padding
	if len(seriesA) > 0 {
		writeLegend(&b, legendX, legendY, colorA, labelA, theme)
		legendX += 90
	}
	if len(seriesB) > 0 {
		writeLegend(&b, legendX, legendY, colorB, labelB, theme)
	}

	b.WriteString("</svg>")
	return []byte(b.String()), nil
}

func writeLegend(b *strings.Builder, x, y float64, color, label string, theme Theme) {
	fmt.Fprintf(b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", x, y-8, color)
	fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", x+14, y, theme.Text, template.HTMLEscapeString(label))
}

// barRect returns the y and height of a bar clipped to the plot area.
func barRect(value, scale, zeroY, top, bottom float64) (float64, float64) {
	h := math.Abs(value) * scale
	if value >= 0 {
		y := zeroY - h
		if y < top {
			h -= top - y
			y = top
		}
		return y, math.Max(h, 0)
	}
	if zeroY+h > bottom {
		h = bottom - zeroY
	}
	return zeroY, math.Max(h, 0)
}
