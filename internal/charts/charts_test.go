package charts

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/ledger"
)

func TestLineProducesSVG(t *testing.T) {
	out, err := Line(400, 200, []float64{100, 200, 150}, []string{"2025-01-01", "2025-01-02", "2025-01-03"}, LineOpts{
		Title:       "Daily Revenue",
		Description: "Revenue per day",
		ShowDots:    true,
	})
	require.NoError(t, err)
	svg := string(out)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "<path")
	assert.Contains(t, svg, "aria-labelledby=\"daily-revenue-line-title daily-revenue-line-desc\"")
	assert.Contains(t, svg, "<circle")
	assert.Contains(t, svg, LightTheme.ColorFor(0))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
}

func TestLineUsesThemeAndTickFormat(t *testing.T) {
	out, err := Line(0, 0, []float64{0, 0}, []string{"a", "b"}, LineOpts{
		Theme:      DarkTheme,
		TickFormat: func(v float64) string { return "P" + formatTick(v) },
	})
	require.NoError(t, err)
	svg := string(out)
	assert.Contains(t, svg, DarkTheme.Background)
	assert.Contains(t, svg, ">P0<")
	assert.Contains(t, svg, "Line chart")
}

func TestLineRejectsMismatchedInput(t *testing.T) {
	_, err := Line(400, 200, nil, nil, LineOpts{})
	assert.Error(t, err)
	_, err = Line(400, 200, []float64{1, 2}, []string{"a"}, LineOpts{})
	assert.Error(t, err)
	_, err = Line(40, 40, []float64{1}, []string{"a"}, LineOpts{Padding: 30})
	assert.Error(t, err)
}

func TestLineEscapesLabels(t *testing.T) {
	out, err := Line(400, 200, []float64{1}, []string{"<b>"}, LineOpts{Title: "x & y"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<b>")
	assert.Contains(t, string(out), "x &amp; y")
}

func TestBarsProducesSVG(t *testing.T) {
	out, err := Bars(420, 220, []float64{500, 600}, []float64{300, 320}, []string{"Mon", "Tue"}, BarOpts{
		Title:        "Payment Split",
		SeriesALabel: "Cash",
		SeriesBLabel: "Credit",
	})
	require.NoError(t, err)
	svg := string(out)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "<rect")
	assert.Contains(t, svg, "Cash")
	assert.Contains(t, svg, "Credit")
	assert.Contains(t, svg, LightTheme.ColorFor(1))
}

func TestBarsSingleSeries(t *testing.T) {
	out, err := Bars(420, 220, []float64{5, -2}, nil, []string{"a", "b"}, BarOpts{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Series A")
	assert.NotContains(t, string(out), "Series B")
}

func TestBarsValidation(t *testing.T) {
	_, err := Bars(420, 220, nil, nil, []string{"a"}, BarOpts{})
	assert.Error(t, err)
	_, err = Bars(420, 220, []float64{1}, nil, nil, BarOpts{})
	assert.Error(t, err)
	_, err = Bars(420, 220, []float64{1}, []float64{1, 2}, []string{"a"}, BarOpts{})
	assert.Error(t, err)
}

func TestSafeRender(t *testing.T) {
	ok := func() ([]byte, error) { return []byte("<svg/>"), nil }
	out, err := SafeRender(ok, "/charts/revenue.svg")
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(out))

	boom := errors.New("boom")
	out, err = SafeRender(func() ([]byte, error) { return nil, boom }, "/charts/revenue.svg")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, string(out), "Chart unavailable")
	assert.Contains(t, string(out), "href=\"/charts/revenue.svg\"")

	out, err = SafeRender(func() ([]byte, error) { panic("nil series") }, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil series")
	assert.Contains(t, string(out), "Chart unavailable")
	assert.NotContains(t, string(out), "Retry")
}

func TestThemes(t *testing.T) {
	assert.Equal(t, DarkTheme, ThemeByName("dark"))
	assert.Equal(t, LightTheme, ThemeByName("sepia"))
	assert.Equal(t, LightTheme.Series[0], LightTheme.ColorFor(len(LightTheme.Series)))
	assert.Equal(t, LightTheme.Series[0], Theme{}.ColorFor(0))
	assert.NotEqual(t, StatusColor(ledger.CollectionActive), StatusColor(ledger.CollectionSuspended))
	assert.Equal(t, "#16a34a", PaymentStatusColor(ledger.StatusPaid))
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "1.5k", formatTick(1500))
	assert.Equal(t, "2.0M", formatTick(2_000_000))
	assert.Equal(t, "12", formatTick(12))
	assert.Equal(t, "0.25", formatTick(0.25))
}
