package charts

import "github.com/refill-ledger/ledger/internal/ledger"

// Theme is a colour set for one UI mode.
type Theme struct {
	Name       string
	Background string
	Axis       string
	Grid       string
	Text       string
	Series     []string
	Fill       string
}

// Themes available to the dashboard.
var (
	LightTheme = Theme{
		Name:       "light",
		Background: "#ffffff",
		Axis:       "#475569",
		Grid:       "#cbd5e1",
		Text:       "#0f172a",
		Series:     []string{"#0284c7", "#f97316", "#16a34a", "#9333ea", "#e11d48", "#ca8a04"},
		Fill:       "rgba(2,132,199,0.12)",
	}
	DarkTheme = Theme{
		Name:       "dark",
		Background: "#0f172a",
		Axis:       "#94a3b8",
		Grid:       "#334155",
		Text:       "#e2e8f0",
		Series:     []string{"#38bdf8", "#fb923c", "#4ade80", "#c084fc", "#fb7185", "#facc15"},
		Fill:       "rgba(56,189,248,0.18)",
	}
)

// ThemeByName resolves "dark" and falls back to the light theme.
func ThemeByName(name string) Theme {
	if name == DarkTheme.Name {
		return DarkTheme
	}
	return LightTheme
}

// ColorFor cycles through the series colours.
func (t Theme) ColorFor(index int) string {
	series := t.Series
	if len(series) == 0 {
		series = LightTheme.Series
	}
	if index < 0 {
		index = -index
	}
	return series[index%len(series)]
}

func (t Theme) orDefault() Theme {
	if t.Name == "" {
		return LightTheme
	}
	return t
}

// StatusColor maps collection statuses to badge colours.
func StatusColor(status ledger.CollectionStatus) string {
	switch status {
	case ledger.CollectionOverdue:
		return "#f97316"
	case ledger.CollectionSuspended:
		return "#e11d48"
	default:
		return "#16a34a"
	}
}

// PaymentStatusColor maps payment statuses to badge colours.
func PaymentStatusColor(status ledger.PaymentStatus) string {
	switch status {
	case ledger.StatusPaid:
		return "#16a34a"
	case ledger.StatusPartial:
		return "#0284c7"
	case ledger.StatusOverdue:
		return "#f97316"
	case ledger.StatusCollection:
		return "#e11d48"
	default:
		return "#64748b"
	}
}
