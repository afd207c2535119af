package charts

import (
	"fmt"
	"html/template"
)

// RenderFunc produces an SVG document.
type RenderFunc func() ([]byte, error)

// SafeRender runs render and isolates failures. A render error or panic
// yields a placeholder document with a retry link so one broken chart
// never takes the dashboard down. The returned error is the original
// failure, for logging.
func SafeRender(render RenderFunc, retryURL string) (svg []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("charts: render panic: %v", r)
			svg = Placeholder(retryURL)
		}
	}()
	out, rerr := render()
	if rerr != nil {
		return Placeholder(retryURL), rerr
	}
	return out, nil
}

// Placeholder is the fallback chart shown when rendering fails.
func Placeholder(retryURL string) []byte {
	theme := LightTheme
	link := ""
	if retryURL != "" {
		link = fmt.Sprintf("<a href=\"%s\"><text x=\"50%%\" y=\"60%%\" fill=\"%s\" font-size=\"12\" text-anchor=\"middle\" text-decoration=\"underline\">Retry</text></a>",
			template.HTMLEscapeString(retryURL), theme.ColorFor(0))
	}
	return []byte(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-label=\"Chart unavailable\">"+
		"<rect width=\"100%%\" height=\"100%%\" fill=\"%s\"></rect>"+
		"<text x=\"50%%\" y=\"45%%\" fill=\"%s\" font-size=\"14\" text-anchor=\"middle\">Chart unavailable</text>%s</svg>",
		DefaultWidth, DefaultHeight, theme.Background, theme.Text, link))
}
