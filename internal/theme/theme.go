// Package theme selects chroma syntax themes and generates their CSS.
package theme

import (
	"net/http"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/blockpress/internal/cache"
	"github.com/debemdeboas/blockpress/internal/config"
)

var syntaxCSSCache = cache.NewCache[string, []byte]()

// SyntaxThemeFromRequest picks the theme from the "syntax" query parameter,
// then the syntax theme cookie. Unknown names yield fallback.
func SyntaxThemeFromRequest(r *http.Request, fallback string) string {
	name := r.URL.Query().Get("syntax")
	if name == "" {
		if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil {
			name = cookie.Value
		}
	}
	if !Known(name) {
		return fallback
	}
	return name
}

func Known(name string) bool {
	_, ok := styles.Registry[strings.ToLower(name)]
	return name != "" && ok
}

func Names() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func Formatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WrapLongLines(true),
	)
}

// SyntaxCSS returns the stylesheet for the highlighted HTML produced with
// Formatter.
func SyntaxCSS(theme string) []byte {
	if css, ok := syntaxCSSCache.Get(theme); ok {
		return css
	}

	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Pick a readable text colour when the style leaves it unset
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	Formatter().WriteCSS(&buf, style)
	css := []byte(buf.String())
	syntaxCSSCache.Set(theme, css)
	return css
}
