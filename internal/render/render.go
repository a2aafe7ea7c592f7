// Package render turns block drafts into Markdown and sanitized HTML.
package render

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/blockpress/internal/cache"
	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/theme"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	inline = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)

	policy = newPolicy()

	chromaClass = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(chromaClass).OnElements("div", "pre", "code", "span")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// InlineMarkdown converts the editor's inline HTML (bold, italic, links) to
// Markdown. Unparseable input is emitted as escaped text.
func InlineMarkdown(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	md, err := inline.ConvertString(text)
	if err != nil {
		renderLogger.Debug().Err(err).Msg("Inline HTML conversion failed")
		return html.UnescapeString(text)
	}
	return strings.TrimSpace(md)
}

// Markdown renders every block in order, separated by blank lines. Blocks the
// renderer does not understand are left out.
func Markdown(d model.Draft) []byte {
	var b strings.Builder
	for _, block := range d.Blocks {
		chunk := blockMarkdown(block)
		if chunk == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(chunk)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func blockMarkdown(block model.Block) string {
	switch data := block.Data.(type) {
	case model.HeaderData:
		text := InlineMarkdown(data.Text)
		if text == "" {
			return ""
		}
		level := min(max(data.Level, 1), 6)
		return strings.Repeat("#", level) + " " + text

	case model.ParagraphData:
		return InlineMarkdown(data.Text)

	case model.CodeData:
		if data.Code == "" {
			return ""
		}
		// Longer fence than any backtick run inside the code
		fence := "```"
		for strings.Contains(data.Code, fence) {
			fence += "`"
		}
		return fence + "\n" + strings.TrimRight(data.Code, "\n") + "\n" + fence

	case model.QuoteData:
		text := InlineMarkdown(data.Text)
		if text == "" {
			return ""
		}
		lines := strings.Split(text, "\n")
		if caption := InlineMarkdown(data.Caption); caption != "" {
			lines = append(lines, "", "-- "+caption)
		}
		for i, line := range lines {
			lines[i] = strings.TrimRight("> "+line, " ")
		}
		return strings.Join(lines, "\n")

	case model.ImageData:
		if data.File.URL == "" {
			return ""
		}
		return fmt.Sprintf("![%s](%s)", InlineMarkdown(data.Caption), data.File.URL)

	case model.EmbedData:
		if data.Source == "" {
			return ""
		}
		label := InlineMarkdown(data.Caption)
		if label == "" {
			label = data.Service
		}
		if label == "" {
			label = data.Source
		}
		return fmt.Sprintf("[%s](%s)", label, data.Source)

	case model.ListData:
		var items []string
		for i, item := range data.Items {
			text := InlineMarkdown(item)
			if text == "" {
				continue
			}
			marker := "-"
			if data.Style == "ordered" {
				marker = fmt.Sprintf("%d.", i+1)
			}
			items = append(items, marker+" "+text)
		}
		return strings.Join(items, "\n")

	case model.DelimiterData:
		return "---"
	}
	return ""
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return html.EscapeString(code)
	}

	var buf strings.Builder
	if err := theme.Formatter().Format(&buf, styles.Get(highlightTheme), iterator); err != nil {
		return html.EscapeString(code)
	}
	return buf.String()
}

// MarkdownToHTML renders Markdown with highlighted code blocks and sanitizes
// the result.
func MarkdownToHTML(md []byte, highlightTheme string) []byte {
	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock,
	).Parse(md)
	rendered := markdown.Render(doc, md_html.NewRenderer(opts))

	return policy.SanitizeBytes(rendered)
}

func HTML(d model.Draft, highlightTheme string) []byte {
	return MarkdownToHTML(Markdown(d), highlightTheme)
}

// Mutex to protect the check-render-set operation in PostHTML
var renderCacheMutex sync.Mutex

// PostHTML renders a stored post, caching by content hash and theme.
func PostHTML(p *model.Post, highlightTheme string) []byte {
	if p.ContentHash == "" {
		renderLogger.Warn().Str("post_id", string(p.ID)).Msg("Content hash is empty, skipping cache check")
		return HTML(p.Content, highlightTheme)
	}

	if cached, found := cache.GetRenderedPost(p.ContentHash, highlightTheme); found {
		renderLogger.Debug().Str("contentHash", p.ContentHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered post")
		return cached
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	if cached, found := cache.GetRenderedPost(p.ContentHash, highlightTheme); found {
		return cached
	}

	renderLogger.Debug().Str("contentHash", p.ContentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered post")
	out := HTML(p.Content, highlightTheme)
	cache.SetRenderedPost(p.ContentHash, highlightTheme, out)
	return out
}

// WarmCache pre-renders a post asynchronously to warm the cache
func WarmCache(p *model.Post, highlightTheme string) {
	go func() {
		PostHTML(p, highlightTheme)
		renderLogger.Debug().Str("post_id", string(p.ID)).Str("highlightTheme", highlightTheme).Msg("Cache warming completed")
	}()
}
