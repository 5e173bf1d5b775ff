package htmlprint

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown is the shared GFM renderer for the source adapter.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // Tables, strikethrough, autolinks, task lists
		highlighting.NewHighlighting(
			highlighting.WithFormatOptions(
				// Inline styles: the rendered fragment carries no stylesheet
				// for code, so the colors must travel with the HTML.
				chromahtml.WithClasses(false),
			),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(), // Treat newlines as <br>
		html.WithXHTML(),     // Self-closing tags
	),
)

// MarkdownToHTML renders a Markdown document into the HTML body fragment a
// Source expects. This is a convenience for callers holding .md input; the
// pipeline itself consumes HTML.
func MarkdownToHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkdownConvert, err)
	}
	return buf.String(), nil
}
