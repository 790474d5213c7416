package show

import (
	"bytes"

	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// md converts slide Markdown to HTML. Raw HTML passthrough is enabled so
// deck authors can mix markup into their slides; the server only talks to
// trusted LAN clients.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("friendly"),
		),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// RenderMarkdown converts Markdown source to an HTML fragment.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
