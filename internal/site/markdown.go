package site

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/tkwsnb/notepress/internal/embed"
	"github.com/tkwsnb/notepress/internal/highlight"
	"github.com/tkwsnb/notepress/internal/youtube"
)

// NewMarkdown returns the converter used for notes: GFM, raw HTML passthrough,
// embeds and youtube directives. hl may be nil to keep goldmark's plain code
// blocks.
func NewMarkdown(rw *embed.Rewriter, hl *highlight.Highlighter) goldmark.Markdown {
	exts := []goldmark.Extender{
		extension.GFM,
		embed.New(rw),
		youtube.Extension,
	}
	if hl != nil {
		exts = append(exts, highlight.Extension(hl))
	}
	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}
