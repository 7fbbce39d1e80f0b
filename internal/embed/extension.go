package embed

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	sourcePathKey = parser.NewContextKey()
	statsKey      = parser.NewContextKey()
)

// NewContext returns a parser context that tells the transformer which file is
// being converted. Embeds are resolved relative to its directory.
func NewContext(sourcePath string) parser.Context {
	pc := parser.NewContext()
	pc.Set(sourcePathKey, sourcePath)
	return pc
}

// SourcePath returns the path stored by NewContext, or "".
func SourcePath(pc parser.Context) string {
	v, _ := pc.Get(sourcePathKey).(string)
	return v
}

// StatsFromContext returns the stats of the rewrite that ran with pc.
func StatsFromContext(pc parser.Context) Stats {
	v, _ := pc.Get(statsKey).(Stats)
	return v
}

var _ parser.ASTTransformer = &Transformer{}

type Transformer struct {
	rewriter *Rewriter
}

func (t *Transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	stats := t.rewriter.Rewrite(doc, reader.Source(), SourcePath(pc))
	pc.Set(statsKey, stats)
}

type extender struct {
	rewriter *Rewriter
}

// New returns the goldmark extension running rw over every converted document.
func New(rw *Rewriter) goldmark.Extender {
	return &extender{rewriter: rw}
}

func (e *extender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(&Transformer{rewriter: e.rewriter}, 100),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&videoRenderer{}, 500),
		),
	)
}
