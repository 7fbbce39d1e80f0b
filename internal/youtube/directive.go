package youtube

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	// :::youtube{videoId="..."} with an optional closing ::: line, or the
	// leaf form ::youtube{...}.
	directiveRe = regexp.MustCompile(`^:{2,3}youtube\{([^}]*)\}[ \t]*(?:\n:::[ \t]*)?$`)
	attrRe      = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_-]*)=(?:"([^"]*)"|'([^']*)'|(\S+))`)
)

var KindEmbed = ast.NewNodeKind("YouTubeEmbed")

// Embed is a block node replacing a youtube directive.
type Embed struct {
	ast.BaseBlock
	Options EmbedOptions
}

func (n *Embed) Kind() ast.NodeKind {
	return KindEmbed
}

func (n *Embed) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"VideoID": n.Options.VideoID}, nil)
}

// ParseDirective reads a youtube directive. ok is false when s is not a
// directive or carries no videoId.
func ParseDirective(s string) (EmbedOptions, bool) {
	m := directiveRe.FindStringSubmatch(s)
	if m == nil {
		return EmbedOptions{}, false
	}

	var opts EmbedOptions
	for _, a := range attrRe.FindAllStringSubmatch(m[1], -1) {
		val := a[2] + a[3] + a[4]
		switch a[1] {
		case "videoId", "id":
			opts.VideoID = val
		case "title":
			opts.Title = val
		case "autoplay":
			opts.Autoplay = val == "true" || val == "1"
		case "mute":
			opts.Mute = val == "true" || val == "1"
		case "rel":
			opts.Rel = val == "true" || val == "1"
		case "start":
			opts.Start, _ = strconv.Atoi(val)
		case "end":
			opts.End, _ = strconv.Atoi(val)
		}
	}
	if opts.VideoID == "" {
		return EmbedOptions{}, false
	}
	return opts, true
}

type transformer struct{}

func (t *transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()

	var paragraphs []*ast.Paragraph
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if p, ok := n.(*ast.Paragraph); ok {
			paragraphs = append(paragraphs, p)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, p := range paragraphs {
		opts, ok := ParseDirective(string(blockText(p, source)))
		if !ok {
			continue
		}
		parent := p.Parent()
		parent.ReplaceChild(parent, p, &Embed{Options: opts})
	}
}

func blockText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			buf.WriteByte('\n')
		}
		seg := lines.At(i)
		buf.Write(bytes.TrimRight(seg.Value(source), "\r\n"))
	}
	return buf.Bytes()
}

type embedRenderer struct{}

func (r *embedRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindEmbed, r.render)
}

func (r *embedRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(EmbedHTML(node.(*Embed).Options))
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}

type extender struct{}

// Extension turns youtube directives into iframe embeds.
var Extension goldmark.Extender = &extender{}

func (e *extender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(&transformer{}, 90)))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(&embedRenderer{}, 500)))
}
