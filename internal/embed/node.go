package embed

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/tkwsnb/notepress/internal/assets"
)

// KindVideo is the node kind of a block-level video embed.
var KindVideo = ast.NewNodeKind("Video")

// Video is a block node carrying a resolved video embed. It is never placed
// inside a paragraph.
type Video struct {
	ast.BaseBlock
	Replacement assets.Replacement
}

func NewVideo(rep assets.Replacement) *Video {
	return &Video{Replacement: rep}
}

func (n *Video) Kind() ast.NodeKind {
	return KindVideo
}

func (n *Video) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Src": n.Replacement.Src,
	}, nil)
}

type videoRenderer struct{}

func (r *videoRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindVideo, r.renderVideo)
}

func (r *videoRenderer) renderVideo(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Video)
	_, _ = w.WriteString(n.Replacement.HTML())
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}
