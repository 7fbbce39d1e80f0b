// Package embed rewrites Obsidian embeds (![[file.ext]]) in a goldmark
// document into image and video nodes.
package embed

import (
	"bytes"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/tkwsnb/notepress/internal/assets"
	"github.com/tkwsnb/notepress/internal/logger"
	"github.com/tkwsnb/notepress/internal/markdown"
)

// Stats counts the outcome of one rewrite.
type Stats struct {
	Replaced   int
	Unresolved int
}

func (s *Stats) Add(o Stats) {
	s.Replaced += o.Replaced
	s.Unresolved += o.Unresolved
}

type Rewriter struct {
	resolver   *assets.Resolver
	classifier assets.Classifier
	log        logger.Logger
}

func NewRewriter(resolver *assets.Resolver, classifier assets.Classifier, log logger.Logger) *Rewriter {
	if log == nil {
		log = logger.Nop()
	}
	return &Rewriter{resolver: resolver, classifier: classifier, log: log}
}

// Rewrite replaces every resolvable embed in doc's paragraphs. Embeds that do
// not resolve, or resolve to an unsupported file, keep their text and produce
// one warning each. A document without a source path is left alone.
func (rw *Rewriter) Rewrite(doc ast.Node, source []byte, sourcePath string) Stats {
	var stats Stats
	if sourcePath == "" {
		rw.log.Debugf("embed rewrite skipped: document has no source path")
		return stats
	}
	baseDir := filepath.Dir(sourcePath)

	// collect first so nodes inserted below are never visited
	var blocks []ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindTextBlock:
			blocks = append(blocks, n)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, b := range blocks {
		rw.rewriteBlock(b, source, baseDir, sourcePath, &stats)
	}
	return stats
}

func (rw *Rewriter) rewriteBlock(block ast.Node, source []byte, baseDir, sourcePath string, stats *Stats) {
	children := childNodes(block)

	var items []ast.Node
	changed := false
	for i := 0; i < len(children); {
		run := textRun(children[i:])
		if len(run) == 0 {
			items = append(items, children[i])
			i++
			continue
		}
		i += len(run)
		if i < len(children) {
			rw.reportSplitToken(run, source, sourcePath, stats)
		}

		out, ok := rw.rewriteRun(run, source, baseDir, sourcePath, stats)
		if !ok {
			for _, t := range run {
				items = append(items, t)
			}
			continue
		}
		items = append(items, out...)
		changed = true
	}

	if changed {
		rebuild(block, items, source)
	}
}

// rewriteRun scans the text covered by run. ok is false when nothing in the
// run was replaced, in which case the caller keeps the original nodes.
func (rw *Rewriter) rewriteRun(run []*ast.Text, source []byte, baseDir, sourcePath string, stats *Stats) ([]ast.Node, bool) {
	first, last := run[0], run[len(run)-1]
	start, stop := first.Segment.Start, last.Segment.Stop
	value := string(source[start:stop])

	tokens := markdown.FindEmbeds(value)
	if len(tokens) == 0 {
		return nil, false
	}

	var out []ast.Node
	emitText := func(from, to int) {
		if from >= to {
			return
		}
		seg := text.NewSegment(start+from, start+to)
		if len(out) == 0 {
			seg.Padding = first.Segment.Padding
		}
		out = append(out, ast.NewTextSegment(seg))
	}

	replaced := false
	cursor := 0
	for _, tok := range tokens {
		if tok.Name == "" {
			continue
		}
		node := rw.replace(tok, baseDir, sourcePath, stats)
		emitText(cursor, tok.Start)
		if node == nil {
			emitText(tok.Start, tok.End)
		} else {
			out = append(out, node)
			replaced = true
		}
		cursor = tok.End
	}
	if !replaced {
		return nil, false
	}
	emitText(cursor, len(value))

	if last.SoftLineBreak() || last.HardLineBreak() {
		t, ok := out[len(out)-1].(*ast.Text)
		if !ok {
			t = ast.NewTextSegment(text.NewSegment(stop, stop))
			out = append(out, t)
		}
		t.SetSoftLineBreak(last.SoftLineBreak())
		t.SetHardLineBreak(last.HardLineBreak())
	}
	return out, true
}

// reportSplitToken warns about a run that ends inside an embed. Inline markup
// in a label, as in ![[a.png|a *b*]], splits the token across nodes, so it is
// never matched and stays as text.
func (rw *Rewriter) reportSplitToken(run []*ast.Text, source []byte, sourcePath string, stats *Stats) {
	first, last := run[0], run[len(run)-1]
	if last.SoftLineBreak() || last.HardLineBreak() {
		return
	}
	value := source[first.Segment.Start:last.Segment.Stop]
	open := bytes.LastIndex(value, []byte("![["))
	if open == -1 || bytes.Contains(value[open:], []byte("]]")) {
		return
	}

	rest := source[first.Segment.Start+open:]
	if nl := bytes.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[:nl]
	}
	end := bytes.Index(rest, []byte("]]"))
	if end == -1 {
		return
	}
	stats.Unresolved++
	rw.log.Warnf("embed %s in %s: inline markup inside an embed is not supported", rest[:end+2], sourcePath)
}

func (rw *Rewriter) replace(tok markdown.Token, baseDir, sourcePath string, stats *Stats) ast.Node {
	asset, ok := rw.resolver.Resolve(baseDir, tok.Name)
	if !ok {
		stats.Unresolved++
		rw.log.Warnf("embed %s in %s: file not found in any search root", tok.Raw, sourcePath)
		return nil
	}

	rep, ok := rw.classifier.Classify(asset)
	if !ok {
		stats.Unresolved++
		rw.log.Warnf("embed %s in %s: unsupported file type %q", tok.Raw, sourcePath, filepath.Ext(asset.FilePath))
		return nil
	}

	rep.Alt = assets.AltText(tok.Name)
	if tok.Label != "" {
		rep.Alt = tok.Label
	}
	stats.Replaced++
	rw.log.Debugf("embed %s in %s -> %s", tok.Raw, sourcePath, rep.Src)
	return NewNode(rep)
}

// NewNode builds the goldmark node for a replacement: an inline image, or a
// block-level video.
func NewNode(rep assets.Replacement) ast.Node {
	if rep.Block() {
		return NewVideo(rep)
	}
	link := ast.NewLink()
	link.Destination = []byte(rep.Src)
	img := ast.NewImage(link)
	img.AppendChild(img, ast.NewString([]byte(rep.Alt)))
	return img
}

func childNodes(n ast.Node) []ast.Node {
	var out []ast.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, c)
	}
	return out
}

// textRun returns the leading text nodes of nodes that form one contiguous
// stretch of source. The inline parser splits "![[a.png]]" into several
// text nodes, so tokens are only visible across the whole run.
func textRun(nodes []ast.Node) []*ast.Text {
	var run []*ast.Text
	for _, n := range nodes {
		t, ok := n.(*ast.Text)
		if !ok || t.IsRaw() {
			break
		}
		if len(run) > 0 {
			prev := run[len(run)-1]
			if prev.SoftLineBreak() || prev.HardLineBreak() ||
				prev.Segment.Stop != t.Segment.Start || t.Segment.Padding != 0 {
				break
			}
		}
		run = append(run, t)
	}
	return run
}

// rebuild replaces block's children with items. Block-level items cannot
// live in a paragraph, so the paragraph is split around them and dropped.
func rebuild(block ast.Node, items []ast.Node, source []byte) {
	block.RemoveChildren(block)

	parent := block.Parent()
	hasBlock := lo.ContainsBy(items, func(n ast.Node) bool { return n.Type() == ast.TypeBlock })
	if !hasBlock || parent == nil {
		for _, n := range items {
			block.AppendChild(block, n)
		}
		return
	}

	var group []ast.Node
	flush := func() {
		defer func() { group = nil }()
		group = trimGroup(group, source)
		if len(group) == 0 {
			return
		}
		var p ast.Node = ast.NewParagraph()
		if block.Kind() == ast.KindTextBlock {
			p = ast.NewTextBlock()
		}
		for _, n := range group {
			p.AppendChild(p, n)
		}
		parent.InsertBefore(parent, block, p)
	}

	for _, n := range items {
		if n.Type() == ast.TypeBlock {
			flush()
			parent.InsertBefore(parent, block, n)
			continue
		}
		group = append(group, n)
	}
	flush()
	parent.RemoveChild(parent, block)
}

// trimGroup strips whitespace at the edges of a paragraph fragment and returns
// nil when nothing visible is left.
func trimGroup(group []ast.Node, source []byte) []ast.Node {
	for len(group) > 0 {
		t, ok := group[0].(*ast.Text)
		if !ok {
			break
		}
		t.Segment = t.Segment.TrimLeftSpace(source)
		if !t.Segment.IsEmpty() {
			break
		}
		group = group[1:]
	}
	for len(group) > 0 {
		t, ok := group[len(group)-1].(*ast.Text)
		if !ok {
			break
		}
		t.Segment = t.Segment.TrimRightSpace(source)
		t.SetSoftLineBreak(false)
		t.SetHardLineBreak(false)
		if !t.Segment.IsEmpty() {
			break
		}
		group = group[:len(group)-1]
	}
	return group
}
