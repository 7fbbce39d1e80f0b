// Package postbuild replaces embed tokens that survived rendering in the
// generated HTML.
package postbuild

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/tkwsnb/notepress/internal/assets"
	"github.com/tkwsnb/notepress/internal/logger"
)

var (
	imageTokenRe = regexp.MustCompile(`(?i)<p>!\[\[([^\]]+\.(?:png|jpg|jpeg|webp|gif|svg))\]\]</p>`)
	videoTokenRe = regexp.MustCompile(`(?i)<p>!\[\[([^\]]+\.(?:mp4|webm))\]\]</p>`)
)

// PageRewriter rewrites paragraphs that hold nothing but an embed token.
//
// With a Resolver, a token is only replaced when the file exists. With a
// BaseURL, src points at BaseURL/<name>; otherwise src is the resolver's web
// path. With neither, pages are left alone.
type PageRewriter struct {
	Resolver   *assets.Resolver
	Classifier assets.Classifier
	BaseURL    string
	// AfterBuild marks a pass that follows a tree rewrite which already
	// reported every unresolved token. Misses are then logged at debug level.
	AfterBuild bool
	Log        logger.Logger
}

func (r *PageRewriter) enabled() bool {
	return r.Resolver != nil || r.BaseURL != ""
}

// RewritePage returns the rewritten page and whether anything was replaced.
// pageDir stands in for the source document's directory when resolving.
func (r *PageRewriter) RewritePage(page, pageDir string) (string, bool) {
	out, n := r.rewrite(page, pageDir)
	return out, n > 0
}

func (r *PageRewriter) rewrite(page, pageDir string) (string, int) {
	if !r.enabled() {
		return page, 0
	}
	replaced := 0
	for _, p := range []struct {
		re   *regexp.Regexp
		kind assets.Kind
	}{
		{imageTokenRe, assets.KindImage},
		{videoTokenRe, assets.KindVideo},
	} {
		page = p.re.ReplaceAllStringFunc(page, func(match string) string {
			// the capture is rendered text, so a&b.png arrives as a&amp;b.png
			name := html.UnescapeString(p.re.FindStringSubmatch(match)[1])
			rep, ok := r.replacement(name, p.kind, pageDir)
			if !ok {
				return match
			}
			replaced++
			r.log().Debugf("replacing %s %s in %s", rep.Kind, name, pageDir)
			return rep.HTML()
		})
	}
	return page, replaced
}

func (r *PageRewriter) replacement(name string, kind assets.Kind, pageDir string) (assets.Replacement, bool) {
	rep := assets.Replacement{Kind: kind, Alt: assets.AltText(name)}
	file := strings.TrimSpace(name)

	if r.Resolver != nil {
		asset, ok := r.Resolver.Resolve(pageDir, name)
		if !ok {
			r.miss("embed ![[%s]] in %s: file not found in any search root", name, pageDir)
			return assets.Replacement{}, false
		}
		classified, ok := r.Classifier.Classify(asset)
		if !ok {
			r.miss("embed ![[%s]] in %s: unsupported file type %q", name, pageDir, asset.FilePath)
			return assets.Replacement{}, false
		}
		rep = classified
		rep.Alt = assets.AltText(name)
		file = asset.Name
	}

	if r.BaseURL != "" {
		rep.Src = strings.TrimRight(r.BaseURL, "/") + "/" + escapePath(file)
	}
	if rep.Kind == assets.KindVideo {
		rep.Style = r.Classifier.VideoStyle
	}
	return rep, true
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func (r *PageRewriter) miss(template string, args ...any) {
	if r.AfterBuild {
		r.log().Debugf(template, args...)
		return
	}
	r.log().Warnf(template, args...)
}

func (r *PageRewriter) log() logger.Logger {
	if r.Log == nil {
		return logger.Nop()
	}
	return r.Log
}
