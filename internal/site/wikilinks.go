package site

import (
	"html"
	"path"
	"strings"

	"github.com/tkwsnb/notepress/internal/markdown"
)

// LinkIndex maps wikilink targets to note slugs. A target matches a slug
// exactly, or the last path element of a slug when that is unambiguous.
type LinkIndex struct {
	slugs map[string]bool
	base  map[string]string
}

func NewLinkIndex(slugs []string) *LinkIndex {
	idx := &LinkIndex{slugs: map[string]bool{}, base: map[string]string{}}
	ambiguous := map[string]bool{}
	for _, slug := range slugs {
		idx.slugs[slug] = true
		b := path.Base(slug)
		if _, ok := idx.base[b]; ok {
			ambiguous[b] = true
		}
		idx.base[b] = slug
	}
	for b := range ambiguous {
		delete(idx.base, b)
	}
	return idx
}

// Lookup returns the slug target links to.
func (idx *LinkIndex) Lookup(target string) (string, bool) {
	slug := slugifyPath(target)
	if slug == "" {
		return "", false
	}
	if idx.slugs[slug] {
		return slug, true
	}
	s, ok := idx.base[path.Base(slug)]
	return s, ok
}

// Links returns the slugs of the notes content links to, without duplicates.
func (idx *LinkIndex) Links(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, loc := range markdown.FindWikiLinks(content) {
		target, _ := markdown.SplitWikiLink(content[loc[2]:loc[3]])
		if slug, ok := idx.Lookup(target); ok && !seen[slug] {
			seen[slug] = true
			out = append(out, slug)
		}
	}
	return out
}

// ReplaceWikiLinks converts [[note]] and [[note|label]] links to anchors.
// Embeds (![[file]]) are left for the embed rewriter. Links to notes that
// are not published become plain text.
func ReplaceWikiLinks(content string, idx *LinkIndex) string {
	locs := markdown.FindWikiLinks(content)
	if len(locs) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(content[last:loc[0]])
		target, display := markdown.SplitWikiLink(content[loc[2]:loc[3]])
		if display == "" {
			display = target
		}
		if slug, ok := idx.Lookup(target); ok {
			b.WriteString(`<a href="` + NoteURL(slug) + `">` + html.EscapeString(display) + `</a>`)
		} else {
			b.WriteString(`<span class="wikilink-missing">` + html.EscapeString(display) + `</span>`)
		}
		last = loc[1]
	}
	b.WriteString(content[last:])
	return b.String()
}

// NoteURL is the site path a note is published at.
func NoteURL(slug string) string {
	if slug == indexSlug {
		return "/"
	}
	return "/" + slug + "/"
}

// slugifyPath slugs each element of a slash separated path.
func slugifyPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := parts[:0]
	for _, part := range parts {
		if s := markdown.Slugify(part); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}
