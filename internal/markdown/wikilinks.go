package markdown

import (
	"regexp"
	"strings"
	"unicode"
)

var WikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// FindWikiLinks returns the [start, end] offsets of every note link in content.
// Embeds (![[...]]) are not note links and are skipped.
func FindWikiLinks(content string) [][]int {
	var out [][]int
	for _, loc := range WikilinkRe.FindAllStringSubmatchIndex(content, -1) {
		if loc[0] > 0 && content[loc[0]-1] == '!' {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// SplitWikiLink splits the inside of [[target|display]] into its target and
// display text. Without a pipe both are the whole link.
func SplitWikiLink(inner string) (target, display string) {
	target, display = inner, inner
	if idx := strings.Index(inner, "|"); idx != -1 {
		target = inner[:idx]
		display = inner[idx+1:]
	}
	// [[note#heading]] links to the note
	if idx := strings.Index(target, "#"); idx != -1 {
		target = target[:idx]
	}
	return strings.TrimSpace(target), strings.TrimSpace(display)
}

// Slugify converts a note title to a URL-safe slug. Non-ASCII letters are
// kept so Japanese titles still produce a slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		if r == ' ' || r == '-' || r == '_' {
			return '-'
		}
		return -1
	}, s)
	// collapse multiple dashes
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	return s
}
