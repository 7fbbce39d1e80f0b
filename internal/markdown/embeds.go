package markdown

import (
	"regexp"
	"strings"
)

// EmbedRe matches an Obsidian embed such as ![[cover.png]].
var EmbedRe = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)

// Token is one embed occurrence. Start and End are byte offsets of the whole
// match within the scanned text.
type Token struct {
	Raw   string
	Name  string
	Label string
	Start int
	End   int
}

// FindEmbeds returns every non-overlapping embed in s, left to right. Each call
// returns a fresh slice; nothing is shared between calls.
func FindEmbeds(s string) []Token {
	locs := EmbedRe.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(locs))
	for _, loc := range locs {
		name, label := splitLabel(s[loc[2]:loc[3]])
		tokens = append(tokens, Token{
			Raw:   s[loc[0]:loc[1]],
			Name:  name,
			Label: label,
			Start: loc[0],
			End:   loc[1],
		})
	}
	return tokens
}

// splitLabel handles the ![[file.png|label]] form.
func splitLabel(inner string) (string, string) {
	if idx := strings.Index(inner, "|"); idx != -1 {
		return strings.TrimSpace(inner[:idx]), strings.TrimSpace(inner[idx+1:])
	}
	return strings.TrimSpace(inner), ""
}
