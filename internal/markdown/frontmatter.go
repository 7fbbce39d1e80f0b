package markdown

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Frontmatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Date        string   `yaml:"date"`
	PublishDate string   `yaml:"publishDate"`
	UpdatedDate string   `yaml:"updatedDate"`
	Tags        []string `yaml:"tags"`
	Draft       bool     `yaml:"draft"`
	Publish     bool     `yaml:"publish"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
}

// Published returns the publish date, falling back to date. The zero time is
// returned when neither parses.
func (fm Frontmatter) Published() time.Time {
	for _, v := range []string{fm.PublishDate, fm.Date} {
		if t, ok := ParseDate(v); ok {
			return t
		}
	}
	return time.Time{}
}

func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFrontmatter splits markdown content into YAML frontmatter and body.
func ParseFrontmatter(content string) (Frontmatter, string) {
	var fm Frontmatter
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "---") {
		return fm, content
	}

	rest := content[3:]
	endIdx := strings.Index(rest, "\n---")
	if endIdx == -1 {
		return fm, content
	}

	fmBlock := rest[:endIdx]
	body := rest[endIdx+4:] // skip \n---

	_ = yaml.Unmarshal([]byte(fmBlock), &fm)
	return fm, strings.TrimSpace(body)
}
