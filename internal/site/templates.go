package site

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/tkwsnb/notepress/internal/config"
)

// Templates holds the parsed page templates and the stylesheet.
type Templates struct {
	html *template.Template
	css  []byte
}

// LoadTemplates parses *.html and reads style.css from fsys.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	t, err := template.ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	css, err := fs.ReadFile(fsys, "style.css")
	if err != nil {
		return nil, fmt.Errorf("read style.css: %w", err)
	}
	return &Templates{html: t, css: css}, nil
}

func (t *Templates) Execute(w io.Writer, name string, data any) error {
	return t.html.ExecuteTemplate(w, name, data)
}

func (t *Templates) StyleCSS() []byte {
	return t.css
}

type IndexData struct {
	Site    config.Site
	Heading string
	Notes   []NoteSummary
}

type NoteSummary struct {
	Title   string
	Slug    string
	URL     string
	DateStr string
	Excerpt string
}

type TagLink struct {
	Name string
	Slug string
}

type PageData struct {
	Site        config.Site
	Title       string
	Description string
	DateStr     string
	Tags        []TagLink
	Content     template.HTML
	Backlinks   []NoteSummary
}
