// Package site renders a content directory of notes into a static site.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"

	"github.com/tkwsnb/notepress/internal/config"
	"github.com/tkwsnb/notepress/internal/embed"
	"github.com/tkwsnb/notepress/internal/fileutil"
	"github.com/tkwsnb/notepress/internal/logger"
	"github.com/tkwsnb/notepress/internal/markdown"
	"github.com/tkwsnb/notepress/internal/postbuild"
	"github.com/tkwsnb/notepress/internal/storage"
)

const indexSlug = "index"

type Note struct {
	markdown.Frontmatter
	Slug     string
	Body     string // markdown body without frontmatter
	FilePath string // absolute path of the source file
	ModTime  time.Time
}

// Date is the publish date, or the file's modification time when the
// frontmatter has none.
func (n Note) Date() time.Time {
	if d := n.Published(); !d.IsZero() {
		return d
	}
	return n.ModTime
}

// FormatDate renders dates as YYYY/MM/DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Invalid Date"
	}
	return t.Format("2006/01/02")
}

// Report summarises a build.
type Report struct {
	Pages      int
	Embeds     int
	Unresolved int
}

type Options struct {
	Site       config.Site
	ContentDir string
	// StaticDir is copied to the site root when set.
	StaticDir string
	// RequirePublish only publishes notes with publish: true.
	RequirePublish bool
	Workers        int
	// PostBuild, when set, runs over the output after every build while the
	// build lock is still held.
	PostBuild *postbuild.Processor
}

type Builder struct {
	mu   sync.Mutex
	fs   afero.Fs
	out  *storage.Storage
	tmpl *Templates
	md   goldmark.Markdown
	opts Options
	log  logger.Logger
}

func NewBuilder(fs afero.Fs, out *storage.Storage, tmpl *Templates, md goldmark.Markdown, opts Options, log logger.Logger) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{fs: fs, out: out, tmpl: tmpl, md: md, opts: opts, log: log}
}

// rendered is a page whose markdown has been converted.
type rendered struct {
	note    Note
	content string
	stats   embed.Stats
}

// Build regenerates the whole site. Builds are serialised.
func (b *Builder) Build(ctx context.Context) (Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	var report Report

	// Clean output directory contents (but not the dir itself, which may be a mount point)
	if err := b.out.Clean(); err != nil {
		return report, fmt.Errorf("clean output: %w", err)
	}

	notes, err := b.collectNotes()
	if err != nil {
		return report, fmt.Errorf("collect notes: %w", err)
	}

	// Filter to published notes, separate out index note
	var published []Note
	var indexNote *Note
	for _, n := range notes {
		if !b.isPublished(n) {
			continue
		}
		if n.Slug == indexSlug {
			n := n
			indexNote = &n
			continue
		}
		published = append(published, n)
	}

	sort.SliceStable(published, func(i, j int) bool {
		return published[i].Date().After(published[j].Date())
	})

	all := published
	if indexNote != nil {
		all = append(append([]Note{}, published...), *indexNote)
	}
	links := NewLinkIndex(lo.Map(all, func(n Note, _ int) string { return n.Slug }))
	backlinks := buildBacklinks(all, links)
	slugIndex := lo.SliceToMap(all, func(n Note) (string, Note) { return n.Slug, n })

	pages, err := b.renderAll(ctx, all, links)
	if err != nil {
		return report, err
	}

	var stats embed.Stats
	for _, r := range pages {
		stats.Add(r.stats)

		out := r.note.Slug + "/index.html"
		if r.note.Slug == indexSlug {
			out = "index.html"
		}
		if err := b.writePage(out, r, backlinks[r.note.Slug], slugIndex); err != nil {
			return report, fmt.Errorf("build page %s: %w", r.note.Slug, err)
		}
		report.Pages++
	}
	report.Embeds, report.Unresolved = stats.Replaced, stats.Unresolved

	excerpts := lo.SliceToMap(pages, func(r rendered) (string, string) {
		return r.note.Slug, Excerpt(r.content, excerptLength)
	})

	// Generate index page: use index.md if it exists, otherwise auto-generate listing
	if indexNote == nil {
		if err := b.writeListing("index.html", "", published, excerpts); err != nil {
			return report, fmt.Errorf("build index: %w", err)
		}
		report.Pages++
	}

	n, err := b.buildTagPages(published, excerpts)
	if err != nil {
		return report, fmt.Errorf("build tag pages: %w", err)
	}
	report.Pages += n

	if err := b.out.WriteFile("style.css", b.tmpl.StyleCSS()); err != nil {
		return report, fmt.Errorf("write css: %w", err)
	}
	if err := b.copyMedia(); err != nil {
		return report, fmt.Errorf("copy media: %w", err)
	}
	if err := b.copyStatic(); err != nil {
		return report, fmt.Errorf("copy static: %w", err)
	}
	if err := b.buildSearchIndex(published, excerpts); err != nil {
		return report, fmt.Errorf("build search index: %w", err)
	}

	if b.opts.PostBuild != nil {
		sum, err := b.opts.PostBuild.Run(ctx)
		if err != nil {
			return report, fmt.Errorf("post-build pass: %w", err)
		}
		report.Embeds += sum.Replaced
		b.log.Debugf("post-build: %d pages, %d changed, %d embeds", sum.Pages, sum.Changed, sum.Replaced)
	}

	b.log.Infof("built %d pages in %s (%d embeds, %d unresolved)",
		report.Pages, time.Since(start).Round(time.Millisecond), report.Embeds, report.Unresolved)
	return report, nil
}

func (b *Builder) isPublished(n Note) bool {
	if n.Draft {
		return false
	}
	return !b.opts.RequirePublish || n.Publish
}

func (b *Builder) collectNotes() ([]Note, error) {
	var notes []Note
	err := afero.Walk(b.fs, b.opts.ContentDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// .obsidian, .trash and friends
			if path != b.opts.ContentDir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !fileutil.IsMd(path) {
			return nil
		}

		relPath, _ := filepath.Rel(b.opts.ContentDir, path)
		data, err := afero.ReadFile(b.fs, path)
		if err != nil {
			return err
		}

		fm, body := markdown.ParseFrontmatter(string(data))
		// Preserve folder structure in slug: "projects/foo.md" → "projects/foo"
		slug := slugifyPath(filepath.ToSlash(strings.TrimSuffix(relPath, filepath.Ext(relPath))))
		if slug == "" {
			b.log.Warnf("skipping %s: file name produces an empty slug", relPath)
			return nil
		}

		if fm.Title == "" {
			fm.Title = strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
		}

		notes = append(notes, Note{
			Frontmatter: fm,
			Slug:        slug,
			Body:        body,
			FilePath:    path,
			ModTime:     info.ModTime(),
		})
		return nil
	})
	return notes, err
}

func buildBacklinks(notes []Note, links *LinkIndex) map[string][]string {
	// slug -> list of slugs that link to it
	backlinks := make(map[string][]string)
	for _, n := range notes {
		for _, target := range links.Links(n.Body) {
			if target != n.Slug {
				backlinks[target] = append(backlinks[target], n.Slug)
			}
		}
	}
	return backlinks
}

// renderAll converts every note in a bounded pool. Results keep the order of
// notes.
func (b *Builder) renderAll(ctx context.Context, notes []Note, links *LinkIndex) ([]rendered, error) {
	out := make([]rendered, len(notes))
	p := pool.New().WithMaxGoroutines(b.opts.Workers).WithContext(ctx).WithCancelOnError()
	for i, n := range notes {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := b.render(n, links)
			if err != nil {
				return fmt.Errorf("render %s: %w", n.Slug, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) render(n Note, links *LinkIndex) (rendered, error) {
	// Convert wikilinks in markdown before rendering
	body := ReplaceWikiLinks(n.Body, links)

	pc := embed.NewContext(n.FilePath)
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(body), &buf, parser.WithContext(pc)); err != nil {
		return rendered{}, err
	}
	return rendered{note: n, content: buf.String(), stats: embed.StatsFromContext(pc)}, nil
}

func (b *Builder) writePage(out string, r rendered, backlinkSlugs []string, slugIndex map[string]Note) error {
	n := r.note

	// Build backlink summaries
	var backlinks []NoteSummary
	for _, slug := range lo.Uniq(backlinkSlugs) {
		if linked, ok := slugIndex[slug]; ok {
			backlinks = append(backlinks, NoteSummary{
				Title: linked.Title,
				Slug:  linked.Slug,
				URL:   NoteURL(linked.Slug),
			})
		}
	}

	desc := n.Description
	if desc == "" {
		desc = Excerpt(r.content, excerptLength)
	}

	data := PageData{
		Site:        b.opts.Site,
		Title:       n.Title,
		Description: desc,
		DateStr:     FormatDate(n.Date()),
		Tags:        tagLinks(n.Tags),
		Content:     template.HTML(r.content),
		Backlinks:   backlinks,
	}
	return b.execute(out, "page.html", data)
}

func (b *Builder) writeListing(out, heading string, notes []Note, excerpts map[string]string) error {
	summaries := lo.Map(notes, func(n Note, _ int) NoteSummary {
		return NoteSummary{
			Title:   n.Title,
			Slug:    n.Slug,
			URL:     NoteURL(n.Slug),
			DateStr: FormatDate(n.Date()),
			Excerpt: excerpts[n.Slug],
		}
	})
	return b.execute(out, "index.html", IndexData{Site: b.opts.Site, Heading: heading, Notes: summaries})
}

func (b *Builder) buildTagPages(notes []Note, excerpts map[string]string) (int, error) {
	byTag := map[string][]Note{}
	names := map[string]string{}
	for _, n := range notes {
		for _, t := range tagLinks(n.Tags) {
			byTag[t.Slug] = append(byTag[t.Slug], n)
			if _, ok := names[t.Slug]; !ok {
				names[t.Slug] = t.Name
			}
		}
	}
	for slug, tagged := range byTag {
		if err := b.writeListing("tags/"+slug+"/index.html", "#"+names[slug], tagged, excerpts); err != nil {
			return 0, err
		}
	}
	return len(byTag), nil
}

func tagLinks(tags []string) []TagLink {
	links := lo.FilterMap(tags, func(t string, _ int) (TagLink, bool) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		slug := slugifyPath(t)
		return TagLink{Name: t, Slug: slug}, slug != ""
	})
	return lo.UniqBy(links, func(t TagLink) string { return t.Slug })
}

func (b *Builder) execute(out, name string, data any) error {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, name, data); err != nil {
		return err
	}
	return b.out.WriteFile(out, buf.Bytes())
}

type searchEntry struct {
	Title   string   `json:"title"`
	Slug    string   `json:"slug"`
	Date    string   `json:"date"`
	Tags    []string `json:"tags,omitempty"`
	Excerpt string   `json:"excerpt,omitempty"`
}

func (b *Builder) buildSearchIndex(notes []Note, excerpts map[string]string) error {
	entries := lo.Map(notes, func(n Note, _ int) searchEntry {
		return searchEntry{
			Title:   n.Title,
			Slug:    n.Slug,
			Date:    FormatDate(n.Date()),
			Tags:    lo.Map(tagLinks(n.Tags), func(t TagLink, _ int) string { return t.Name }),
			Excerpt: excerpts[n.Slug],
		}
	})
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return b.out.WriteFile("search.json", data)
}

// copyMedia copies images and videos under the content dir to images/<rel>,
// matching the web paths the resolver hands out for content roots.
func (b *Builder) copyMedia() error {
	return b.copyTree(b.opts.ContentDir, "images", fileutil.IsMedia)
}

// copyStatic copies the static dir to the site root.
func (b *Builder) copyStatic() error {
	if b.opts.StaticDir == "" {
		return nil
	}
	if ok, _ := afero.DirExists(b.fs, b.opts.StaticDir); !ok {
		return nil
	}
	return b.copyTree(b.opts.StaticDir, "", func(string) bool { return true })
}

func (b *Builder) copyTree(src, dest string, keep func(string) bool) error {
	return afero.Walk(b.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != src && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !keep(path) {
			return nil
		}

		relPath, _ := filepath.Rel(src, path)
		f, err := b.fs.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return b.out.Put(filepath.ToSlash(filepath.Join(dest, relPath)), f)
	})
}
