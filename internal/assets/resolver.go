// Package assets maps embed names to files on disk and decides how a resolved
// file is embedded in a page.
package assets

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/tkwsnb/notepress/internal/fileutil"
)

// DefaultExtensions is the suffix search order used when a root does not set
// its own. The bare name is tried first so names that already carry an
// extension match exactly.
var DefaultExtensions = []string{"", ".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".mp4", ".webm"}

const DefaultSeparator = "-"

// SearchRoot is one directory the resolver looks in.
type SearchRoot struct {
	// Dir is absolute, or relative to the source document's directory when
	// Relative is set.
	Dir      string
	Relative bool
	// Static roots are served from the site root.
	Static bool
	// URLPrefix is prepended to the web path of files found under this root.
	URLPrefix string
	// Extensions overrides DefaultExtensions for this root.
	Extensions []string
}

// Asset is a resolved embed.
type Asset struct {
	Name     string // normalised name that matched
	FilePath string
	WebPath  string
}

type Options struct {
	Roots []SearchRoot
	// ContentRoot is the directory web paths of non-static roots are relative to.
	ContentRoot string
	Extensions  []string
	Separator   string
}

// Resolver searches an ordered list of roots. Root order, then extension
// order, decides the winner: the first existing file is returned.
type Resolver struct {
	fs          afero.Fs
	roots       []SearchRoot
	contentRoot string
	exts        []string
	sep         string
}

func NewResolver(fs afero.Fs, opts Options) *Resolver {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Resolver{
		fs:          fs,
		roots:       opts.Roots,
		contentRoot: filepath.Clean(opts.ContentRoot),
		exts:        NormalizeExtensions(exts),
		sep:         sep,
	}
}

// Roots returns the configured search order.
func (r *Resolver) Roots() []SearchRoot {
	return r.roots
}

// NormalizeExtensions lowercases, dots and dedupes an extension list while
// keeping its order. The empty suffix stays as is.
func NormalizeExtensions(exts []string) []string {
	out := lo.Map(exts, func(e string, _ int) string {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		return e
	})
	return lo.Uniq(out)
}

// NormalizeName prepares a raw embed name for lookup: surrounding space is
// trimmed, a trailing .md left over from note links is dropped and inner
// spaces become sep.
func NormalizeName(raw, sep string) string {
	name := strings.TrimSpace(raw)
	if strings.HasSuffix(strings.ToLower(name), ".md") {
		name = strings.TrimSpace(name[:len(name)-3])
	}
	return strings.ReplaceAll(name, " ", sep)
}

// Resolve finds rawName for a document living in baseDir. ok is false when no
// root holds a matching file or the name is empty.
func (r *Resolver) Resolve(baseDir, rawName string) (Asset, bool) {
	name := NormalizeName(rawName, r.sep)
	if name == "" || name == "." || name == ".." {
		return Asset{}, false
	}

	for _, root := range r.roots {
		dir := root.Dir
		if root.Relative {
			if baseDir == "" {
				continue
			}
			dir = filepath.Join(baseDir, dir)
		}

		exts := r.exts
		if len(root.Extensions) > 0 {
			exts = NormalizeExtensions(root.Extensions)
		}

		for _, ext := range exts {
			candidate := filepath.Join(dir, filepath.FromSlash(name+ext))
			if !within(dir, candidate) {
				continue
			}
			if !fileutil.FileExists(r.fs, candidate) {
				continue
			}
			return Asset{
				Name:     name + ext,
				FilePath: candidate,
				WebPath:  r.webPath(root, dir, candidate),
			}, true
		}
	}
	return Asset{}, false
}

func (r *Resolver) webPath(root SearchRoot, dir, file string) string {
	base := dir
	if !root.Static && r.contentRoot != "." && within(r.contentRoot, file) {
		base = r.contentRoot
	}
	rel, err := filepath.Rel(base, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	return path.Join("/", root.URLPrefix, filepath.ToSlash(rel))
}

// within reports whether p is dir or below it.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
