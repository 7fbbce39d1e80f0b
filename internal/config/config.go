// Package config loads notepress.yml and applies NOTEPRESS_* environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tkwsnb/notepress/internal/assets"
	"github.com/tkwsnb/notepress/internal/highlight"
)

const DefaultPath = "notepress.yml"

// Root kinds, in the order DefaultRoots lists them.
const (
	RootSibling = "sibling" // directory next to the source document
	RootContent = "content" // directory under the content dir
	RootStatic  = "static"  // served from the site root
)

type Config struct {
	Site       Site      `yaml:"site"`
	ContentDir string    `yaml:"content_dir"`
	StaticDir  string    `yaml:"static_dir"`
	OutputDir  string    `yaml:"output_dir"`
	Assets     Assets    `yaml:"assets"`
	PostBuild  PostBuild `yaml:"postbuild"`
	Highlight  Highlight `yaml:"highlight"`
	Publish    Publish   `yaml:"publish"`
	Workers    int       `yaml:"workers"`
	Serve      Serve     `yaml:"serve"`
}

type Site struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Lang        string `yaml:"lang"`
}

type Assets struct {
	// SpaceReplacement replaces spaces in embed names before lookup.
	SpaceReplacement string   `yaml:"space_replacement"`
	Roots            []Root   `yaml:"roots"`
	Extensions       []string `yaml:"extensions"`
	VideoStyle       string   `yaml:"video_style"`
}

// Root is one embed search root. Dir is a subdirectory name for sibling and
// content roots; a static root uses static_dir unless Dir is set, in which case
// Dir is resolved against the content dir.
type Root struct {
	Kind       string   `yaml:"kind"`
	Dir        string   `yaml:"dir"`
	URLPrefix  string   `yaml:"url_prefix"`
	Extensions []string `yaml:"extensions"`
}

type PostBuild struct {
	Enabled bool `yaml:"enabled"`
	// BaseURL, when set, is used as the src prefix of rewritten embeds.
	BaseURL string `yaml:"base_url"`
}

type Highlight struct {
	Enabled bool   `yaml:"enabled"`
	Style   string `yaml:"style"`
}

type Publish struct {
	// RequireFlag only publishes notes with publish: true.
	RequireFlag bool `yaml:"require_flag"`
}

type Serve struct {
	ListenAddr string `yaml:"listen_addr"`
	Token      string `yaml:"token"`
	Watch      bool   `yaml:"watch"`
}

// DefaultRoots is the embed search order: assets/ beside the document, the
// site-wide content assets dir, then the static dir.
func DefaultRoots() []Root {
	return []Root{
		{Kind: RootSibling, Dir: "assets", URLPrefix: "/images"},
		{Kind: RootContent, Dir: "assets", URLPrefix: "/images"},
		{Kind: RootStatic},
	}
}

func Default() Config {
	return Config{
		Site: Site{
			Title: "notepress",
			Lang:  "en",
		},
		ContentDir: "content",
		StaticDir:  "public",
		OutputDir:  "_site",
		Assets: Assets{
			SpaceReplacement: assets.DefaultSeparator,
			Roots:            DefaultRoots(),
			VideoStyle:       assets.DefaultVideoStyle,
		},
		PostBuild: PostBuild{Enabled: true},
		Highlight: Highlight{Enabled: true, Style: highlight.DefaultStyle},
		Workers:   4,
		Serve:     Serve{ListenAddr: ":8080"},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error. Relative dirs are
// resolved against the directory holding the file.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	base := "."
	if path != "" {
		base = filepath.Dir(path)
		data, err := afero.ReadFile(fs, path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.ContentDir = envOr("NOTEPRESS_CONTENT_DIR", cfg.ContentDir)
	cfg.OutputDir = envOr("NOTEPRESS_OUTPUT_DIR", cfg.OutputDir)
	cfg.StaticDir = envOr("NOTEPRESS_STATIC_DIR", cfg.StaticDir)
	cfg.PostBuild.BaseURL = envOr("NOTEPRESS_ASSET_BASE_URL", cfg.PostBuild.BaseURL)
	cfg.Serve.Token = envOr("NOTEPRESS_TOKEN", cfg.Serve.Token)
	cfg.Serve.ListenAddr = envOr("NOTEPRESS_LISTEN_ADDR", cfg.Serve.ListenAddr)
	cfg.Serve.Watch = envBool("NOTEPRESS_WATCH", cfg.Serve.Watch)
	cfg.Workers = envInt("NOTEPRESS_WORKERS", cfg.Workers)

	if len(cfg.Assets.Roots) == 0 {
		cfg.Assets.Roots = DefaultRoots()
	}
	if cfg.Assets.SpaceReplacement == "" {
		cfg.Assets.SpaceReplacement = assets.DefaultSeparator
	}
	if cfg.Assets.VideoStyle == "" {
		cfg.Assets.VideoStyle = assets.DefaultVideoStyle
	}

	cfg.ContentDir = resolveDir(base, cfg.ContentDir)
	cfg.OutputDir = resolveDir(base, cfg.OutputDir)
	if cfg.StaticDir != "" {
		cfg.StaticDir = resolveDir(base, cfg.StaticDir)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ContentDir == "" {
		return fmt.Errorf("content_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if filepath.Clean(c.ContentDir) == filepath.Clean(c.OutputDir) {
		return fmt.Errorf("output_dir must differ from content_dir")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	for i, r := range c.Assets.Roots {
		switch r.Kind {
		case RootSibling, RootContent:
			if r.Dir == "" {
				return fmt.Errorf("assets.roots[%d]: %s root needs a dir", i, r.Kind)
			}
		case RootStatic:
			if r.Dir == "" && c.StaticDir == "" {
				return fmt.Errorf("assets.roots[%d]: static root without static_dir", i)
			}
		default:
			return fmt.Errorf("assets.roots[%d]: unknown kind %q", i, r.Kind)
		}
	}
	return nil
}

// ResolverOptions turns the configured roots into resolver search roots.
func (c Config) ResolverOptions() assets.Options {
	roots := make([]assets.SearchRoot, 0, len(c.Assets.Roots))
	for _, r := range c.Assets.Roots {
		sr := assets.SearchRoot{URLPrefix: r.URLPrefix, Extensions: r.Extensions}
		switch r.Kind {
		case RootSibling:
			sr.Dir = r.Dir
			sr.Relative = true
		case RootContent:
			sr.Dir = filepath.Join(c.ContentDir, r.Dir)
		case RootStatic:
			sr.Dir = c.StaticDir
			if r.Dir != "" {
				sr.Dir = resolveDir(c.ContentDir, r.Dir)
			}
			sr.Static = true
		default:
			continue
		}
		roots = append(roots, sr)
	}
	return assets.Options{
		Roots:       roots,
		ContentRoot: c.ContentDir,
		Extensions:  c.Assets.Extensions,
		Separator:   c.Assets.SpaceReplacement,
	}
}

func resolveDir(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	if abs, err := filepath.Abs(filepath.Join(base, dir)); err == nil {
		return abs
	}
	return filepath.Join(base, dir)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
