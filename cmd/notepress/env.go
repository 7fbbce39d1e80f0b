package main

import (
	"context"
	"io/fs"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	notepress "github.com/tkwsnb/notepress"
	"github.com/tkwsnb/notepress/internal/assets"
	"github.com/tkwsnb/notepress/internal/config"
	"github.com/tkwsnb/notepress/internal/embed"
	"github.com/tkwsnb/notepress/internal/highlight"
	"github.com/tkwsnb/notepress/internal/logger"
	"github.com/tkwsnb/notepress/internal/postbuild"
	"github.com/tkwsnb/notepress/internal/site"
	"github.com/tkwsnb/notepress/internal/storage"
)

// env wires the components every command shares.
type env struct {
	cfg        config.Config
	fs         afero.Fs
	log        *zap.SugaredLogger
	resolver   *assets.Resolver
	classifier assets.Classifier
	store      *storage.Storage
}

func newEnv(debug bool, configPath string) (*env, error) {
	log, err := logger.New(debug)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	osFs := afero.NewOsFs()
	cfg, err := config.Load(osFs, configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	log.Debugf("content %s, output %s, static %s", cfg.ContentDir, cfg.OutputDir, cfg.StaticDir)

	store, err := storage.New(osFs, cfg.OutputDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open output dir")
	}

	return &env{
		cfg:        cfg,
		fs:         osFs,
		log:        log,
		resolver:   assets.NewResolver(osFs, cfg.ResolverOptions()),
		classifier: assets.NewClassifier(cfg.Assets.VideoStyle),
		store:      store,
	}, nil
}

// builder returns the site builder. The post-build pass is chained into every
// build when it is enabled.
func (e *env) builder() (*site.Builder, error) {
	sub, err := fs.Sub(notepress.TemplateFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "template fs")
	}
	tmpl, err := site.LoadTemplates(sub)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load templates")
	}

	var hl *highlight.Highlighter
	if e.cfg.Highlight.Enabled {
		hl = highlight.New(e.cfg.Highlight.Style)
	}
	rw := embed.NewRewriter(e.resolver, e.classifier, e.log)

	opts := site.Options{
		Site:           e.cfg.Site,
		ContentDir:     e.cfg.ContentDir,
		StaticDir:      e.cfg.StaticDir,
		RequirePublish: e.cfg.Publish.RequireFlag,
		Workers:        e.cfg.Workers,
	}
	if e.cfg.PostBuild.Enabled {
		opts.PostBuild = e.postProcessor(true)
	}
	return site.NewBuilder(e.fs, e.store, tmpl, site.NewMarkdown(rw, hl), opts, e.log), nil
}

// postProcessor returns the post-build pass. afterBuild is set when the pass
// follows a build whose tree rewrite already reported unresolved embeds.
func (e *env) postProcessor(afterBuild bool) *postbuild.Processor {
	rw := &postbuild.PageRewriter{
		Resolver:   e.resolver,
		Classifier: e.classifier,
		BaseURL:    e.cfg.PostBuild.BaseURL,
		AfterBuild: afterBuild,
		Log:        e.log,
	}
	return postbuild.NewProcessor(e.store, rw, e.cfg.Workers, e.log)
}

// rebuildFunc builds the site, post-build pass included when enabled.
func (e *env) rebuildFunc() (func(ctx context.Context) (site.Report, error), error) {
	b, err := e.builder()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (site.Report, error) {
		report, err := b.Build(ctx)
		if err != nil {
			return report, errors.Wrap(err, "build failed")
		}
		return report, nil
	}, nil
}
