package postbuild

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/tkwsnb/notepress/internal/logger"
	"github.com/tkwsnb/notepress/internal/storage"
)

type Summary struct {
	Pages    int
	Changed  int
	Replaced int
}

// Processor runs a PageRewriter over every page in the output store.
type Processor struct {
	store    *storage.Storage
	rewriter *PageRewriter
	workers  int
	log      logger.Logger
}

func NewProcessor(store *storage.Storage, rw *PageRewriter, workers int, log logger.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{store: store, rewriter: rw, workers: workers, log: log}
}

// Run rewrites pages independently and writes back only the ones that
// changed. The first I/O error cancels the remaining pages.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	pages, err := p.store.List(".html")
	if err != nil {
		return Summary{}, fmt.Errorf("list pages: %w", err)
	}

	var changed, replaced atomic.Int64
	wp := pool.New().WithMaxGoroutines(p.workers).WithContext(ctx).WithCancelOnError()
	for _, page := range pages {
		wp.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := p.store.ReadFile(page.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", page.Path, err)
			}
			full, err := p.store.FullPath(page.Path)
			if err != nil {
				return err
			}

			out, n := p.rewriter.rewrite(string(data), filepath.Dir(full))
			if n == 0 {
				return nil
			}
			if err := p.store.WriteFile(page.Path, []byte(out)); err != nil {
				return fmt.Errorf("write %s: %w", page.Path, err)
			}
			changed.Add(1)
			replaced.Add(int64(n))
			p.log.Debugf("post-build rewrote %d embeds in %s", n, page.Path)
			return nil
		})
	}

	err = wp.Wait()
	return Summary{
		Pages:    len(pages),
		Changed:  int(changed.Load()),
		Replaced: int(replaced.Load()),
	}, err
}
