package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/tkwsnb/notepress/internal/server"
	"github.com/tkwsnb/notepress/internal/watch"
)

func Serve(isDebug *bool, configPath *string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "build the site and serve it locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides serve.listen_addr",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "rebuild when notes or media change",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(*isDebug, *configPath)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck

			if addr := c.String("addr"); addr != "" {
				e.cfg.Serve.ListenAddr = addr
			}
			if c.Bool("watch") {
				e.cfg.Serve.Watch = true
			}
			if e.cfg.Serve.Token == "" {
				warningPrinter.Println("NOTEPRESS_TOKEN not set, the rebuild API is unauthenticated")
			}

			rebuild, err := e.rebuildFunc()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Initial site build
			if report, err := rebuild(ctx); err != nil {
				errorPrinter.Printf("Initial build failed: %v\n", err)
			} else {
				successPrinter.Printf("Built %d pages.\n", report.Pages)
			}

			if e.cfg.Serve.Watch {
				dirs := []string{e.cfg.ContentDir}
				if e.cfg.StaticDir != "" {
					dirs = append(dirs, e.cfg.StaticDir)
				}
				w := watch.New(e.fs, dirs, func(ctx context.Context) error {
					_, err := rebuild(ctx)
					return err
				}, e.log)
				if err := w.Snapshot(); err != nil {
					return errors.Wrap(err, "failed to hash watched files")
				}
				go func() {
					if err := w.Watch(ctx); err != nil {
						e.log.Errorf("watcher stopped: %v", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              e.cfg.Serve.ListenAddr,
				Handler:           server.New(e.store, rebuild, e.cfg.Serve.Token, e.log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				infoPrinter.Printf("Serving %s on %s\n", e.cfg.OutputDir, srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "server error")
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
