package main

import (
	"github.com/urfave/cli/v2"
)

func Build(isDebug *bool, configPath *string) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "render the content dir into the output dir",
		Action: func(c *cli.Context) error {
			e, err := newEnv(*isDebug, *configPath)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck

			rebuild, err := e.rebuildFunc()
			if err != nil {
				return err
			}

			infoPrinter.Printf("Building %s into %s...\n", e.cfg.ContentDir, e.cfg.OutputDir)
			report, err := rebuild(c.Context)
			if err != nil {
				errorPrinter.Printf("Build failed: %v\n", err)
				return cli.Exit("", 1)
			}

			successPrinter.Printf("Built %d pages with %d embeds.\n", report.Pages, report.Embeds)
			if report.Unresolved > 0 {
				warningPrinter.Printf("%d embeds could not be resolved, see the warnings above.\n", report.Unresolved)
			}
			return nil
		},
	}
}
