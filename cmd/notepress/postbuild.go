package main

import (
	"github.com/urfave/cli/v2"
)

func PostBuild(isDebug *bool, configPath *string) *cli.Command {
	return &cli.Command{
		Name:  "postbuild",
		Usage: "replace embed tokens left in an already built output dir",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "remote asset host used as the src prefix",
				EnvVars: []string{"NOTEPRESS_ASSET_BASE_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(*isDebug, *configPath)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck

			if u := c.String("base-url"); u != "" {
				e.cfg.PostBuild.BaseURL = u
			}

			infoPrinter.Printf("Processing pages in %s...\n", e.cfg.OutputDir)
			sum, err := e.postProcessor(false).Run(c.Context)
			if err != nil {
				errorPrinter.Printf("Post-build pass failed: %v\n", err)
				return cli.Exit("", 1)
			}

			successPrinter.Printf("Replaced %d embeds in %d of %d pages.\n", sum.Replaced, sum.Changed, sum.Pages)
			return nil
		},
	}
}
