package main

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func Resolve(isDebug *bool, configPath *string) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "show what an embed in a document resolves to",
		ArgsUsage: "[document path] [embed name]",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 2 {
				return cli.Exit("resolve takes a document path and an embed name", 1)
			}
			doc, name := c.Args().Get(0), c.Args().Get(1)

			e, err := newEnv(*isDebug, *configPath)
			if err != nil {
				return err
			}
			defer e.log.Sync() //nolint:errcheck

			abs, err := filepath.Abs(doc)
			if err != nil {
				return errors.Wrapf(err, "failed to resolve path %s", doc)
			}

			asset, ok := e.resolver.Resolve(filepath.Dir(abs), name)
			if !ok {
				errorPrinter.Printf("![[%s]] was not found in any search root:\n", name)
				for _, r := range e.resolver.Roots() {
					dir := r.Dir
					if r.Relative {
						dir = filepath.Join(filepath.Dir(abs), dir)
					}
					errorPrinter.Printf("  - %s\n", dir)
				}
				return cli.Exit("", 1)
			}

			infoPrinter.Printf("file: %s\n", asset.FilePath)
			infoPrinter.Printf("web:  %s\n", asset.WebPath)

			rep, ok := e.classifier.Classify(asset)
			if !ok {
				warningPrinter.Println("unsupported file type, the embed will be left as is")
				return nil
			}
			successPrinter.Println(rep.HTML())
			return nil
		},
	}
}
