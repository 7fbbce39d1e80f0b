package main

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	isDebug := false
	configPath := ""

	app := &cli.App{
		Name:     "notepress",
		Version:  version,
		Usage:    "Build a static blog from Obsidian notes",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "show debug information",
				Destination: &isDebug,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       "notepress.yml",
				Usage:       "path to the config file",
				EnvVars:     []string{"NOTEPRESS_CONFIG"},
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			Build(&isDebug, &configPath),
			PostBuild(&isDebug, &configPath),
			Serve(&isDebug, &configPath),
			Resolve(&isDebug, &configPath),
		},
	}

	if err := app.Run(os.Args); err != nil {
		errorPrinter.Println(err.Error())
		os.Exit(1)
	}
}

var (
	infoPrinter    = color.New(color.Bold)
	errorPrinter   = color.New(color.FgRed, color.Bold)
	warningPrinter = color.New(color.FgYellow)
	successPrinter = color.New(color.FgGreen, color.Bold)
)
