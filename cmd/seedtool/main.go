package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version information - will be set at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "seedtool",
		Usage:   "batch SEED cipher engine with per-round, per-step intermediates",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Commands: []*cli.Command{
			stepCommand,
			encryptCommand,
			decryptCommand,
			vectorsCommand,
			logsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
