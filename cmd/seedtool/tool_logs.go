package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"seedtrace/pkg/log"
	"seedtrace/pkg/seed"

	"github.com/urfave/cli/v2"
)

const logsCommandHelpTemplate = `NAME:
   {{.HelpName}} - {{.Usage}}

USAGE:
   {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[command options]{{end}}
{{if .Description}}
DESCRIPTION:
   {{.Description | Indent 4}}
{{end}}
OPTIONS:
{{range .VisibleFlags}}   {{.}}
{{end}}
FILTERING:
     Every engine run is recorded with its cut point: the 1-based round,
     the step name, the direction, and the number of captured elements.
     --round and --step narrow the listing to matching runs; without
     them the newest events of any kind (including warnings and refused
     direction switches) are shown.

EXAMPLES:
     # The last 50 events of the current session database
     seedtool logs -n 50

     # Every recorded round-3 GC capture
     seedtool logs --round 3 --step gc

     # Recent full encryptions/decryptions, human-readable
     seedtool logs --step output --pretty
`

var logsCommand = &cli.Command{
	Name:               "logs",
	Usage:              "query recorded engine runs from the trace-event database",
	UsageText:          "seedtool logs [options]",
	Description:        `Lists the JSON trace events past runs wrote, filtered by cut point.`,
	CustomHelpTemplate: logsCommandHelpTemplate,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "dbfile",
			Aliases: []string{"f"},
			Usage:   "Trace-event database `FILE` under the app dir",
			Value:   "seedtool.db",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Maximum `NUMBER` of events to list",
			Value:   100,
		},
		&cli.IntFlag{
			Name:    "round",
			Aliases: []string{"r"},
			Usage:   "Only events captured at 1-based `ROUND`",
		},
		&cli.StringFlag{
			Name:    "step",
			Aliases: []string{"s"},
			Usage:   "Only events captured at step `NAME` (or numeric id)",
		},
		&cli.BoolFlag{
			Name:    "pretty",
			Aliases: []string{"p"},
			Usage:   "One summary line per event instead of raw JSON",
		},
	},
	Action: logsCmd,
}

func logsCmd(c *cli.Context) error {
	count := c.Int("count")
	if count <= 0 {
		return cli.Exit("Error: --count (-n) must be a positive number.", 1)
	}

	round := c.Int("round")
	if c.IsSet("round") && (round < 1 || round > 16) {
		return cli.Exit("Error: --round (-r) must be in [1, 16].", 1)
	}

	// Normalize the step filter through the engine's own parser so
	// numeric ids and mixed case match what runs were recorded with.
	stepName := ""
	if c.IsSet("step") {
		step, err := seed.ParseStep(c.String("step"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		stepName = step.String()
	}

	if err := log.Init(c.String("dbfile")); err != nil {
		if os.IsNotExist(err) {
			return cli.Exit(fmt.Sprintf("Error: trace-event database '%s' not found", c.String("dbfile")), 1)
		}
		return cli.Exit(fmt.Sprintf("Error opening trace-event database: %v", err), 1)
	}
	defer log.Close()

	var entries []log.Entry
	var err error
	if c.IsSet("round") || stepName != "" {
		entries, err = log.ByCutPoint(round, stepName, count)
	} else {
		entries, err = log.LastN(count)
	}
	if err != nil {
		if errors.Is(err, log.ErrNotInitialized) {
			return cli.Exit("Internal Error: trace-event database handle became unavailable.", 2)
		}
		return cli.Exit(fmt.Sprintf("Error retrieving trace events: %v", err), 1)
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No trace events match.")
		return nil
	}

	for _, e := range entries {
		if !c.Bool("pretty") {
			fmt.Println(e.Raw)
			continue
		}
		cut := "-"
		if e.Round >= 1 {
			cut = fmt.Sprintf("round %2d %s", e.Round, e.Step)
		}
		fmt.Printf("#%-6d %s  %s\n", e.ID, e.InsertedAt.Format(time.DateTime), cut)
	}
	return nil
}
