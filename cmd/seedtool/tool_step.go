package main

import (
	"fmt"
	"os"

	"seedtrace/pkg/config"
	"seedtrace/pkg/log"
	"seedtrace/pkg/seed"
	"seedtrace/pkg/tracefile"

	"github.com/urfave/cli/v2"
)

const stepCommandHelpTemplate = `NAME:
   {{.HelpName}} - {{.Usage}}

USAGE:
   {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[command options]{{end}}
{{if .Description}}
DESCRIPTION:
   {{.Description | Indent 4}}
{{end}}
STEPS (name or numeric id):
     0 roundkey      per-key subkey pair ks0||ks1 for the round
     1 right         right half entering the round, per block
     2 addroundkey   subkey mixing words x0||x2, per block
     3 gda           first G output, per block
     4 gc            second G output, per block
     5 gdb           third G output, per block
     6 f             F-function halves x8||x7, per block
     7 output        block state after the round; the ciphertext at round 16

OPTIONS:
{{range .VisibleFlags}}   {{.}}
{{end}}
EXAMPLES:
     # Round-3 GC intermediate for a trace set under one key
     seedtool step --vals traces.bin.zst --key 000102030405060708090a0b0c0d0e0f --round 3 --step gc

     # Full decryption of a batch, one key per block
     seedtool step --vals ct.bin --keys keys.bin --round 16 --step output --decrypt
`

var stepCommand = &cli.Command{
	Name:               "step",
	Usage:              "runs the batch up to a (round, step) cut point and prints the intermediates",
	UsageText:          "step [options]",
	Description:        `Drives the instrumented SEED engine to the requested round and intermediate step.`,
	CustomHelpTemplate: stepCommandHelpTemplate,
	Flags: append(batchFlags(),
		&cli.IntFlag{
			Name:    "round",
			Aliases: []string{"r"},
			Usage:   "1-based round to stop at `ROUND`",
			Value:   16,
		},
		&cli.StringFlag{
			Name:    "step",
			Aliases: []string{"s"},
			Usage:   "intermediate step `NAME` (or numeric id)",
			Value:   "output",
		},
		&cli.BoolFlag{
			Name:  "decrypt",
			Usage: "run the inverse cipher (reversed subkey order)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write raw big-endian values to `PATH` instead of hex on stdout",
		},
	),
	Action: stepCmd,
}

// batchFlags are shared by every command that consumes a block batch
// and a key batch.
func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "vals",
			Usage: "trace-set `PATH` with the input blocks (.zst/.gz transparently decompressed)",
		},
		&cli.StringFlag{
			Name:  "val",
			Usage: "single input block as 32 hex digits",
		},
		&cli.StringFlag{
			Name:  "keys",
			Usage: "trace-set `PATH` with one 16-byte key per block",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "single broadcast key as 32 hex digits",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "worker `COUNT` for the engine's inner loops (0 = config/auto)",
		},
	}
}

// loadBatch resolves the (vals, keys) buffers from the file/hex flag
// pairs, preferring files.
func loadBatch(c *cli.Context) (vals, keys []byte, err error) {
	switch {
	case c.IsSet("vals"):
		vals, err = tracefile.Load(c.String("vals"))
	case c.IsSet("val"):
		vals, err = tracefile.ParseHexBlock(c.String("val"))
	default:
		err = fmt.Errorf("one of --vals or --val is required")
	}
	if err != nil {
		return nil, nil, err
	}
	switch {
	case c.IsSet("keys"):
		keys, err = tracefile.Load(c.String("keys"))
	case c.IsSet("key"):
		keys, err = tracefile.ParseHexBlock(c.String("key"))
	default:
		err = fmt.Errorf("one of --keys or --key is required")
	}
	if err != nil {
		return nil, nil, err
	}
	if err := tracefile.CheckKeyCount(vals, keys); err != nil {
		return nil, nil, err
	}
	return vals, keys, nil
}

// setupTool loads the shared config and points the logger at the
// configured sink. Returns the effective worker count.
func setupTool(c *cli.Context) (*config.Config, int, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.ConsoleLog {
		log.SetStd()
	} else if err := log.Init(cfg.LogDBFile); err != nil {
		// Logging is best-effort for one-shot runs; fall back to console.
		log.SetStd()
		log.Warn().Err(err).Msg("sqlite log sink unavailable, using console")
	}
	workers := cfg.Workers
	if c.Int("workers") > 0 {
		workers = c.Int("workers")
	}
	return cfg, workers, nil
}

func stepCmd(c *cli.Context) error {
	step, err := seed.ParseStep(c.String("step"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	_, workers, err := setupTool(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	defer log.Close()

	vals, keys, err := loadBatch(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	engine := seed.NewEngine()
	capture, err := engine.Execute(vals, keys, c.Int("round"), step, c.Bool("decrypt"), workers)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	log.Capture(capture.Round, capture.Step.String(), c.Bool("decrypt"), capture.Rows()).
		Int("workers", workers).Msg("cut point captured")

	if out := c.String("output"); out != "" {
		if err := writeCapture(out, capture); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		return nil
	}
	printCapture(os.Stdout, capture)
	return nil
}
