package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"seedtrace/pkg/benchmark"
	"seedtrace/pkg/seed"
)

// Version information - will be set at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Command-line flags
var (
	blocksFlag     int
	iterationsFlag int
	workersFlag    string
	roundFlag      int
	stepFlag       string
	perKeyFlag     bool
	decryptFlag    bool
	outputFlag     string
	helpFlag       bool
)

func init() {
	flag.IntVar(&blocksFlag, "blocks", 1<<16, "Blocks per run")
	flag.IntVar(&iterationsFlag, "iterations", 8, "Number of runs per worker count")
	flag.StringVar(&workersFlag, "workers", "1,2,4,8", "Comma-separated worker counts")
	flag.IntVar(&roundFlag, "round", 16, "1-based round to stop at")
	flag.StringVar(&stepFlag, "step", "output", "Intermediate step (name or id)")
	flag.BoolVar(&perKeyFlag, "perkey", false, "Use one key per block instead of a broadcast key")
	flag.BoolVar(&decryptFlag, "decrypt", false, "Benchmark the inverse cipher")
	flag.StringVar(&outputFlag, "output", "", "Output file for results (CSV format)")
	flag.BoolVar(&helpFlag, "help", false, "Show help")

	flag.Parse()

	if helpFlag {
		printUsage()
		os.Exit(0)
	}
}

func printUsage() {
	fmt.Printf("seedtrace Benchmark Tool %s (built %s)\n\n", Version, BuildTime)
	fmt.Println("Usage: benchmark [options]")
	fmt.Println("\nOptions:")
	flag.PrintDefaults()

	fmt.Println("\nExamples:")
	fmt.Println("  benchmark --blocks 1000000 --workers 1,4,16")
	fmt.Println("  benchmark --round 3 --step gc --perkey")
	fmt.Println("  benchmark --output results.csv")
}

func parseWorkers(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad worker count: %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func main() {
	fmt.Printf("seedtrace Benchmark Tool %s (built %s)\n\n", Version, BuildTime)

	workers, err := parseWorkers(workersFlag)
	if err != nil {
		log.Fatalf("Invalid workers: %v", err)
	}
	step, err := seed.ParseStep(stepFlag)
	if err != nil {
		log.Fatalf("Invalid step: %v", err)
	}

	opts := &benchmark.Options{
		Blocks:     blocksFlag,
		Iterations: iterationsFlag,
		Workers:    workers,
		Round:      roundFlag,
		Step:       step,
		PerKey:     perKeyFlag,
		Decrypt:    decryptFlag,
	}

	log.Printf("Running benchmark for round %d step %s...", opts.Round, opts.Step)
	log.Printf("Blocks: %d, Iterations: %d, Workers: %v", opts.Blocks, opts.Iterations, opts.Workers)

	startTime := time.Now()
	results, err := benchmark.Run(opts)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}
	log.Printf("Benchmark completed in %v", time.Since(startTime))

	for _, r := range results {
		benchmark.PrintResults(r)
	}

	if outputFlag != "" && len(results) > 0 {
		log.Printf("Saving results to %s", outputFlag)
		if err := benchmark.SaveResultsToFile(results, outputFlag); err != nil {
			log.Fatalf("Failed to save results: %v", err)
		}
		log.Printf("Results saved successfully")
	}
}
