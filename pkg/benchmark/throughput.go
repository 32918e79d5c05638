// Package benchmark measures the batch engine's throughput across
// worker counts and cut points, for sizing analysis runs.
package benchmark

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"seedtrace/pkg/seed"
)

// ThroughputResults holds the results of one engine benchmark run.
type ThroughputResults struct {
	Step        seed.Step
	Round       int
	Workers     int
	Blocks      int
	Iterations  int
	TotalTime   time.Duration
	BlocksPerS  float64
	MBPerS      float64
	PerKeyBatch bool // one key per block rather than a broadcast key
}

// Options provides configuration for benchmarks.
type Options struct {
	Blocks     int
	Iterations int
	Workers    []int
	Round      int
	Step       seed.Step
	PerKey     bool
	Decrypt    bool
}

// DefaultOptions returns sensible defaults: full encryption of a
// mid-sized batch on 1, 2, 4 and 8 workers.
func DefaultOptions() *Options {
	return &Options{
		Blocks:     1 << 16,
		Iterations: 8,
		Workers:    []int{1, 2, 4, 8},
		Round:      16,
		Step:       seed.StepOutput,
	}
}

// Run executes the benchmark matrix and returns one result per worker
// count.
func Run(opts *Options) ([]*ThroughputResults, error) {
	vals := make([]byte, opts.Blocks*seed.BlockSize)
	if _, err := rand.Read(vals); err != nil {
		return nil, fmt.Errorf("benchmark: generating blocks: %w", err)
	}
	keyBlocks := 1
	if opts.PerKey {
		keyBlocks = opts.Blocks
	}
	keys := make([]byte, keyBlocks*seed.BlockSize)
	if _, err := rand.Read(keys); err != nil {
		return nil, fmt.Errorf("benchmark: generating keys: %w", err)
	}

	var results []*ThroughputResults
	for _, workers := range opts.Workers {
		r, err := runOne(opts, vals, keys, workers)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func runOne(opts *Options, vals, keys []byte, workers int) (*ThroughputResults, error) {
	start := time.Now()
	for i := 0; i < opts.Iterations; i++ {
		// A fresh engine per iteration so the persisted-prefix cache
		// cannot short-circuit the work being measured.
		engine := seed.NewEngine()
		if _, err := engine.Execute(vals, keys, opts.Round, opts.Step, opts.Decrypt, workers); err != nil {
			return nil, fmt.Errorf("benchmark: execute: %w", err)
		}
	}
	total := time.Since(start)

	processed := float64(opts.Blocks) * float64(opts.Iterations)
	secs := total.Seconds()
	return &ThroughputResults{
		Step:        opts.Step,
		Round:       opts.Round,
		Workers:     workers,
		Blocks:      opts.Blocks,
		Iterations:  opts.Iterations,
		TotalTime:   total,
		BlocksPerS:  processed / secs,
		MBPerS:      processed * seed.BlockSize / (1 << 20) / secs,
		PerKeyBatch: opts.PerKey,
	}, nil
}

// PrintResults prints the results of a throughput benchmark.
func PrintResults(r *ThroughputResults) {
	fmt.Printf("=== Throughput Benchmark: round %d, step %s, %d workers ===\n", r.Round, r.Step, r.Workers)
	fmt.Printf("Blocks per Run: %d\n", r.Blocks)
	fmt.Printf("Iterations: %d\n", r.Iterations)
	fmt.Printf("Total Time: %v\n", r.TotalTime)
	fmt.Printf("Throughput: %.0f blocks/s (%.1f MiB/s)\n", r.BlocksPerS, r.MBPerS)
	fmt.Println("==========================================")
}

// SaveResultsToFile saves benchmark results to a CSV file.
func SaveResultsToFile(results []*ThroughputResults, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	f.WriteString("Step,Round,Workers,Blocks,Iterations,TotalTimeNs,BlocksPerSecond,MiBPerSecond\n")

	for _, r := range results {
		f.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%d,%.0f,%.2f\n",
			r.Step,
			r.Round,
			r.Workers,
			r.Blocks,
			r.Iterations,
			r.TotalTime.Nanoseconds(),
			r.BlocksPerS,
			r.MBPerS))
	}

	return nil
}
