// Package parallel provides the data-parallel runtime used by the parallel
// map strategy.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum task count worth fanning out.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.GOMAXPROCS(0)
	return Config{
		Enabled:      Available(),
		NumWorkers:   n,
		MinChunkSize: 2,
	}
}

// Available reports whether the process can run goroutines in parallel.
func Available() bool {
	return runtime.GOMAXPROCS(0) > 1
}

// ForErr executes f(i) for i in [0, n) and returns the first error.
//
// In parallel mode at most NumWorkers tasks run at once and there is no
// ordering among them. Once a task fails, tasks that have not started yet are
// skipped; tasks already running finish. The sequential fallback stops at the
// first failure, so both modes report the error of the failing task and never
// start work after it was observed.
func ForErr(n int, f func(i int) error, cfg Config) error {
	if !cfg.Enabled || n < cfg.MinChunkSize || n < 2 {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers(cfg))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return f(i)
		})
	}
	return g.Wait()
}

func workers(cfg Config) int {
	if cfg.NumWorkers < 1 {
		return 1
	}
	return cfg.NumWorkers
}
