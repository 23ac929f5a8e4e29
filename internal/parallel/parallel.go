// Package parallel runs independent per-index work on a bounded number of
// goroutines.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Workers      int // Goroutine bound; below 1 means runtime.GOMAXPROCS(0), 1 runs sequentially.
	MinChunkSize int // Minimum items per goroutine.
}

// DefaultConfig uses every available CPU with single-item chunks.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.GOMAXPROCS(0),
		MinChunkSize: 1,
	}
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

// For executes f(i) for i in [0, n) in contiguous chunks and returns the
// first error. Remaining chunks still run to completion; each chunk stops at
// its first failing index.
func For(n int, f func(i int) error, cfg Config) error {
	workers := cfg.workers()
	minChunk := max(cfg.MinChunkSize, 1)
	if workers == 1 || n <= minChunk {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	chunkSize := max((n+workers-1)/workers, minChunk)

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunkSize {
		start := start
		end := min(start+chunkSize, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := f(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Each is For for work that cannot fail.
func Each(n int, f func(i int), cfg Config) {
	_ = For(n, func(i int) error {
		f(i)
		return nil
	}, cfg)
}
