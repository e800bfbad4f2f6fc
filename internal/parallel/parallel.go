// Package parallel splits index ranges across goroutines.
//
// The network uses it to activate and back-propagate wide layers, where the
// neurons of one layer are independent of each other: each writes its own
// output slot and reads the shared input vector.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is spread.
type Config struct {
	Enabled  bool // Whether goroutines are used at all.
	Workers  int  // Upper bound on concurrently running chunks.
	MinChunk int  // Minimum indices per chunk; smaller ranges run inline.
}

// DefaultConfig uses one worker per CPU and chunks of at least 64 neurons.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:  n > 1,
		Workers:  n,
		MinChunk: 64,
	}
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() Config {
	return Config{}
}

// For calls f(i) for every i in [0, n). The calls for distinct i may run
// concurrently, so f must not share mutable state across indices.
func For(n int, cfg Config, f func(i int)) {
	Range(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}

// Range partitions [0, n) into contiguous chunks and calls f(lo, hi) once per
// chunk. It returns when every chunk is done.
func Range(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.Workers < 2 || n < 2*max(cfg.MinChunk, 1) {
		f(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, cfg.MinChunk)

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}
