package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, Workers: 4, MinChunk: 8}

	seen := make([]int32, 1000)
	For(len(seen), cfg, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, v := range seen {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var counter int64
	For(100, Sequential(), func(_ int) {
		atomic.AddInt64(&counter, 1)
	})
	assert.Equal(t, int64(100), counter)
}

func TestRange_SmallInputRunsInline(t *testing.T) {
	cfg := DefaultConfig()

	calls := 0
	Range(cfg.MinChunk, cfg, func(lo, hi int) {
		calls++
		assert.Equal(t, 0, lo)
		assert.Equal(t, cfg.MinChunk, hi)
	})
	assert.Equal(t, 1, calls)
}

func TestRange_ChunksCoverInput(t *testing.T) {
	cfg := Config{Enabled: true, Workers: 3, MinChunk: 10}

	var total int64
	Range(95, cfg, func(lo, hi int) {
		assert.Less(t, lo, hi)
		atomic.AddInt64(&total, int64(hi-lo))
	})
	assert.Equal(t, int64(95), total)
}

func TestRange_Empty(t *testing.T) {
	Range(0, DefaultConfig(), func(lo, hi int) {
		t.Fatal("unexpected call")
	})
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	data := make([]float64, 4096)

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			For(len(data), cfg, func(j int) {
				data[j] = float64(j) * 0.5
			})
		}
	})

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			For(len(data), Sequential(), func(j int) {
				data[j] = float64(j) * 0.5
			})
		}
	})
}
