package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 100000

	For(n, cfg, func(start, end int) {
		atomic.AddInt64(&counter, int64(end-start))
	})

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_CoversEveryIndex(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	n := 1000
	hits := make([]int32, n)
	For(n, cfg, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	For(100, cfg, func(start, end int) {
		atomic.AddInt64(&counter, int64(end-start))
	})

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_ZeroWorkers(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 0, MinChunkSize: 1}

	var counter int64
	For(100, cfg, func(start, end int) {
		atomic.AddInt64(&counter, int64(end-start))
	})

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_Empty(t *testing.T) {
	For(0, DefaultConfig(), func(start, end int) {
		t.Fatal("callback invoked for empty range")
	})
}
