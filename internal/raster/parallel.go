package raster

import (
	"runtime"
	"sync/atomic"

	"github.com/gammazero/workerpool"
)

var workers atomic.Int64

func init() {
	workers.Store(int64(runtime.NumCPU()))
}

// SetWorkers sets the number of goroutines used for per-pixel work.
// Values below one reset it to the number of CPUs.
func SetWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	workers.Store(int64(n))
}

func Workers() int {
	return int(workers.Load())
}

// Rows calls fn once for every row index in [0, height), spreading blocks of
// rows across a worker pool. fn must only touch its own row.
func Rows(height int, fn func(y int)) {
	n := Workers()
	if height <= 0 {
		return
	}
	if n == 1 || height == 1 {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return
	}

	block := height / (n * 4)
	if block < 1 {
		block = 1
	}

	wp := workerpool.New(n)
	for start := 0; start < height; start += block {
		start := start
		end := min(start+block, height)
		wp.Submit(func() {
			for y := start; y < end; y++ {
				fn(y)
			}
		})
	}
	wp.StopWait()
}
