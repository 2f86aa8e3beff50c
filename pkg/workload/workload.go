// Package workload provides CPU-bound units of work used to heat the die.
package workload

import (
	"sync/atomic"
	"time"
)

// Generator consumes CPU time in fixed units.
// RunUnit must not block or yield.
type Generator interface {
	RunUnit()
}

// GeneratorFunc is the func form of Generator.
type GeneratorFunc func()

// RunUnit implements Generator.
func (f GeneratorFunc) RunUnit() {
	f()
}

// Default knobs matching a 5x5 matrix and recursion depth 1000.
const (
	DefaultMatrixSize = 5
	DefaultDepth      = 1000
)

// sink receives every result so the computation is never elided.
var sink int64

// Recursive fills two constant matrices on every level of a recursion of
// Depth levels and folds an element of each into a multiply-accumulate.
// MatrixSize and Depth together set the cost of one unit.
type Recursive struct {
	MatrixSize int
	Depth      int
}

// NewRecursive creates a Recursive generator with default cost.
func NewRecursive() *Recursive {
	return &Recursive{MatrixSize: DefaultMatrixSize, Depth: DefaultDepth}
}

// RunUnit implements Generator.
func (r *Recursive) RunUnit() {
	size := r.MatrixSize
	if size < 1 {
		size = 1
	}
	a := make([]int64, size*size)
	b := make([]int64, size*size)
	atomic.AddInt64(&sink, r.level(a, b, size, int64(r.Depth)))
}

func (r *Recursive) level(a, b []int64, size int, n int64) int64 {
	for i := range a {
		a[i] = 69
		b[i] = 99
	}
	c := a[len(a)-1] + b[(size-1)%len(b)]
	if n <= 1 {
		return 1
	}
	return n*r.level(a, b, size, n-1) + c
}

// Cost is the measured execution time of a generator's unit.
type Cost struct {
	Worst time.Duration
	Mean  time.Duration
}

// Measure runs samples units back to back and reports their cost.
// Worst is the BUSY phase overshoot bound of a scheduler using gen.
func Measure(gen Generator, samples int) Cost {
	if samples < 1 {
		samples = 1
	}
	var cost Cost
	var total time.Duration
	for i := 0; i < samples; i++ {
		start := time.Now()
		gen.RunUnit()
		elapsed := time.Since(start)
		total += elapsed
		if elapsed > cost.Worst {
			cost.Worst = elapsed
		}
	}
	cost.Mean = total / time.Duration(samples)
	return cost
}
