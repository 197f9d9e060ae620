package cpu

import (
	"fmt"
	"math/rand"

	"github.com/axon-ml/axon/internal/ndarray"
	"github.com/axon-ml/axon/internal/parallel"
)

// applyKernel runs one compute kernel over contiguous float32 views.
// The destination may alias a source: every kernel reads and writes
// index i only, so in-place execution is safe.
func applyKernel(kind ndarray.OpKind, scalar float32, ins [][]float32, out []float32, cfg parallel.Config) error {
	switch kind {
	case ndarray.OpAdd, ndarray.OpSub, ndarray.OpMul, ndarray.OpDiv:
		if len(ins) != 2 {
			return fmt.Errorf("cpu: %s expects 2 operands, got %d", kind, len(ins))
		}
		a, b := ins[0], ins[1]
		parallel.For(len(out), cfg, func(start, end int) {
			switch kind {
			case ndarray.OpAdd:
				for i := start; i < end; i++ {
					out[i] = a[i] + b[i]
				}
			case ndarray.OpSub:
				for i := start; i < end; i++ {
					out[i] = a[i] - b[i]
				}
			case ndarray.OpMul:
				for i := start; i < end; i++ {
					out[i] = a[i] * b[i]
				}
			case ndarray.OpDiv:
				for i := start; i < end; i++ {
					out[i] = a[i] / b[i]
				}
			}
		})
		return nil

	case ndarray.OpAddScalar, ndarray.OpSubScalar, ndarray.OpMulScalar, ndarray.OpDivScalar:
		if len(ins) != 1 {
			return fmt.Errorf("cpu: %s expects 1 operand, got %d", kind, len(ins))
		}
		a := ins[0]
		parallel.For(len(out), cfg, func(start, end int) {
			switch kind {
			case ndarray.OpAddScalar:
				for i := start; i < end; i++ {
					out[i] = a[i] + scalar
				}
			case ndarray.OpSubScalar:
				for i := start; i < end; i++ {
					out[i] = a[i] - scalar
				}
			case ndarray.OpMulScalar:
				for i := start; i < end; i++ {
					out[i] = a[i] * scalar
				}
			case ndarray.OpDivScalar:
				for i := start; i < end; i++ {
					out[i] = a[i] / scalar
				}
			}
		})
		return nil

	case ndarray.OpSetScalar:
		if len(ins) != 0 {
			return fmt.Errorf("cpu: %s expects no operands, got %d", kind, len(ins))
		}
		parallel.For(len(out), cfg, func(start, end int) {
			for i := start; i < end; i++ {
				out[i] = scalar
			}
		})
		return nil

	default:
		return fmt.Errorf("cpu: unknown op kind %d", kind)
	}
}

// fillKernel fills out with independent samples. Sampling is sequential
// on the shared source; the fill itself is one scheduled operation, so
// this does not stall other buffers.
//
// Note: uses math/rand (not crypto/rand) - appropriate for statistical
// sampling.
func fillKernel(dist ndarray.Distribution, a, b float32, out []float32) error {
	switch dist {
	case ndarray.DistUniform:
		for i := range out {
			out[i] = a + rand.Float32()*(b-a)
		}
		return nil
	case ndarray.DistGaussian:
		for i := range out {
			out[i] = a + float32(rand.NormFloat64())*b
		}
		return nil
	default:
		return fmt.Errorf("cpu: unknown distribution %d", dist)
	}
}
