// Package cpu implements the execution engine on host memory. Buffers
// are float32 slices in an id-indexed arena; compute, copy and fill
// requests run asynchronously under the shared dependency scheduler,
// with elementwise kernels chunked across the host's cores.
package cpu

import (
	"fmt"
	"sync"

	"github.com/axon-ml/axon/internal/engine"
	"github.com/axon-ml/axon/internal/ndarray"
	"github.com/axon-ml/axon/internal/parallel"
)

// Verify that Engine implements the collaborator boundary.
var _ ndarray.Engine = (*Engine)(nil)

// buffer is one host allocation. data stays nil for deferred
// allocations until the first operation touches the buffer.
type buffer struct {
	mu    sync.Mutex
	data  []float32
	size  int
	shape ndarray.Shape
	ctx   ndarray.Context
}

// slice materializes the buffer if needed and returns the [off, off+n)
// view. Bounds were validated when the operation was registered.
func (b *buffer) slice(off, n int) []float32 {
	b.mu.Lock()
	if b.data == nil {
		b.data = make([]float32, b.size)
	}
	d := b.data
	b.mu.Unlock()
	return d[off : off+n]
}

// Engine is the host-memory execution engine.
type Engine struct {
	sched *engine.Scheduler
	par   parallel.Config

	mu   sync.Mutex
	bufs map[ndarray.BufferID]*buffer
	next ndarray.BufferID
}

// New creates a host engine with default parallelism.
func New() *Engine {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a host engine with explicit kernel parallelism.
func NewWithConfig(par parallel.Config) *Engine {
	return &Engine{
		sched: engine.NewScheduler(par.NumWorkers),
		par:   par,
		bufs:  make(map[ndarray.BufferID]*buffer),
	}
}

// Allocate reserves a buffer sized to the shape's element count. With
// delayAlloc the backing slice is not created until first use.
func (e *Engine) Allocate(shape ndarray.Shape, ctx ndarray.Context, delayAlloc bool) (ndarray.BufferID, error) {
	if err := shape.Validate(); err != nil {
		return 0, fmt.Errorf("cpu: %w", err)
	}
	buf := &buffer{size: shape.NumElements(), shape: shape, ctx: ctx}
	if !delayAlloc {
		buf.data = make([]float32, buf.size)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.bufs[e.next] = buf
	return e.next, nil
}

// Release frees the buffer. Operations already registered against it
// keep their resolved views and complete normally. Releasing an unknown
// identity signals an ownership bug elsewhere and panics.
func (e *Engine) Release(id ndarray.BufferID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.bufs[id]; !ok {
		panic(fmt.Sprintf("cpu: release of unknown buffer %d", id))
	}
	delete(e.bufs, id)
	e.sched.Forget(id)
}

// lookup resolves a span to its buffer and validates its bounds.
func (e *Engine) lookup(s ndarray.Span) (*buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bufs[s.Buf]
	if !ok {
		return nil, fmt.Errorf("cpu: unknown buffer %d", s.Buf)
	}
	if s.Off < 0 || s.Len < 0 || s.Off+s.Len > b.size {
		return nil, fmt.Errorf("cpu: span [%d, %d) outside buffer %d of size %d", s.Off, s.Off+s.Len, s.Buf, b.size)
	}
	return b, nil
}

// fail registers an operation that does nothing but surface err at the
// next barrier on the affected buffers.
func (e *Engine) fail(reads, writes []ndarray.BufferID, err error) {
	e.sched.Register(reads, writes, func() error { return err })
}

// PushCompute registers a compute kernel writing dst. The request
// returns immediately; validation failures surface at the next barrier
// on dst.
func (e *Engine) PushCompute(kind ndarray.OpKind, scalar float32, srcs []ndarray.Span, dst ndarray.Span) {
	reads := make([]ndarray.BufferID, 0, len(srcs))
	for _, s := range srcs {
		reads = append(reads, s.Buf)
	}
	writes := []ndarray.BufferID{dst.Buf}

	dstBuf, err := e.lookup(dst)
	if err != nil {
		e.fail(reads, writes, err)
		return
	}
	srcBufs := make([]*buffer, len(srcs))
	for i, s := range srcs {
		if s.Len != dst.Len {
			e.fail(reads, writes, fmt.Errorf("cpu: %s operand %d has %d elements, destination has %d", kind, i, s.Len, dst.Len))
			return
		}
		if srcBufs[i], err = e.lookup(s); err != nil {
			e.fail(reads, writes, err)
			return
		}
	}

	e.sched.Register(reads, writes, func() error {
		out := dstBuf.slice(dst.Off, dst.Len)
		ins := make([][]float32, len(srcs))
		for i, s := range srcs {
			ins[i] = srcBufs[i].slice(s.Off, s.Len)
		}
		return applyKernel(kind, scalar, ins, out, e.par)
	})
}

// PushCopy registers an asynchronous buffer-to-buffer copy.
func (e *Engine) PushCopy(src, dst ndarray.Span) {
	reads := []ndarray.BufferID{src.Buf}
	writes := []ndarray.BufferID{dst.Buf}

	srcBuf, err := e.lookup(src)
	if err != nil {
		e.fail(reads, writes, err)
		return
	}
	dstBuf, err := e.lookup(dst)
	if err != nil {
		e.fail(reads, writes, err)
		return
	}
	if src.Len != dst.Len {
		e.fail(reads, writes, fmt.Errorf("cpu: copy of %d elements into %d", src.Len, dst.Len))
		return
	}

	e.sched.Register(reads, writes, func() error {
		copy(dstBuf.slice(dst.Off, dst.Len), srcBuf.slice(src.Off, src.Len))
		return nil
	})
}

// PushFill registers an asynchronous random fill of dst. Distribution
// parameters are used as given; the engine does not validate ranges.
func (e *Engine) PushFill(dist ndarray.Distribution, a, b float32, dst ndarray.Span) {
	writes := []ndarray.BufferID{dst.Buf}

	dstBuf, err := e.lookup(dst)
	if err != nil {
		e.fail(nil, writes, err)
		return
	}

	e.sched.Register(nil, writes, func() error {
		return fillKernel(dist, a, b, dstBuf.slice(dst.Off, dst.Len))
	})
}

// CopyFromHost blocking-copies data into dst. The caller holds a write
// barrier, so touching the buffer directly is safe.
func (e *Engine) CopyFromHost(dst ndarray.Span, data []float32) error {
	buf, err := e.lookup(dst)
	if err != nil {
		return err
	}
	if len(data) != dst.Len {
		return fmt.Errorf("cpu: host copy of %d elements into span of %d", len(data), dst.Len)
	}
	copy(buf.slice(dst.Off, dst.Len), data)
	return nil
}

// CopyToHost blocking-copies src into out. The caller holds a read
// barrier.
func (e *Engine) CopyToHost(src ndarray.Span, out []float32) error {
	buf, err := e.lookup(src)
	if err != nil {
		return err
	}
	if len(out) < src.Len {
		return fmt.Errorf("cpu: host copy of %d elements into region of %d", src.Len, len(out))
	}
	copy(out[:src.Len], buf.slice(src.Off, src.Len))
	return nil
}

// WaitRead blocks until pending writes on the buffer complete.
func (e *Engine) WaitRead(id ndarray.BufferID) error {
	return e.sched.WaitRead(id)
}

// WaitWrite blocks until pending reads and writes on the buffer
// complete.
func (e *Engine) WaitWrite(id ndarray.BufferID) error {
	return e.sched.WaitWrite(id)
}

// WaitAll blocks until every pending operation completes.
func (e *Engine) WaitAll() error {
	return e.sched.WaitAll()
}

// Context reports where the buffer resides.
func (e *Engine) Context(id ndarray.BufferID) (ndarray.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return ndarray.Context{}, false
	}
	return b.ctx, true
}

// Size reports the buffer's element count.
func (e *Engine) Size(id ndarray.BufferID) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return 0, false
	}
	return b.size, true
}

// LiveBuffers reports how many buffers are currently allocated.
func (e *Engine) LiveBuffers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.bufs)
}
