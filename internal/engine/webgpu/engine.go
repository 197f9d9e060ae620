//go:build windows

// Package webgpu implements the execution engine on GPU memory using
// go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
// Buffers live in GPU storage buffers; compute requests run as WGSL
// compute shaders under the shared dependency scheduler.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/axon-ml/axon/internal/engine"
	"github.com/axon-ml/axon/internal/ndarray"
)

// Verify that Engine implements the collaborator boundary.
var _ ndarray.Engine = (*Engine)(nil)

// gpuBuffer is one GPU allocation. WebGPU reserves storage up front, so
// deferred allocation is accepted but not observable.
type gpuBuffer struct {
	buf   *wgpu.Buffer
	size  int // element count
	shape ndarray.Shape
	ctx   ndarray.Context
}

// Engine is the GPU execution engine.
type Engine struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	sched *engine.Scheduler

	bmu  sync.Mutex
	bufs map[ndarray.BufferID]*gpuBuffer
	next ndarray.BufferID
}

// New creates a GPU engine. Returns an error if WebGPU is not available
// or initialization fails.
func New() (eng *Engine, err error) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			eng = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, _ := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Engine{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
		sched:     engine.NewScheduler(0),
		bufs:      make(map[ndarray.BufferID]*gpuBuffer),
	}, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, _ := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Close waits for pending work and releases all WebGPU resources.
func (e *Engine) Close() error {
	err := e.sched.WaitAll()

	e.bmu.Lock()
	for id, b := range e.bufs {
		b.buf.Release()
		delete(e.bufs, id)
	}
	e.bmu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pipelines {
		p.Release()
	}
	e.pipelines = nil
	for _, s := range e.shaders {
		s.Release()
	}
	e.shaders = nil
	if e.queue != nil {
		e.queue.Release()
		e.queue = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.adapter != nil {
		e.adapter.Release()
		e.adapter = nil
	}
	if e.instance != nil {
		e.instance.Release()
		e.instance = nil
	}
	return err
}

// byteSize returns the buffer size in bytes for n float32 elements,
// padded to WebGPU's minimum and 4-byte copy alignment.
func byteSize(n int) uint64 {
	size := uint64(n) * 4
	if size < 4 {
		size = 4
	}
	return (size + 3) &^ 3
}

// Allocate reserves a GPU storage buffer sized to the shape's element
// count. WebGPU allocates physical memory up front, so delayAlloc is
// accepted but has no observable effect.
func (e *Engine) Allocate(shape ndarray.Shape, ctx ndarray.Context, delayAlloc bool) (ndarray.BufferID, error) {
	if err := shape.Validate(); err != nil {
		return 0, fmt.Errorf("webgpu: %w", err)
	}
	n := shape.NumElements()
	buf := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  byteSize(n),
	})

	e.bmu.Lock()
	defer e.bmu.Unlock()
	e.next++
	e.bufs[e.next] = &gpuBuffer{buf: buf, size: n, shape: shape, ctx: ctx}
	return e.next, nil
}

// Release frees the GPU buffer after pending work against it drains.
// Releasing an unknown identity signals an ownership bug and panics.
func (e *Engine) Release(id ndarray.BufferID) {
	e.bmu.Lock()
	b, ok := e.bufs[id]
	if !ok {
		e.bmu.Unlock()
		panic(fmt.Sprintf("webgpu: release of unknown buffer %d", id))
	}
	delete(e.bufs, id)
	e.bmu.Unlock()

	// The wgpu buffer must outlive operations already registered
	// against it, so the actual release rides the dependency queue.
	e.sched.Register(nil, []ndarray.BufferID{id}, func() error {
		b.buf.Release()
		return nil
	})
	e.sched.Forget(id)
}

// lookup resolves a span to its buffer and validates its bounds.
func (e *Engine) lookup(s ndarray.Span) (*gpuBuffer, error) {
	e.bmu.Lock()
	defer e.bmu.Unlock()
	b, ok := e.bufs[s.Buf]
	if !ok {
		return nil, fmt.Errorf("webgpu: unknown buffer %d", s.Buf)
	}
	if s.Off < 0 || s.Len < 0 || s.Off+s.Len > b.size {
		return nil, fmt.Errorf("webgpu: span [%d, %d) outside buffer %d of size %d", s.Off, s.Off+s.Len, s.Buf, b.size)
	}
	return b, nil
}

func (e *Engine) fail(reads, writes []ndarray.BufferID, err error) {
	e.sched.Register(reads, writes, func() error { return err })
}

// PushCompute registers a compute shader dispatch writing dst.
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
	srcBufs := make([]*gpuBuffer, len(srcs))
	for i, s := range srcs {
		if s.Len != dst.Len {
			e.fail(reads, writes, fmt.Errorf("webgpu: %s operand %d has %d elements, destination has %d", kind, i, s.Len, dst.Len))
			return
		}
		if srcBufs[i], err = e.lookup(s); err != nil {
			e.fail(reads, writes, err)
			return
		}
	}

	e.sched.Register(reads, writes, func() error {
		return e.runCompute(kind, scalar, srcs, srcBufs, dst, dstBuf)
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
		e.fail(reads, writes, fmt.Errorf("webgpu: copy of %d elements into %d", src.Len, dst.Len))
		return
	}

	e.sched.Register(reads, writes, func() error {
		encoder := e.device.CreateCommandEncoder(nil)
		encoder.CopyBufferToBuffer(srcBuf.buf, uint64(src.Off)*4, dstBuf.buf, uint64(dst.Off)*4, uint64(src.Len)*4)
		cmdBuffer := encoder.Finish(nil)
		e.queue.Submit(cmdBuffer)
		return nil
	})
}

// PushFill registers an asynchronous random fill. Samples are drawn
// host-side and uploaded, the way random initialization is done for GPU
// tensors elsewhere in the ecosystem.
func (e *Engine) PushFill(dist ndarray.Distribution, a, b float32, dst ndarray.Span) {
	writes := []ndarray.BufferID{dst.Buf}

	dstBuf, err := e.lookup(dst)
	if err != nil {
		e.fail(nil, writes, err)
		return
	}

	e.sched.Register(nil, writes, func() error {
		data := make([]float32, dst.Len)
		if err := sampleHost(dist, a, b, data); err != nil {
			return err
		}
		return e.upload(dstBuf, dst.Off, data)
	})
}

// CopyFromHost blocking-copies data into dst. The caller holds a write
// barrier.
func (e *Engine) CopyFromHost(dst ndarray.Span, data []float32) error {
	buf, err := e.lookup(dst)
	if err != nil {
		return err
	}
	if len(data) != dst.Len {
		return fmt.Errorf("webgpu: host copy of %d elements into span of %d", len(data), dst.Len)
	}
	return e.upload(buf, dst.Off, data)
}

// CopyToHost blocking-copies src into out. The caller holds a read
// barrier.
func (e *Engine) CopyToHost(src ndarray.Span, out []float32) error {
	buf, err := e.lookup(src)
	if err != nil {
		return err
	}
	if len(out) < src.Len {
		return fmt.Errorf("webgpu: host copy of %d elements into region of %d", src.Len, len(out))
	}
	return e.download(buf, src.Off, out[:src.Len])
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
	e.bmu.Lock()
	defer e.bmu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return ndarray.Context{}, false
	}
	return b.ctx, true
}

// Size reports the buffer's element count.
func (e *Engine) Size(id ndarray.BufferID) (int, bool) {
	e.bmu.Lock()
	defer e.bmu.Unlock()
	b, ok := e.bufs[id]
	if !ok {
		return 0, false
	}
	return b.size, true
}
