package ndarray

import (
	"fmt"
	"sync"
)

// Verify that MockEngine implements Engine.
var _ Engine = (*MockEngine)(nil)

// MockEngine is a recording engine for tests. It allocates plain host
// buffers, performs host transfers synchronously, and records every
// Push* dispatch without executing it, so tests can assert on exactly
// what reached the engine (including that nothing did).
type MockEngine struct {
	mu      sync.Mutex
	next    BufferID
	bufs    map[BufferID]*mockBuffer
	Calls   []string // one entry per Push* dispatch, in order
	Freed   []BufferID
	waitErr error // returned by every barrier when set
}

type mockBuffer struct {
	data  []float32
	shape Shape
	ctx   Context
}

// NewMockEngine creates an empty recording engine.
func NewMockEngine() *MockEngine {
	return &MockEngine{bufs: make(map[BufferID]*mockBuffer)}
}

// FailBarriers makes every subsequent barrier return err.
func (m *MockEngine) FailBarriers(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
}

// Allocate hands out host buffers with monotonically increasing ids.
func (m *MockEngine) Allocate(shape Shape, ctx Context, delayAlloc bool) (BufferID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	buf := &mockBuffer{shape: shape, ctx: ctx}
	if !delayAlloc {
		buf.data = make([]float32, shape.NumElements())
	}
	m.bufs[m.next] = buf
	return m.next, nil
}

// Release frees the buffer; unknown identities panic, as they signal an
// ownership bug.
func (m *MockEngine) Release(id BufferID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bufs[id]; !ok {
		panic(fmt.Sprintf("mock engine: release of unknown buffer %d", id))
	}
	delete(m.bufs, id)
	m.Freed = append(m.Freed, id)
}

// PushCompute records the dispatch without running it.
func (m *MockEngine) PushCompute(kind OpKind, scalar float32, srcs []Span, dst Span) {
	m.record(fmt.Sprintf("compute %s dst=%d", kind, dst.Buf))
}

// PushCopy records the dispatch without running it.
func (m *MockEngine) PushCopy(src, dst Span) {
	m.record(fmt.Sprintf("copy %d->%d", src.Buf, dst.Buf))
}

// PushFill records the dispatch without running it.
func (m *MockEngine) PushFill(dist Distribution, a, b float32, dst Span) {
	m.record(fmt.Sprintf("fill dst=%d", dst.Buf))
}

func (m *MockEngine) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// lookup resolves a span to its buffer and validates its bounds, the
// same checks a real engine performs.
func (m *MockEngine) lookup(s Span) (*mockBuffer, error) {
	buf, ok := m.bufs[s.Buf]
	if !ok {
		return nil, fmt.Errorf("mock engine: unknown buffer %d", s.Buf)
	}
	if size := buf.shape.NumElements(); s.Off < 0 || s.Len < 0 || s.Off+s.Len > size {
		return nil, fmt.Errorf("mock engine: span [%d, %d) outside buffer %d of size %d", s.Off, s.Off+s.Len, s.Buf, size)
	}
	return buf, nil
}

// CopyFromHost copies synchronously into the mock buffer, materializing
// a deferred allocation on first write.
func (m *MockEngine) CopyFromHost(dst Span, data []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.lookup(dst)
	if err != nil {
		return err
	}
	if buf.data == nil {
		buf.data = make([]float32, buf.shape.NumElements())
	}
	copy(buf.data[dst.Off:dst.Off+dst.Len], data)
	return nil
}

// CopyToHost copies synchronously out of the mock buffer.
func (m *MockEngine) CopyToHost(src Span, out []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.lookup(src)
	if err != nil {
		return err
	}
	if buf.data == nil {
		buf.data = make([]float32, buf.shape.NumElements())
	}
	copy(out, buf.data[src.Off:src.Off+src.Len])
	return nil
}

// WaitRead returns immediately; nothing is ever pending in the mock.
func (m *MockEngine) WaitRead(id BufferID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

// WaitWrite returns immediately.
func (m *MockEngine) WaitWrite(id BufferID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

// WaitAll returns immediately.
func (m *MockEngine) WaitAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitErr
}

// Context reports the buffer's context.
func (m *MockEngine) Context(id BufferID) (Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.bufs[id]
	if !ok {
		return Context{}, false
	}
	return buf.ctx, true
}

// Size reports the buffer's element count.
func (m *MockEngine) Size(id BufferID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.bufs[id]
	if !ok {
		return 0, false
	}
	return buf.shape.NumElements(), true
}

// Live reports how many buffers are currently allocated.
func (m *MockEngine) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bufs)
}
