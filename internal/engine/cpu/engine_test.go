package cpu

import (
	"testing"

	"github.com/axon-ml/axon/internal/ndarray"
	"github.com/axon-ml/axon/internal/parallel"
)

func alloc(t *testing.T, e *Engine, shape ndarray.Shape, delay bool) ndarray.BufferID {
	t.Helper()
	id, err := e.Allocate(shape, ndarray.DefaultContext(), delay)
	if err != nil {
		t.Fatalf("Allocate(%v) failed: %v", shape, err)
	}
	return id
}

func span(id ndarray.BufferID, off, n int) ndarray.Span {
	return ndarray.Span{Buf: id, Off: off, Len: n}
}

func readBack(t *testing.T, e *Engine, s ndarray.Span) []float32 {
	t.Helper()
	if err := e.WaitRead(s.Buf); err != nil {
		t.Fatalf("WaitRead(%d) failed: %v", s.Buf, err)
	}
	out := make([]float32, s.Len)
	if err := e.CopyToHost(s, out); err != nil {
		t.Fatalf("CopyToHost failed: %v", err)
	}
	return out
}

func TestAllocateAndMetadata(t *testing.T) {
	e := New()
	ctx := ndarray.NewContext(ndarray.CPU, 0)
	id, err := e.Allocate(ndarray.Shape{2, 3}, ctx, false)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if got, ok := e.Size(id); !ok || got != 6 {
		t.Errorf("Size = %d, %v; want 6, true", got, ok)
	}
	if got, ok := e.Context(id); !ok || !got.Equal(ctx) {
		t.Errorf("Context = %s, %v; want %s, true", got, ok, ctx)
	}

	e.Release(id)
	if _, ok := e.Size(id); ok {
		t.Error("Size should not resolve a released buffer")
	}
	if e.LiveBuffers() != 0 {
		t.Errorf("LiveBuffers = %d, want 0", e.LiveBuffers())
	}
}

func TestAllocateRejectsInvalidShape(t *testing.T) {
	e := New()
	if _, err := e.Allocate(ndarray.Shape{3, -1}, ndarray.DefaultContext(), false); err == nil {
		t.Error("Allocate with negative dimension should fail")
	}
}

func TestReleaseUnknownBufferPanics(t *testing.T) {
	e := New()
	defer func() {
		if recover() == nil {
			t.Error("Release of unknown buffer should panic")
		}
	}()
	e.Release(42)
}

func TestHostRoundTrip(t *testing.T) {
	e := New()
	id := alloc(t, e, ndarray.Shape{4}, false)
	want := []float32{1, 2, 3, 4}

	if err := e.CopyFromHost(span(id, 0, 4), want); err != nil {
		t.Fatalf("CopyFromHost failed: %v", err)
	}
	got := readBack(t, e, span(id, 0, 4))
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDeferredAllocationMaterializesOnWrite(t *testing.T) {
	e := New()
	id := alloc(t, e, ndarray.Shape{3}, true)

	if err := e.CopyFromHost(span(id, 0, 3), []float32{7, 8, 9}); err != nil {
		t.Fatalf("CopyFromHost failed: %v", err)
	}
	got := readBack(t, e, span(id, 0, 3))
	if got[0] != 7 || got[2] != 9 {
		t.Errorf("deferred buffer = %v, want [7 8 9]", got)
	}
}

func TestComputeKernels(t *testing.T) {
	e := New()
	a := alloc(t, e, ndarray.Shape{4}, false)
	b := alloc(t, e, ndarray.Shape{4}, false)
	dst := alloc(t, e, ndarray.Shape{4}, true)

	if err := e.CopyFromHost(span(a, 0, 4), []float32{8, 6, 4, 2}); err != nil {
		t.Fatal(err)
	}
	if err := e.CopyFromHost(span(b, 0, 4), []float32{2, 2, 2, 2}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		kind   ndarray.OpKind
		scalar float32
		srcs   []ndarray.Span
		want   []float32
	}{
		{ndarray.OpAdd, 0, []ndarray.Span{span(a, 0, 4), span(b, 0, 4)}, []float32{10, 8, 6, 4}},
		{ndarray.OpSub, 0, []ndarray.Span{span(a, 0, 4), span(b, 0, 4)}, []float32{6, 4, 2, 0}},
		{ndarray.OpMul, 0, []ndarray.Span{span(a, 0, 4), span(b, 0, 4)}, []float32{16, 12, 8, 4}},
		{ndarray.OpDiv, 0, []ndarray.Span{span(a, 0, 4), span(b, 0, 4)}, []float32{4, 3, 2, 1}},
		{ndarray.OpAddScalar, 1, []ndarray.Span{span(a, 0, 4)}, []float32{9, 7, 5, 3}},
		{ndarray.OpSubScalar, 1, []ndarray.Span{span(a, 0, 4)}, []float32{7, 5, 3, 1}},
		{ndarray.OpMulScalar, 3, []ndarray.Span{span(a, 0, 4)}, []float32{24, 18, 12, 6}},
		{ndarray.OpDivScalar, 2, []ndarray.Span{span(a, 0, 4)}, []float32{4, 3, 2, 1}},
		{ndarray.OpSetScalar, 5, nil, []float32{5, 5, 5, 5}},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			e.PushCompute(tc.kind, tc.scalar, tc.srcs, span(dst, 0, 4))
			got := readBack(t, e, span(dst, 0, 4))
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("element %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestInPlaceComputeAliasesSafely(t *testing.T) {
	e := New()
	a := alloc(t, e, ndarray.Shape{4}, false)
	if err := e.CopyFromHost(span(a, 0, 4), []float32{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	e.PushCompute(ndarray.OpMul, 0, []ndarray.Span{span(a, 0, 4), span(a, 0, 4)}, span(a, 0, 4))
	got := readBack(t, e, span(a, 0, 4))
	want := []float32{1, 4, 9, 16}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComputeOnOffsetSpans(t *testing.T) {
	e := New()
	a := alloc(t, e, ndarray.Shape{8}, false)
	if err := e.CopyFromHost(span(a, 0, 8), []float32{0, 0, 0, 0, 1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	// Write into the front half from the back half.
	e.PushCompute(ndarray.OpAddScalar, 10, []ndarray.Span{span(a, 4, 4)}, span(a, 0, 4))
	got := readBack(t, e, span(a, 0, 8))
	want := []float32{11, 12, 13, 14, 1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPushCopy(t *testing.T) {
	e := New()
	src := alloc(t, e, ndarray.Shape{4}, false)
	dst := alloc(t, e, ndarray.Shape{2}, true)
	if err := e.CopyFromHost(span(src, 0, 4), []float32{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	e.PushCopy(span(src, 1, 2), span(dst, 0, 2))
	got := readBack(t, e, span(dst, 0, 2))
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("copied region = %v, want [2 3]", got)
	}
}

func TestPushFillDistributions(t *testing.T) {
	e := New()
	id := alloc(t, e, ndarray.Shape{1000}, false)

	e.PushFill(ndarray.DistUniform, 2, 5, span(id, 0, 1000))
	got := readBack(t, e, span(id, 0, 1000))
	for i, v := range got {
		if v < 2 || v >= 5 {
			t.Fatalf("uniform sample %d = %v, outside [2, 5)", i, v)
		}
	}

	e.PushFill(ndarray.DistGaussian, 100, 1, span(id, 0, 1000))
	got = readBack(t, e, span(id, 0, 1000))
	var mean float64
	for _, v := range got {
		mean += float64(v)
	}
	mean /= float64(len(got))
	if mean < 99 || mean > 101 {
		t.Errorf("gaussian sample mean = %v, want near 100", mean)
	}
}

func TestInvalidRequestSurfacesAtBarrier(t *testing.T) {
	e := New()
	a := alloc(t, e, ndarray.Shape{4}, false)
	dst := alloc(t, e, ndarray.Shape{4}, false)

	// Operand length does not match the destination.
	e.PushCompute(ndarray.OpAdd, 0, []ndarray.Span{span(a, 0, 4), span(a, 0, 2)}, span(dst, 0, 4))
	if err := e.WaitRead(dst); err == nil {
		t.Error("barrier after invalid compute should fail")
	}

	// Span outside the buffer, on fresh buffers.
	b := alloc(t, e, ndarray.Shape{4}, false)
	dst2 := alloc(t, e, ndarray.Shape{4}, false)
	e.PushCopy(span(b, 2, 4), span(dst2, 0, 4))
	if err := e.WaitWrite(dst2); err == nil {
		t.Error("barrier after out-of-bounds copy should fail")
	}
}

func TestRegistrationOrderVisibleAtBarrier(t *testing.T) {
	e := New()
	a := alloc(t, e, ndarray.Shape{1}, false)

	// A long dependent chain on one buffer must apply in order.
	for i := 0; i < 1000; i++ {
		e.PushCompute(ndarray.OpAddScalar, 1, []ndarray.Span{span(a, 0, 1)}, span(a, 0, 1))
	}
	got := readBack(t, e, span(a, 0, 1))
	if got[0] != 1000 {
		t.Errorf("after 1000 increments value = %v, want 1000", got[0])
	}
}

func TestSequentialConfig(t *testing.T) {
	e := NewWithConfig(parallel.Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1})
	a := alloc(t, e, ndarray.Shape{8}, false)
	e.PushCompute(ndarray.OpSetScalar, 3, nil, span(a, 0, 8))
	got := readBack(t, e, span(a, 0, 8))
	for i, v := range got {
		if v != 3 {
			t.Errorf("element %d = %v, want 3", i, v)
		}
	}
}
