package ndarray

import "fmt"

// NDArray is a value-semantic handle to a device-resident array. It
// wraps a shared, reference-counted storage block and keeps its own
// shape, context and view offset, so sliced handles alias the parent's
// buffer while describing a sub-range of it.
//
// Arithmetic and copy methods register work with the engine and return
// immediately. Call WaitToRead or WaitToWrite before touching raw data
// through a path the engine does not track (host copies, element
// access).
//
// Plain assignment transfers the handle without adjusting ownership;
// use Clone to create a tracked alias and Release to drop a reference.
type NDArray struct {
	blob  *storage
	shape Shape
	ctx   Context
	off   int
}

// Empty returns a handle with no storage. Any operation other than
// assignment from another handle fails with ErrUninitialized.
func Empty() NDArray {
	return NDArray{}
}

// New constructs a fresh array of the given shape at the given context.
// With delayAlloc the engine may postpone the physical allocation until
// the first write; the handle is otherwise indistinguishable.
func New(eng Engine, shape Shape, ctx Context, delayAlloc bool) (NDArray, error) {
	if err := shape.Validate(); err != nil {
		return NDArray{}, fmt.Errorf("invalid shape: %w", err)
	}
	id, err := eng.Allocate(shape.Clone(), ctx, delayAlloc)
	if err != nil {
		return NDArray{}, fmt.Errorf("%w: allocate %v at %s: %v", ErrEngine, shape, ctx, err)
	}
	return NDArray{
		blob:  newStorage(eng, id),
		shape: shape.Clone(),
		ctx:   ctx,
	}, nil
}

// FromBuffer wraps an existing engine buffer identity. The declared
// shape must account for exactly the buffer's element count. On success
// the returned handle becomes the sole owner and will release the
// buffer when its last reference drops; on failure ownership stays with
// the caller.
func FromBuffer(eng Engine, id BufferID, shape Shape, ctx Context) (NDArray, error) {
	if err := shape.Validate(); err != nil {
		return NDArray{}, fmt.Errorf("invalid shape: %w", err)
	}
	size, ok := eng.Size(id)
	if !ok {
		return NDArray{}, fmt.Errorf("%w: unknown buffer %d", ErrEngine, id)
	}
	if shape.NumElements() != size {
		return NDArray{}, fmt.Errorf("%w: shape %v has %d elements, buffer %d has %d", ErrShapeMismatch, shape, shape.NumElements(), id, size)
	}
	return NDArray{
		blob:  newStorage(eng, id),
		shape: shape.Clone(),
		ctx:   ctx,
	}, nil
}

// FromSlice constructs a 1-D array on the default host context from a
// flat value sequence. The data is copied synchronously, so the handle
// is immediately readable.
func FromSlice(eng Engine, data []float32) (NDArray, error) {
	a, err := New(eng, Shape{len(data)}, DefaultContext(), false)
	if err != nil {
		return NDArray{}, err
	}
	if err := a.SyncCopyFromCPU(data); err != nil {
		a.Release()
		return NDArray{}, err
	}
	return a, nil
}

// IsEmpty reports whether the handle has no storage.
func (a NDArray) IsEmpty() bool {
	return a.blob == nil
}

// Shape returns the handle's shape.
func (a NDArray) Shape() Shape {
	return a.shape
}

// Context returns where the handle's buffer resides.
func (a NDArray) Context() Context {
	return a.ctx
}

// Size returns the total number of elements.
func (a NDArray) Size() int {
	return a.shape.NumElements()
}

// Handle returns the underlying engine buffer identity, for use as a
// dependency token in direct engine calls. Zero for empty handles.
func (a NDArray) Handle() BufferID {
	if a.blob == nil {
		return 0
	}
	return a.blob.id
}

// Clone returns a new handle sharing this handle's storage. The two
// alias the same buffer: a write through one is visible through the
// other until Copy produces independent storage.
func (a NDArray) Clone() NDArray {
	if a.blob != nil {
		a.blob.retain()
	}
	return a
}

// Release drops this handle's reference to its storage. The engine
// reclaims the buffer when the last reference drops. Releasing an empty
// handle is a no-op.
func (a NDArray) Release() {
	if a.blob != nil {
		a.blob.release()
	}
}

// span addresses this handle's view of the shared buffer.
func (a NDArray) span() Span {
	return Span{Buf: a.blob.id, Off: a.off, Len: a.Size()}
}

// WaitToRead blocks until all pending writes on this handle's buffer
// have completed. Pending reads may still be in flight; reads proceed
// concurrently with each other.
func (a NDArray) WaitToRead() error {
	if a.blob == nil {
		return ErrUninitialized
	}
	if err := a.blob.eng.WaitRead(a.blob.id); err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return nil
}

// WaitToWrite blocks until all pending reads and writes on this
// handle's buffer have completed.
func (a NDArray) WaitToWrite() error {
	if a.blob == nil {
		return ErrUninitialized
	}
	if err := a.blob.eng.WaitWrite(a.blob.id); err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return nil
}

// WaitAll blocks until every pending operation across every live buffer
// of the engine has completed. Never required for per-handle
// correctness when WaitToRead/WaitToWrite are used consistently.
func WaitAll(eng Engine) error {
	if err := eng.WaitAll(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return nil
}

// SyncCopyFromCPU blocking-copies a contiguous host region into the
// handle's buffer. The length must equal the handle's element count. A
// write barrier is established first, so no engine-scheduled read or
// write is in flight; no lingering dependency remains on return.
func (a NDArray) SyncCopyFromCPU(data []float32) error {
	if a.blob == nil {
		return ErrUninitialized
	}
	if len(data) != a.Size() {
		return fmt.Errorf("%w: host region has %d elements, array has %d", ErrShapeMismatch, len(data), a.Size())
	}
	if err := a.WaitToWrite(); err != nil {
		return err
	}
	if err := a.blob.eng.CopyFromHost(a.span(), data); err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return nil
}

// SyncCopyToCPU blocking-copies the handle's contents into out, which
// must hold at least the handle's element count. A read barrier is
// established first.
func (a NDArray) SyncCopyToCPU(out []float32) error {
	if a.blob == nil {
		return ErrUninitialized
	}
	if len(out) < a.Size() {
		return fmt.Errorf("%w: host region has %d elements, array has %d", ErrShapeMismatch, len(out), a.Size())
	}
	if err := a.WaitToRead(); err != nil {
		return err
	}
	if err := a.blob.eng.CopyToHost(a.span(), out[:a.Size()]); err != nil {
		return fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return nil
}

// Copy returns a new array with independent storage at the target
// context, content equal to this array at the time the copy is
// scheduled. The copy itself is asynchronous; aliasing is never shared
// after Copy.
func (a NDArray) Copy(ctx Context) (NDArray, error) {
	if a.blob == nil {
		return NDArray{}, ErrUninitialized
	}
	out, err := New(a.blob.eng, a.shape, ctx, true)
	if err != nil {
		return NDArray{}, err
	}
	a.blob.eng.PushCopy(a.span(), out.span())
	return out, nil
}

// Offset returns the linear element index of (row, col) for a 2-D
// interpretation of the shape, row-major. A 1-D array is treated as a
// single row. Handles of rank greater than 2 fail with ErrRankMismatch.
func (a NDArray) Offset(row, col int) (int, error) {
	if a.blob == nil {
		return 0, ErrUninitialized
	}
	switch len(a.shape) {
	case 1:
		return row*a.shape[0] + col, nil
	case 2:
		return row*a.shape[1] + col, nil
	default:
		return 0, fmt.Errorf("%w: Offset requires rank <= 2, shape is %v", ErrRankMismatch, a.shape)
	}
}

// At blocking-reads the single element at (row, col). A read barrier is
// established first.
func (a NDArray) At(row, col int) (float32, error) {
	off, err := a.Offset(row, col)
	if err != nil {
		return 0, err
	}
	if off < 0 || off >= a.Size() {
		return 0, fmt.Errorf("%w: element (%d, %d) outside shape %v", ErrOutOfRange, row, col, a.shape)
	}
	if err := a.WaitToRead(); err != nil {
		return 0, err
	}
	var buf [1]float32
	if err := a.blob.eng.CopyToHost(Span{Buf: a.blob.id, Off: a.off + off, Len: 1}, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return buf[0], nil
}

// Slice returns a handle onto rows [begin, end) of the outermost
// dimension. The slice shares this handle's storage: writes through the
// slice mutate the parent and vice versa. begin <= end <= outer is
// required.
func (a NDArray) Slice(begin, end int) (NDArray, error) {
	if a.blob == nil {
		return NDArray{}, ErrUninitialized
	}
	if len(a.shape) == 0 {
		return NDArray{}, fmt.Errorf("%w: cannot slice a scalar", ErrRankMismatch)
	}
	if begin < 0 || begin > end || end > a.shape[0] {
		return NDArray{}, fmt.Errorf("%w: slice [%d, %d) of outer dimension %d", ErrOutOfRange, begin, end, a.shape[0])
	}
	a.blob.retain()
	shape := a.shape.Clone()
	shape[0] = end - begin
	return NDArray{
		blob:  a.blob,
		shape: shape,
		ctx:   a.ctx,
		off:   a.off + begin*a.shape.rowSize(),
	}, nil
}
