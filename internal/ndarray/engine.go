package ndarray

// BufferID is the opaque token the engine uses to address one
// allocation and its dependency state. The zero value means "no buffer".
type BufferID uint64

// Span addresses a contiguous view of an engine buffer. Sliced handles
// share one buffer identity and differ only in offset and length, so
// every engine request carries a Span rather than a bare BufferID.
type Span struct {
	Buf BufferID
	Off int // element offset into the buffer
	Len int // number of elements
}

// OpKind names a compute kernel the engine knows how to run.
type OpKind int

// Compute kernels. Binary kinds take two source spans; scalar kinds
// take one source span plus a scalar; OpSetScalar takes no sources and
// writes the scalar to every element of the destination.
const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
	OpAddScalar
	OpSubScalar
	OpMulScalar
	OpDivScalar
	OpSetScalar
)

// String returns the kernel name.
func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpAddScalar:
		return "add_scalar"
	case OpSubScalar:
		return "sub_scalar"
	case OpMulScalar:
		return "mul_scalar"
	case OpDivScalar:
		return "div_scalar"
	case OpSetScalar:
		return "set_scalar"
	default:
		return "unknown"
	}
}

// Distribution names a random fill the engine can perform.
type Distribution int

// Supported sampling distributions.
const (
	DistUniform Distribution = iota
	DistGaussian
)

// Engine is the asynchronous execution collaborator behind every
// handle. Push* calls register work and return immediately; operations
// against the same buffer identity execute in registration order, while
// operations against different identities carry no ordering guarantee.
// Failures of registered work surface at the next Wait* call on an
// affected buffer.
//
// Implementations:
//   - internal/engine/cpu: host-memory engine, parallel float32 kernels
//   - internal/engine/webgpu: accelerator engine over WebGPU (Windows)
type Engine interface {
	// Allocate requests a buffer sized to the shape's element count at
	// the given context. With delayAlloc the engine may postpone the
	// physical allocation until the buffer is first written.
	Allocate(shape Shape, ctx Context, delayAlloc bool) (BufferID, error)

	// Release returns the buffer to the engine. Releasing an identity
	// the engine does not know signals an ownership bug and is fatal.
	Release(id BufferID)

	// PushCompute registers a compute kernel writing dst. Binary kinds
	// read srcs[0] and srcs[1]; scalar kinds read srcs[0]; OpSetScalar
	// reads nothing.
	PushCompute(kind OpKind, scalar float32, srcs []Span, dst Span)

	// PushCopy registers an asynchronous device copy from src to dst.
	PushCopy(src, dst Span)

	// PushFill registers an asynchronous random fill of dst with
	// independent samples: uniform on [a, b), or gaussian with mean a
	// and standard deviation b.
	PushFill(dist Distribution, a, b float32, dst Span)

	// CopyFromHost blocking-copies len(data) elements into dst. The
	// caller must already hold a write barrier on dst's buffer.
	CopyFromHost(dst Span, data []float32) error

	// CopyToHost blocking-copies src.Len elements into out. The caller
	// must already hold a read barrier on src's buffer.
	CopyToHost(src Span, out []float32) error

	// WaitRead blocks until all pending writes on the buffer complete.
	WaitRead(id BufferID) error

	// WaitWrite blocks until all pending reads and writes on the
	// buffer complete.
	WaitWrite(id BufferID) error

	// WaitAll blocks until every pending operation across every live
	// buffer completes.
	WaitAll() error

	// Context reports where the buffer resides.
	Context(id BufferID) (Context, bool)

	// Size reports the buffer's element count.
	Size(id BufferID) (int, bool)
}
