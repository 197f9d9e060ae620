package ndarray

import "errors"

// Failure classes surfaced by the array-handle layer. Shape, rank and
// range violations are detected synchronously, before anything reaches
// the engine. Engine failures surface at the next barrier on the
// affected buffer.
var (
	// ErrUninitialized reports an operation on a handle with no storage.
	ErrUninitialized = errors.New("ndarray: uninitialized handle")

	// ErrShapeMismatch reports incompatible operand shapes or a host
	// region whose size does not match the handle's element count.
	ErrShapeMismatch = errors.New("ndarray: shape mismatch")

	// ErrRankMismatch reports a 2-D-only operation on a handle of
	// higher rank.
	ErrRankMismatch = errors.New("ndarray: rank mismatch")

	// ErrOutOfRange reports slice bounds outside the outer dimension.
	ErrOutOfRange = errors.New("ndarray: out of range")

	// ErrEngine wraps failures reported by the execution engine.
	ErrEngine = errors.New("ndarray: engine failure")
)
