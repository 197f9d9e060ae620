package ndarray

import "fmt"

// Elementwise binary operations require identical operand shapes: there
// is no implicit broadcasting at this layer. Shape violations are
// reported synchronously, before any engine dispatch. Every method here
// only registers work; results become observable after a barrier.

// binary registers an elementwise kernel into a fresh result buffer at
// this handle's context.
func (a NDArray) binary(kind OpKind, other NDArray) (NDArray, error) {
	if a.blob == nil || other.blob == nil {
		return NDArray{}, ErrUninitialized
	}
	if !a.shape.Equal(other.shape) {
		return NDArray{}, fmt.Errorf("%w: %v %s %v", ErrShapeMismatch, a.shape, kind, other.shape)
	}
	out, err := New(a.blob.eng, a.shape, a.ctx, true)
	if err != nil {
		return NDArray{}, err
	}
	a.blob.eng.PushCompute(kind, 0, []Span{a.span(), other.span()}, out.span())
	return out, nil
}

// scalar registers a scalar kernel into a fresh result buffer.
func (a NDArray) scalar(kind OpKind, v float32) (NDArray, error) {
	if a.blob == nil {
		return NDArray{}, ErrUninitialized
	}
	out, err := New(a.blob.eng, a.shape, a.ctx, true)
	if err != nil {
		return NDArray{}, err
	}
	a.blob.eng.PushCompute(kind, v, []Span{a.span()}, out.span())
	return out, nil
}

// binaryInPlace registers an elementwise kernel writing back into this
// handle's buffer. Ordering against prior pending work on the buffer is
// guaranteed by the engine's per-buffer serialization, so no blocking
// wait is needed here.
func (a NDArray) binaryInPlace(kind OpKind, other NDArray) error {
	if a.blob == nil || other.blob == nil {
		return ErrUninitialized
	}
	if !a.shape.Equal(other.shape) {
		return fmt.Errorf("%w: %v %s= %v", ErrShapeMismatch, a.shape, kind, other.shape)
	}
	a.blob.eng.PushCompute(kind, 0, []Span{a.span(), other.span()}, a.span())
	return nil
}

// scalarInPlace registers a scalar kernel writing back into this
// handle's buffer.
func (a NDArray) scalarInPlace(kind OpKind, v float32) error {
	if a.blob == nil {
		return ErrUninitialized
	}
	a.blob.eng.PushCompute(kind, v, []Span{a.span()}, a.span())
	return nil
}

// Add returns a new array holding the elementwise sum a + other.
func (a NDArray) Add(other NDArray) (NDArray, error) {
	return a.binary(OpAdd, other)
}

// Sub returns a new array holding the elementwise difference a - other.
func (a NDArray) Sub(other NDArray) (NDArray, error) {
	return a.binary(OpSub, other)
}

// Mul returns a new array holding the elementwise product a * other.
func (a NDArray) Mul(other NDArray) (NDArray, error) {
	return a.binary(OpMul, other)
}

// Div returns a new array holding the elementwise quotient a / other.
func (a NDArray) Div(other NDArray) (NDArray, error) {
	return a.binary(OpDiv, other)
}

// AddScalar returns a new array holding a + v elementwise.
func (a NDArray) AddScalar(v float32) (NDArray, error) {
	return a.scalar(OpAddScalar, v)
}

// SubScalar returns a new array holding a - v elementwise.
func (a NDArray) SubScalar(v float32) (NDArray, error) {
	return a.scalar(OpSubScalar, v)
}

// MulScalar returns a new array holding a * v elementwise.
func (a NDArray) MulScalar(v float32) (NDArray, error) {
	return a.scalar(OpMulScalar, v)
}

// DivScalar returns a new array holding a / v elementwise.
func (a NDArray) DivScalar(v float32) (NDArray, error) {
	return a.scalar(OpDivScalar, v)
}

// AddInPlace adds other into this array's buffer.
func (a NDArray) AddInPlace(other NDArray) error {
	return a.binaryInPlace(OpAdd, other)
}

// SubInPlace subtracts other from this array's buffer.
func (a NDArray) SubInPlace(other NDArray) error {
	return a.binaryInPlace(OpSub, other)
}

// MulInPlace multiplies this array's buffer by other.
func (a NDArray) MulInPlace(other NDArray) error {
	return a.binaryInPlace(OpMul, other)
}

// DivInPlace divides this array's buffer by other.
func (a NDArray) DivInPlace(other NDArray) error {
	return a.binaryInPlace(OpDiv, other)
}

// AddScalarInPlace adds v to every element in place.
func (a NDArray) AddScalarInPlace(v float32) error {
	return a.scalarInPlace(OpAddScalar, v)
}

// SubScalarInPlace subtracts v from every element in place.
func (a NDArray) SubScalarInPlace(v float32) error {
	return a.scalarInPlace(OpSubScalar, v)
}

// MulScalarInPlace multiplies every element by v in place.
func (a NDArray) MulScalarInPlace(v float32) error {
	return a.scalarInPlace(OpMulScalar, v)
}

// DivScalarInPlace divides every element by v in place.
func (a NDArray) DivScalarInPlace(v float32) error {
	return a.scalarInPlace(OpDivScalar, v)
}

// Fill sets every element to v, in place and asynchronously.
func (a NDArray) Fill(v float32) error {
	if a.blob == nil {
		return ErrUninitialized
	}
	a.blob.eng.PushCompute(OpSetScalar, v, nil, a.span())
	return nil
}
