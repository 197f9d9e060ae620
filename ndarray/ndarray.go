// Copyright 2025 Axon ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ndarray provides the public API for device-aware asynchronous
// arrays.
//
// An NDArray is a value-semantic handle over a reference-counted,
// engine-allocated buffer. Arithmetic, copy and sampling calls register
// work with an execution engine and return immediately; the engine
// serializes operations against the same buffer in registration order.
// Call WaitToRead or WaitToWrite before inspecting or mutating raw data
// through a path the engine does not track.
//
// Example:
//
//	import (
//	    "github.com/axon-ml/axon/engine/cpu"
//	    "github.com/axon-ml/axon/ndarray"
//	)
//
//	eng := cpu.New()
//	a, _ := ndarray.FromSlice(eng, []float32{1, 2, 3, 4, 5, 6})
//	b, _ := a.AddScalar(10)        // asynchronous
//	_ = b.WaitToRead()             // barrier before inspection
//	v, _ := b.At(0, 2)             // 13
package ndarray

import (
	internal "github.com/axon-ml/axon/internal/ndarray"
)

// NDArray is a value-semantic handle to a device-resident array.
type NDArray = internal.NDArray

// Shape represents the dimensions of an array.
// Example: Shape{2, 3} is a 2x3 matrix.
type Shape = internal.Shape

// Context identifies where a buffer physically resides.
type Context = internal.Context

// DeviceType identifies the kind of device a buffer lives on.
type DeviceType = internal.DeviceType

// Device kinds.
const (
	CPU       DeviceType = internal.CPU
	GPU       DeviceType = internal.GPU
	CPUPinned DeviceType = internal.CPUPinned
)

// Engine is the asynchronous execution collaborator behind every
// handle. See engine/cpu and engine/webgpu for implementations.
type Engine = internal.Engine

// BufferID is the opaque token addressing one engine allocation.
type BufferID = internal.BufferID

// Span addresses a contiguous view of an engine buffer.
type Span = internal.Span

// OpKind names a compute kernel.
type OpKind = internal.OpKind

// Distribution names a random fill.
type Distribution = internal.Distribution

// Compute kernels and distributions, re-exported for custom engines.
const (
	OpAdd       OpKind = internal.OpAdd
	OpSub       OpKind = internal.OpSub
	OpMul       OpKind = internal.OpMul
	OpDiv       OpKind = internal.OpDiv
	OpAddScalar OpKind = internal.OpAddScalar
	OpSubScalar OpKind = internal.OpSubScalar
	OpMulScalar OpKind = internal.OpMulScalar
	OpDivScalar OpKind = internal.OpDivScalar
	OpSetScalar OpKind = internal.OpSetScalar

	DistUniform  Distribution = internal.DistUniform
	DistGaussian Distribution = internal.DistGaussian
)

// Failure classes. Shape, rank and range violations surface
// synchronously; engine failures surface at barriers.
var (
	ErrUninitialized = internal.ErrUninitialized
	ErrShapeMismatch = internal.ErrShapeMismatch
	ErrRankMismatch  = internal.ErrRankMismatch
	ErrOutOfRange    = internal.ErrOutOfRange
	ErrEngine        = internal.ErrEngine
)

// NewContext creates a context for the given device kind and index.
func NewContext(device DeviceType, id int) Context {
	return internal.NewContext(device, id)
}

// DefaultContext is where host-resident data lands unless told
// otherwise.
func DefaultContext() Context {
	return internal.DefaultContext()
}

// Empty returns a handle with no storage.
func Empty() NDArray {
	return internal.Empty()
}

// New constructs a fresh array of the given shape at the given context.
// With delayAlloc the engine may postpone physical allocation until the
// first write.
func New(eng Engine, shape Shape, ctx Context, delayAlloc bool) (NDArray, error) {
	return internal.New(eng, shape, ctx, delayAlloc)
}

// FromBuffer wraps an existing engine buffer identity. The shape must
// account for exactly the buffer's element count; on success the
// returned handle becomes its sole owner.
func FromBuffer(eng Engine, id BufferID, shape Shape, ctx Context) (NDArray, error) {
	return internal.FromBuffer(eng, id, shape, ctx)
}

// FromSlice constructs a 1-D array on the default host context from a
// flat value sequence, copied synchronously.
func FromSlice(eng Engine, data []float32) (NDArray, error) {
	return internal.FromSlice(eng, data)
}

// SampleGaussian fills out in place with gaussian samples of mean mu
// and standard deviation sigma, asynchronously.
func SampleGaussian(mu, sigma float32, out NDArray) error {
	return internal.SampleGaussian(mu, sigma, out)
}

// SampleUniform fills out in place with uniform samples on [low, high),
// asynchronously. low <= high is a caller responsibility.
func SampleUniform(low, high float32, out NDArray) error {
	return internal.SampleUniform(low, high, out)
}

// WaitAll blocks until every pending operation across every live buffer
// of the engine has completed.
func WaitAll(eng Engine) error {
	return internal.WaitAll(eng)
}
