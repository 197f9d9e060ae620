//go:build windows

// Copyright 2025 Axon ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU execution engine built on WebGPU.
//
// Buffers live in GPU storage buffers and kernels run as WGSL compute
// shaders. Availability depends on the native wgpu library; check with
// IsAvailable before constructing:
//
//	if webgpu.IsAvailable() {
//	    eng, err := webgpu.New()
//	    ...
//	}
package webgpu

import (
	internal "github.com/axon-ml/axon/internal/engine/webgpu"
	"github.com/axon-ml/axon/internal/ndarray"
)

// Engine executes array operations on the GPU.
type Engine = internal.Engine

// Verify the engine satisfies the collaborator boundary.
var _ ndarray.Engine = (*Engine)(nil)

// New creates a GPU engine. Returns an error if WebGPU is unavailable
// or device initialization fails.
func New() (*Engine, error) {
	return internal.New()
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internal.IsAvailable()
}
