// Copyright 2025 Axon ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host-memory execution engine.
//
// Buffers live in host RAM and kernels run on goroutine worker pools.
// This engine is always available and is the default choice:
//
//	eng := cpu.New()
//	a, err := ndarray.FromSlice(eng, data)
package cpu

import (
	internal "github.com/axon-ml/axon/internal/engine/cpu"
	"github.com/axon-ml/axon/internal/ndarray"
	"github.com/axon-ml/axon/internal/parallel"
)

// Engine executes array operations in host memory.
type Engine = internal.Engine

// Config controls kernel parallelism.
type Config = parallel.Config

// Verify the engine satisfies the collaborator boundary.
var _ ndarray.Engine = (*Engine)(nil)

// New creates a CPU engine with default parallelism.
func New() *Engine {
	return internal.New()
}

// NewWithConfig creates a CPU engine with explicit parallelism settings.
func NewWithConfig(cfg Config) *Engine {
	return internal.NewWithConfig(cfg)
}

// DefaultConfig returns the default parallelism settings.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}
