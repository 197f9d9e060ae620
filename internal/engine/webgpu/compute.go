//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/axon-ml/axon/internal/ndarray"
)

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Engine's shaders map.
func (e *Engine) compileShader(name, code string) *wgpu.ShaderModule {
	e.mu.RLock()
	if shader, exists := e.shaders[name]; exists {
		e.mu.RUnlock()
		return shader
	}
	e.mu.RUnlock()

	shader := e.device.CreateShaderModuleWGSL(code)

	e.mu.Lock()
	e.shaders[name] = shader
	e.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (e *Engine) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	e.mu.RLock()
	if pipeline, exists := e.pipelines[name]; exists {
		e.mu.RUnlock()
		return pipeline
	}
	e.mu.RUnlock()

	// Compute pipeline with auto layout (nil layout).
	pipeline := e.device.CreateComputePipelineSimple(nil, shader, "main")

	e.mu.Lock()
	e.pipelines[name] = pipeline
	e.mu.Unlock()

	return pipeline
}

// createInitializedBuffer creates a GPU buffer pre-filled with data via
// MappedAtCreation.
func (e *Engine) createInitializedBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := byteSize(len(data) / 4)

	buffer := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (e *Engine) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15 // Round up to 16-byte boundary

	buffer := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// upload blocking-copies host float32 data into buf at the given
// element offset, through a staging buffer mapped at creation.
func (e *Engine) upload(buf *gpuBuffer, off int, data []float32) error {
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)

	staging := e.createInitializedBuffer(raw, wgpu.BufferUsageCopySrc)
	defer staging.Release()

	encoder := e.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, buf.buf, uint64(off)*4, uint64(len(data))*4)
	cmdBuffer := encoder.Finish(nil)
	e.queue.Submit(cmdBuffer)
	return nil
}

// download blocking-copies float32 data out of buf at the given element
// offset. Uses a staging buffer since storage buffers can't be mapped
// directly.
func (e *Engine) download(buf *gpuBuffer, off int, out []float32) error {
	size := uint64(len(out)) * 4
	staging := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := e.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(buf.buf, uint64(off)*4, staging, 0, size)
	cmdBuffer := encoder.Finish(nil)
	e.queue.Submit(cmdBuffer)

	if err := staging.MapAsync(e.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), size)
	copy(dst, mappedSlice)

	staging.Unmap()
	return nil
}

// runCompute executes one kernel. WebGPU forbids binding the same
// buffer as both a read-only and a read-write storage binding, so
// in-place requests compute into a scratch buffer and copy back within
// the same scheduled operation.
func (e *Engine) runCompute(kind ndarray.OpKind, scalar float32, srcs []ndarray.Span, srcBufs []*gpuBuffer, dst ndarray.Span, dstBuf *gpuBuffer) error {
	target := dstBuf.buf
	targetOff := dst.Off
	var scratch *wgpu.Buffer
	for _, sb := range srcBufs {
		if sb.buf == dstBuf.buf {
			scratch = e.device.CreateBuffer(&wgpu.BufferDescriptor{
				Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
				Size:  byteSize(dst.Len),
			})
			defer scratch.Release()
			target = scratch
			targetOff = 0
			break
		}
	}

	switch kind {
	case ndarray.OpAdd, ndarray.OpSub, ndarray.OpMul, ndarray.OpDiv:
		if len(srcs) != 2 {
			return fmt.Errorf("webgpu: %s expects 2 operands, got %d", kind, len(srcs))
		}
		name := kind.String()
		if err := e.dispatchBinary(name, binaryShaders[name], srcs[0], srcBufs[0], srcs[1], srcBufs[1], target, targetOff, dst.Len); err != nil {
			return err
		}
	case ndarray.OpAddScalar, ndarray.OpSubScalar, ndarray.OpMulScalar, ndarray.OpDivScalar:
		if len(srcs) != 1 {
			return fmt.Errorf("webgpu: %s expects 1 operand, got %d", kind, len(srcs))
		}
		name := kind.String()
		if err := e.dispatchScalar(name, scalarShaders[name], scalar, srcs[0], srcBufs[0], target, targetOff, dst.Len); err != nil {
			return err
		}
	case ndarray.OpSetScalar:
		if err := e.dispatchSet(scalar, target, targetOff, dst.Len); err != nil {
			return err
		}
	default:
		return fmt.Errorf("webgpu: unknown op kind %d", kind)
	}

	if scratch != nil {
		encoder := e.device.CreateCommandEncoder(nil)
		encoder.CopyBufferToBuffer(scratch, 0, dstBuf.buf, uint64(dst.Off)*4, uint64(dst.Len)*4)
		cmdBuffer := encoder.Finish(nil)
		e.queue.Submit(cmdBuffer)
	}
	return nil
}

// dispatch encodes a compute pass over n elements with the given bind
// group entries and submits it.
func (e *Engine) dispatch(name, code string, entries []wgpu.BindGroupEntry, n int) error {
	shader := e.compileShader(name, code)
	pipeline := e.getOrCreatePipeline(name, shader)

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := e.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := e.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	workgroups := uint32(math.Ceil(float64(n) / float64(workgroupSize)))
	computePass.DispatchWorkgroups(workgroups, 1, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	e.queue.Submit(cmdBuffer)
	return nil
}

func (e *Engine) dispatchBinary(name, code string, a ndarray.Span, aBuf *gpuBuffer, b ndarray.Span, bBuf *gpuBuffer, out *wgpu.Buffer, outOff, n int) error {
	// Params: size, a_off, b_off, out_off (u32 each, 16 bytes).
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	binary.LittleEndian.PutUint32(params[4:8], uint32(a.Off))
	binary.LittleEndian.PutUint32(params[8:12], uint32(b.Off))
	binary.LittleEndian.PutUint32(params[12:16], uint32(outOff))
	bufferParams := e.createUniformBuffer(params)
	defer bufferParams.Release()

	return e.dispatch(name, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, aBuf.buf, 0, byteSize(aBuf.size)),
		wgpu.BufferBindingEntry(1, bBuf.buf, 0, byteSize(bBuf.size)),
		wgpu.BufferBindingEntry(2, out, 0, byteSize(outOff+n)),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	}, n)
}

func (e *Engine) dispatchScalar(name, code string, scalar float32, in ndarray.Span, inBuf *gpuBuffer, out *wgpu.Buffer, outOff, n int) error {
	// Params: size, in_off, out_off (u32), scalar (f32) - 16 bytes.
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	binary.LittleEndian.PutUint32(params[4:8], uint32(in.Off))
	binary.LittleEndian.PutUint32(params[8:12], uint32(outOff))
	binary.LittleEndian.PutUint32(params[12:16], math.Float32bits(scalar))
	bufferParams := e.createUniformBuffer(params)
	defer bufferParams.Release()

	return e.dispatch(name, code, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, inBuf.buf, 0, byteSize(inBuf.size)),
		wgpu.BufferBindingEntry(1, out, 0, byteSize(outOff+n)),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	}, n)
}

func (e *Engine) dispatchSet(scalar float32, out *wgpu.Buffer, outOff, n int) error {
	// Params: size, out_off (u32), scalar (f32), pad - 16 bytes.
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	binary.LittleEndian.PutUint32(params[4:8], uint32(outOff))
	binary.LittleEndian.PutUint32(params[8:12], math.Float32bits(scalar))
	bufferParams := e.createUniformBuffer(params)
	defer bufferParams.Release()

	return e.dispatch("set_scalar", setScalarShader, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, out, 0, byteSize(outOff+n)),
		wgpu.BufferBindingEntry(1, bufferParams, 0, 16),
	}, n)
}

// sampleHost draws samples on the host.
// Note: uses math/rand (not crypto/rand) - appropriate for statistical
// sampling.
func sampleHost(dist ndarray.Distribution, a, b float32, out []float32) error {
	switch dist {
	case ndarray.DistUniform:
		for i := range out {
			out[i] = a + rand.Float32()*(b-a)
		}
		return nil
	case ndarray.DistGaussian:
		for i := range out {
			out[i] = a + float32(rand.NormFloat64())*b
		}
		return nil
	default:
		return fmt.Errorf("webgpu: unknown distribution %d", dist)
	}
}
