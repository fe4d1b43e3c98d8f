package gpu

import (
	"fmt"
	"unsafe"

	cudawrapper "github.com/ingonyama-zk/icicle/goicicle"
)

// Buffer is a device allocation of a known byte size. Allocation and
// host<->device copies are delegated to goicicle's cudawrapper — the real
// CUDA buffer-management dependency the teacher already pulls in for the
// same purpose (backend/groth16/bn254/goicicle_wrapper.go's CudaMalloc /
// CudaMemCpyHtoD / CudaMemCpyDtoH calls) — rather than reimplementing
// cuMemAlloc/cuMemcpyAsync by hand a second time in this package.
type Buffer struct {
	ptr  unsafe.Pointer
	size int
}

// Ptr is the raw device pointer, passed to Function.LaunchAsync as a kernel
// argument.
func (b *Buffer) Ptr() unsafe.Pointer { return b.ptr }

// Size is the buffer's size in bytes.
func (b *Buffer) Size() int { return b.size }

// AllocBuffer reserves an uninitialized device buffer of the given byte
// size. Used for D_dev, B_dev and R_dev (spec §4.2 step 3), which the device
// side initializes itself.
func AllocBuffer(sizeBytes int) (*Buffer, error) {
	ptr, err := cudawrapper.CudaMalloc(sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("gpu: CudaMalloc(%d): %w", sizeBytes, err)
	}
	return &Buffer{ptr: ptr, size: sizeBytes}, nil
}

// UploadBuffer allocates a device buffer sized for src and copies src into
// it. Used for E_dev and P_dev (spec §4.2 step 3).
func UploadBuffer[T any](src []T, sizeBytes int) (*Buffer, error) {
	ptr, err := cudawrapper.CudaMalloc(sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("gpu: CudaMalloc(%d): %w", sizeBytes, err)
	}
	if err := cudawrapper.CudaMemCpyHtoD[T](ptr, src, sizeBytes); err != nil {
		cudawrapper.CudaFree(ptr)
		return nil, fmt.Errorf("gpu: CudaMemCpyHtoD(%d bytes): %w", sizeBytes, err)
	}
	return &Buffer{ptr: ptr, size: sizeBytes}, nil
}

// Download copies this buffer back into dst, sized to dst's byte footprint.
// Used for the R_host readback (spec §4.2 step 5).
func Download[T any](dst []T, b *Buffer) error {
	if err := cudawrapper.CudaMemCpyDtoH[T](dst, b.ptr, b.size); err != nil {
		return fmt.Errorf("gpu: CudaMemCpyDtoH(%d bytes): %w", b.size, err)
	}
	return nil
}

// Free releases the device buffer. Every MSM call frees all of its scratch
// buffers before returning, including on error paths (spec §3, §5).
func (b *Buffer) Free() error {
	if b == nil || b.ptr == nil {
		return nil
	}
	if err := cudawrapper.CudaFree(b.ptr); err != nil {
		return fmt.Errorf("gpu: CudaFree: %w", err)
	}
	b.ptr = nil
	return nil
}
