package gpu

/*
#include <cuda.h>
#include <stdlib.h>

// cuLaunchKernel's last argument is void**; cgo cannot take the address of a
// Go slice's backing array directly across the boundary in a typed way, so
// funnel it through a tiny helper that's plain C.
static CUresult launch(CUfunction f, unsigned int gx, unsigned int gy, unsigned int gz,
                       unsigned int bx, unsigned int by, unsigned int bz,
                       unsigned int sharedMem, CUstream stream, void **args) {
	return cuLaunchKernel(f, gx, gy, gz, bx, by, bz, sharedMem, stream, args, NULL);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Module is a loaded CUDA module (one of the two precompiled per-group
// binaries, see gpu/kernelset).
type Module struct {
	device *Device
	handle C.CUmodule
}

// Function is a named kernel entry point resolved from a Module, e.g.
// "Exps_Handle_new" or "blstrs__g1__G1Affine_multiexp".
type Function struct {
	module *Module
	name   string
	handle C.CUfunction
}

// LoadModule loads a cubin/fatbin image already verified by gpu/kernelset.
func (d *Device) LoadModule(image []byte) (*Module, error) {
	if _, err := d.ensureContext(); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("gpu: empty module image")
	}
	var h C.CUmodule
	if st := C.cuModuleLoadData(&h, unsafe.Pointer(&image[0])); st != C.CUDA_SUCCESS {
		return nil, driverError("cuModuleLoadData", st)
	}
	return &Module{device: d, handle: h}, nil
}

// Function resolves a kernel entry point by its symbolic name (spec §6:
// "launch kernels by symbolic name").
func (m *Module) Function(name string) (*Function, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var h C.CUfunction
	if st := C.cuModuleGetFunction(&h, m.handle, cname); st != C.CUDA_SUCCESS {
		return nil, driverError(fmt.Sprintf("cuModuleGetFunction(%s)", name), st)
	}
	return &Function{module: m, name: name, handle: h}, nil
}

// Unload releases the module. Modules are cached per device for the
// Dispatcher's lifetime (spec §9: "a correct rewrite caches both per device
// for the lifetime of the dispatcher").
func (m *Module) Unload() error {
	if st := C.cuModuleUnload(m.handle); st != C.CUDA_SUCCESS {
		return driverError("cuModuleUnload", st)
	}
	return nil
}

// LaunchAsync enqueues this kernel on stream with the given grid/block
// dimensions (spec §4.2's G = ceil(num_windows*num_groups/LOCAL_WORK_SIZE)
// grid, LOCAL_WORK_SIZE block) and raw device-pointer arguments, in the exact
// order the kernel's signature expects.
func (f *Function) LaunchAsync(stream *Stream, grid, block uint32, args []unsafe.Pointer) error {
	if len(args) == 0 {
		if st := C.launch(f.handle, C.uint(grid), 1, 1, C.uint(block), 1, 1, 0, stream.handle, nil); st != C.CUDA_SUCCESS {
			return driverError(fmt.Sprintf("cuLaunchKernel(%s)", f.name), st)
		}
		return nil
	}
	cArgs := make([]unsafe.Pointer, len(args))
	copy(cArgs, args)
	st := C.launch(f.handle, C.uint(grid), 1, 1, C.uint(block), 1, 1, 0, stream.handle, (*unsafe.Pointer)(&cArgs[0]))
	if st != C.CUDA_SUCCESS {
		return driverError(fmt.Sprintf("cuLaunchKernel(%s)", f.name), st)
	}
	return nil
}
