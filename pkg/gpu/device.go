// Package gpu is the CUDA driver binding this module uses in place of the
// rustacuda calls the original ec-gpu-gen/multiexp.rs made directly: device
// enumeration and properties, streams, events, module/function loading and
// kernel launch. Buffer allocation and host<->device copies are delegated to
// github.com/ingonyama-zk/icicle/goicicle (see buffer.go), the same cgo CUDA
// wrapper the teacher repo already depends on for exactly that purpose.
package gpu

/*
#cgo LDFLAGS: -lcuda
#include <cuda.h>
*/
import "C"

import (
	"fmt"
	"sync"
)

// ComputeCapability is a device's CUDA compute capability (major, minor).
type ComputeCapability struct {
	Major, Minor int
}

// DeviceProperties is the subset of device state the Device Sizer needs:
// total memory, compute-unit (SM) count, compute capability, and a name for
// logging.
type DeviceProperties struct {
	Name              string
	TotalMemory       uint64
	ComputeUnits      int
	ComputeCapability ComputeCapability
}

// Device is one CUDA device and its (lazily created) primary context.
type Device struct {
	mu     sync.Mutex
	handle C.CUdevice
	ctx    C.CUcontext
	ctxSet bool
	index  int
	props  DeviceProperties
}

var (
	initOnce sync.Once
	initErr  error
)

func initDriver() error {
	initOnce.Do(func() {
		if st := C.cuInit(0); st != C.CUDA_SUCCESS {
			initErr = driverError("cuInit", st)
		}
	})
	return initErr
}

func driverError(op string, st C.CUresult) error {
	var cstr *C.char
	C.cuGetErrorString(st, &cstr)
	return fmt.Errorf("cuda: %s failed: %s (code %d)", op, C.GoString(cstr), int(st))
}

// Devices enumerates every CUDA device visible to the driver and reads its
// properties up front, so the Device Sizer never needs to touch the driver
// again after construction (spec §4.1: "the sizer is pure").
func Devices() ([]*Device, error) {
	if err := initDriver(); err != nil {
		return nil, err
	}
	var count C.int
	if st := C.cuDeviceGetCount(&count); st != C.CUDA_SUCCESS {
		return nil, driverError("cuDeviceGetCount", st)
	}
	devices := make([]*Device, 0, int(count))
	for i := 0; i < int(count); i++ {
		var handle C.CUdevice
		if st := C.cuDeviceGet(&handle, C.int(i)); st != C.CUDA_SUCCESS {
			return nil, driverError("cuDeviceGet", st)
		}
		d := &Device{handle: handle, index: i}
		if err := d.readProperties(); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (d *Device) readProperties() error {
	var nameBuf [256]C.char
	if st := C.cuDeviceGetName(&nameBuf[0], C.int(len(nameBuf)), d.handle); st != C.CUDA_SUCCESS {
		return driverError("cuDeviceGetName", st)
	}

	var totalMem C.size_t
	if st := C.cuDeviceTotalMem(&totalMem, d.handle); st != C.CUDA_SUCCESS {
		return driverError("cuDeviceTotalMem", st)
	}

	mpCount, err := d.attribute(C.CU_DEVICE_ATTRIBUTE_MULTIPROCESSOR_COUNT)
	if err != nil {
		return err
	}
	ccMajor, err := d.attribute(C.CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MAJOR)
	if err != nil {
		return err
	}
	ccMinor, err := d.attribute(C.CU_DEVICE_ATTRIBUTE_COMPUTE_CAPABILITY_MINOR)
	if err != nil {
		return err
	}

	d.props = DeviceProperties{
		Name:         C.GoString(&nameBuf[0]),
		TotalMemory:  uint64(totalMem),
		ComputeUnits: int(mpCount),
		ComputeCapability: ComputeCapability{
			Major: int(ccMajor),
			Minor: int(ccMinor),
		},
	}
	return nil
}

func (d *Device) attribute(attr C.CUdevice_attribute) (int, error) {
	var val C.int
	if st := C.cuDeviceGetAttribute(&val, attr, d.handle); st != C.CUDA_SUCCESS {
		return 0, driverError("cuDeviceGetAttribute", st)
	}
	return int(val), nil
}

// Properties returns the properties read at enumeration time.
func (d *Device) Properties() DeviceProperties {
	return d.props
}

// Index is this device's position in the order returned by Devices, used by
// the dispatcher for deterministic left-to-right sharding (spec §4.4).
func (d *Device) Index() int {
	return d.index
}

// ensureContext lazily retains this device's primary context and makes it
// current on the calling OS thread. The dispatcher pins one goroutine per
// device to an OS thread (runtime.LockOSThread) before calling into gpu, so a
// context created here stays current for the lifetime of that worker.
func (d *Device) ensureContext() (C.CUcontext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctxSet {
		return d.ctx, nil
	}
	var ctx C.CUcontext
	if st := C.cuDevicePrimaryCtxRetain(&ctx, d.handle); st != C.CUDA_SUCCESS {
		return nil, driverError("cuDevicePrimaryCtxRetain", st)
	}
	if st := C.cuCtxSetCurrent(ctx); st != C.CUDA_SUCCESS {
		return nil, driverError("cuCtxSetCurrent", st)
	}
	d.ctx = ctx
	d.ctxSet = true
	return ctx, nil
}
