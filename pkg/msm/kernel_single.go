package msm

import (
	"sync"
	"unsafe"

	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu/kernelset"
)

// kernelCore is the Single-Device MSM Kernel (spec.md §4.2), generic over one
// curve group's affine/projective types. G1Kernel and G2Kernel (kernel_g1.go,
// kernel_g2.go) are the curve-specific, non-generic public types built on
// top of it — the only two instantiations that ever exist.
type kernelCore[A any, J any, PJ jacPoint[A, J]] struct {
	deviceIndex int
	group       Group
	backend     backend
	s1, s2      *gpu.Stream
	maybeAbort  func() bool

	n         int // max terms per call (spec §4.1's n)
	workUnits int // W

	affineSize int
	scalarSize int
	identity   A
}

// N is the chunk size this kernel's device can handle in one call.
func (k *kernelCore[A, J, PJ]) N() int { return k.n }

// multiexp runs spec.md §4.2 steps 1-7 for one chunk m <= k.n.
func (k *kernelCore[A, J, PJ]) multiexp(bases []A, exps []bls12381fr.Element) (J, error) {
	var zero J

	if len(bases) != len(exps) {
		return zero, ErrShapeMismatch
	}
	if k.maybeAbort != nil && k.maybeAbort() {
		return zero, ErrAborted
	}

	m := len(bases)
	if m == 0 {
		p := PJ(&zero)
		p.FromAffine(&k.identity)
		return zero, nil
	}

	wp := calcWindowParams(m, k.workUnits)
	flatExps := flattenScalars(exps, k.scalarSize)

	// Step 3: upload exps and bases concurrently. The underlying buffer
	// allocator (goicicle's CudaMemCpyHtoD) has no stream parameter of its
	// own, so the "S1 carries exps, S2 carries bases" overlap from spec §4.2
	// is realized as two concurrent host goroutines racing to the same
	// device, rather than two named CUDA streams for this particular step;
	// the digitize/bucket kernel dispatch below does use the two real
	// streams the spec requires. See DESIGN.md.
	var eDev, pDev *gpu.Buffer
	var errE, errP error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eDev, errE = gpu.UploadBuffer[byte](flatExps, len(flatExps))
	}()
	go func() {
		defer wg.Done()
		pDev, errP = gpu.UploadBuffer[A](bases, m*k.affineSize)
	}()
	wg.Wait()
	if errE != nil {
		pDev.Free()
		return zero, deviceFailure(k.deviceIndex, "upload exps", errE)
	}
	if errP != nil {
		eDev.Free()
		return zero, deviceFailure(k.deviceIndex, "upload bases", errP)
	}
	defer eDev.Free()
	defer pDev.Free()

	projSize := int(sizeOf[J]())
	dDev, err := gpu.AllocBuffer(m * wp.numWindows * 4) // signed int32 digits
	if err != nil {
		return zero, deviceFailure(k.deviceIndex, "alloc digits", err)
	}
	defer dDev.Free()

	bDev, err := gpu.AllocBuffer(wp.numGroups * wp.numWindows * wp.bucketLen * projSize)
	if err != nil {
		return zero, deviceFailure(k.deviceIndex, "alloc buckets", err)
	}
	defer bDev.Free()

	rDev, err := gpu.AllocBuffer(wp.numGroups * wp.numWindows * projSize)
	if err != nil {
		return zero, deviceFailure(k.deviceIndex, "alloc results", err)
	}
	defer rDev.Free()

	// Step 4: kernel dispatch.
	grid := uint32(ceilDiv(wp.numWindows*wp.numGroups, localWorkSize))
	rowNums := uint32(ceilDiv(m, int(grid)*localWorkSize))

	if err := k.backend.digitize(k.s1, grid, localWorkSize, eDev, dDev, uint32(m), uint32(wp.w), uint32(wp.numWindows), rowNums); err != nil {
		return zero, deviceFailure(k.deviceIndex, "digitize launch", err)
	}
	digitsReady, err := k.s1.Record()
	if err != nil {
		return zero, deviceFailure(k.deviceIndex, "record digitize event", err)
	}
	defer digitsReady.Destroy()

	// spec §5/§9 option (b): explicit cross-stream event wait instead of
	// relying on incidental serialization.
	if err := k.s2.WaitEvent(digitsReady); err != nil {
		return zero, deviceFailure(k.deviceIndex, "wait digitize event", err)
	}
	if err := k.backend.bucketMSM(k.s2, grid, localWorkSize, pDev, bDev, rDev, dDev, uint32(m), uint32(wp.numGroups), uint32(wp.numWindows), uint32(wp.w)); err != nil {
		return zero, deviceFailure(k.deviceIndex, "bucket launch", err)
	}

	// Step 6: synchronize both streams. goicicle's CudaMemCpyDtoH takes no
	// stream, so this comes before the readback to order it after the bucket
	// kernel.
	if err := k.s1.Synchronize(); err != nil {
		return zero, deviceFailure(k.deviceIndex, "sync stream 1", err)
	}
	if err := k.s2.Synchronize(); err != nil {
		return zero, deviceFailure(k.deviceIndex, "sync stream 2", err)
	}

	// Step 5: readback, once S2's bucket kernel has completed.
	rHost := make([]J, wp.numGroups*wp.numWindows)
	if err := gpu.Download[J](rHost, rDev); err != nil {
		return zero, deviceFailure(k.deviceIndex, "readback results", err)
	}

	// Step 7: reduce.
	result := reduceWindows[A, J, PJ](k.identity, rHost, wp.w, wp.numWindows, wp.numGroups)
	return result, nil
}

// flattenScalars encodes exps into a contiguous little-endian byte buffer,
// one scalarSize-byte record per element, in the layout the digitize kernel
// expects (spec.md §3: "canonical little-endian byte representation").
func flattenScalars(exps []bls12381fr.Element, scalarSize int) []byte {
	out := make([]byte, len(exps)*scalarSize)
	for i := range exps {
		be := exps[i].Bytes() // gnark-crypto's canonical big-endian encoding
		for j := 0; j < scalarSize; j++ {
			out[i*scalarSize+j] = be[scalarSize-1-j]
		}
	}
	return out
}

// sizeOf returns the compile-time size, in bytes, of a fixed-layout type T —
// used only to size device-side projective scratch buffers.
func sizeOf[T any]() uintptr {
	var v T
	return unsafe.Sizeof(v)
}

// newKernelCore verifies the kernel manifest, loads the module, resolves the
// two entry points, opens the two persistent streams, and sizes the kernel
// via the Device Sizer — everything NewG1Kernel/NewG2Kernel share.
func newKernelCore[A any, J any, PJ jacPoint[A, J]](
	device *gpu.Device, group Group, manifest kernelset.Manifest, affineSize, scalarSize int, maybeAbort func() bool,
) (*kernelCore[A, J, PJ], error) {
	if err := kernelset.Verify(manifest); err != nil {
		return nil, deviceFailure(device.Index(), "verify kernel manifest", err)
	}
	module, err := device.LoadModule(manifest.Image)
	if err != nil {
		return nil, deviceFailure(device.Index(), "load module", err)
	}
	be, err := newCudaBackend(module, group)
	if err != nil {
		return nil, deviceFailure(device.Index(), "resolve kernel functions", err)
	}
	s1, err := device.NewStream()
	if err != nil {
		return nil, deviceFailure(device.Index(), "create stream 1", err)
	}
	s2, err := device.NewStream()
	if err != nil {
		return nil, deviceFailure(device.Index(), "create stream 2", err)
	}

	props := device.Properties()
	sizing := size(DeviceProps{
		Name:         props.Name,
		TotalMemory:  props.TotalMemory,
		ComputeUnits: props.ComputeUnits,
		ComputeCapability: struct{ Major, Minor int }{
			Major: props.ComputeCapability.Major,
			Minor: props.ComputeCapability.Minor,
		},
	}, TermSize{
		AffineBytes:     affineSize,
		ScalarBytes:     scalarSize,
		ProjectiveBytes: int(sizeOf[J]()),
	})

	return &kernelCore[A, J, PJ]{
		deviceIndex: device.Index(),
		group:       group,
		backend:     be,
		s1:          s1,
		s2:          s2,
		maybeAbort:  maybeAbort,
		n:           sizing.N,
		workUnits:   sizing.W,
		affineSize:  affineSize,
		scalarSize:  scalarSize,
	}, nil
}
