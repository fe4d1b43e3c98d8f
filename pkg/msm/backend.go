package msm

import (
	"unsafe"

	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu"
)

// backend is the seam between kernel orchestration (window sizing, stream
// sequencing, buffer lifetime, error propagation) and the actual digit/bucket
// computation. cudaBackend is the only implementation, production or test:
// kernelCore also drives real gpu.Stream/gpu.Buffer cgo calls directly, so a
// fake at this layer alone wouldn't remove the need for a GPU. The test seam
// that does run without hardware sits one layer up, at singleKernel
// (dispatcher_test.go's fakeKernel), which exercises the Multi-Device
// Dispatcher's sharding/concurrency/error-propagation logic in pure Go.
// There is no production code path that skips this interface: New{G1,G2}Kernel
// always wires a cudaBackend (see newKernelCore in kernel_single.go), per spec.md's no-CPU-fallback
// non-goal.
type backend interface {
	// digitize runs Exps_Handle_new on stream, writing num_windows signed
	// digits per term into dDev.
	digitize(stream *gpu.Stream, grid, block uint32, eDev, dDev *gpu.Buffer, m, w, numWindows, rowNums uint32) error

	// bucketMSM runs <group>_multiexp on stream, bucketing pDev by the
	// digits in dDev and writing num_groups*num_windows partial sums to
	// rDev.
	bucketMSM(stream *gpu.Stream, grid, block uint32, pDev, bDev, rDev, dDev *gpu.Buffer, m, numGroups, numWindows, w uint32) error
}

// cudaBackend dispatches to the two real kernel entry points loaded from a
// verified, group-specific module (see gpu/kernelset).
type cudaBackend struct {
	digitizeFn *gpu.Function
	bucketFn   *gpu.Function
}

func newCudaBackend(module *gpu.Module, group Group) (*cudaBackend, error) {
	digitizeFn, err := module.Function(DigitizeKernelName)
	if err != nil {
		return nil, err
	}
	bucketFn, err := module.Function(group.BucketKernelName())
	if err != nil {
		return nil, err
	}
	return &cudaBackend{digitizeFn: digitizeFn, bucketFn: bucketFn}, nil
}

func (b *cudaBackend) digitize(stream *gpu.Stream, grid, block uint32, eDev, dDev *gpu.Buffer, m, w, numWindows, rowNums uint32) error {
	args := newLaunchArgs(
		[]unsafe.Pointer{eDev.Ptr(), dDev.Ptr()},
		[]uint32{m, w, numWindows, rowNums},
	)
	return b.digitizeFn.LaunchAsync(stream, grid, block, args.slice())
}

func (b *cudaBackend) bucketMSM(stream *gpu.Stream, grid, block uint32, pDev, bDev, rDev, dDev *gpu.Buffer, m, numGroups, numWindows, w uint32) error {
	args := newLaunchArgs(
		[]unsafe.Pointer{pDev.Ptr(), bDev.Ptr(), rDev.Ptr(), dDev.Ptr()},
		[]uint32{m, numGroups, numWindows, w},
	)
	return b.bucketFn.LaunchAsync(stream, grid, block, args.slice())
}

// launchArgs packs device pointers and uint32 scalars into the void** array
// cuLaunchKernel expects: one entry per kernel parameter, each pointing to
// that parameter's value, device pointers first then scalars — matching the
// argument order both Exps_Handle_new and "<group>_multiexp" are compiled
// with (spec.md §4.2/§4.4).
type launchArgs struct {
	ptrs []unsafe.Pointer
	ints []uint32
	out  []unsafe.Pointer
}

func newLaunchArgs(ptrs []unsafe.Pointer, ints []uint32) *launchArgs {
	la := &launchArgs{ptrs: ptrs, ints: ints}
	la.out = make([]unsafe.Pointer, 0, len(ptrs)+len(ints))
	for i := range la.ptrs {
		la.out = append(la.out, unsafe.Pointer(&la.ptrs[i]))
	}
	for i := range la.ints {
		la.out = append(la.out, unsafe.Pointer(&la.ints[i]))
	}
	return la
}

func (la *launchArgs) slice() []unsafe.Pointer { return la.out }
