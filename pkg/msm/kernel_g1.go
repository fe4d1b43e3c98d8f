package msm

import (
	"unsafe"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu/kernelset"
)

// Compile-time layout checks (spec.md §9: "state [the layout contract]
// explicitly and verify via compile-time size/align checks"). fp.Element is
// 6 limbs of uint64 (48 bytes) on BLS12-381; G1Affine holds two (96 bytes),
// G1Jac holds three (144 bytes). If gnark-crypto's in-memory layout ever
// changes, one of these array lengths goes negative and the build fails here
// instead of inside a kernel launch.
const (
	g1AffineBytes = 96
	g1ProjBytes   = 144
)

var (
	_ [unsafe.Sizeof(bls12381.G1Affine{}) - g1AffineBytes]byte
	_ [g1AffineBytes - unsafe.Sizeof(bls12381.G1Affine{})]byte
	_ [unsafe.Sizeof(bls12381.G1Jac{}) - g1ProjBytes]byte
	_ [g1ProjBytes - unsafe.Sizeof(bls12381.G1Jac{})]byte
)

// G1Kernel is the curve-specific Single-Device MSM Kernel for BLS12-381 G1.
type G1Kernel struct {
	core *kernelCore[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac]
}

// NewG1Kernel creates a G1 kernel for one device: it verifies the kernel
// binary manifest, loads the module, resolves both entry points, creates the
// two persistent streams, and runs the Device Sizer once (spec.md §4.2
// preconditions, §9 "cache both per device for the lifetime of the
// dispatcher").
func NewG1Kernel(device *gpu.Device, manifest kernelset.Manifest, maybeAbort func() bool) (*G1Kernel, error) {
	core, err := newKernelCore[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac](
		device, G1, manifest, g1AffineBytes, int(bls12381fr.Bytes), maybeAbort,
	)
	if err != nil {
		return nil, err
	}
	return &G1Kernel{core: core}, nil
}

// N returns this kernel's per-call chunk size.
func (k *G1Kernel) N() int { return k.core.N() }

// MultiExp runs the single-device MSM (spec.md §4.2) for m <= N() terms.
func (k *G1Kernel) MultiExp(bases []bls12381.G1Affine, exps []bls12381fr.Element) (bls12381.G1Jac, error) {
	return k.core.multiexp(bases, exps)
}
