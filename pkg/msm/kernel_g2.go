package msm

import (
	"unsafe"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu/kernelset"
)

// fp2.Element is two fp.Elements (96 bytes); G2Affine holds two fp2.Elements
// (192 bytes), G2Jac holds three (288 bytes). See kernel_g1.go's comment for
// why this is checked at compile time.
const (
	g2AffineBytes = 192
	g2ProjBytes   = 288
)

var (
	_ [unsafe.Sizeof(bls12381.G2Affine{}) - g2AffineBytes]byte
	_ [g2AffineBytes - unsafe.Sizeof(bls12381.G2Affine{})]byte
	_ [unsafe.Sizeof(bls12381.G2Jac{}) - g2ProjBytes]byte
	_ [g2ProjBytes - unsafe.Sizeof(bls12381.G2Jac{})]byte
)

// G2Kernel is the curve-specific Single-Device MSM Kernel for BLS12-381 G2.
type G2Kernel struct {
	core *kernelCore[bls12381.G2Affine, bls12381.G2Jac, *bls12381.G2Jac]
}

// NewG2Kernel mirrors NewG1Kernel for the G2 group.
func NewG2Kernel(device *gpu.Device, manifest kernelset.Manifest, maybeAbort func() bool) (*G2Kernel, error) {
	core, err := newKernelCore[bls12381.G2Affine, bls12381.G2Jac, *bls12381.G2Jac](
		device, G2, manifest, g2AffineBytes, int(bls12381fr.Bytes), maybeAbort,
	)
	if err != nil {
		return nil, err
	}
	return &G2Kernel{core: core}, nil
}

// N returns this kernel's per-call chunk size.
func (k *G2Kernel) N() int { return k.core.N() }

// MultiExp runs the single-device MSM (spec.md §4.2) for m <= N() terms.
func (k *G2Kernel) MultiExp(bases []bls12381.G2Affine, exps []bls12381fr.Element) (bls12381.G2Jac, error) {
	return k.core.multiexp(bases, exps)
}
