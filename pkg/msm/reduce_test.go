package msm

import (
	"math/big"
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/stretchr/testify/require"
)

// reduceWindows' contract only depends on the doubling/addition schedule, not
// on how R was produced. Exercising it with w=1 (one bit per window) reduces
// the Host Reducer to textbook MSB-first double-and-add, which is easy to
// check against gnark-crypto's own ScalarMultiplication without needing a
// real digit/bucket kernel.
func reduceViaDoubleAndAdd(t *testing.T, base bls12381.G1Affine, scalar *big.Int) bls12381.G1Jac {
	t.Helper()
	var identity bls12381.G1Affine // (0,0) encodes infinity in this codebase's convention
	r := make([]bls12381.G1Jac, scalarBitLength)
	for j := 0; j < scalarBitLength; j++ {
		bitIndex := scalarBitLength - 1 - j // window 0 is the most significant bit
		if scalar.Bit(bitIndex) == 1 {
			r[j].FromAffine(&base)
		} else {
			r[j].FromAffine(&identity)
		}
	}
	return reduceWindows[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac](identity, r, 1, scalarBitLength, 1)
}

func TestReduceWindowsMatchesScalarMultiplication(t *testing.T) {
	g1GenJac, _, g1Gen, _ := bls12381.Generators()

	cases := []string{
		"0",
		"1",
		"2",
		"255",
		"123456789012345678901234567890",
		"52435875175126190479447740508185965837690552500527637822603658699938581184512", // |F_r| - 1
	}

	for _, c := range cases {
		scalar, ok := new(big.Int).SetString(c, 10)
		require.True(t, ok, "case %s", c)

		var want bls12381.G1Jac
		want.ScalarMultiplication(&g1GenJac, scalar)

		got := reduceViaDoubleAndAdd(t, g1Gen, scalar)

		var wantAffine, gotAffine bls12381.G1Affine
		wantAffine.FromJacobian(&want)
		gotAffine.FromJacobian(&got)
		require.True(t, wantAffine.Equal(&gotAffine), "scalar %s", c)
	}
}

func TestReduceWindowsEmptyScalarIsIdentity(t *testing.T) {
	var identity bls12381.G1Affine
	got := reduceViaDoubleAndAdd(t, identity, big.NewInt(0))

	var gotAffine bls12381.G1Affine
	gotAffine.FromJacobian(&got)
	require.True(t, gotAffine.IsInfinity())
}

func TestReduceWindowsMultipleGroupsSumsPartials(t *testing.T) {
	g1Gen, _, _, _ := bls12381.Generators()

	var a, b bls12381.G1Jac
	a.ScalarMultiplication(&g1Gen, big.NewInt(3))
	b.ScalarMultiplication(&g1Gen, big.NewInt(5))

	// one window with w=0, so no doubling occurs at all, and two groups:
	// result must be a+b.
	var identity bls12381.G1Affine
	got := reduceWindows[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac](identity, []bls12381.G1Jac{a, b}, 0, 1, 2)

	var want bls12381.G1Jac
	want.ScalarMultiplication(&g1Gen, big.NewInt(8))

	var wantAffine, gotAffine bls12381.G1Affine
	wantAffine.FromJacobian(&want)
	gotAffine.FromJacobian(&got)
	require.True(t, wantAffine.Equal(&gotAffine))
}
