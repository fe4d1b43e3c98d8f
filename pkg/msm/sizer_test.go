package msm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func ampereProps(computeUnits int) DeviceProps {
	p := DeviceProps{Name: "A100", TotalMemory: 40 << 30, ComputeUnits: computeUnits}
	p.ComputeCapability.Major = ampereMajor
	p.ComputeCapability.Minor = 0
	return p
}

func TestSizeDoublesWorkUnitsOnAmpere(t *testing.T) {
	term := TermSize{AffineBytes: 96, ScalarBytes: 32, ProjectiveBytes: 144}

	ampere := size(ampereProps(108), term)
	require.Equal(t, localWorkSize*108*2, ampere.W)

	nonAmpere := ampereProps(108)
	nonAmpere.ComputeCapability.Major = 7
	turing := size(nonAmpere, term)
	require.Equal(t, localWorkSize*108, turing.W)
}

func TestSizeNeverNegative(t *testing.T) {
	term := TermSize{AffineBytes: 96, ScalarBytes: 32, ProjectiveBytes: 144}
	tiny := DeviceProps{Name: "tiny", TotalMemory: 1 << 20, ComputeUnits: 80}
	got := size(tiny, term)
	require.GreaterOrEqual(t, got.N, 0)
}

func TestCalcWindowParamsRespectsMaxWindow(t *testing.T) {
	wp := calcWindowParams(1<<30, 1)
	want := windowParams{w: maxWindowSize, numWindows: ceilDiv(scalarBitLength, maxWindowSize), numGroups: 1, bucketLen: 1 << (maxWindowSize - 1)}
	if diff := cmp.Diff(want, wp, cmp.AllowUnexported(windowParams{})); diff != "" {
		t.Fatalf("window params mismatch (-want +got):\n%s", diff)
	}
}

func TestCalcWindowParamsCoversAllScalarBits(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("numWindows*w always covers scalarBitLength", prop.ForAll(
		func(m, workUnits int) bool {
			wp := calcWindowParams(m, workUnits)
			return wp.w*wp.numWindows >= scalarBitLength && wp.numGroups >= 1
		},
		gen.IntRange(1, 1<<20),
		gen.IntRange(1, 1<<16),
	))

	properties.TestingRun(t)
}

func TestCeilDivAndLog2Ceil(t *testing.T) {
	require.Equal(t, 3, ceilDiv(7, 3))
	require.Equal(t, 2, ceilDiv(6, 3))
	require.Equal(t, 0, ceilDiv(0, 5))
	require.Equal(t, 0, ceilDiv(5, 0))

	require.Equal(t, 0, log2Ceil(1))
	require.Equal(t, 0, log2Ceil(0))
	require.Equal(t, 3, log2Ceil(8))
	require.Equal(t, 4, log2Ceil(9))
}
