package msm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// a100SingleGPUFixture pins the Device Sizer's output for one real
// configuration (a 40GiB A100, G1 term size) as a regression anchor: if the
// sizer's formulas ever change, this is the number that should visibly move
// in review, not silently drift.
var a100SingleGPUFixture = DeviceSnapshot{
	Props: func() DeviceProps {
		p := DeviceProps{Name: "A100-40GB", TotalMemory: 40 << 30, ComputeUnits: 108}
		p.ComputeCapability.Major = ampereMajor
		return p
	}(),
	Term:   TermSize{AffineBytes: g1AffineBytes, ScalarBytes: 32, ProjectiveBytes: g1ProjBytes},
	Sizing: WorkSizing{N: 236553856, W: 27648},
}

func TestDeviceSnapshotRoundTripsThroughCBOR(t *testing.T) {
	encoded, err := EncodeDeviceSnapshot(a100SingleGPUFixture)
	require.NoError(t, err)

	decoded, err := DecodeDeviceSnapshot(encoded)
	require.NoError(t, err)

	if diff := cmp.Diff(a100SingleGPUFixture, decoded); diff != "" {
		t.Fatalf("snapshot did not round-trip through CBOR (-want +got):\n%s", diff)
	}
}

func TestDeviceSnapshotMatchesRecomputedSizing(t *testing.T) {
	recomputed := CaptureDeviceSnapshot(a100SingleGPUFixture.Props, a100SingleGPUFixture.Term)
	if diff := cmp.Diff(a100SingleGPUFixture.Sizing, recomputed.Sizing); diff != "" {
		t.Fatalf("device sizer drifted from the pinned A100 fixture (-want +got):\n%s", diff)
	}
}
