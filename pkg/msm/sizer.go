package msm

import (
	"golang.org/x/exp/constraints"
)

// Tunables fixed by spec.md §4.1 / §3.
const (
	maxWindowSize   = 10  // MAX_W
	localWorkSize   = 128 // LOCAL_WORK_SIZE
	ampereMajor     = 8   // compute-capability major version of Nvidia Ampere
	memoryPadding   = 0.20
	scalarBitLength = 256 // |F_r| for BLS12-381
)

// DeviceProps is the subset of device properties the Device Sizer reads. It
// is a plain value type, decoupled from gpu.Device, so the sizer (and its
// tests) never need a real GPU or cgo: "the sizer is pure: no device I/O
// beyond reading properties" (spec.md §4.1).
type DeviceProps struct {
	Name              string
	TotalMemory       uint64
	ComputeUnits      int
	ComputeCapability struct{ Major, Minor int }
}

// WorkSizing is the {n, W} pair the Device Sizer derives from device
// properties and a curve's term size: n is the chunk size (max terms per
// single-device call), W is the number of work units (threads).
type WorkSizing struct {
	N int // chunk size
	W int // work units
}

// TermSize describes the per-term byte footprint for one curve group:
// sizeof(affine point) + sizeof(scalar canonical representation), plus the
// projective point size used to size the bucket/result scratch (spec §4.1).
type TermSize struct {
	AffineBytes    int
	ScalarBytes    int
	ProjectiveBytes int
}

// size implements spec.md §4.1 exactly:
//
//	W = LOCAL_WORK_SIZE * compute_units, doubled on Ampere
//	n = (M_free - B_size - R_size) / term_size
//	M_free = floor(total_memory * (1 - 0.20))
//	term_size = sizeof(affine) + sizeof(scalar)
//	B_size = W * 2^MAX_W * sizeof(projective)
//	R_size = W * sizeof(projective)
func size(props DeviceProps, term TermSize) WorkSizing {
	w := localWorkSize * props.ComputeUnits
	if props.ComputeCapability.Major == ampereMajor {
		w *= 2
	}

	mFree := int(float64(props.TotalMemory) * (1 - memoryPadding))
	termSize := term.AffineBytes + term.ScalarBytes
	bSize := w * (1 << maxWindowSize) * term.ProjectiveBytes
	rSize := w * term.ProjectiveBytes

	n := 0
	if avail := mFree - bSize - rSize; avail > 0 && termSize > 0 {
		n = avail / termSize
	}

	return WorkSizing{N: n, W: w}
}

// windowParams derives {w, num_windows, num_groups, bucket_len} from a chunk
// length m and the work sizing W, per spec.md §3/§4.2:
//
//	w = min(MAX_W, ceil(log2(ceil(n/W))) + 2)
//	num_windows = ceil(256 / w)
//	num_groups = W / num_windows   (integer division, num_groups >= 1)
//	bucket_len = 2^(w-1)
type windowParams struct {
	w          int
	numWindows int
	numGroups  int
	bucketLen  int
}

func calcWindowParams(m, workUnits int) windowParams {
	w := calcWindowSize(m, workUnits)
	numWindows := ceilDiv(scalarBitLength, w)
	numGroups := workUnits / numWindows
	if numGroups < 1 {
		numGroups = 1
	}
	return windowParams{
		w:          w,
		numWindows: numWindows,
		numGroups:  numGroups,
		bucketLen:  1 << (w - 1),
	}
}

// calcWindowSize is spec.md §3's w formula, reducing the window (and so
// increasing num_windows*num_groups parallelism) when fewer terms are loaded
// than the device's full work-unit count.
func calcWindowSize(numTerms, workUnits int) int {
	windowSize := int(log2Ceil(ceilDiv(numTerms, workUnits))) + 2
	if windowSize > maxWindowSize {
		windowSize = maxWindowSize
	}
	if windowSize < 1 {
		windowSize = 1
	}
	return windowSize
}

func ceilDiv[T constraints.Integer](a, b T) T {
	if b == 0 {
		return 0
	}
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// log2Ceil returns ceil(log2(n)) for n >= 1.
func log2Ceil[T constraints.Integer](n T) T {
	if n <= 1 {
		return 0
	}
	var bits, v T = 0, n - 1
	for v > 0 {
		v >>= 1
		bits++
	}
	return bits
}
