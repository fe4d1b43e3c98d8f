package msm

// Group identifies which BLS12-381 curve group an MSM call targets. It
// selects the precompiled kernel binary and the curve-specific entry point
// used in this package (G1Kernel / G2Kernel), rather than an open generic
// parameterized over an arbitrary curve library — spec.md §9 warns
// explicitly against reinterpreting generic caller types as device-layout
// bytes via unchecked transmutes, so each group gets its own typed,
// non-generic public surface (backed by one shared generic implementation).
type Group int

const (
	G1 Group = iota
	G2
)

func (g Group) String() string {
	switch g {
	case G1:
		return "G1"
	case G2:
		return "G2"
	default:
		return "unknown"
	}
}

// DigitizeKernelName is the symbolic entry point shared by both groups (spec
// §6): the digit-transform kernel is curve-agnostic, it only operates on
// scalar bytes.
const DigitizeKernelName = "Exps_Handle_new"

// BucketKernelName is the curve-specific bucket-accumulation entry point
// (spec §6).
func (g Group) BucketKernelName() string {
	switch g {
	case G1:
		return "blstrs__g1__G1Affine_multiexp"
	case G2:
		return "blstrs__g2__G2Affine_multiexp"
	default:
		return ""
	}
}
