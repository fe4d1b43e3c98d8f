package msm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupBucketKernelName(t *testing.T) {
	require.Equal(t, "blstrs__g1__G1Affine_multiexp", G1.BucketKernelName())
	require.Equal(t, "blstrs__g2__G2Affine_multiexp", G2.BucketKernelName())
	require.Equal(t, "G1", G1.String())
	require.Equal(t, "G2", G2.String())
}

func TestUnknownGroupBucketKernelName(t *testing.T) {
	var unknown Group = 99
	require.Equal(t, "", unknown.BucketKernelName())
	require.Equal(t, "unknown", unknown.String())
}
