package kernelset

import (
	"fmt"
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func digestOf(t *testing.T, image []byte) string {
	t.Helper()
	sum := blake2b.Sum256(image)
	return fmt.Sprintf("%x", sum)
}

func TestVerifyAcceptsMatchingManifest(t *testing.T) {
	image := []byte("fake cubin bytes")
	m := Manifest{
		Group:      "G1",
		ABIVersion: semver.MustParse("1.2.0"),
		Digest:     digestOf(t, image),
		Image:      image,
	}
	require.NoError(t, Verify(m))
}

func TestVerifyRejectsWrongDigest(t *testing.T) {
	image := []byte("fake cubin bytes")
	m := Manifest{
		Group:      "G1",
		ABIVersion: semver.MustParse("1.0.0"),
		Digest:     "deadbeef",
		Image:      image,
	}
	require.Error(t, Verify(m))
}

func TestVerifyRejectsOutOfRangeABI(t *testing.T) {
	image := []byte("fake cubin bytes")
	m := Manifest{
		Group:      "G2",
		ABIVersion: semver.MustParse("2.0.0"),
		Digest:     digestOf(t, image),
		Image:      image,
	}
	require.Error(t, Verify(m))
}

func TestVerifyIgnoresEmptyDigest(t *testing.T) {
	image := []byte("fake cubin bytes")
	m := Manifest{
		Group:      "G1",
		ABIVersion: semver.MustParse("1.0.0"),
		Image:      image,
	}
	require.NoError(t, Verify(m))
}
