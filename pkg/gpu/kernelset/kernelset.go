// Package kernelset resolves and verifies the pre-built device binaries the
// core MSM engine loads (spec.md §6: "the core loads pre-built device
// binaries"). Each binary ships with a small manifest recording the ABI
// version it was compiled against and a content digest; kernelset checks
// both before the binary is ever handed to gpu.Device.LoadModule, turning a
// stale or corrupted kernel image into an early DeviceFailure instead of an
// obscure launch-time crash (spec.md §9: "ignored completion statuses").
package kernelset

import (
	"fmt"

	"github.com/blang/semver/v4"
	"golang.org/x/crypto/blake2b"
)

// SupportedABI is the range of kernel-binary ABI versions this engine's host
// orchestration (digit layout, argument order, buffer sizing) is compatible
// with. Bump the lower bound whenever the host/kernel argument contract
// changes in a way older binaries can't satisfy.
var SupportedABI = semver.MustParseRange(">=1.0.0 <2.0.0")

// Manifest accompanies one precompiled kernel image.
type Manifest struct {
	// Group is the curve group this binary implements ("G1" or "G2").
	Group string
	// ABIVersion is checked against SupportedABI.
	ABIVersion semver.Version
	// Digest is the expected BLAKE2b-256 hex digest of Image.
	Digest string
	// Image is the raw cubin/fatbin bytes.
	Image []byte
}

// Verify checks the manifest's ABI version and the image's integrity,
// returning a descriptive error if either check fails. An empty Digest skips
// the integrity check; only the ABI version is checked then. It does not
// touch the GPU; Device.LoadModule is the next step once Verify succeeds.
func Verify(m Manifest) error {
	if !SupportedABI(m.ABIVersion) {
		return fmt.Errorf("kernelset: %s kernel ABI %s is not in supported range %s", m.Group, m.ABIVersion, SupportedABI)
	}
	sum := blake2b.Sum256(m.Image)
	got := fmt.Sprintf("%x", sum)
	if m.Digest != "" && got != m.Digest {
		return fmt.Errorf("kernelset: %s kernel image digest mismatch: manifest says %s, computed %s", m.Group, m.Digest, got)
	}
	return nil
}
