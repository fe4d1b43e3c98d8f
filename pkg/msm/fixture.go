package msm

import (
	"github.com/fxamacker/cbor/v2"
)

// DeviceSnapshot pairs a device's sizing-relevant properties and curve term
// size with the WorkSizing the Device Sizer derived from them. Capturing
// real hardware's inputs/outputs this way lets the sizer's regression
// fixtures (spec.md §8's golden vectors) be replayed without that hardware
// present.
type DeviceSnapshot struct {
	Props  DeviceProps
	Term   TermSize
	Sizing WorkSizing
}

// CaptureDeviceSnapshot runs the Device Sizer and records its inputs
// alongside its output.
func CaptureDeviceSnapshot(props DeviceProps, term TermSize) DeviceSnapshot {
	return DeviceSnapshot{Props: props, Term: term, Sizing: size(props, term)}
}

// EncodeDeviceSnapshot serializes a snapshot as a CBOR fixture.
func EncodeDeviceSnapshot(s DeviceSnapshot) ([]byte, error) {
	return cbor.Marshal(s)
}

// DecodeDeviceSnapshot parses a fixture produced by EncodeDeviceSnapshot.
func DecodeDeviceSnapshot(data []byte) (DeviceSnapshot, error) {
	var s DeviceSnapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return DeviceSnapshot{}, err
	}
	return s, nil
}
