package msm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceErrorUnwrap(t *testing.T) {
	base := errors.New("cuMemAlloc failed")
	err := deviceFailure(2, "alloc buckets", base)

	var de *DeviceError
	require.True(t, errors.As(err, &de))
	require.Equal(t, 2, de.Device)
	require.Equal(t, "alloc buckets", de.Op)
	require.True(t, errors.Is(err, base))
	require.Contains(t, err.Error(), "device 2")
	require.Contains(t, err.Error(), "alloc buckets")
}

func TestDeviceFailureNilIsNil(t *testing.T) {
	require.NoError(t, deviceFailure(0, "noop", nil))
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	require.False(t, errors.Is(ErrAborted, ErrNoDevices))
	require.False(t, errors.Is(ErrNoDevices, ErrShapeMismatch))
}
