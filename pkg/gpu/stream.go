package gpu

/*
#include <cuda.h>
*/
import "C"

// Stream is one CUDA command stream. Each single-device MSM call uses two:
// S1 carries the exponent upload and the digitize kernel, S2 carries the
// base upload, the bucket kernel, and the result readback (spec §5).
type Stream struct {
	device *Device
	handle C.CUstream
}

// Event is a CUDA event used to make S2 wait on S1's digitizer completion
// without serializing the whole stream (spec §9, option (b)).
type Event struct {
	handle C.CUevent
}

// NewStream creates a non-blocking stream on this device.
func (d *Device) NewStream() (*Stream, error) {
	if _, err := d.ensureContext(); err != nil {
		return nil, err
	}
	var h C.CUstream
	if st := C.cuStreamCreate(&h, C.CU_STREAM_NON_BLOCKING); st != C.CUDA_SUCCESS {
		return nil, driverError("cuStreamCreate", st)
	}
	return &Stream{device: d, handle: h}, nil
}

// Record enqueues an event on this stream, returning an Event that a later
// WaitEvent call on a different stream can block on.
func (s *Stream) Record() (*Event, error) {
	var h C.CUevent
	if st := C.cuEventCreate(&h, C.CU_EVENT_DISABLE_TIMING); st != C.CUDA_SUCCESS {
		return nil, driverError("cuEventCreate", st)
	}
	if st := C.cuEventRecord(h, s.handle); st != C.CUDA_SUCCESS {
		return nil, driverError("cuEventRecord", st)
	}
	return &Event{handle: h}, nil
}

// WaitEvent makes all future work submitted to this stream wait until ev has
// been recorded, without blocking the host. This is the explicit
// cross-stream ordering spec §5/§9 requires between the digitizer (S1) and
// the bucket kernel (S2).
func (s *Stream) WaitEvent(ev *Event) error {
	if st := C.cuStreamWaitEvent(s.handle, ev.handle, 0); st != C.CUDA_SUCCESS {
		return driverError("cuStreamWaitEvent", st)
	}
	return nil
}

// Synchronize blocks the calling goroutine's OS thread until every operation
// previously enqueued on this stream has completed.
func (s *Stream) Synchronize() error {
	if st := C.cuStreamSynchronize(s.handle); st != C.CUDA_SUCCESS {
		return driverError("cuStreamSynchronize", st)
	}
	return nil
}

// Destroy releases the stream. Streams persist across MSM calls on the same
// device (spec §5: "streams and modules persist across calls"); the kernels
// in pkg/msm create their two streams once and do not call Destroy.
func (s *Stream) Destroy() error {
	if st := C.cuStreamDestroy(s.handle); st != C.CUDA_SUCCESS {
		return driverError("cuStreamDestroy", st)
	}
	return nil
}

// Destroy releases the event.
func (e *Event) Destroy() error {
	if st := C.cuEventDestroy(e.handle); st != C.CUDA_SUCCESS {
		return driverError("cuEventDestroy", st)
	}
	return nil
}
