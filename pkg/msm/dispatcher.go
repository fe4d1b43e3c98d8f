package msm

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ingonyama-zk/gnark-gpu-msm/internal/glog"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu/kernelset"
)

// singleKernel is what the Multi-Device Dispatcher needs from one curve
// group's Single-Device MSM Kernel: G1Kernel and G2Kernel both satisfy it.
type singleKernel[A any, J any] interface {
	N() int
	MultiExp(bases []A, exps []bls12381fr.Element) (J, error)
}

// Dispatcher is the Multi-Device Dispatcher (spec.md §4.4), generic over one
// curve group. Dispatcher[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac]
// and the G2 instantiation (built by NewG1Dispatcher/NewG2Dispatcher below)
// are the only two types ever constructed.
type Dispatcher[A any, J any, PJ jacPoint[A, J]] struct {
	kernels []singleKernel[A, J]
	log     zerolog.Logger
}

func newDispatcher[A any, J any, PJ jacPoint[A, J]](kernels []singleKernel[A, J], log zerolog.Logger) (*Dispatcher[A, J, PJ], error) {
	if len(kernels) == 0 {
		return nil, ErrNoDevices
	}
	return &Dispatcher[A, J, PJ]{kernels: kernels, log: log}, nil
}

// NumDevices reports how many devices' kernels are in service.
func (d *Dispatcher[A, J, PJ]) NumDevices() int {
	return len(d.kernels)
}

// MultiExp implements spec.md §4.4: shard bases[skip:skip+len(exps)] and exps
// across all devices in deterministic left-to-right order, run each
// device's sub-chunks concurrently within a scoped task group, propagate the
// first error, and sum the per-device accumulators in device-index order.
func (d *Dispatcher[A, J, PJ]) MultiExp(ctx context.Context, bases []A, exps []bls12381fr.Element, skip int) (J, error) {
	var zero J

	numExps := len(exps)
	if skip+numExps > len(bases) {
		return zero, ErrShapeMismatch
	}
	effectiveBases := bases[skip : skip+numExps]

	numDevices := len(d.kernels)
	shardSize := ceilDiv(numExps, numDevices)

	results := make([]J, numDevices)
	active := bitset.New(uint(numDevices))

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numDevices; i++ {
		i := i
		start := i * shardSize
		if start >= numExps {
			continue
		}
		active.Set(uint(i))
		end := start + shardSize
		if end > numExps {
			end = numExps
		}
		shardBases := effectiveBases[start:end]
		shardExps := exps[start:end]
		kern := d.kernels[i]

		group.Go(func() error {
			var acc J
			p := PJ(&acc)
			var identity A
			p.FromAffine(&identity)

			chunkSize := kern.N()
			if chunkSize <= 0 {
				return deviceFailure(i, "size", ErrNoDevices)
			}
			for off := 0; off < len(shardBases); off += chunkSize {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				end := off + chunkSize
				if end > len(shardBases) {
					end = len(shardBases)
				}
				res, err := kern.MultiExp(shardBases[off:end], shardExps[off:end])
				if err != nil {
					return err
				}
				p.AddAssign(&res)
			}
			results[i] = acc
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return zero, err
	}
	d.log.Debug().Str("active_devices", active.String()).Uint("active_count", active.Count()).Msg("shard participation")

	var acc J
	p := PJ(&acc)
	var identity A
	p.FromAffine(&identity)
	for i := range results {
		p.AddAssign(&results[i])
	}
	return acc, nil
}

// NewG1Dispatcher pairs each device with a G1 kernel (spec.md §4.4's
// create): per-device creation failure is logged and that device is
// dropped; NoDevices if none succeed.
func NewG1Dispatcher(devices []*gpu.Device, manifest kernelset.Manifest, maybeAbort func() bool) (*Dispatcher[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac], error) {
	log := glog.Logger().With().Str("component", "dispatcher").Str("group", "G1").Logger()
	kernels := make([]singleKernel[bls12381.G1Affine, bls12381.G1Jac], 0, len(devices))
	for _, device := range devices {
		k, err := NewG1Kernel(device, manifest, maybeAbort)
		if err != nil {
			log.Error().Err(err).Int("device", device.Index()).Msg("cannot initialize kernel for device, dropping it")
			continue
		}
		kernels = append(kernels, k)
		log.Info().Int("device", device.Index()).Str("name", device.Properties().Name).Int("chunk_size", k.N()).Msg("device ready")
	}
	return newDispatcher[bls12381.G1Affine, bls12381.G1Jac, *bls12381.G1Jac](kernels, log)
}

// NewG2Dispatcher mirrors NewG1Dispatcher for the G2 group.
func NewG2Dispatcher(devices []*gpu.Device, manifest kernelset.Manifest, maybeAbort func() bool) (*Dispatcher[bls12381.G2Affine, bls12381.G2Jac, *bls12381.G2Jac], error) {
	log := glog.Logger().With().Str("component", "dispatcher").Str("group", "G2").Logger()
	kernels := make([]singleKernel[bls12381.G2Affine, bls12381.G2Jac], 0, len(devices))
	for _, device := range devices {
		k, err := NewG2Kernel(device, manifest, maybeAbort)
		if err != nil {
			log.Error().Err(err).Int("device", device.Index()).Msg("cannot initialize kernel for device, dropping it")
			continue
		}
		kernels = append(kernels, k)
		log.Info().Int("device", device.Index()).Str("name", device.Properties().Name).Int("chunk_size", k.N()).Msg("device ready")
	}
	return newDispatcher[bls12381.G2Affine, bls12381.G2Jac, *bls12381.G2Jac](kernels, log)
}
