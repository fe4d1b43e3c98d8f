// Command msm-gpu-bench drives the BLS12-381 GPU MSM engine from the command
// line: enumerate devices, run a G1 or G2 multi-scalar multiplication over
// randomly generated terms, and report timing. It exists for manual
// benchmarking and smoke-testing a kernel binary against real hardware —
// there is no CPU fallback (msm.Dispatcher always dispatches to a GPU
// kernel).
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/blang/semver/v4"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	bls12381fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/google/pprof/profile"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"

	"github.com/ingonyama-zk/gnark-gpu-msm/internal/glog"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/gpu/kernelset"
	"github.com/ingonyama-zk/gnark-gpu-msm/pkg/msm"
)

var (
	flagGroup     string
	flagNumTerms  int
	flagKernelBin string
	flagABI       string
	flagCPUProf   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		glog.Logger().Fatal().Err(err).Msg("msm-gpu-bench failed")
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "msm-gpu-bench",
		Short: "Benchmark the BLS12-381 GPU multi-scalar multiplication engine",
	}
	root.AddCommand(devicesCmd())
	root.AddCommand(runCmd())
	return root
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List GPU devices visible to the driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := gpu.Devices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				p := d.Properties()
				fmt.Printf("[%d] %s  mem=%dMiB  sm=%d  cc=%d.%d\n",
					d.Index(), p.Name, p.TotalMemory/(1<<20), p.ComputeUnits, p.ComputeCapability.Major, p.ComputeCapability.Minor)
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a randomly generated multi-scalar multiplication across all devices",
		RunE:  runBench,
	}
	cmd.Flags().StringVar(&flagGroup, "group", "G1", "curve group: G1 or G2")
	cmd.Flags().IntVar(&flagNumTerms, "terms", 1<<16, "number of (base, scalar) terms")
	cmd.Flags().StringVar(&flagKernelBin, "kernel", "", "path to the precompiled kernel image")
	cmd.Flags().StringVar(&flagABI, "abi", "1.0.0", "kernel binary ABI version")
	cmd.Flags().StringVar(&flagCPUProf, "cpuprofile", "", "write a pprof CPU profile to this path")
	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	if flagCPUProf != "" {
		f, err := os.Create(flagCPUProf)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer func() {
			pprof.StopCPUProfile()
			summarizeProfile(flagCPUProf)
		}()
	}

	if flagKernelBin == "" {
		return fmt.Errorf("--kernel is required")
	}
	image, err := os.ReadFile(flagKernelBin)
	if err != nil {
		return fmt.Errorf("read kernel image: %w", err)
	}
	digest := blake2b.Sum256(image)
	manifest := kernelset.Manifest{
		Group:      flagGroup,
		ABIVersion: semver.MustParse(flagABI),
		Digest:     hex.EncodeToString(digest[:]),
		Image:      image,
	}

	devices, err := gpu.Devices()
	if err != nil {
		return err
	}

	log := glog.Logger().With().Str("component", "bench").Logger()
	log.Info().Int("devices", len(devices)).Str("group", flagGroup).Int("terms", flagNumTerms).Msg("starting run")

	start := time.Now()
	switch flagGroup {
	case "G1":
		err = runG1(devices, manifest, flagNumTerms)
	case "G2":
		err = runG2(devices, manifest, flagNumTerms)
	default:
		return fmt.Errorf("unknown group %q", flagGroup)
	}
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("run complete")
	return nil
}

// summarizeProfile reads back the CPU profile just written and prints the
// top few functions by flat sample count, so a benchmark run gives an
// immediate hint of where host-side time went without a separate `go tool
// pprof` invocation.
func summarizeProfile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	p, err := profile.Parse(f)
	if err != nil {
		glog.Logger().Warn().Err(err).Msg("could not parse cpu profile for summary")
		return
	}

	type flatSample struct {
		name  string
		value int64
	}
	totals := map[string]int64{}
	for _, sample := range p.Sample {
		if len(sample.Location) == 0 || len(sample.Value) == 0 {
			continue
		}
		loc := sample.Location[0]
		if len(loc.Line) == 0 || loc.Line[0].Function == nil {
			continue
		}
		totals[loc.Line[0].Function.Name] += sample.Value[0]
	}

	samples := make([]flatSample, 0, len(totals))
	for name, v := range totals {
		samples = append(samples, flatSample{name, v})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].value > samples[j].value })

	limit := 5
	if len(samples) < limit {
		limit = len(samples)
	}
	for i := 0; i < limit; i++ {
		fmt.Printf("  %8d  %s\n", samples[i].value, samples[i].name)
	}
}

func randomG1Terms(n int) ([]bls12381.G1Affine, []bls12381fr.Element) {
	gen, _, _, _ := bls12381.Generators()
	bases := make([]bls12381.G1Affine, n)
	exps := make([]bls12381fr.Element, n)
	src := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		var s bls12381fr.Element
		s.SetUint64(uint64(src.Int63()))
		var j bls12381.G1Jac
		j.ScalarMultiplication(&gen, s.BigInt(new(big.Int)))
		bases[i].FromJacobian(&j)
		exps[i].SetUint64(uint64(src.Int63()))
	}
	return bases, exps
}

func randomG2Terms(n int) ([]bls12381.G2Affine, []bls12381fr.Element) {
	_, gen, _, _ := bls12381.Generators()
	bases := make([]bls12381.G2Affine, n)
	exps := make([]bls12381fr.Element, n)
	src := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		var s bls12381fr.Element
		s.SetUint64(uint64(src.Int63()))
		var j bls12381.G2Jac
		j.ScalarMultiplication(&gen, s.BigInt(new(big.Int)))
		bases[i].FromJacobian(&j)
		exps[i].SetUint64(uint64(src.Int63()))
	}
	return bases, exps
}

func runG1(devices []*gpu.Device, manifest kernelset.Manifest, n int) error {
	d, err := msm.NewG1Dispatcher(devices, manifest, nil)
	if err != nil {
		return err
	}
	bases, exps := randomG1Terms(n)
	_, err = d.MultiExp(context.Background(), bases, exps, 0)
	return err
}

func runG2(devices []*gpu.Device, manifest kernelset.Manifest, n int) error {
	d, err := msm.NewG2Dispatcher(devices, manifest, nil)
	if err != nil {
		return err
	}
	bases, exps := randomG2Terms(n)
	_, err = d.MultiExp(context.Background(), bases, exps, 0)
	return err
}
