// Command gwbestimate runs a cross-correlation background estimation over
// simulated coincident detector data and prints the combined spectrum.
//
// Usage:
//
//	gwbestimate [flags]
//
// Examples:
//
//	gwbestimate -segments 64
//	gwbestimate -config run.yaml -signal 1e-3 -noise 1e-2
//	gwbestimate -segments 128 -print-bins 20 -debug
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-gwb/config"
	"github.com/cwbudde/algo-gwb/pipeline"
	"github.com/cwbudde/algo-gwb/sim"
	"github.com/cwbudde/algo-gwb/spectral"
)

func main() {
	cfgPath := flag.String("config", "", "YAML configuration file (defaults apply when empty)")
	segments := flag.Int("segments", 32, "number of simulated segments")
	duration := flag.Float64("duration", 192, "segment duration in seconds")
	rate := flag.Float64("rate", 4096, "sample rate in Hz")
	noise := flag.Float64("noise", 1e-2, "flat detector noise PSD level in 1/Hz")
	sigLevel := flag.Float64("signal", 1e-3, "flat common signal PSD level in 1/Hz")
	seed := flag.Int64("seed", 1, "simulation seed")
	workers := flag.Int("workers", 0, "worker count override (0 keeps the configured value)")
	printBins := flag.Int("print-bins", 16, "number of spectrum rows to print (0 for all)")
	debug := flag.Bool("debug", false, "verbose development logging")
	flag.Parse()

	if err := run(*cfgPath, *segments, *duration, *rate, *noise, *sigLevel, *seed, *workers, *printBins, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, segments int, duration, rate, noise, sigLevel float64,
	seed int64, workers, printBins int, debug bool,
) error {
	cfg := config.Default()

	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	if workers > 0 {
		cfg.Run.Workers = workers
	}

	logger, err := buildLogger(debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := sim.New(sim.Options{
		Detector1:       "H1",
		Detector2:       "L1",
		SampleRate:      rate,
		SegmentDuration: duration,
		NoisePSD:        sim.FlatPSD(noise),
		SignalPSD:       sim.FlatPSD(sigLevel),
		Seed:            seed,
	})
	if err != nil {
		return err
	}

	segs := make([]*spectral.Segment, 0, segments)

	for i := 0; i < segments; i++ {
		seg, err := gen.Segment(float64(i) * duration)
		if err != nil {
			return err
		}

		segs = append(segs, seg)
	}

	runner, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, pipeline.NewSliceSource(segs))
	if err != nil {
		return err
	}

	printReport(res, printBins)

	return nil
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func printReport(res *pipeline.Result, printBins int) {
	sp := res.Spectrum

	fmt.Printf("segments: %d used, %d rejected, %d errored\n",
		res.Report.Used, res.Report.Rejected, res.Report.Errored)

	if res.Mask != nil {
		fmt.Printf("notched bins: %d of %d\n", res.Mask.Excluded(), res.Mask.Bins())
	}

	if sp.Broadband != nil {
		fmt.Printf("broadband [%g, %g] Hz: %.6g +- %.3g (%d bins)\n",
			sp.Broadband.Low, sp.Broadband.High,
			sp.Broadband.Estimate, math.Sqrt(sp.Broadband.Variance), sp.Broadband.Bins)
	}

	if st := res.Report.Stats; st != nil {
		fmt.Printf("segment scatter: mean deviate %.3f, std %.3f, KS p-value %.3g\n",
			st.MeanDeviate, st.StdDevDeviate, st.KSPValue)
	}

	stride := 1
	if printBins > 0 && len(sp.Freqs) > printBins {
		stride = len(sp.Freqs) / printBins
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Freq [Hz]\tPoint\tSigma\tWeight\n")

	for k := 0; k < len(sp.Freqs); k += stride {
		sigma := math.Inf(1)
		if sp.Weight[k] > 0 {
			sigma = math.Sqrt(sp.Variance[k])
		}

		fmt.Fprintf(tw, "%.3f\t%.6g\t%.3g\t%.3g\n", sp.Freqs[k], sp.Point[k], sigma, sp.Weight[k])
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}
