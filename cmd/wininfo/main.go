// Command wininfo prints averaging properties of the taper windows used by
// the spectral estimator.
//
// Usage:
//
//	wininfo [flags] [window-name ...]
//
// Without arguments it prints info for all known window types.
//
// Examples:
//
//	wininfo hann
//	wininfo -size 4096 hann welch
//	wininfo -size 4096 -alpha 0.25 tukey
//	wininfo -duration 192 -deltaf 0.03125 hann
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-gwb/dsp/window"
)

var names = []string{"rectangular", "hann", "hamming", "blackman", "welch", "tukey"}

func main() {
	size := flag.Int("size", 4096, "window length in samples")
	alpha := flag.Float64("alpha", math.NaN(), "shape parameter for parametric windows (tukey)")
	periodic := flag.Bool("periodic", true, "use periodic (FFT) form instead of symmetric")
	duration := flag.Float64("duration", 192, "segment duration in seconds for the Welch bias column")
	deltaF := flag.Float64("deltaf", 0.03125, "frequency resolution in Hz for the Welch bias column")
	navg := flag.Int("navg", 2, "neighbouring-segment count of the reference PSD average")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wininfo [flags] [window-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints averaging properties of spectral taper windows.\n")
		fmt.Fprintf(os.Stderr, "Without arguments, prints info for all windows.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	selected := flag.Args()
	if len(selected) == 0 {
		selected = names
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Window\tSize\tENBW [bins]\tMean w^2\tVar factor\tWelch bias\n")

	ok := true

	for _, name := range selected {
		name = strings.ToLower(strings.TrimSpace(name))

		typ, err := window.ParseType(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)

			ok = false

			continue
		}

		opts := []window.Option{}
		if *periodic {
			opts = append(opts, window.WithPeriodic())
		}

		if !math.IsNaN(*alpha) {
			opts = append(opts, window.WithAlpha(*alpha))
		}

		coeffs := window.Generate(typ, *size, opts...)

		enbw, err := window.EquivalentNoiseBandwidth(coeffs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", name, err)

			ok = false

			continue
		}

		f := window.Factors(coeffs)
		bias := f.WelchBias(*duration, *deltaF, *navg)

		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.6f\t%.6f\t%.6f\n",
			name, *size, enbw, f.MeanSquared, f.VarianceFactor(), bias)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if !ok {
		os.Exit(1)
	}
}
