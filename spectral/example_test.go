package spectral_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-gwb/dsp/window"
	"github.com/cwbudde/algo-gwb/spectral"
)

func ExampleEstimate() {
	rate := 16.0
	s1 := make([]float64, 16)
	s2 := make([]float64, 16)

	for i := range s1 {
		s1[i] = math.Sin(2 * math.Pi * 4 * float64(i) / rate)
		s2[i] = s1[i]
	}

	seg := &spectral.Segment{
		Detector1:   "H1",
		Detector2:   "L1",
		SampleRate1: rate,
		SampleRate2: rate,
		Series1:     s1,
		Series2:     s2,
	}

	est, err := spectral.Welch(seg, spectral.Options{
		FFTLength: 16,
		Window:    window.TypeHann,
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("bins=%d deltaF=%.0f Hz peak=%.0f Hz\n", est.Bins(), est.DeltaF, est.Freqs[4])
	// Output:
	// bins=9 deltaF=1 Hz peak=4 Hz
}
