package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-gwb/dsp/window"
)

// Options configures the windowed averaged-periodogram estimator.
type Options struct {
	// FFTLength is the sub-interval length in samples. Must be even and >= 4.
	FFTLength int
	// Overlap is the sub-interval overlap fraction in [0, 1).
	Overlap float64
	// Window selects the taper applied to each sub-interval.
	Window window.Type
	// WindowAlpha is the shape parameter for parametric windows (Tukey).
	WindowAlpha float64
	// RateTolerance is the relative sample-rate tolerance; zero uses
	// [DefaultRateTolerance].
	RateTolerance float64
}

func (o Options) validate() error {
	if o.FFTLength < 4 || o.FFTLength%2 != 0 {
		return fmt.Errorf("fft length must be even and >= 4: %d", o.FFTLength)
	}

	if o.Overlap < 0 || o.Overlap >= 1 {
		return fmt.Errorf("overlap fraction must be in [0, 1): %f", o.Overlap)
	}

	return nil
}

// Estimate is the spectral output of one segment: the detector-pair CSD and
// both detectors' PSDs on a shared one-sided frequency axis.
type Estimate struct {
	Detector1 string
	Detector2 string

	// Start is the segment start time in GPS seconds.
	Start float64
	// Duration is the segment duration in seconds.
	Duration float64

	SampleRate float64
	// DeltaF is the frequency resolution, SampleRate / FFTLength.
	DeltaF float64
	// SubIntervals is the number of averaged periodograms.
	SubIntervals int

	// Freqs is the one-sided frequency axis, k * SampleRate / FFTLength for
	// k = 0 .. FFTLength/2.
	Freqs []float64

	CSD  []complex128
	PSD1 []float64
	PSD2 []float64

	// Window holds the moments of the applied taper, required downstream for
	// variance calibration.
	Window window.FactorSet
}

// Bins returns the number of one-sided frequency bins.
func (e *Estimate) Bins() int {
	return len(e.Freqs)
}

// Welch computes the cross-spectral density of a segment's detector pair
// and each detector's power-spectral density by Welch's method: the segment
// is split into overlapping sub-intervals of opt.FFTLength samples, each
// sub-interval is tapered and transformed, and the per-sub-interval cross
// products are averaged.
//
// It fails with [*InsufficientDataError] when the segment cannot contain a
// single sub-interval and with [*MismatchedSampleRateError] when the two
// detector series disagree in rate or length beyond tolerance.
func Welch(seg *Segment, opt Options) (*Estimate, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}

	if err := seg.Validate(opt.RateTolerance); err != nil {
		return nil, err
	}

	n := seg.Samples()
	nfft := opt.FFTLength
	if n < nfft {
		return nil, &InsufficientDataError{Samples: n, FFTLength: nfft}
	}

	hop := int(math.Round(float64(nfft) * (1 - opt.Overlap)))
	if hop < 1 {
		hop = 1
	}

	count := 1 + (n-nfft)/hop

	winOpts := []window.Option{window.WithPeriodic()}
	if opt.Window == window.TypeTukey {
		winOpts = append(winOpts, window.WithAlpha(opt.WindowAlpha))
	}

	coeffs := window.Generate(opt.Window, nfft, winOpts...)

	sumW2 := 0.0
	for _, w := range coeffs {
		sumW2 += w * w
	}

	if sumW2 == 0 {
		return nil, fmt.Errorf("window %s has zero power", window.Name(opt.Window))
	}

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("spectral estimate fft plan: %w", err)
	}

	fs := seg.SampleRate()
	bins := nfft/2 + 1

	var (
		buf1 = make([]float64, nfft)
		buf2 = make([]float64, nfft)
		in1  = make([]complex128, nfft)
		in2  = make([]complex128, nfft)
		out1 = make([]complex128, nfft)
		out2 = make([]complex128, nfft)

		re  = make([]float64, bins)
		im  = make([]float64, bins)
		pow = make([]float64, bins)

		psdAcc1 = make([]float64, bins)
		psdAcc2 = make([]float64, bins)
		csdAcc  = make([]complex128, bins)
	)

	for i := 0; i < count; i++ {
		off := i * hop

		vecmath.MulBlock(buf1, seg.Series1[off:off+nfft], coeffs)
		vecmath.MulBlock(buf2, seg.Series2[off:off+nfft], coeffs)

		for j := 0; j < nfft; j++ {
			in1[j] = complex(buf1[j], 0)
			in2[j] = complex(buf2[j], 0)
		}

		if err := plan.Forward(out1, in1); err != nil {
			return nil, fmt.Errorf("spectral estimate fft: %w", err)
		}

		if err := plan.Forward(out2, in2); err != nil {
			return nil, fmt.Errorf("spectral estimate fft: %w", err)
		}

		accumulatePower(psdAcc1, out1[:bins], re, im, pow)
		accumulatePower(psdAcc2, out2[:bins], re, im, pow)

		for k := 0; k < bins; k++ {
			csdAcc[k] += out1[k] * cmplx.Conj(out2[k])
		}
	}

	// One-sided density normalization: 2/(fs*sum(w^2)) per averaged cross
	// product, without doubling at DC and Nyquist.
	scale := 2 / (fs * sumW2 * float64(count))

	psd1 := make([]float64, bins)
	psd2 := make([]float64, bins)
	csd := make([]complex128, bins)

	vecmath.ScaleBlock(psd1, psdAcc1, scale)
	vecmath.ScaleBlock(psd2, psdAcc2, scale)

	for k := 0; k < bins; k++ {
		csd[k] = csdAcc[k] * complex(scale, 0)
	}

	psd1[0] /= 2
	psd2[0] /= 2
	csd[0] /= 2
	psd1[bins-1] /= 2
	psd2[bins-1] /= 2
	csd[bins-1] /= 2

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = fs * float64(k) / float64(nfft)
	}

	return &Estimate{
		Detector1:    seg.Detector1,
		Detector2:    seg.Detector2,
		Start:        seg.Start,
		Duration:     seg.Duration(),
		SampleRate:   fs,
		DeltaF:       fs / float64(nfft),
		SubIntervals: count,
		Freqs:        freqs,
		CSD:          csd,
		PSD1:         psd1,
		PSD2:         psd2,
		Window:       window.Factors(coeffs),
	}, nil
}

// accumulatePower adds |x[k]|^2 for each bin of x onto acc, reusing the
// caller's scratch slices.
func accumulatePower(acc []float64, x []complex128, re, im, pow []float64) {
	for k, c := range x {
		re[k] = real(c)
		im[k] = imag(c)
	}

	vecmath.Power(pow, re, im)
	vecmath.AddBlockInPlace(acc, pow)
}
