// Package sim generates synthetic coincident detector segments: independent
// Gaussian noise per detector coloured by a reference PSD, plus a common
// coloured component shared between both detectors that mimics an isotropic
// background signal.
//
// Spectra are shaped in the frequency domain and transformed back, so a
// generated series reproduces the requested one-sided PSD under the module's
// density convention. The generator is deterministic for a fixed seed.
package sim

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-gwb/spectral"
)

// PSDFunc is a one-sided power-spectral density in 1/Hz units as a function
// of frequency in Hz.
type PSDFunc func(f float64) float64

// FlatPSD returns a frequency-independent PSD at the given level.
func FlatPSD(level float64) PSDFunc {
	return func(float64) float64 { return level }
}

// PowerLawPSD returns amp * (f/fref)^alpha, zero below the first positive
// frequency.
func PowerLawPSD(amp, alpha, fref float64) PSDFunc {
	return func(f float64) float64 {
		if f <= 0 || fref <= 0 {
			return 0
		}

		return amp * math.Pow(f/fref, alpha)
	}
}

// Options configures a segment generator.
type Options struct {
	Detector1 string
	Detector2 string

	SampleRate      float64
	SegmentDuration float64

	// NoisePSD colours the independent per-detector noise; nil disables it.
	NoisePSD PSDFunc
	// SignalPSD colours the common component injected coherently into both
	// detectors; nil disables it.
	SignalPSD PSDFunc

	Seed int64
}

// Generator produces synthetic segments. It is not safe for concurrent use.
type Generator struct {
	opt  Options
	n    int
	plan *algofft.Plan[complex128]

	// Precomputed per-bin Gaussian amplitudes sqrt(N * fs * S(f) / 4).
	noiseAmp []float64
	sigAmp   []float64

	rng *rand.Rand

	freq []complex128
	time []complex128
}

// New builds a generator for the given options.
func New(opt Options) (*Generator, error) {
	if opt.SampleRate <= 0 || opt.SegmentDuration <= 0 {
		return nil, fmt.Errorf("sim: sample rate and segment duration must be > 0")
	}

	n := int(math.Round(opt.SampleRate * opt.SegmentDuration))
	if n < 4 || n%2 != 0 {
		return nil, fmt.Errorf("sim: segment must span an even sample count >= 4: %d", n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("sim fft plan: %w", err)
	}

	g := &Generator{
		opt:      opt,
		n:        n,
		plan:     plan,
		noiseAmp: binAmplitudes(opt.NoisePSD, n, opt.SampleRate),
		sigAmp:   binAmplitudes(opt.SignalPSD, n, opt.SampleRate),
		rng:      rand.New(rand.NewSource(opt.Seed)),
		freq:     make([]complex128, n),
		time:     make([]complex128, n),
	}

	return g, nil
}

// Segment generates one coincident segment starting at the given GPS time.
func (g *Generator) Segment(start float64) (*spectral.Segment, error) {
	signal, err := g.colouredSeries(g.sigAmp)
	if err != nil {
		return nil, err
	}

	noise1, err := g.colouredSeries(g.noiseAmp)
	if err != nil {
		return nil, err
	}

	noise2, err := g.colouredSeries(g.noiseAmp)
	if err != nil {
		return nil, err
	}

	s1 := make([]float64, g.n)
	s2 := make([]float64, g.n)

	for i := range s1 {
		s1[i] = noise1[i] + signal[i]
		s2[i] = noise2[i] + signal[i]
	}

	return &spectral.Segment{
		Detector1:   g.opt.Detector1,
		Detector2:   g.opt.Detector2,
		Start:       start,
		SampleRate1: g.opt.SampleRate,
		SampleRate2: g.opt.SampleRate,
		Series1:     s1,
		Series2:     s2,
	}, nil
}

// colouredSeries draws hermitian frequency-domain Gaussian coefficients with
// the precomputed per-bin amplitude and transforms them to the time domain.
func (g *Generator) colouredSeries(amp []float64) ([]float64, error) {
	if amp == nil {
		return make([]float64, g.n), nil
	}

	half := g.n / 2

	g.freq[0] = 0
	g.freq[half] = 0

	for k := 1; k < half; k++ {
		c := complex(amp[k]*g.rng.NormFloat64(), amp[k]*g.rng.NormFloat64())
		g.freq[k] = c
		g.freq[g.n-k] = cmplx.Conj(c)
	}

	if err := g.plan.Inverse(g.time, g.freq); err != nil {
		return nil, fmt.Errorf("sim inverse fft: %w", err)
	}

	out := make([]float64, g.n)
	for i := range out {
		out[i] = real(g.time[i])
	}

	return out, nil
}

// binAmplitudes precomputes the per-bin Gaussian amplitude that reproduces
// the one-sided density S(f) under the module's 2/(fs*N) periodogram scale.
func binAmplitudes(psd PSDFunc, n int, fs float64) []float64 {
	if psd == nil {
		return nil
	}

	half := n / 2
	out := make([]float64, half+1)

	for k := 1; k < half; k++ {
		f := fs * float64(k) / float64(n)

		s := psd(f)
		if s < 0 {
			s = 0
		}

		out[k] = math.Sqrt(float64(n) * fs * s / 4)
	}

	return out
}
