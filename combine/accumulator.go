package combine

import (
	"math"

	"github.com/cwbudde/algo-gwb/notch"
	"github.com/cwbudde/algo-gwb/quality"
	"github.com/cwbudde/algo-gwb/spectral"
)

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithOverlapReduction supplies the detector-pair overlap reduction function
// on the accumulator's frequency axis. Point estimates are divided by it and
// variances by its square. Without it the pair is treated as co-located and
// co-aligned (gamma = 1).
func WithOverlapReduction(orf []float64) Option {
	return func(a *Accumulator) {
		a.orf = append([]float64(nil), orf...)
	}
}

// WithBiasFactor applies a multiplicative bias factor to the finalized sigma
// (the variance is scaled by its square). Use [window.FactorSet.WelchBias] to
// derive it from the estimator's taper.
func WithBiasFactor(b float64) Option {
	return func(a *Accumulator) {
		if b > 0 {
			a.bias = b
		}
	}
}

// Accumulator folds per-segment estimates into running per-frequency weighted
// sums. The zero value is not usable; construct with New. An Accumulator is
// not safe for concurrent mutation; parallel callers keep private
// accumulators and Merge them.
type Accumulator struct {
	freqs []float64

	// Kahan-compensated weighted sums: sum(Y/sigma^2) and sum(1/sigma^2).
	sumYW  []float64
	compYW []float64
	sumW   []float64
	compW  []float64

	orf  []float64
	bias float64

	used     int
	rejected int
}

// New builds an empty accumulator over the run's fixed frequency axis.
func New(freqs []float64, opts ...Option) *Accumulator {
	a := &Accumulator{
		freqs:  append([]float64(nil), freqs...),
		sumYW:  make([]float64, len(freqs)),
		compYW: make([]float64, len(freqs)),
		sumW:   make([]float64, len(freqs)),
		compW:  make([]float64, len(freqs)),
		bias:   1,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Bins returns the number of frequency bins.
func (a *Accumulator) Bins() int {
	return len(a.freqs)
}

// Used returns the number of segments folded in so far.
func (a *Accumulator) Used() int {
	return a.used
}

// Rejected returns the number of segments skipped due to quality flags.
func (a *Accumulator) Rejected() int {
	return a.rejected
}

// Add folds one segment's estimate into the running sums. Segments flagged
// unusable contribute zero weight and only bump the rejection counter.
// Accumulation order carries no meaning; any permutation of Add calls yields
// the same state up to floating-point roundoff.
func (a *Accumulator) Add(est *spectral.Estimate, flag quality.Flag) error {
	if !flag.Usable {
		a.rejected++

		return nil
	}

	if est == nil || len(est.Freqs) != len(a.freqs) {
		return errAxisMismatch
	}

	if a.orf != nil && len(a.orf) != len(a.freqs) {
		return errAxisMismatch
	}

	varFactor := est.Window.VarianceFactor()
	if varFactor <= 0 {
		varFactor = 1
	}

	norm := 2 * est.Duration * est.DeltaF

	for k := range a.freqs {
		p := est.PSD1[k] * est.PSD2[k]
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}

		y := real(est.CSD[k])
		sigma2 := p / norm * varFactor

		if a.orf != nil {
			g := a.orf[k]
			if g == 0 {
				continue
			}

			y /= g
			sigma2 /= g * g
		}

		w := 1 / sigma2

		kahanAdd(&a.sumYW[k], &a.compYW[k], y*w)
		kahanAdd(&a.sumW[k], &a.compW[k], w)
	}

	a.used++

	return nil
}

// Merge folds another accumulator over the same frequency axis into this one.
// Merge is associative and commutative, enabling map-reduce combination of
// per-worker partial accumulators.
func (a *Accumulator) Merge(other *Accumulator) error {
	if other == nil || len(other.freqs) != len(a.freqs) {
		return errAxisMismatch
	}

	for k := range a.freqs {
		kahanAdd(&a.sumYW[k], &a.compYW[k], other.sumYW[k])
		kahanAdd(&a.sumYW[k], &a.compYW[k], -other.compYW[k])
		kahanAdd(&a.sumW[k], &a.compW[k], other.sumW[k])
		kahanAdd(&a.sumW[k], &a.compW[k], -other.compW[k])
	}

	a.used += other.used
	a.rejected += other.rejected

	return nil
}

// Spectrum is the finalized combined estimate.
type Spectrum struct {
	Freqs []float64
	// Point is the per-frequency point estimate; zero where Weight is zero.
	Point []float64
	// Variance is the per-frequency variance; +Inf where Weight is zero.
	Variance []float64
	// Weight is the accumulated inverse-variance weight per bin; exactly
	// zero for notched bins.
	Weight []float64

	// Broadband is the optional frequency-combined scalar estimate.
	Broadband *Broadband

	SegmentsUsed     int
	SegmentsRejected int
}

// Finalize divides the accumulated sums exactly once and produces the
// combined spectrum. Bins covered by the notch mask report zero weight, a
// zero point estimate and infinite variance regardless of their accumulated
// sums. It fails with [ErrNoUsableData] when no segment passed flagging or
// when no bin in the policy's band retains nonzero weight.
func (a *Accumulator) Finalize(mask *notch.Mask, policy Policy) (*Spectrum, error) {
	if a.used == 0 {
		return nil, ErrNoUsableData
	}

	if mask != nil && mask.Bins() != len(a.freqs) {
		return nil, errAxisMismatch
	}

	s := &Spectrum{
		Freqs:            append([]float64(nil), a.freqs...),
		Point:            make([]float64, len(a.freqs)),
		Variance:         make([]float64, len(a.freqs)),
		Weight:           make([]float64, len(a.freqs)),
		SegmentsUsed:     a.used,
		SegmentsRejected: a.rejected,
	}

	bias2 := a.bias * a.bias
	usableInBand := 0

	for k := range a.freqs {
		notched := mask != nil && mask.Masked(k)

		w := a.sumW[k] - a.compW[k]
		if notched || w <= 0 {
			s.Point[k] = 0
			s.Variance[k] = math.Inf(1)
			s.Weight[k] = 0

			continue
		}

		s.Weight[k] = w
		s.Point[k] = (a.sumYW[k] - a.compYW[k]) / w
		s.Variance[k] = bias2 / w

		if policy.inBand(a.freqs[k]) {
			usableInBand++
		}
	}

	if usableInBand == 0 {
		return nil, ErrNoUsableData
	}

	if policy.Enabled {
		bb, err := broadband(s, policy)
		if err != nil {
			return nil, err
		}

		s.Broadband = bb
	}

	return s, nil
}

// kahanAdd performs compensated summation: sum and comp together carry the
// running total with bounded error growth over many additions.
func kahanAdd(sum, comp *float64, v float64) {
	y := v - *comp
	t := *sum + y
	*comp = (t - *sum) - y
	*sum = t
}
