// Package quality classifies per-segment spectral estimates as usable or
// unusable before they enter the combination stage.
//
// The main statistic is the delta-sigma cut: for a set of assumed spectral
// indices, the broadband sensitivity implied by the segment's own PSDs is
// compared against the one implied by slowly-varying reference PSDs. A
// segment whose own noise estimate deviates too strongly is dominated by a
// transient and would bias the combined spectrum.
//
// Flagging never fails: malformed estimates (NaN, infinities, negative
// power) are classified unusable with an attributable reason instead of
// propagating an error, so a single corrupt segment cannot abort a long run.
package quality

import (
	"math"

	"github.com/cwbudde/algo-gwb/spectral"
)

// Reason attributes why a segment was rejected.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonInvalidData Reason = "invalid_data"
	ReasonMissingData Reason = "missing_data"
	ReasonPSDOutlier  Reason = "psd_outlier"
	ReasonGlitch      Reason = "glitch"
)

// Flag is the classification attached to one segment's spectral estimate.
type Flag struct {
	Usable bool
	Reason Reason
	// DeltaSigma is the largest relative sensitivity deviation observed
	// across the configured spectral indices.
	DeltaSigma float64
}

// Thresholds holds the rejection policy.
type Thresholds struct {
	// DeltaSigmaCut is the maximum allowed relative deviation between naive
	// and reference broadband sigma.
	DeltaSigmaCut float64
	// Alphas are the spectral indices the delta-sigma statistic is evaluated
	// for.
	Alphas []float64
	// RefFreq is the pivot frequency of the power-law shapes, in Hz.
	RefFreq float64
	// Low and High bound the analysis band in Hz; zero values use the full
	// axis.
	Low  float64
	High float64
	// OutlierRatio is the per-bin PSD ratio over the reference above which a
	// bin counts as an outlier.
	OutlierRatio float64
	// MaxOutlierFraction is the maximum tolerated fraction of outlier bins.
	MaxOutlierFraction float64
}

// DefaultThresholds returns the standard isotropic-analysis policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DeltaSigmaCut:      0.2,
		Alphas:             []float64{-5, 0, 3},
		RefFreq:            25,
		OutlierRatio:       50,
		MaxOutlierFraction: 0.2,
	}
}

// Flagger applies a fixed rejection policy to segment estimates. It is
// stateless and safe for concurrent use.
type Flagger struct {
	t Thresholds
}

// NewFlagger builds a flagger, filling unset thresholds with defaults.
func NewFlagger(t Thresholds) *Flagger {
	def := DefaultThresholds()

	if t.DeltaSigmaCut <= 0 {
		t.DeltaSigmaCut = def.DeltaSigmaCut
	}

	if len(t.Alphas) == 0 {
		t.Alphas = def.Alphas
	}

	if t.RefFreq <= 0 {
		t.RefFreq = def.RefFreq
	}

	if t.OutlierRatio <= 0 {
		t.OutlierRatio = def.OutlierRatio
	}

	if t.MaxOutlierFraction <= 0 {
		t.MaxOutlierFraction = def.MaxOutlierFraction
	}

	return &Flagger{t: t}
}

// Flag classifies one estimate. refPSD1 and refPSD2 are the slowly-varying
// reference PSDs on the same frequency axis; when nil, the reference-based
// statistics (delta-sigma cut, outlier fraction) are skipped and only the
// well-formedness checks apply.
func (f *Flagger) Flag(est *spectral.Estimate, refPSD1, refPSD2 []float64) Flag {
	if est == nil || est.Bins() == 0 || est.SubIntervals == 0 ||
		len(est.PSD1) != est.Bins() || len(est.PSD2) != est.Bins() || len(est.CSD) != est.Bins() {
		return Flag{Reason: ReasonMissingData}
	}

	if !wellFormed(est) {
		return Flag{Reason: ReasonInvalidData}
	}

	haveRef := len(refPSD1) == est.Bins() && len(refPSD2) == est.Bins()

	if haveRef {
		if frac := f.outlierFraction(est, refPSD1, refPSD2); frac > f.t.MaxOutlierFraction {
			return Flag{Reason: ReasonGlitch}
		}
	}

	maxDelta := 0.0

	if haveRef {
		for _, alpha := range f.t.Alphas {
			naive := f.shapeSigma(est, est.PSD1, est.PSD2, alpha)
			slide := f.shapeSigma(est, refPSD1, refPSD2, alpha)

			if !isFinitePositive(naive) || !isFinitePositive(slide) {
				continue
			}

			delta := math.Abs(naive-slide) / slide
			if delta > maxDelta {
				maxDelta = delta
			}
		}

		if maxDelta > f.t.DeltaSigmaCut {
			return Flag{Reason: ReasonPSDOutlier, DeltaSigma: maxDelta}
		}
	}

	return Flag{Usable: true, DeltaSigma: maxDelta}
}

// shapeSigma computes the broadband sigma implied by the given PSD pair under
// a power-law shape (f/fref)^alpha over the analysis band.
func (f *Flagger) shapeSigma(est *spectral.Estimate, psd1, psd2 []float64, alpha float64) float64 {
	invVar := 0.0

	for k, freq := range est.Freqs {
		if !f.inBand(freq) || freq <= 0 {
			continue
		}

		p := psd1[k] * psd2[k]
		if p <= 0 {
			continue
		}

		shape := math.Pow(freq/f.t.RefFreq, alpha)
		varF := p / (2 * est.Duration * est.DeltaF)
		invVar += shape * shape / varF
	}

	if invVar <= 0 {
		return math.Inf(1)
	}

	return math.Sqrt(1 / invVar)
}

func (f *Flagger) outlierFraction(est *spectral.Estimate, refPSD1, refPSD2 []float64) float64 {
	total := 0
	outliers := 0

	for k, freq := range est.Freqs {
		if !f.inBand(freq) {
			continue
		}

		r1 := refPSD1[k]
		r2 := refPSD2[k]
		if r1 <= 0 || r2 <= 0 {
			continue
		}

		total++

		if est.PSD1[k] > f.t.OutlierRatio*r1 || est.PSD2[k] > f.t.OutlierRatio*r2 {
			outliers++
		}
	}

	if total == 0 {
		return 0
	}

	return float64(outliers) / float64(total)
}

func (f *Flagger) inBand(freq float64) bool {
	if f.t.Low > 0 && freq < f.t.Low {
		return false
	}

	if f.t.High > 0 && freq > f.t.High {
		return false
	}

	return true
}

func wellFormed(est *spectral.Estimate) bool {
	for k := range est.PSD1 {
		if est.PSD1[k] < 0 || est.PSD2[k] < 0 {
			return false
		}

		if !isFinite(est.PSD1[k]) || !isFinite(est.PSD2[k]) {
			return false
		}

		c := est.CSD[k]
		if !isFinite(real(c)) || !isFinite(imag(c)) {
			return false
		}
	}

	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
