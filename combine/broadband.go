package combine

import "math"

// ShapeFunc is an assumed background spectral shape as a function of
// frequency in Hz. The broadband estimate is the best-fit amplitude of this
// shape over the target band.
type ShapeFunc func(f float64) float64

// PowerLawShape returns the standard power-law shape (f / fref)^alpha.
func PowerLawShape(alpha, fref float64) ShapeFunc {
	return func(f float64) float64 {
		if f <= 0 || fref <= 0 {
			return 0
		}

		return math.Pow(f/fref, alpha)
	}
}

// Policy controls the optional frequency combination of the per-bin spectrum
// into a broadband scalar. The zero value disables it.
type Policy struct {
	Enabled bool
	// Shape is the assumed spectral shape; nil means flat.
	Shape ShapeFunc
	// Low and High bound the target band in Hz; zero values use the full
	// axis.
	Low  float64
	High float64
}

func (p Policy) inBand(f float64) bool {
	if p.Low > 0 && f < p.Low {
		return false
	}

	if p.High > 0 && f > p.High {
		return false
	}

	return true
}

func (p Policy) shapeAt(f float64) float64 {
	if p.Shape == nil {
		return 1
	}

	return p.Shape(f)
}

// Broadband is a frequency-combined scalar estimate: the inverse-variance
// weighted amplitude of the assumed shape over the target band, with its
// variance.
type Broadband struct {
	Estimate float64
	Variance float64
	// Low and High report the band actually used, in Hz.
	Low  float64
	High float64
	// Bins is the number of unmasked, nonzero-weight bins combined.
	Bins int
}

// broadband performs the frequency combination over the finalized spectrum.
// Only bins with nonzero weight (unmasked, with accumulated data) enter.
func broadband(s *Spectrum, p Policy) (*Broadband, error) {
	var (
		sumYW, compYW float64
		sumW, compW   float64
		bins          int
		low, high     float64
	)

	for k, f := range s.Freqs {
		if !p.inBand(f) || s.Weight[k] <= 0 {
			continue
		}

		shape := p.shapeAt(f)
		if shape <= 0 || math.IsInf(shape, 0) || math.IsNaN(shape) {
			continue
		}

		v := s.Variance[k]
		if v <= 0 || math.IsInf(v, 0) {
			continue
		}

		w := shape * shape / v

		kahanAdd(&sumYW, &compYW, s.Point[k]*shape/v)
		kahanAdd(&sumW, &compW, w)

		if bins == 0 || f < low {
			low = f
		}

		if f > high {
			high = f
		}

		bins++
	}

	total := sumW - compW
	if bins == 0 || total <= 0 {
		return nil, ErrNoUsableData
	}

	return &Broadband{
		Estimate: (sumYW - compYW) / total,
		Variance: 1 / total,
		Low:      low,
		High:     high,
		Bins:     bins,
	}, nil
}
