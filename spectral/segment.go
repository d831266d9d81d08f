package spectral

import "math"

// DefaultRateTolerance is the relative sample-rate tolerance below which two
// detector series are considered coincident.
const DefaultRateTolerance = 1e-9

// Segment is a time-bounded pair of equal-length, equal-rate strain series,
// one per detector, covering an interval where both detectors report
// science-quality data. Segments are produced by the upstream conditioning
// layer and are immutable once handed to the estimator.
type Segment struct {
	Detector1 string
	Detector2 string

	// Start is the segment start time in GPS seconds.
	Start float64

	SampleRate1 float64
	SampleRate2 float64

	Series1 []float64
	Series2 []float64
}

// SampleRate returns the common sample rate of the segment.
func (s *Segment) SampleRate() float64 {
	return s.SampleRate1
}

// Samples returns the per-detector sample count.
func (s *Segment) Samples() int {
	return len(s.Series1)
}

// Duration returns the segment duration in seconds.
func (s *Segment) Duration() float64 {
	if s.SampleRate1 <= 0 {
		return 0
	}

	return float64(len(s.Series1)) / s.SampleRate1
}

// Validate checks the coincidence invariants of the segment: both series must
// have the same length and their sample rates must agree within the given
// relative tolerance. A non-positive tolerance falls back to
// [DefaultRateTolerance].
func (s *Segment) Validate(rateTolerance float64) error {
	if rateTolerance <= 0 {
		rateTolerance = DefaultRateTolerance
	}

	if s.SampleRate1 <= 0 || s.SampleRate2 <= 0 ||
		math.Abs(s.SampleRate1-s.SampleRate2) > rateTolerance*s.SampleRate1 ||
		len(s.Series1) != len(s.Series2) {
		return &MismatchedSampleRateError{
			Rate1: s.SampleRate1,
			Rate2: s.SampleRate2,
			Len1:  len(s.Series1),
			Len2:  len(s.Series2),
		}
	}

	return nil
}
