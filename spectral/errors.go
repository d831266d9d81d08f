package spectral

import "fmt"

// InsufficientDataError reports a segment too short to contain a single
// sub-interval at the requested FFT length.
type InsufficientDataError struct {
	Samples   int
	FFTLength int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("segment too short: %d samples, need at least %d", e.Samples, e.FFTLength)
}

// MismatchedSampleRateError reports a malformed segment whose detector series
// disagree in sample rate or length beyond tolerance.
type MismatchedSampleRateError struct {
	Rate1 float64
	Rate2 float64
	Len1  int
	Len2  int
}

func (e *MismatchedSampleRateError) Error() string {
	return fmt.Sprintf("mismatched detector series: rates %g/%g Hz, lengths %d/%d",
		e.Rate1, e.Rate2, e.Len1, e.Len2)
}
