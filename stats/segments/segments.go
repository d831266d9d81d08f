// Package segments provides consistency statistics over a run's per-segment
// point estimates: running inverse-variance combinations, normalised
// deviates against the final combined value, and a Kolmogorov-Smirnov test
// of those deviates against a standard normal distribution.
package segments

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	errEmptyInput     = errors.New("segments: no segment estimates")
	errLengthMismatch = errors.New("segments: points and sigmas differ in length")
	errBadSigma       = errors.New("segments: sigma must be positive and finite")
)

// Stats summarises the segment-to-segment behaviour of a run.
type Stats struct {
	// RunningPoint[i] and RunningSigma[i] are the inverse-variance
	// combination of segments 0..i.
	RunningPoint []float64
	RunningSigma []float64

	// Deviates holds (point[i] - final) / sigma[i]. For a stationary run
	// these are approximately standard normal.
	Deviates []float64

	MeanDeviate   float64
	StdDevDeviate float64

	// Kolmogorov-Smirnov distance of the deviates against the standard
	// normal CDF, and the asymptotic significance of that distance. Small
	// p-values indicate non-Gaussian segment scatter.
	KSStatistic float64
	KSPValue    float64
}

// Calculate computes run statistics from per-segment point estimates and
// their one-sigma uncertainties.
func Calculate(points, sigmas []float64) (*Stats, error) {
	if len(points) == 0 {
		return nil, errEmptyInput
	}

	if len(points) != len(sigmas) {
		return nil, errLengthMismatch
	}

	for _, s := range sigmas {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, errBadSigma
		}
	}

	n := len(points)
	st := &Stats{
		RunningPoint: make([]float64, n),
		RunningSigma: make([]float64, n),
		Deviates:     make([]float64, n),
	}

	var sumYW, sumW float64

	for i := range points {
		w := 1 / (sigmas[i] * sigmas[i])
		sumYW += points[i] * w
		sumW += w

		st.RunningPoint[i] = sumYW / sumW
		st.RunningSigma[i] = math.Sqrt(1 / sumW)
	}

	final := st.RunningPoint[n-1]
	for i := range points {
		st.Deviates[i] = (points[i] - final) / sigmas[i]
	}

	st.MeanDeviate = stat.Mean(st.Deviates, nil)
	st.StdDevDeviate = stat.StdDev(st.Deviates, nil)
	st.KSStatistic, st.KSPValue = ksNormal(st.Deviates)

	return st, nil
}

// ksNormal returns the one-sample Kolmogorov-Smirnov distance of the values
// against the standard normal CDF, with the asymptotic p-value.
func ksNormal(values []float64) (float64, float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	norm := distuv.UnitNormal

	var d float64

	for i, v := range sorted {
		cdf := norm.CDF(v)

		lo := math.Abs(cdf - float64(i)/n)
		hi := math.Abs(float64(i+1)/n - cdf)

		d = math.Max(d, math.Max(lo, hi))
	}

	return d, ksSignificance((math.Sqrt(n) + 0.12 + 0.11/math.Sqrt(n)) * d)
}

// ksSignificance evaluates the Kolmogorov distribution tail
// Q(lambda) = 2 * sum_{j>=1} (-1)^(j-1) exp(-2 j^2 lambda^2).
func ksSignificance(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}

	const (
		maxTerms = 100
		eps      = 1e-12
	)

	var (
		sum  float64
		sign = 1.0
	)

	x := -2 * lambda * lambda

	for j := 1; j <= maxTerms; j++ {
		term := sign * math.Exp(x*float64(j)*float64(j))
		sum += term

		if math.Abs(term) < eps*math.Abs(sum) {
			break
		}

		sign = -sign
	}

	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
