package window

// FactorSet holds the moments of a window and its 50%-overlap cross terms.
// These enter the variance calibration of overlapping averaged periodograms:
// the variance of a windowed cross-correlation estimate scales with
// MeanSquared4 / MeanSquared^2, and the overlap terms quantify the residual
// correlation between half-overlapping sub-intervals.
type FactorSet struct {
	// MeanSquared is mean(w[n]^2), the incoherent power gain.
	MeanSquared float64
	// MeanSquared4 is mean(w[n]^4).
	MeanSquared4 float64
	// OverlapMean is mean(w[n] * w[n+N/2]) over the overlapping half.
	OverlapMean float64
	// OverlapMeanSquared is mean(w[n]^2 * w[n+N/2]^2) over the overlapping half.
	OverlapMeanSquared float64
}

// Factors computes the window moments used in variance calibration.
func Factors(coeffs []float64) FactorSet {
	n := len(coeffs)
	if n == 0 {
		return FactorSet{}
	}

	var f FactorSet

	for _, w := range coeffs {
		w2 := w * w
		f.MeanSquared += w2
		f.MeanSquared4 += w2 * w2
	}

	f.MeanSquared /= float64(n)
	f.MeanSquared4 /= float64(n)

	half := n / 2
	if half == 0 {
		return f
	}

	for i := 0; i < half; i++ {
		a := coeffs[half+i]
		b := coeffs[i]
		f.OverlapMean += a * b
		f.OverlapMeanSquared += a * a * b * b
	}

	f.OverlapMean /= float64(half)
	f.OverlapMeanSquared /= float64(half)

	return f
}

// VarianceFactor returns mean(w^4) / mean(w^2)^2, the multiplicative
// correction applied to the theoretical variance of a windowed
// cross-correlation estimate.
func (f FactorSet) VarianceFactor() float64 {
	if f.MeanSquared == 0 {
		return 0
	}

	return f.MeanSquared4 / (f.MeanSquared * f.MeanSquared)
}

// overlapCorrelation returns rho1, the squared normalized correlation between
// half-overlapping windowed sub-intervals.
func (f FactorSet) overlapCorrelation() float64 {
	if f.MeanSquared == 0 {
		return 0
	}

	r := 0.5 * f.OverlapMean / f.MeanSquared

	return r * r
}

// WelchBias returns the small-sample bias factor Neff / (Neff - 1) of a
// variance estimated by Welch averaging over overlapping sub-intervals.
//
// segmentDuration is the analysis segment length in seconds, deltaF the
// frequency resolution in Hz, and nAvgSegments the number of neighbouring
// segments entering the PSD average. The effective number of independent
// averages accounts for the correlation between half-overlapping windowed
// sub-intervals.
func (f FactorSet) WelchBias(segmentDuration, deltaF float64, nAvgSegments int) float64 {
	if segmentDuration <= 0 || deltaF <= 0 || nAvgSegments <= 0 {
		return 1
	}

	nSubs := 2*segmentDuration*deltaF - 1
	if nSubs <= 0 {
		return 1
	}

	nEff := float64(nAvgSegments) * nSubs / (1 + 2*f.overlapCorrelation())
	if nEff <= 1 {
		return 1
	}

	return nEff / (nEff - 1)
}

// WelchBias computes the Welch-averaging bias factor for the given window
// coefficients. See [FactorSet.WelchBias].
func WelchBias(coeffs []float64, segmentDuration, deltaF float64, nAvgSegments int) float64 {
	return Factors(coeffs).WelchBias(segmentDuration, deltaF, nAvgSegments)
}
