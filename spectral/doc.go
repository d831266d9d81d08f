// Package spectral estimates cross- and power-spectral densities for
// coincident two-detector strain segments using windowed, averaged
// periodograms.
//
// The package intentionally does not implement FFT itself; transforms are
// delegated to an external FFT backend. All densities follow the one-sided
// convention: bins 0 < k < N/2 carry a factor 2/(fs * sum(w^2)), the DC and
// Nyquist bins a factor 1/(fs * sum(w^2)). The CSD uses the identical scale,
// so ratios of CSD to PSD products are dimensionless and inverse-noise
// weights derived from them are unit-consistent.
package spectral
