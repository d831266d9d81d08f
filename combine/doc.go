// Package combine aggregates per-segment spectral estimates into a single
// background spectrum with propagated variance.
//
// Each usable segment contributes its cross-spectral density weighted by the
// inverse of its noise variance, sigma^2(f) = PSD1(f) * PSD2(f) /
// (2 * T * deltaF) corrected by the taper's variance factor. Accumulation
// keeps the weighted sum and the weight sum separately, with compensated
// summation per bin, and divides exactly once at finalize time. Partial
// accumulators over disjoint segment subsets merge associatively and
// commutatively, so the time combination can run as a parallel reduction and
// is independent of segment order by construction.
//
// Frequency combination into a broadband scalar is optional and driven by a
// Policy carrying an assumed spectral shape and a target band.
package combine
