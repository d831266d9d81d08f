// Package pipeline drives a full estimation run: segments are pulled from a
// Source, spectrally estimated and quality-flagged in parallel, accumulated
// into per-worker partial combinations and merged into one combined spectrum
// with an optional broadband estimate.
//
// Combination order never affects the result beyond floating-point rounding,
// so the worker count is a pure throughput knob. Cancelling the run context
// stops intake between segments; everything consumed up to that point is
// still combined and returned.
package pipeline
