package pipeline

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-gwb/combine"
	"github.com/cwbudde/algo-gwb/notch"
	"github.com/cwbudde/algo-gwb/quality"
	"github.com/cwbudde/algo-gwb/spectral"
)

// workerState is the private accumulation state of one worker goroutine.
// Each worker combines its share of the segments independently; the partial
// accumulators are merged after all workers drain.
type workerState struct {
	r *Runner

	acc  *combine.Accumulator
	mask *notch.Mask
	bias float64
	orf  []float64

	// PSDs of the worker's most recent usable segment, the slowly-varying
	// reference for the delta-sigma cut.
	refPSD1 []float64
	refPSD2 []float64

	outcomes []Outcome
}

func (w *workerState) process(seg *spectral.Segment) {
	est, err := spectral.Welch(seg, w.r.estOpts)
	if err != nil {
		w.record(Outcome{Start: seg.Start, Status: StatusError, Reason: reasonForError(err)})
		w.r.log.Debugw("segment estimation failed", "start", seg.Start, "error", err)

		return
	}

	if w.acc == nil {
		if err := w.init(est); err != nil {
			w.record(Outcome{Start: seg.Start, Status: StatusError, Reason: "notch_mask"})
			w.r.log.Debugw("notch mask build failed", "start", seg.Start, "error", err)

			return
		}
	}

	flag := w.r.flagger.Flag(est, w.refPSD1, w.refPSD2)

	if err := w.acc.Add(est, flag); err != nil {
		w.record(Outcome{Start: seg.Start, Status: StatusError, Reason: "axis_mismatch"})
		w.r.log.Debugw("segment axis mismatch", "start", seg.Start, "error", err)

		return
	}

	out := Outcome{Start: seg.Start, DeltaSigma: flag.DeltaSigma}

	if !flag.Usable {
		out.Status = StatusRejected
		out.Reason = string(flag.Reason)
		w.record(out)
		w.r.log.Debugw("segment rejected", "start", seg.Start, "reason", flag.Reason)

		return
	}

	out.Status = StatusUsed
	w.refPSD1 = est.PSD1
	w.refPSD2 = est.PSD2

	if w.r.policy.Enabled {
		out.Point, out.Sigma = w.segmentBroadband(est, flag)
	}

	w.record(out)
}

// init fixes the worker's frequency axis, bias factor and notch mask from
// the first successful estimate.
func (w *workerState) init(est *spectral.Estimate) error {
	w.bias = 1
	if w.r.cfg.Combination.BiasCorrection {
		w.bias = est.Window.WelchBias(est.Duration, est.DeltaF, w.r.cfg.Combination.NAverageSegments)
	}

	mask, err := notch.Build(est.Freqs, w.r.notches)
	if err != nil {
		return err
	}

	w.mask = mask

	if w.r.orf != nil {
		w.orf = make([]float64, len(est.Freqs))
		for i, f := range est.Freqs {
			w.orf[i] = w.r.orf(f)
		}
	}

	w.acc = combine.New(est.Freqs, w.combineOptions()...)

	return nil
}

// combineOptions carries the run's bias factor and overlap reduction into
// every accumulator the worker builds, so per-segment broadband estimates
// stay on the same scale as the final combination.
func (w *workerState) combineOptions() []combine.Option {
	opts := []combine.Option{combine.WithBiasFactor(w.bias)}

	if w.orf != nil {
		opts = append(opts, combine.WithOverlapReduction(w.orf))
	}

	return opts
}

// segmentBroadband evaluates the broadband policy on this segment alone,
// feeding the run's per-segment consistency statistics.
func (w *workerState) segmentBroadband(est *spectral.Estimate, flag quality.Flag) (point, sigma float64) {
	single := combine.New(est.Freqs, w.combineOptions()...)
	if err := single.Add(est, flag); err != nil {
		return 0, 0
	}

	sp, err := single.Finalize(w.mask, w.r.policy)
	if err != nil || sp.Broadband == nil {
		return 0, 0
	}

	return sp.Broadband.Estimate, sqrtOrInf(sp.Broadband.Variance)
}

func (w *workerState) record(out Outcome) {
	w.outcomes = append(w.outcomes, out)
}

func reasonForError(err error) string {
	var insufficient *spectral.InsufficientDataError
	if errors.As(err, &insufficient) {
		return "insufficient_data"
	}

	var mismatched *spectral.MismatchedSampleRateError
	if errors.As(err, &mismatched) {
		return "rate_mismatch"
	}

	return "estimate_error"
}

func sqrtOrInf(v float64) float64 {
	if v <= 0 || math.IsInf(v, 1) {
		return math.Inf(1)
	}

	return math.Sqrt(v)
}
