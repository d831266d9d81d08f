package pipeline

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-gwb/stats/segments"
)

// Status classifies a consumed segment.
type Status string

const (
	// StatusUsed marks segments that entered the combination.
	StatusUsed Status = "used"
	// StatusRejected marks segments that were flagged unusable.
	StatusRejected Status = "rejected"
	// StatusError marks segments the estimator could not process.
	StatusError Status = "error"
)

// Outcome records the fate of one consumed segment.
type Outcome struct {
	Start  float64
	Status Status
	// Reason attributes rejections and errors; empty for used segments.
	Reason string
	// DeltaSigma is the segment's largest relative sensitivity deviation.
	DeltaSigma float64
	// Point and Sigma are the segment's own broadband estimate and its
	// uncertainty, filled for used segments when the broadband combination
	// is enabled.
	Point float64
	Sigma float64
}

// Report summarises a run segment by segment, ordered by start time.
type Report struct {
	Outcomes []Outcome

	Used     int
	Rejected int
	Errored  int

	// Stats holds the consistency statistics of the per-segment broadband
	// estimates; nil when fewer than two usable segments carried one.
	Stats *segments.Stats
}

func (r *Report) sort() {
	sort.Slice(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Start < r.Outcomes[j].Start
	})
}

func (r *Report) tally() {
	r.Used, r.Rejected, r.Errored = 0, 0, 0

	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusUsed:
			r.Used++
		case StatusRejected:
			r.Rejected++
		case StatusError:
			r.Errored++
		}
	}
}

// computeStats derives run consistency statistics from the used segments'
// broadband estimates.
func (r *Report) computeStats() {
	var points, sigmas []float64

	for _, o := range r.Outcomes {
		if o.Status != StatusUsed || o.Sigma <= 0 || math.IsInf(o.Sigma, 1) {
			continue
		}

		points = append(points, o.Point)
		sigmas = append(sigmas, o.Sigma)
	}

	if len(points) < 2 {
		return
	}

	st, err := segments.Calculate(points, sigmas)
	if err != nil {
		return
	}

	r.Stats = st
}
