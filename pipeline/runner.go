package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-gwb/combine"
	"github.com/cwbudde/algo-gwb/config"
	"github.com/cwbudde/algo-gwb/notch"
	"github.com/cwbudde/algo-gwb/quality"
	"github.com/cwbudde/algo-gwb/spectral"
)

// Source yields coincident segments. Next returns io.EOF after the last
// segment; any other error aborts intake. Next is called from a single
// goroutine.
type Source interface {
	Next() (*spectral.Segment, error)
}

// SliceSource serves a fixed slice of segments.
type SliceSource struct {
	segments []*spectral.Segment
	next     int
}

// NewSliceSource wraps pre-built segments as a Source.
func NewSliceSource(segments []*spectral.Segment) *SliceSource {
	return &SliceSource{segments: segments}
}

// Next implements Source.
func (s *SliceSource) Next() (*spectral.Segment, error) {
	if s.next >= len(s.segments) {
		return nil, io.EOF
	}

	seg := s.segments[s.next]
	s.next++

	return seg, nil
}

// Result bundles the outputs of one run.
type Result struct {
	// Spectrum is the combined estimate; nil when no segment was usable.
	Spectrum *combine.Spectrum
	// Mask is the notch mask applied during finalization; nil when no
	// frequency axis was ever established.
	Mask *notch.Mask
	// Report records the fate of every consumed segment.
	Report *Report
}

// Option configures a Runner beyond its configuration file surface.
type Option func(*Runner)

// WithOverlapReduction supplies the baseline's overlap reduction function.
// It is evaluated on the run's frequency axis once that axis is known.
func WithOverlapReduction(orf func(f float64) float64) Option {
	return func(r *Runner) { r.orf = orf }
}

// Runner executes estimation runs for one fixed configuration. It is safe
// to reuse for consecutive runs but not for concurrent ones.
type Runner struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	flagger *quality.Flagger
	estOpts spectral.Options
	policy  combine.Policy
	notches notch.List
	orf     func(f float64) float64
}

// New validates the configuration and builds a runner. A nil logger
// disables logging.
func New(cfg config.Config, log *zap.SugaredLogger, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	wt, err := cfg.Estimator.WindowType()
	if err != nil {
		return nil, err
	}

	notches, err := cfg.NotchList()
	if err != nil {
		return nil, err
	}

	if err := notches.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg: cfg,
		log: log,
		flagger: quality.NewFlagger(quality.Thresholds{
			DeltaSigmaCut:      cfg.Quality.DeltaSigmaCut,
			Alphas:             cfg.Quality.Alphas,
			RefFreq:            cfg.Combination.RefFreq,
			Low:                cfg.Band.Low,
			High:               cfg.Band.High,
			OutlierRatio:       cfg.Quality.OutlierRatio,
			MaxOutlierFraction: cfg.Quality.MaxOutlierFraction,
		}),
		estOpts: spectral.Options{
			FFTLength:     cfg.Estimator.FFTLength,
			Overlap:       cfg.Estimator.Overlap,
			Window:        wt,
			WindowAlpha:   cfg.Estimator.WindowAlpha,
			RateTolerance: cfg.Run.RateTolerance,
		},
		policy: combine.Policy{
			Enabled: cfg.Combination.Broadband,
			Shape:   combine.PowerLawShape(cfg.Combination.Alpha, cfg.Combination.RefFreq),
			Low:     cfg.Band.Low,
			High:    cfg.Band.High,
		},
		notches: notches,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run consumes the source until io.EOF, a source error or context
// cancellation, and combines every usable segment. On cancellation or a
// source error the partial combination of the segments consumed so far is
// returned together with the error; the Result is valid whenever it is
// non-nil.
func (r *Runner) Run(ctx context.Context, src Source) (*Result, error) {
	workers := r.cfg.Run.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	segCh := make(chan *spectral.Segment, workers)

	var (
		srcErr error
		prodWG sync.WaitGroup
	)

	prodWG.Add(1)

	go func() {
		defer prodWG.Done()
		defer close(segCh)

		for {
			seg, err := src.Next()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				srcErr = fmt.Errorf("pipeline source: %w", err)
				return
			}

			select {
			case segCh <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	states := make([]*workerState, workers)

	var wg sync.WaitGroup

	for i := range states {
		states[i] = &workerState{r: r}

		wg.Add(1)

		go func(w *workerState) {
			defer wg.Done()

			for seg := range segCh {
				w.process(seg)
			}
		}(states[i])
	}

	wg.Wait()
	prodWG.Wait()

	runErr := srcErr
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	res, err := r.collect(states)
	if err != nil {
		return res, err
	}

	return res, runErr
}

// collect merges the per-worker partial accumulators and finalizes the
// combined spectrum.
func (r *Runner) collect(states []*workerState) (*Result, error) {
	var (
		merged *combine.Accumulator
		mask   *notch.Mask
	)

	report := &Report{}

	for _, w := range states {
		report.Outcomes = append(report.Outcomes, w.outcomes...)

		if w.acc == nil {
			continue
		}

		if merged == nil {
			merged = w.acc
			mask = w.mask

			continue
		}

		if err := merged.Merge(w.acc); err != nil {
			return &Result{Report: report}, err
		}
	}

	report.sort()
	report.tally()

	if merged == nil {
		return &Result{Report: report}, combine.ErrNoUsableData
	}

	spectrum, err := merged.Finalize(mask, r.policy)
	if err != nil {
		return &Result{Mask: mask, Report: report}, err
	}

	if r.policy.Enabled {
		report.computeStats()
	}

	r.log.Infow("run combined",
		"segments_used", spectrum.SegmentsUsed,
		"segments_rejected", spectrum.SegmentsRejected,
		"bins", len(spectrum.Freqs),
		"notched", mask.Excluded(),
	)

	if spectrum.Broadband != nil {
		r.log.Infow("broadband estimate",
			"point", spectrum.Broadband.Estimate,
			"sigma", sqrtOrInf(spectrum.Broadband.Variance),
		)
	}

	return &Result{Spectrum: spectrum, Mask: mask, Report: report}, nil
}
