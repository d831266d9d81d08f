package combine

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-gwb/notch"
	"github.com/cwbudde/algo-gwb/quality"
	"github.com/cwbudde/algo-gwb/spectral"
)

func testAxis(bins int) []float64 {
	out := make([]float64, bins)
	for i := range out {
		out[i] = float64(i)
	}

	return out
}

// syntheticEstimate builds an estimate directly in the frequency domain so
// combiner semantics can be tested independently of the FFT path.
func syntheticEstimate(freqs []float64, csdRe, psdLevel float64) *spectral.Estimate {
	bins := len(freqs)
	psd1 := make([]float64, bins)
	psd2 := make([]float64, bins)
	csd := make([]complex128, bins)

	for k := range freqs {
		psd1[k] = psdLevel
		psd2[k] = psdLevel
		csd[k] = complex(csdRe, 0)
	}

	return &spectral.Estimate{
		Duration: 32,
		DeltaF:   1,
		Freqs:    append([]float64(nil), freqs...),
		CSD:      csd,
		PSD1:     psd1,
		PSD2:     psd2,
	}
}

func usable() quality.Flag {
	return quality.Flag{Usable: true}
}

func TestSingleSegmentPassthrough(t *testing.T) {
	freqs := testAxis(9)
	acc := New(freqs)

	est := syntheticEstimate(freqs, 0.5, 2)
	if err := acc.Add(est, usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	spec, err := acc.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	// sigma^2 = (2*2)/(2*32*1) = 1/16 per bin.
	for k := range freqs {
		if math.Abs(spec.Point[k]-0.5) > 1e-15 {
			t.Fatalf("bin %d: point=%g, want 0.5", k, spec.Point[k])
		}

		if math.Abs(spec.Variance[k]-1.0/16.0) > 1e-15 {
			t.Fatalf("bin %d: variance=%g, want 1/16", k, spec.Variance[k])
		}
	}

	if spec.SegmentsUsed != 1 || spec.SegmentsRejected != 0 {
		t.Fatalf("used=%d rejected=%d", spec.SegmentsUsed, spec.SegmentsRejected)
	}
}

func TestTwoIdenticalSegmentsHalveVariance(t *testing.T) {
	freqs := testAxis(9)

	single := New(freqs)
	if err := single.Add(syntheticEstimate(freqs, 0.5, 2), usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	double := New(freqs)
	for i := 0; i < 2; i++ {
		if err := double.Add(syntheticEstimate(freqs, 0.5, 2), usable()); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	one, err := single.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	two, err := double.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	for k := range freqs {
		if math.Abs(two.Variance[k]-one.Variance[k]/2) > 1e-15 {
			t.Fatalf("bin %d: variance=%g, want %g", k, two.Variance[k], one.Variance[k]/2)
		}

		if math.Abs(two.Point[k]-one.Point[k]) > 1e-15 {
			t.Fatalf("bin %d: identical segments must not move the point estimate", k)
		}
	}
}

func TestAccumulationOrderIndependent(t *testing.T) {
	freqs := testAxis(17)
	rng := rand.New(rand.NewSource(7))

	estimates := make([]*spectral.Estimate, 20)
	for i := range estimates {
		estimates[i] = syntheticEstimate(freqs, rng.NormFloat64(), 0.5+rng.Float64()*10)
	}

	forward := New(freqs)
	for _, est := range estimates {
		if err := forward.Add(est, usable()); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	perm := rng.Perm(len(estimates))
	shuffled := New(freqs)
	for _, i := range perm {
		if err := shuffled.Add(estimates[i], usable()); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	a, err := forward.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	b, err := shuffled.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	for k := range freqs {
		if math.Abs(a.Point[k]-b.Point[k]) > 1e-12*math.Abs(a.Point[k])+1e-15 {
			t.Fatalf("bin %d: point differs across permutations: %g vs %g", k, a.Point[k], b.Point[k])
		}

		if math.Abs(a.Variance[k]-b.Variance[k]) > 1e-12*a.Variance[k] {
			t.Fatalf("bin %d: variance differs across permutations", k)
		}
	}
}

func TestMergeMatchesSequential(t *testing.T) {
	freqs := testAxis(17)
	rng := rand.New(rand.NewSource(11))

	estimates := make([]*spectral.Estimate, 16)
	for i := range estimates {
		estimates[i] = syntheticEstimate(freqs, rng.NormFloat64(), 0.5+rng.Float64()*5)
	}

	sequential := New(freqs)
	for _, est := range estimates {
		if err := sequential.Add(est, usable()); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	left := New(freqs)
	right := New(freqs)
	for i, est := range estimates {
		dst := left
		if i%2 == 1 {
			dst = right
		}

		if err := dst.Add(est, usable()); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	if err := left.Merge(right); err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	a, err := sequential.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	b, err := left.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	if b.SegmentsUsed != a.SegmentsUsed {
		t.Fatalf("merged used=%d, want %d", b.SegmentsUsed, a.SegmentsUsed)
	}

	for k := range freqs {
		if math.Abs(a.Point[k]-b.Point[k]) > 1e-12*math.Abs(a.Point[k])+1e-15 {
			t.Fatalf("bin %d: merged point differs: %g vs %g", k, b.Point[k], a.Point[k])
		}
	}
}

func TestRejectedSegmentsContributeNothing(t *testing.T) {
	freqs := testAxis(9)
	acc := New(freqs)

	if err := acc.Add(syntheticEstimate(freqs, 0.5, 2), usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	// A wildly different rejected segment must not move anything.
	bad := syntheticEstimate(freqs, 1e9, 1e-9)
	if err := acc.Add(bad, quality.Flag{Usable: false, Reason: quality.ReasonGlitch}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	spec, err := acc.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	if spec.SegmentsUsed != 1 || spec.SegmentsRejected != 1 {
		t.Fatalf("used=%d rejected=%d", spec.SegmentsUsed, spec.SegmentsRejected)
	}

	if math.Abs(spec.Point[3]-0.5) > 1e-15 {
		t.Fatalf("rejected segment leaked into the estimate: %g", spec.Point[3])
	}
}

func TestNotchedBinsCarryZeroWeight(t *testing.T) {
	freqs := testAxis(9)
	acc := New(freqs)

	// Gross contamination at 4 Hz; the mask must zero it regardless.
	est := syntheticEstimate(freqs, 0.5, 2)
	est.CSD[4] = complex(1e12, 0)

	if err := acc.Add(est, usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	mask, err := notch.Build(freqs, notch.List{{Low: 4, High: 4}})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	spec, err := acc.Finalize(mask, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	if spec.Weight[4] != 0 {
		t.Fatalf("notched bin weight=%g, want exactly 0", spec.Weight[4])
	}

	if spec.Point[4] != 0 || !math.IsInf(spec.Variance[4], 1) {
		t.Fatalf("notched bin point=%g variance=%g", spec.Point[4], spec.Variance[4])
	}

	if spec.Weight[3] == 0 {
		t.Fatalf("neighbouring bin must keep weight")
	}
}

func TestFinalizeNoUsableData(t *testing.T) {
	freqs := testAxis(9)

	if _, err := New(freqs).Finalize(nil, Policy{}); !errors.Is(err, ErrNoUsableData) {
		t.Fatalf("empty accumulator: %v", err)
	}

	// Only rejected segments.
	acc := New(freqs)
	if err := acc.Add(syntheticEstimate(freqs, 1, 1), quality.Flag{Usable: false}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if _, err := acc.Finalize(nil, Policy{}); !errors.Is(err, ErrNoUsableData) {
		t.Fatalf("all-rejected accumulator: %v", err)
	}

	// A fully-notched band.
	acc = New(freqs)
	if err := acc.Add(syntheticEstimate(freqs, 1, 1), usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	mask, err := notch.Build(freqs, notch.List{{Low: 0, High: 8}})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if _, err := acc.Finalize(mask, Policy{}); !errors.Is(err, ErrNoUsableData) {
		t.Fatalf("fully-notched band: %v", err)
	}
}

func TestAddAxisMismatch(t *testing.T) {
	acc := New(testAxis(9))

	if err := acc.Add(syntheticEstimate(testAxis(17), 1, 1), usable()); err == nil {
		t.Fatalf("expected axis mismatch error")
	}

	if err := acc.Merge(New(testAxis(17))); err == nil {
		t.Fatalf("expected merge axis mismatch error")
	}
}

func TestOverlapReductionScaling(t *testing.T) {
	freqs := testAxis(9)

	orf := make([]float64, len(freqs))
	for k := range orf {
		orf[k] = 0.5
	}

	plain := New(freqs)
	reduced := New(freqs, WithOverlapReduction(orf))

	est := syntheticEstimate(freqs, 0.5, 2)
	if err := plain.Add(est, usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if err := reduced.Add(est, usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	a, _ := plain.Finalize(nil, Policy{})
	b, _ := reduced.Finalize(nil, Policy{})

	// Dividing by gamma = 0.5 doubles the point estimate and quadruples the
	// variance.
	if math.Abs(b.Point[2]-2*a.Point[2]) > 1e-15 {
		t.Fatalf("orf point=%g, want %g", b.Point[2], 2*a.Point[2])
	}

	if math.Abs(b.Variance[2]-4*a.Variance[2]) > 1e-15 {
		t.Fatalf("orf variance=%g, want %g", b.Variance[2], 4*a.Variance[2])
	}
}

func TestBiasFactorScalesVariance(t *testing.T) {
	freqs := testAxis(9)

	plain := New(freqs)
	biased := New(freqs, WithBiasFactor(1.1))

	est := syntheticEstimate(freqs, 0.5, 2)
	if err := plain.Add(est, usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if err := biased.Add(est, usable()); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	a, _ := plain.Finalize(nil, Policy{})
	b, _ := biased.Finalize(nil, Policy{})

	if math.Abs(b.Variance[1]-1.21*a.Variance[1]) > 1e-15 {
		t.Fatalf("biased variance=%g, want %g", b.Variance[1], 1.21*a.Variance[1])
	}

	if b.Point[1] != a.Point[1] {
		t.Fatalf("bias must not move the point estimate")
	}
}

func TestKahanAccumulationStability(t *testing.T) {
	// Thousands of segments with weights spanning orders of magnitude: the
	// combined point estimate of a constant signal must stay at the signal.
	freqs := testAxis(5)
	acc := New(freqs)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 5000; i++ {
		level := math.Pow(10, -3+6*rng.Float64())
		if err := acc.Add(syntheticEstimate(freqs, 1, level), usable()); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	spec, err := acc.Finalize(nil, Policy{})
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	for k := range freqs {
		if math.Abs(spec.Point[k]-1) > 1e-9 {
			t.Fatalf("bin %d: point=%g, want 1", k, spec.Point[k])
		}
	}
}
