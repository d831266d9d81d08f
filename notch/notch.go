// Package notch identifies known contaminated frequency bins (calibration
// lines, violin modes, mains harmonics) and excludes them from downstream
// statistics.
//
// A Mask is built once per analysis configuration against the run's fixed
// frequency axis and is immutable afterwards, so it can be shared read-only
// across parallel workers. Bins covered by a mask are excluded from weighted
// sums entirely (weight forced to zero), never merely value-zeroed, to avoid
// biasing variance estimates.
package notch

import (
	"fmt"
	"sort"
)

// Range is a closed frequency interval to exclude, in Hz.
type Range struct {
	Low         float64
	High        float64
	Description string
}

// Contains reports whether f falls inside the range.
func (r Range) Contains(f float64) bool {
	return f >= r.Low && f <= r.High
}

func (r Range) validate() error {
	if r.Low < 0 || r.High < r.Low {
		return fmt.Errorf("invalid notch range [%g, %g]", r.Low, r.High)
	}

	return nil
}

// List is an ordered set of notch ranges.
type List []Range

// Validate checks every range of the list.
func (l List) Validate() error {
	for _, r := range l {
		if err := r.validate(); err != nil {
			return err
		}
	}

	return nil
}

// Sorted returns a copy of the list ordered by lower edge.
func (l List) Sorted() List {
	out := append(List(nil), l...)
	sort.Slice(out, func(i, j int) bool { return out[i].Low < out[j].Low })

	return out
}

// Mask is a frequency-axis-aligned bin mask. It is immutable after Build.
type Mask struct {
	freqs    []float64
	masked   []bool
	excluded int
}

// Build constructs a mask aligned to the given frequency axis. The axis is
// the run's shared one-sided axis; the mask must not be rebuilt per segment.
func Build(freqs []float64, list List) (*Mask, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("notch mask requires a non-empty frequency axis")
	}

	if err := list.Validate(); err != nil {
		return nil, err
	}

	m := &Mask{
		freqs:  append([]float64(nil), freqs...),
		masked: make([]bool, len(freqs)),
	}

	for i, f := range freqs {
		for _, r := range list {
			if r.Contains(f) {
				m.masked[i] = true
				m.excluded++

				break
			}
		}
	}

	return m, nil
}

// Bins returns the number of bins the mask covers.
func (m *Mask) Bins() int {
	return len(m.masked)
}

// Masked reports whether bin i is excluded.
func (m *Mask) Masked(i int) bool {
	return i >= 0 && i < len(m.masked) && m.masked[i]
}

// Excluded returns the number of excluded bins.
func (m *Mask) Excluded() int {
	return m.excluded
}

// Freqs returns the frequency axis the mask is aligned to.
func (m *Mask) Freqs() []float64 {
	return m.freqs
}
