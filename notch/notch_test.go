package notch

import (
	"strings"
	"testing"
)

func axis(n int, deltaF float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * deltaF
	}

	return out
}

func TestBuildMasksCoveredBins(t *testing.T) {
	freqs := axis(9, 1) // 0..8 Hz

	mask, err := Build(freqs, List{
		{Low: 3.5, High: 5.5, Description: "violin mode"},
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	want := map[int]bool{4: true, 5: true}
	for i := range freqs {
		if mask.Masked(i) != want[i] {
			t.Fatalf("bin %d masked=%v, want %v", i, mask.Masked(i), want[i])
		}
	}

	if mask.Excluded() != 2 {
		t.Fatalf("excluded=%d, want 2", mask.Excluded())
	}
}

func TestBuildEdgeInclusive(t *testing.T) {
	freqs := axis(9, 1)

	mask, err := Build(freqs, List{{Low: 4, High: 4}})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if !mask.Masked(4) {
		t.Fatalf("bin at exact range edge must be masked")
	}

	if mask.Excluded() != 1 {
		t.Fatalf("excluded=%d, want 1", mask.Excluded())
	}
}

func TestBuildRejectsInvalid(t *testing.T) {
	if _, err := Build(nil, nil); err == nil {
		t.Fatalf("expected error for empty axis")
	}

	if _, err := Build(axis(4, 1), List{{Low: 5, High: 2}}); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestMaskedOutOfBounds(t *testing.T) {
	mask, err := Build(axis(4, 1), nil)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if mask.Masked(-1) || mask.Masked(4) {
		t.Fatalf("out-of-range bins must report unmasked")
	}
}

func TestLoadCommaSeparated(t *testing.T) {
	in := `# O3 HL notch list
20.0, 20.5, "calibration line"
59.9, 60.1, mains harmonic

% trailing comment style
331.3, 331.9
`

	list, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if len(list) != 3 {
		t.Fatalf("len=%d, want 3", len(list))
	}

	if list[0].Low != 20 || list[0].High != 20.5 {
		t.Fatalf("unexpected first range: %+v", list[0])
	}

	if list[0].Description != "calibration line" {
		t.Fatalf("description=%q", list[0].Description)
	}

	if list[2].Description != "" {
		t.Fatalf("expected empty description, got %q", list[2].Description)
	}
}

func TestLoadWhitespaceSeparated(t *testing.T) {
	list, err := Load(strings.NewReader("16.0 16.25 violin\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if len(list) != 1 || list[0].High != 16.25 || list[0].Description != "violin" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	if _, err := Load(strings.NewReader("20.0\n")); err == nil {
		t.Fatalf("expected error for missing upper edge")
	}

	if _, err := Load(strings.NewReader("a, b\n")); err == nil {
		t.Fatalf("expected error for non-numeric edges")
	}

	if _, err := Load(strings.NewReader("30, 20\n")); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestSorted(t *testing.T) {
	list := List{{Low: 60, High: 61}, {Low: 20, High: 21}}

	sorted := list.Sorted()
	if sorted[0].Low != 20 {
		t.Fatalf("sorted[0].Low=%g, want 20", sorted[0].Low)
	}

	if list[0].Low != 60 {
		t.Fatalf("Sorted must not mutate the receiver")
	}
}
