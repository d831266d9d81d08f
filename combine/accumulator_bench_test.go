package combine

import (
	"testing"
)

func BenchmarkAdd(b *testing.B) {
	sizes := []struct {
		name string
		bins int
	}{
		{"257", 257},
		{"2K", 2049},
		{"16K", 16385},
	}

	for _, testCase := range sizes {
		b.Run(testCase.name, func(b *testing.B) {
			freqs := testAxis(testCase.bins)
			acc := New(freqs)
			est := syntheticEstimate(freqs, 0.5, 2)

			b.SetBytes(int64(testCase.bins * 8))
			b.ResetTimer()

			for range b.N {
				if err := acc.Add(est, usable()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFinalize(b *testing.B) {
	freqs := testAxis(16385)
	acc := New(freqs)

	for i := 0; i < 64; i++ {
		if err := acc.Add(syntheticEstimate(freqs, 0.5, 2), usable()); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()

	for range b.N {
		if _, err := acc.Finalize(nil, Policy{Enabled: true}); err != nil {
			b.Fatal(err)
		}
	}
}
