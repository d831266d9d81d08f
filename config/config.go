// Package config holds the analysis configuration surface of a background
// estimation run. Configurations are loaded once from YAML, validated, and
// treated as immutable afterwards.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-gwb/dsp/window"
	"github.com/cwbudde/algo-gwb/notch"
)

// Config is the full analysis configuration.
type Config struct {
	Estimator   EstimatorConfig   `yaml:"estimator"`
	Band        BandConfig        `yaml:"band"`
	Combination CombinationConfig `yaml:"combination"`
	Quality     QualityConfig     `yaml:"quality"`
	Notches     NotchConfig       `yaml:"notches"`
	Run         RunConfig         `yaml:"run"`
}

// EstimatorConfig configures the per-segment spectral estimator.
type EstimatorConfig struct {
	// FFTLength is the sub-interval length in samples.
	FFTLength int `yaml:"fft_length"`
	// Overlap is the sub-interval overlap fraction in [0, 1).
	Overlap float64 `yaml:"overlap"`
	// Window names the taper; hann, welch, hamming, blackman, tukey or
	// rectangular.
	Window string `yaml:"window"`
	// WindowAlpha is the shape parameter for parametric windows.
	WindowAlpha float64 `yaml:"window_alpha"`
}

// WindowType resolves the configured window name.
func (c EstimatorConfig) WindowType() (window.Type, error) {
	return window.ParseType(c.Window)
}

// BandConfig bounds the analysis band in Hz.
type BandConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// CombinationConfig configures the combiner and the optional broadband
// frequency combination.
type CombinationConfig struct {
	// Broadband enables the frequency combination into a scalar estimate.
	Broadband bool `yaml:"broadband"`
	// Alpha is the spectral index of the assumed power-law shape.
	Alpha float64 `yaml:"alpha"`
	// RefFreq is the pivot frequency of the shape in Hz.
	RefFreq float64 `yaml:"fref"`
	// BiasCorrection applies the Welch-averaging bias factor to the final
	// sigma.
	BiasCorrection bool `yaml:"bias_correction"`
	// NAverageSegments is the neighbouring-segment count of the PSD average
	// entering the bias factor.
	NAverageSegments int `yaml:"n_average_segments"`
}

// QualityConfig holds the segment rejection thresholds.
type QualityConfig struct {
	DeltaSigmaCut      float64   `yaml:"delta_sigma_cut"`
	Alphas             []float64 `yaml:"alphas"`
	OutlierRatio       float64   `yaml:"outlier_ratio"`
	MaxOutlierFraction float64   `yaml:"max_outlier_fraction"`
}

// NotchConfig lists contaminated frequency ranges, inline and/or from a notch
// list file.
type NotchConfig struct {
	Path   string       `yaml:"path"`
	Ranges []NotchRange `yaml:"ranges"`
}

// NotchRange is one inline frequency range to exclude.
type NotchRange struct {
	Low         float64 `yaml:"low"`
	High        float64 `yaml:"high"`
	Description string  `yaml:"description"`
}

// RunConfig holds execution settings.
type RunConfig struct {
	// Workers is the parallel estimation worker count; zero uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	// RateTolerance is the relative sample-rate coincidence tolerance.
	RateTolerance float64 `yaml:"rate_tolerance"`
}

// Default returns the standard isotropic-analysis configuration.
func Default() Config {
	return Config{
		Estimator: EstimatorConfig{
			FFTLength: 4096,
			Overlap:   0.5,
			Window:    "hann",
		},
		Band: BandConfig{
			Low:  20,
			High: 1726,
		},
		Combination: CombinationConfig{
			Broadband:        true,
			Alpha:            0,
			RefFreq:          25,
			BiasCorrection:   true,
			NAverageSegments: 2,
		},
		Quality: QualityConfig{
			DeltaSigmaCut:      0.2,
			Alphas:             []float64{-5, 0, 3},
			OutlierRatio:       50,
			MaxOutlierFraction: 0.2,
		},
	}
}

// Load reads and validates a YAML configuration file, filling unset fields
// with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config read: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Estimator.FFTLength < 4 || c.Estimator.FFTLength%2 != 0 {
		return fmt.Errorf("config: fft_length must be even and >= 4: %d", c.Estimator.FFTLength)
	}

	if c.Estimator.Overlap < 0 || c.Estimator.Overlap >= 1 {
		return fmt.Errorf("config: overlap must be in [0, 1): %f", c.Estimator.Overlap)
	}

	if _, err := c.Estimator.WindowType(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Band.Low < 0 || (c.Band.High > 0 && c.Band.High < c.Band.Low) {
		return fmt.Errorf("config: invalid band [%g, %g]", c.Band.Low, c.Band.High)
	}

	if c.Combination.RefFreq <= 0 {
		return fmt.Errorf("config: fref must be > 0: %g", c.Combination.RefFreq)
	}

	if c.Combination.NAverageSegments < 0 {
		return fmt.Errorf("config: n_average_segments must be >= 0: %d", c.Combination.NAverageSegments)
	}

	if c.Quality.DeltaSigmaCut < 0 {
		return fmt.Errorf("config: delta_sigma_cut must be >= 0: %g", c.Quality.DeltaSigmaCut)
	}

	if c.Run.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0: %d", c.Run.Workers)
	}

	for _, r := range c.Notches.Ranges {
		if r.Low < 0 || r.High < r.Low {
			return fmt.Errorf("config: invalid notch range [%g, %g]", r.Low, r.High)
		}
	}

	return nil
}

// NotchList assembles the configured notch ranges, loading the notch list
// file when one is set.
func (c Config) NotchList() (notch.List, error) {
	list := make(notch.List, 0, len(c.Notches.Ranges))

	for _, r := range c.Notches.Ranges {
		list = append(list, notch.Range{Low: r.Low, High: r.High, Description: r.Description})
	}

	if c.Notches.Path != "" {
		fromFile, err := notch.LoadFile(c.Notches.Path)
		if err != nil {
			return nil, err
		}

		list = append(list, fromFile...)
	}

	return list, nil
}
