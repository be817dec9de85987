package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical threshold defaults file.
const DefaultConfigPath = "config/thresholds.defaults.json"

// Thresholds represents the detection tuning parameters. All fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// methods supply defaults for anything left nil. The set is fixed at
// startup and is not runtime-mutable in the core.
type Thresholds struct {
	// Detection params
	VariationRatio  *float64 `json:"variation_ratio,omitempty"`
	ClearRatio      *float64 `json:"clear_ratio,omitempty"`
	ClearSequence   *int     `json:"clear_sequence,omitempty"`
	OccupiedTimeout *string  `json:"occupied_timeout,omitempty"` // duration string like "2500ms"

	// Baseline params
	EMAAlpha           *float64 `json:"ema_alpha,omitempty"`
	CalibrationSamples *int     `json:"calibration_samples,omitempty"`

	// Sampling params
	MinRangeCM     *float64 `json:"min_range_cm,omitempty"`
	MaxRangeCM     *float64 `json:"max_range_cm,omitempty"`
	FilterWindow   *int     `json:"filter_window,omitempty"`
	EchoTimeout    *string  `json:"echo_timeout,omitempty"`    // duration string like "30ms"
	SampleInterval *string  `json:"sample_interval,omitempty"` // duration string like "25ms"

	// Protocol params
	PauseOnReport *bool `json:"pause_on_report,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyThresholds returns a Thresholds with all fields set to nil.
// Use LoadThresholds to load actual values from a file.
func EmptyThresholds() *Thresholds {
	return &Thresholds{}
}

// LoadThresholds loads a Thresholds from a JSON file. The file must have a
// .json extension and be under the max file size. Fields omitted from the
// JSON retain their defaults, so partial configs are safe.
func LoadThresholds(path string) (*Thresholds, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyThresholds()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are consistent.
func (c *Thresholds) Validate() error {
	if c.VariationRatio != nil {
		if *c.VariationRatio <= 0 || *c.VariationRatio > 1 {
			return fmt.Errorf("variation_ratio must be in (0, 1], got %f", *c.VariationRatio)
		}
	}
	if c.ClearRatio != nil {
		if *c.ClearRatio <= 0 || *c.ClearRatio > 1 {
			return fmt.Errorf("clear_ratio must be in (0, 1], got %f", *c.ClearRatio)
		}
	}
	// The hysteresis gap requires the clear ratio to sit below the
	// variation ratio; equal ratios would defeat the debounce.
	if c.ClearRatio != nil && *c.ClearRatio >= c.GetVariationRatio() {
		return fmt.Errorf("clear_ratio %f must be below variation_ratio %f", *c.ClearRatio, c.GetVariationRatio())
	}
	if c.ClearSequence != nil && *c.ClearSequence < 1 {
		return fmt.Errorf("clear_sequence must be at least 1, got %d", *c.ClearSequence)
	}
	if c.EMAAlpha != nil {
		if *c.EMAAlpha <= 0 || *c.EMAAlpha >= 1 {
			return fmt.Errorf("ema_alpha must be in (0, 1), got %f", *c.EMAAlpha)
		}
	}
	if c.CalibrationSamples != nil && *c.CalibrationSamples < 1 {
		return fmt.Errorf("calibration_samples must be at least 1, got %d", *c.CalibrationSamples)
	}
	if c.FilterWindow != nil {
		if *c.FilterWindow < 1 {
			return fmt.Errorf("filter_window must be at least 1, got %d", *c.FilterWindow)
		}
		if *c.FilterWindow%2 == 0 {
			return fmt.Errorf("filter_window must be odd for an unambiguous median, got %d", *c.FilterWindow)
		}
	}
	if c.MinRangeCM != nil && c.MaxRangeCM != nil && *c.MinRangeCM >= *c.MaxRangeCM {
		return fmt.Errorf("min_range_cm %f must be below max_range_cm %f", *c.MinRangeCM, *c.MaxRangeCM)
	}
	for name, v := range map[string]*string{
		"occupied_timeout": c.OccupiedTimeout,
		"echo_timeout":     c.EchoTimeout,
		"sample_interval":  c.SampleInterval,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}
	return nil
}

// GetVariationRatio returns the variation_ratio value or the default.
func (c *Thresholds) GetVariationRatio() float64 {
	if c.VariationRatio == nil {
		return 0.30
	}
	return *c.VariationRatio
}

// GetClearRatio returns the clear_ratio value or the default.
func (c *Thresholds) GetClearRatio() float64 {
	if c.ClearRatio == nil {
		return 0.12
	}
	return *c.ClearRatio
}

// GetClearSequence returns the clear_sequence value or the default.
func (c *Thresholds) GetClearSequence() int {
	if c.ClearSequence == nil {
		return 3
	}
	return *c.ClearSequence
}

// GetOccupiedTimeout parses and returns the occupied_timeout as a duration.
func (c *Thresholds) GetOccupiedTimeout() time.Duration {
	if c.OccupiedTimeout == nil || *c.OccupiedTimeout == "" {
		return 2500 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.OccupiedTimeout)
	if err != nil {
		return 2500 * time.Millisecond
	}
	return d
}

// GetEMAAlpha returns the ema_alpha value or the default.
func (c *Thresholds) GetEMAAlpha() float64 {
	if c.EMAAlpha == nil {
		return 0.003
	}
	return *c.EMAAlpha
}

// GetCalibrationSamples returns the calibration_samples value or the default.
func (c *Thresholds) GetCalibrationSamples() int {
	if c.CalibrationSamples == nil {
		return 20
	}
	return *c.CalibrationSamples
}

// GetMinRangeCM returns the min_range_cm value or the default.
func (c *Thresholds) GetMinRangeCM() float64 {
	if c.MinRangeCM == nil {
		return 5
	}
	return *c.MinRangeCM
}

// GetMaxRangeCM returns the max_range_cm value or the default.
func (c *Thresholds) GetMaxRangeCM() float64 {
	if c.MaxRangeCM == nil {
		return 600
	}
	return *c.MaxRangeCM
}

// GetFilterWindow returns the filter_window value or the default.
func (c *Thresholds) GetFilterWindow() int {
	if c.FilterWindow == nil {
		return 3
	}
	return *c.FilterWindow
}

// GetEchoTimeout parses and returns the echo_timeout as a duration.
func (c *Thresholds) GetEchoTimeout() time.Duration {
	if c.EchoTimeout == nil || *c.EchoTimeout == "" {
		return 30 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.EchoTimeout)
	if err != nil {
		return 30 * time.Millisecond
	}
	return d
}

// GetSampleInterval parses and returns the sample_interval as a duration.
func (c *Thresholds) GetSampleInterval() time.Duration {
	if c.SampleInterval == nil || *c.SampleInterval == "" {
		return 25 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.SampleInterval)
	if err != nil {
		return 25 * time.Millisecond
	}
	return d
}

// GetPauseOnReport returns the pause_on_report value or the default.
func (c *Thresholds) GetPauseOnReport() bool {
	if c.PauseOnReport == nil {
		return false
	}
	return *c.PauseOnReport
}
