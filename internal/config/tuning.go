// Package config holds the analysis tuning parameters. All thresholds
// are optional in the JSON file; nil fields fall back to the stage
// defaults, so partial configs are safe to ship.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pitchwise-data/tacticore/internal/events"
	"github.com/pitchwise-data/tacticore/internal/physical"
	"github.com/pitchwise-data/tacticore/internal/pitchcontrol"
	"github.com/pitchwise-data/tacticore/internal/smooth"
	"github.com/pitchwise-data/tacticore/internal/tactical"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root tuning schema. The resolved JSON is stored
// with every analysis run so results stay reproducible.
type TuningConfig struct {
	// Capture params
	FPS *float64 `json:"fps,omitempty"`

	// Track cleaner params
	MinTrackFrames    *int     `json:"min_track_frames,omitempty"`
	MergeMaxFrameGap  *int     `json:"merge_max_frame_gap,omitempty"`
	MergeMaxDistanceM *float64 `json:"merge_max_distance_m,omitempty"`

	// Smoother params
	SmoothAlgorithm   *string  `json:"smooth_algorithm,omitempty"` // "savgol" or "kalman"
	SmoothWindow      *int     `json:"smooth_window,omitempty"`
	SmoothPolyOrder   *int     `json:"smooth_poly_order,omitempty"`
	MaxPlayerSpeedMps *float64 `json:"max_player_speed_mps,omitempty"`

	// Event detector params
	BallProximityM      *float64 `json:"ball_proximity_m,omitempty"`
	PossessionMinFrames *int     `json:"possession_min_frames,omitempty"`
	PressureRadiusM     *float64 `json:"pressure_radius_m,omitempty"`
	PressureClosingMps  *float64 `json:"pressure_closing_mps,omitempty"`
	PassMinDistanceM    *float64 `json:"pass_min_distance_m,omitempty"`
	PassMinBallSpeedMps *float64 `json:"pass_min_ball_speed_mps,omitempty"`

	// Pitch control params
	GridWidth        *int     `json:"grid_width,omitempty"`
	GridHeight       *int     `json:"grid_height,omitempty"`
	ReactionTimeS    *float64 `json:"reaction_time_s,omitempty"`
	InterceptSpeed   *float64 `json:"intercept_speed_mps,omitempty"`
	ControlTau       *float64 `json:"control_tau,omitempty"`
	ControlFrameStep *int     `json:"control_frame_step,omitempty"`

	// Physical params
	SprintSpeedMps  *float64 `json:"sprint_speed_mps,omitempty"`
	SprintMinFrames *int     `json:"sprint_min_frames,omitempty"`
	SprintMergeGap  *int     `json:"sprint_merge_gap,omitempty"`

	// Tactical params
	WindowFrames *int `json:"window_frames,omitempty"`

	// Pipeline params
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", *c.FPS)
	}
	if c.MinTrackFrames != nil && *c.MinTrackFrames < 1 {
		return fmt.Errorf("min_track_frames must be at least 1, got %d", *c.MinTrackFrames)
	}
	if c.MergeMaxDistanceM != nil && *c.MergeMaxDistanceM < 0 {
		return fmt.Errorf("merge_max_distance_m must be non-negative, got %f", *c.MergeMaxDistanceM)
	}
	if c.SmoothAlgorithm != nil {
		switch *c.SmoothAlgorithm {
		case smooth.AlgorithmSavGol, smooth.AlgorithmKalman:
		default:
			return fmt.Errorf("unknown smooth_algorithm %q", *c.SmoothAlgorithm)
		}
	}
	if c.SmoothWindow != nil {
		if *c.SmoothWindow < 3 || *c.SmoothWindow%2 == 0 {
			return fmt.Errorf("smooth_window must be odd and at least 3, got %d", *c.SmoothWindow)
		}
	}
	if c.SmoothPolyOrder != nil && c.SmoothWindow != nil && *c.SmoothPolyOrder >= *c.SmoothWindow {
		return fmt.Errorf("smooth_poly_order %d must be below smooth_window %d", *c.SmoothPolyOrder, *c.SmoothWindow)
	}
	if c.MaxPlayerSpeedMps != nil && *c.MaxPlayerSpeedMps <= 0 {
		return fmt.Errorf("max_player_speed_mps must be positive, got %f", *c.MaxPlayerSpeedMps)
	}
	if c.GridWidth != nil && *c.GridWidth < 1 {
		return fmt.Errorf("grid_width must be at least 1, got %d", *c.GridWidth)
	}
	if c.GridHeight != nil && *c.GridHeight < 1 {
		return fmt.Errorf("grid_height must be at least 1, got %d", *c.GridHeight)
	}
	if c.ControlTau != nil && *c.ControlTau <= 0 {
		return fmt.Errorf("control_tau must be positive, got %f", *c.ControlTau)
	}
	if c.ControlFrameStep != nil && *c.ControlFrameStep < 1 {
		return fmt.Errorf("control_frame_step must be at least 1, got %d", *c.ControlFrameStep)
	}
	if c.WindowFrames != nil && *c.WindowFrames < 1 {
		return fmt.Errorf("window_frames must be at least 1, got %d", *c.WindowFrames)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetFPS returns the capture frame rate or the default.
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 25.0
	}
	return *c.FPS
}

// GetWorkers returns the worker pool size or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetControlFrameStep returns the pitch-control sampling stride or the
// default. A stride of n computes the control field on every n-th frame.
func (c *TuningConfig) GetControlFrameStep() int {
	if c.ControlFrameStep == nil {
		return 25 // one field per second at the default frame rate
	}
	return *c.ControlFrameStep
}

// CleanerConfig resolves the track cleaner parameters.
func (c *TuningConfig) CleanerConfig() track.CleanerConfig {
	cfg := track.DefaultCleanerConfig()
	if c.MinTrackFrames != nil {
		cfg.MinTrackFrames = *c.MinTrackFrames
	}
	if c.MergeMaxFrameGap != nil {
		cfg.MergeMaxFrameGap = *c.MergeMaxFrameGap
	}
	if c.MergeMaxDistanceM != nil {
		cfg.MergeMaxDistanceM = *c.MergeMaxDistanceM
	}
	return cfg
}

// SmoothConfig resolves the trajectory smoother parameters.
func (c *TuningConfig) SmoothConfig() smooth.Config {
	cfg := smooth.DefaultConfig()
	cfg.FPS = c.GetFPS()
	if c.SmoothAlgorithm != nil {
		cfg.Algorithm = *c.SmoothAlgorithm
	}
	if c.SmoothWindow != nil {
		cfg.Window = *c.SmoothWindow
	}
	if c.SmoothPolyOrder != nil {
		cfg.PolyOrder = *c.SmoothPolyOrder
	}
	if c.MaxPlayerSpeedMps != nil {
		cfg.MaxPlayerSpeedMps = *c.MaxPlayerSpeedMps
	}
	return cfg
}

// DetectorConfig resolves the event detector parameters.
func (c *TuningConfig) DetectorConfig() events.DetectorConfig {
	cfg := events.DefaultDetectorConfig()
	if c.BallProximityM != nil {
		cfg.BallProximityM = *c.BallProximityM
	}
	if c.PossessionMinFrames != nil {
		cfg.PossessionMinFrames = *c.PossessionMinFrames
	}
	if c.PressureRadiusM != nil {
		cfg.PressureRadiusM = *c.PressureRadiusM
	}
	if c.PressureClosingMps != nil {
		cfg.PressureClosingMps = *c.PressureClosingMps
	}
	if c.PassMinDistanceM != nil {
		cfg.PassMinDistanceM = *c.PassMinDistanceM
	}
	if c.PassMinBallSpeedMps != nil {
		cfg.PassMinBallSpeedMps = *c.PassMinBallSpeedMps
	}
	return cfg
}

// PitchControlConfig resolves the control field parameters.
func (c *TuningConfig) PitchControlConfig() pitchcontrol.Config {
	cfg := pitchcontrol.DefaultConfig()
	if c.GridWidth != nil {
		cfg.GridWidth = *c.GridWidth
	}
	if c.GridHeight != nil {
		cfg.GridHeight = *c.GridHeight
	}
	if c.ReactionTimeS != nil {
		cfg.ReactionTimeS = *c.ReactionTimeS
	}
	if c.InterceptSpeed != nil {
		cfg.InterceptSpeed = *c.InterceptSpeed
	}
	if c.ControlTau != nil {
		cfg.ControlTau = *c.ControlTau
	}
	return cfg
}

// PhysicalConfig resolves the physical metrics parameters.
func (c *TuningConfig) PhysicalConfig() physical.Config {
	cfg := physical.DefaultConfig()
	if c.SprintSpeedMps != nil {
		cfg.SprintSpeedMps = *c.SprintSpeedMps
	}
	if c.SprintMinFrames != nil {
		cfg.SprintMinFrames = *c.SprintMinFrames
	}
	if c.SprintMergeGap != nil {
		cfg.SprintMergeGap = *c.SprintMergeGap
	}
	return cfg
}

// TacticalConfig resolves the tactical aggregation parameters.
func (c *TuningConfig) TacticalConfig() tactical.Config {
	cfg := tactical.DefaultConfig()
	if c.WindowFrames != nil {
		cfg.WindowFrames = *c.WindowFrames
	}
	return cfg
}
