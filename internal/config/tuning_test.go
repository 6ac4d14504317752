package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pitchwise-data/tacticore/internal/smooth"
)

func TestEmptyConfigResolvesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetFPS(); got != 25.0 {
		t.Errorf("GetFPS() = %f, want 25.0", got)
	}
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers() = %d, want 4", got)
	}
	if got := cfg.GetControlFrameStep(); got != 25 {
		t.Errorf("GetControlFrameStep() = %d, want 25", got)
	}

	cl := cfg.CleanerConfig()
	if cl.MinTrackFrames != 13 {
		t.Errorf("CleanerConfig().MinTrackFrames = %d, want 13", cl.MinTrackFrames)
	}
	if cl.MergeMaxDistanceM != 2.0 {
		t.Errorf("CleanerConfig().MergeMaxDistanceM = %f, want 2.0", cl.MergeMaxDistanceM)
	}

	sm := cfg.SmoothConfig()
	if sm.Algorithm != smooth.AlgorithmSavGol {
		t.Errorf("SmoothConfig().Algorithm = %q, want %q", sm.Algorithm, smooth.AlgorithmSavGol)
	}
	if sm.Window != 5 || sm.PolyOrder != 2 {
		t.Errorf("SmoothConfig() window/order = %d/%d, want 5/2", sm.Window, sm.PolyOrder)
	}

	det := cfg.DetectorConfig()
	if det.BallProximityM != 1.5 {
		t.Errorf("DetectorConfig().BallProximityM = %f, want 1.5", det.BallProximityM)
	}

	pc := cfg.PitchControlConfig()
	if pc.GridWidth != 32 || pc.GridHeight != 24 {
		t.Errorf("PitchControlConfig() grid = %dx%d, want 32x24", pc.GridWidth, pc.GridHeight)
	}

	ph := cfg.PhysicalConfig()
	if ph.SprintSpeedMps != 7.0 {
		t.Errorf("PhysicalConfig().SprintSpeedMps = %f, want 7.0", ph.SprintSpeedMps)
	}

	ta := cfg.TacticalConfig()
	if ta.WindowFrames != 7500 {
		t.Errorf("TacticalConfig().WindowFrames = %d, want 7500", ta.WindowFrames)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "fps": 30,
  "min_track_frames": 16,
  "smooth_algorithm": "kalman",
  "ball_proximity_m": 2.0,
  "grid_width": 48,
  "sprint_speed_mps": 6.5,
  "window_frames": 4500,
  "workers": 8
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetFPS(); got != 30 {
		t.Errorf("GetFPS() = %f, want 30", got)
	}
	if cl := cfg.CleanerConfig(); cl.MinTrackFrames != 16 {
		t.Errorf("CleanerConfig().MinTrackFrames = %d, want 16", cl.MinTrackFrames)
	}
	if cl := cfg.CleanerConfig(); cl.MergeMaxFrameGap != 10 {
		t.Errorf("unset merge_max_frame_gap must keep the default 10, got %d", cl.MergeMaxFrameGap)
	}
	if sm := cfg.SmoothConfig(); sm.Algorithm != smooth.AlgorithmKalman {
		t.Errorf("SmoothConfig().Algorithm = %q, want kalman", sm.Algorithm)
	}
	if sm := cfg.SmoothConfig(); sm.FPS != 30 {
		t.Errorf("SmoothConfig().FPS = %f, want 30", sm.FPS)
	}
	if det := cfg.DetectorConfig(); det.BallProximityM != 2.0 {
		t.Errorf("DetectorConfig().BallProximityM = %f, want 2.0", det.BallProximityM)
	}
	if pc := cfg.PitchControlConfig(); pc.GridWidth != 48 || pc.GridHeight != 24 {
		t.Errorf("PitchControlConfig() grid = %dx%d, want 48x24", pc.GridWidth, pc.GridHeight)
	}
	if ph := cfg.PhysicalConfig(); ph.SprintSpeedMps != 6.5 {
		t.Errorf("PhysicalConfig().SprintSpeedMps = %f, want 6.5", ph.SprintSpeedMps)
	}
	if ta := cfg.TacticalConfig(); ta.WindowFrames != 4500 {
		t.Errorf("TacticalConfig().WindowFrames = %d, want 4500", ta.WindowFrames)
	}
	if got := cfg.GetWorkers(); got != 8 {
		t.Errorf("GetWorkers() = %d, want 8", got)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr bool
	}{
		{"empty is valid", func(c *TuningConfig) {}, false},
		{"negative fps", func(c *TuningConfig) { c.FPS = ptrFloat64(-1) }, true},
		{"zero min track frames", func(c *TuningConfig) { c.MinTrackFrames = ptrInt(0) }, true},
		{"even smoothing window", func(c *TuningConfig) { c.SmoothWindow = ptrInt(4) }, true},
		{"order at window", func(c *TuningConfig) {
			c.SmoothWindow = ptrInt(5)
			c.SmoothPolyOrder = ptrInt(5)
		}, true},
		{"unknown algorithm", func(c *TuningConfig) { c.SmoothAlgorithm = ptrString("spline") }, true},
		{"known algorithm", func(c *TuningConfig) { c.SmoothAlgorithm = ptrString("kalman") }, false},
		{"zero tau", func(c *TuningConfig) { c.ControlTau = ptrFloat64(0) }, true},
		{"zero workers", func(c *TuningConfig) { c.Workers = ptrInt(0) }, true},
		{"valid overrides", func(c *TuningConfig) {
			c.SmoothWindow = ptrInt(7)
			c.SmoothPolyOrder = ptrInt(3)
			c.MaxPlayerSpeedMps = ptrFloat64(11)
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := EmptyTuningConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
