// Package smooth denoises cleaned trajectories and derives per-frame
// kinematics (velocity, speed, acceleration). Smoothing algorithms are
// pluggable so alternatives can be A/B compared on the same match.
package smooth

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pitchwise-data/tacticore/internal/track"
)

// Smoother is the interface for trajectory denoising algorithms.
type Smoother interface {
	// Name returns the algorithm name for logging and run params.
	Name() string

	// Smooth denoises the x/y series sampled at fixed interval dt and
	// returns smoothed positions plus first-derivative velocities.
	// All returned slices have the same length as the input.
	Smooth(dt float64, xs, ys []float64) (sx, sy, vx, vy []float64, err error)
}

// Algorithm names accepted by NewEngine.
const (
	AlgorithmSavGol = "savgol"
	AlgorithmKalman = "kalman"
)

// Sample is one frame of a smoothed trajectory.
type Sample struct {
	FrameID   int     `json:"frame_id"`
	Timestamp float64 `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	Speed     float64 `json:"speed"` // m/s, clamped for players
	Accel     float64 `json:"accel"` // m/s², signed along speed change
	// SpeedClamped marks frames where the raw speed exceeded the
	// physiological ceiling and was treated as a tracking artifact.
	SpeedClamped bool `json:"speed_clamped,omitempty"`
	Interpolated bool `json:"interpolated,omitempty"`
}

// SmoothedTrajectory is a cleaned trajectory with denoised positions and
// derived kinematics.
type SmoothedTrajectory struct {
	TrackID       int64
	Class         track.ObjectClass
	Team          track.TeamID
	Samples       []Sample
	ClampedFrames int
}

// Config holds smoothing parameters.
type Config struct {
	Algorithm         string  // "savgol" or "kalman"
	Window            int     // frames, odd
	PolyOrder         int     // Savitzky-Golay polynomial order
	MaxPlayerSpeedMps float64 // physiological ceiling, ~10 m/s
	FPS               float64
}

// DefaultConfig returns default smoothing configuration.
func DefaultConfig() Config {
	return Config{
		Algorithm:         AlgorithmSavGol,
		Window:            5,
		PolyOrder:         2,
		MaxPlayerSpeedMps: 10.0,
		FPS:               25.0,
	}
}

// Engine applies a Smoother to cleaned trajectories and derives kinematics.
type Engine struct {
	cfg      Config
	smoother Smoother
}

// NewEngine builds an Engine for the configured algorithm.
func NewEngine(cfg Config) (*Engine, error) {
	var s Smoother
	var err error
	switch cfg.Algorithm {
	case AlgorithmSavGol, "":
		s, err = NewSavGol(cfg.Window, cfg.PolyOrder)
	case AlgorithmKalman:
		s = NewKalmanSmoother()
	default:
		return nil, fmt.Errorf("unknown smoothing algorithm %q", cfg.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, smoother: s}, nil
}

// Algorithm returns the active smoother name.
func (e *Engine) Algorithm() string { return e.smoother.Name() }

// SmoothAll smooths every trajectory, fanning out across tracks. Different
// physical entities are independent, so tracks parallelize freely.
func (e *Engine) SmoothAll(ctx context.Context, tracks []*track.CleanedTrajectory, workers int) ([]*SmoothedTrajectory, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]*SmoothedTrajectory, len(tracks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ct := range tracks {
		i, ct := i, ct
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st, err := e.SmoothOne(ct)
			if err != nil {
				return fmt.Errorf("track %d: %w", ct.TrackID, err)
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SmoothOne smooths a single trajectory and derives velocity, speed and
// acceleration. Player speeds above the configured ceiling are clamped and
// flagged rather than passed through, so one-frame detector glitches do not
// leak into aggregate metrics.
func (e *Engine) SmoothOne(ct *track.CleanedTrajectory) (*SmoothedTrajectory, error) {
	n := len(ct.Points)
	if n == 0 {
		return nil, fmt.Errorf("empty trajectory %d", ct.TrackID)
	}
	dt := 1.0 / e.cfg.FPS

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range ct.Points {
		xs[i] = p.X
		ys[i] = p.Y
	}

	sx, sy, vx, vy, err := e.smoother.Smooth(dt, xs, ys)
	if err != nil {
		return nil, fmt.Errorf("%s smoothing: %w", e.smoother.Name(), err)
	}

	st := &SmoothedTrajectory{
		TrackID: ct.TrackID,
		Class:   ct.Class,
		Team:    ct.Team,
		Samples: make([]Sample, n),
	}

	clampSpeeds := ct.Class == track.ClassPlayer && e.cfg.MaxPlayerSpeedMps > 0
	speeds := make([]float64, n)
	for i := range st.Samples {
		s := Sample{
			FrameID:      ct.Points[i].FrameID,
			Timestamp:    ct.Points[i].Timestamp,
			X:            sx[i],
			Y:            sy[i],
			VX:           vx[i],
			VY:           vy[i],
			Interpolated: ct.Points[i].Interpolated,
		}
		s.Speed = speed(s.VX, s.VY)
		if clampSpeeds && s.Speed > e.cfg.MaxPlayerSpeedMps {
			// Scale the velocity vector onto the ceiling so direction
			// survives the clamp.
			scale := e.cfg.MaxPlayerSpeedMps / s.Speed
			s.VX *= scale
			s.VY *= scale
			s.Speed = e.cfg.MaxPlayerSpeedMps
			s.SpeedClamped = true
			st.ClampedFrames++
		}
		speeds[i] = s.Speed
		st.Samples[i] = s
	}

	// Acceleration as a central difference of the (clamped) speed series.
	for i := range st.Samples {
		st.Samples[i].Accel = centralDiff(speeds, i, dt)
	}
	return st, nil
}

func speed(vx, vy float64) float64 {
	return math.Hypot(vx, vy)
}

// centralDiff differentiates series at index i with one-sided differences
// at the boundaries.
func centralDiff(series []float64, i int, dt float64) float64 {
	n := len(series)
	switch {
	case n < 2:
		return 0
	case i == 0:
		return (series[1] - series[0]) / dt
	case i == n-1:
		return (series[n-1] - series[n-2]) / dt
	default:
		return (series[i+1] - series[i-1]) / (2 * dt)
	}
}
