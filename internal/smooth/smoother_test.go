package smooth

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwise-data/tacticore/internal/track"
)

func makeCleaned(id int64, class track.ObjectClass, team track.TeamID, xs, ys []float64) *track.CleanedTrajectory {
	points := make([]track.RawDetection, len(xs))
	for i := range xs {
		points[i] = track.RawDetection{
			FrameID:   i,
			Timestamp: float64(i) / 25.0,
			TrackID:   id,
			X:         xs[i],
			Y:         ys[i],
			Class:     class,
			Team:      team,
		}
	}
	return &track.CleanedTrajectory{Trajectory: track.Trajectory{
		TrackID: id, Class: class, Team: team, Points: points,
	}}
}

func linearSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestLinearTrackSpeed(t *testing.T) {
	t.Parallel()

	// 1m per frame at 25fps is exactly 25 m/s. A ceiling above that keeps
	// the clamp out of the way so the filter itself is measured.
	cfg := DefaultConfig()
	cfg.MaxPlayerSpeedMps = 30.0
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	n := 40
	ct := makeCleaned(1, track.ClassPlayer, track.TeamHome, linearSeries(n, 0, 1.0), linearSeries(n, 34, 0))

	st, err := engine.SmoothOne(ct)
	require.NoError(t, err)
	require.Len(t, st.Samples, n)

	for _, s := range st.Samples {
		assert.InDelta(t, 25.0, s.Speed, 1e-6, "frame %d", s.FrameID)
		assert.False(t, s.SpeedClamped)
	}
	assert.Zero(t, st.ClampedFrames)
}

func TestSavGolPreservesQuadratic(t *testing.T) {
	t.Parallel()

	// An order-2 fit reproduces quadratic motion and its derivative
	// exactly at interior frames.
	sg, err := NewSavGol(5, 2)
	require.NoError(t, err)

	dt := 0.04
	n := 30
	xs := make([]float64, n)
	for i := range xs {
		tt := float64(i) * dt
		xs[i] = 2 + 3*tt + 4*tt*tt
	}
	ys := linearSeries(n, 10, 0)

	sx, _, vx, _, err := sg.Smooth(dt, xs, ys)
	require.NoError(t, err)

	for i := 2; i < n-2; i++ {
		tt := float64(i) * dt
		assert.InDelta(t, xs[i], sx[i], 1e-9)
		assert.InDelta(t, 3+8*tt, vx[i], 1e-6)
	}
}

func TestSavGolReducesNoise(t *testing.T) {
	t.Parallel()

	sg, err := NewSavGol(5, 2)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	n := 200
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)*0.2 + rng.NormFloat64()*0.15
	}
	ys := linearSeries(n, 0, 0)

	sx, _, _, _, err := sg.Smooth(0.04, xs, ys)
	require.NoError(t, err)

	var rawDev, smoothDev float64
	for i := range xs {
		truth := float64(i) * 0.2
		rawDev += (xs[i] - truth) * (xs[i] - truth)
		smoothDev += (sx[i] - truth) * (sx[i] - truth)
	}
	assert.Less(t, smoothDev, rawDev, "smoothing should reduce deviation from the true path")
}

func TestSavGolBoundaryStaysInSpan(t *testing.T) {
	t.Parallel()

	sg, err := NewSavGol(5, 2)
	require.NoError(t, err)

	// Linear data: boundary reduced-order fits must still be exact.
	xs := linearSeries(10, 0, 0.5)
	ys := linearSeries(10, 5, -0.1)
	sx, sy, vx, vy, err := sg.Smooth(0.04, xs, ys)
	require.NoError(t, err)

	assert.InDelta(t, xs[0], sx[0], 1e-9)
	assert.InDelta(t, xs[9], sx[9], 1e-9)
	assert.InDelta(t, ys[0], sy[0], 1e-9)
	assert.InDelta(t, 0.5/0.04, vx[0], 1e-6)
	assert.InDelta(t, -0.1/0.04, vy[9], 1e-6)
}

func TestSavGolShortSeries(t *testing.T) {
	t.Parallel()

	sg, err := NewSavGol(5, 2)
	require.NoError(t, err)

	t.Run("single sample", func(t *testing.T) {
		t.Parallel()
		sx, _, vx, _, err := sg.Smooth(0.04, []float64{3}, []float64{4})
		require.NoError(t, err)
		assert.Equal(t, 3.0, sx[0])
		assert.Zero(t, vx[0])
	})

	t.Run("shorter than window", func(t *testing.T) {
		t.Parallel()
		xs := linearSeries(3, 0, 1)
		sx, _, vx, _, err := sg.Smooth(0.04, xs, xs)
		require.NoError(t, err)
		for i := range sx {
			assert.InDelta(t, xs[i], sx[i], 1e-9)
			assert.InDelta(t, 25.0, vx[i], 1e-6)
		}
	})
}

func TestClampFlagsSpike(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	// Steady 5 m/s with one single-frame 2m displacement (a 50 m/s spike).
	n := 60
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * 0.2
		if i >= 30 {
			xs[i] += 2.0
		}
	}
	ct := makeCleaned(3, track.ClassPlayer, track.TeamAway, xs, linearSeries(n, 20, 0))

	st, err := engine.SmoothOne(ct)
	require.NoError(t, err)

	var flagged int
	for _, s := range st.Samples {
		assert.LessOrEqual(t, s.Speed, 10.0+1e-9, "frame %d exceeds ceiling", s.FrameID)
		if s.SpeedClamped {
			flagged = s.FrameID
			// Velocity vector is scaled onto the ceiling, not zeroed.
			assert.InDelta(t, 10.0, math.Hypot(s.VX, s.VY), 1e-9)
		}
	}
	assert.Greater(t, st.ClampedFrames, 0, "spike must be flagged")
	assert.InDelta(t, 30, flagged, 2, "flag should sit at the spike")
}

func TestBallNotClamped(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	// A driven ball legitimately exceeds any player ceiling.
	n := 30
	ct := makeCleaned(9, track.ClassBall, track.TeamNone, linearSeries(n, 0, 1.2), linearSeries(n, 34, 0))

	st, err := engine.SmoothOne(ct)
	require.NoError(t, err)
	assert.Zero(t, st.ClampedFrames)
	assert.InDelta(t, 30.0, st.Samples[10].Speed, 1e-6)
}

func TestKalmanSmootherTracksLinearMotion(t *testing.T) {
	t.Parallel()

	ks := NewKalmanSmoother()
	n := 100
	xs := linearSeries(n, 0, 0.2)
	ys := linearSeries(n, 10, 0.1)

	sx, sy, vx, _, err := ks.Smooth(0.04, xs, ys)
	require.NoError(t, err)
	require.Len(t, sx, n)

	assert.InDelta(t, xs[n-1], sx[n-1], 1.0)
	assert.InDelta(t, ys[n-1], sy[n-1], 1.0)
	// Velocity settles near the true 5 m/s.
	assert.InDelta(t, 5.0, vx[n-1], 2.5)
}

func TestNewEngineRejectsUnknownAlgorithm(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Algorithm = "savitzky-please"
	_, err := NewEngine(cfg)
	assert.Error(t, err)
}

func TestSmoothAll(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	tracks := []*track.CleanedTrajectory{
		makeCleaned(1, track.ClassPlayer, track.TeamHome, linearSeries(50, 0, 0.1), linearSeries(50, 10, 0)),
		makeCleaned(2, track.ClassPlayer, track.TeamAway, linearSeries(50, 100, -0.1), linearSeries(50, 50, 0)),
		makeCleaned(3, track.ClassBall, track.TeamNone, linearSeries(50, 50, 0.3), linearSeries(50, 34, 0)),
	}

	out, err := engine.SmoothAll(context.Background(), tracks, 4)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, st := range out {
		assert.Equal(t, tracks[i].TrackID, st.TrackID)
		assert.Len(t, st.Samples, 50)
	}
}

func TestSmoothAllCancelled(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracks := []*track.CleanedTrajectory{
		makeCleaned(1, track.ClassPlayer, track.TeamHome, linearSeries(50, 0, 0.1), linearSeries(50, 10, 0)),
	}
	_, err = engine.SmoothAll(ctx, tracks, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
