package smooth

import (
	"fmt"

	kalman_filter "github.com/LdDl/kalman-filter"
)

// KalmanSmoother denoises a trajectory with a constant-velocity 2D Kalman
// filter. It is a causal alternative to the Savitzky-Golay filter for runs
// where the centered window's half-window lag at track boundaries matters
// more than smoothness.
type KalmanSmoother struct {
	ux      float64
	uy      float64
	stdDevA float64
	stdDevM float64
}

// NewKalmanSmoother returns a Kalman smoother with measurement and process
// noise suited to pitch-coordinate tracking jitter.
func NewKalmanSmoother() *KalmanSmoother {
	return &KalmanSmoother{
		ux:      1.0,
		uy:      1.0,
		stdDevA: 2.0,
		stdDevM: 0.25,
	}
}

// Name returns the algorithm name.
func (k *KalmanSmoother) Name() string { return AlgorithmKalman }

// Smooth runs predict/update over the series and differentiates the
// filtered positions for velocity.
func (k *KalmanSmoother) Smooth(dt float64, xs, ys []float64) (sx, sy, vx, vy []float64, err error) {
	n := len(xs)
	if n != len(ys) {
		return nil, nil, nil, nil, fmt.Errorf("series length mismatch: %d vs %d", n, len(ys))
	}
	sx = make([]float64, n)
	sy = make([]float64, n)
	vx = make([]float64, n)
	vy = make([]float64, n)
	if n == 0 {
		return sx, sy, vx, vy, nil
	}

	kf := kalman_filter.NewKalman2D(dt, k.ux, k.uy, k.stdDevA, k.stdDevM, k.stdDevM,
		kalman_filter.WithState2D(xs[0], ys[0]))

	sx[0], sy[0] = xs[0], ys[0]
	for i := 1; i < n; i++ {
		kf.Predict()
		if err := kf.Update(xs[i], ys[i]); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("kalman update at sample %d: %w", i, err)
		}
		sx[i], sy[i] = kf.GetState()
	}

	for i := 0; i < n; i++ {
		vx[i] = centralDiff(sx, i, dt)
		vy[i] = centralDiff(sy, i, dt)
	}
	return sx, sy, vx, vy, nil
}
