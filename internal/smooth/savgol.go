package smooth

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavGol is a Savitzky-Golay smoother: a fixed-window local polynomial
// regression whose fit coefficients yield the smoothed value and its first
// derivative at the window center. Interior frames use precomputed
// projection weights; boundary frames refit with a shrunken window and a
// reduced polynomial order so the fit never reads outside the track's span.
type SavGol struct {
	window int
	order  int

	// Interior projection weights: value[i] and per-sample derivative
	// weights for a full centered window, derived once from the
	// least-squares normal equations.
	valueWeights []float64
	derivWeights []float64
}

// NewSavGol validates parameters and precomputes interior weights.
func NewSavGol(window, order int) (*SavGol, error) {
	if window < 3 || window%2 == 0 {
		return nil, fmt.Errorf("savgol window must be odd and >= 3, got %d", window)
	}
	if order < 1 || order >= window {
		return nil, fmt.Errorf("savgol order must be in [1, window), got order %d window %d", order, window)
	}

	s := &SavGol{window: window, order: order}
	half := window / 2

	// Projection rows of (AᵀA)⁻¹Aᵀ for offsets -half..half in sample
	// units. Row 0 evaluates the polynomial at the center, row 1 its
	// first derivative per sample step.
	a := vandermonde(offsets(-half, half), order)
	var pinv mat.Dense
	if err := pinv.Solve(atA(a), a.T()); err != nil {
		return nil, fmt.Errorf("savgol weight computation: %w", err)
	}
	s.valueWeights = mat.Row(nil, 0, &pinv)
	s.derivWeights = mat.Row(nil, 1, &pinv)
	return s, nil
}

// Name returns the algorithm name.
func (s *SavGol) Name() string { return AlgorithmSavGol }

// Smooth applies the filter independently to the x and y series.
func (s *SavGol) Smooth(dt float64, xs, ys []float64) (sx, sy, vx, vy []float64, err error) {
	if len(xs) != len(ys) {
		return nil, nil, nil, nil, fmt.Errorf("series length mismatch: %d vs %d", len(xs), len(ys))
	}
	sx, vx = s.smoothAxis(dt, xs)
	sy, vy = s.smoothAxis(dt, ys)
	return sx, sy, vx, vy, nil
}

func (s *SavGol) smoothAxis(dt float64, vals []float64) (smoothed, deriv []float64) {
	n := len(vals)
	smoothed = make([]float64, n)
	deriv = make([]float64, n)
	if n == 0 {
		return smoothed, deriv
	}
	if n == 1 {
		smoothed[0] = vals[0]
		return smoothed, deriv
	}

	half := s.window / 2
	for i := 0; i < n; i++ {
		if i >= half && i+half < n {
			// Interior: precomputed weights over the full window.
			var v, d float64
			for j := 0; j < s.window; j++ {
				v += s.valueWeights[j] * vals[i-half+j]
				d += s.derivWeights[j] * vals[i-half+j]
			}
			smoothed[i] = v
			deriv[i] = d / dt
			continue
		}
		smoothed[i], deriv[i] = s.fitAt(dt, vals, i)
	}
	return smoothed, deriv
}

// fitAt performs a one-off reduced-order fit for a boundary index.
func (s *SavGol) fitAt(dt float64, vals []float64, i int) (value, deriv float64) {
	half := s.window / 2
	lo := max(0, i-half)
	hi := min(len(vals)-1, i+half)
	m := hi - lo + 1
	ord := min(s.order, m-1)

	offs := make([]float64, m)
	b := mat.NewVecDense(m, nil)
	for j := 0; j < m; j++ {
		offs[j] = float64(lo + j - i)
		b.SetVec(j, vals[lo+j])
	}

	a := vandermonde(offs, ord)
	var qr mat.QR
	qr.Factorize(a)
	coef := mat.NewVecDense(ord+1, nil)
	if err := qr.SolveVecTo(coef, false, b); err != nil {
		// Degenerate window; fall back to the raw sample.
		return vals[i], 0
	}
	value = coef.AtVec(0)
	if ord >= 1 {
		deriv = coef.AtVec(1) / dt
	}
	return value, deriv
}

// vandermonde builds the design matrix [1, τ, τ², ...] for the offsets.
func vandermonde(offs []float64, order int) *mat.Dense {
	a := mat.NewDense(len(offs), order+1, nil)
	for i, t := range offs {
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= t
		}
	}
	return a
}

func atA(a *mat.Dense) *mat.Dense {
	_, c := a.Dims()
	out := mat.NewDense(c, c, nil)
	out.Mul(a.T(), a)
	return out
}

func offsets(lo, hi int) []float64 {
	out := make([]float64, 0, hi-lo+1)
	for t := lo; t <= hi; t++ {
		out = append(out, float64(t))
	}
	return out
}
