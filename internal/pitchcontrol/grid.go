// Package pitchcontrol computes per-frame spatial control-probability
// fields: for every cell of a discretized pitch, the probability that the
// home team would reach a ball arriving there before the away team.
// Frames are independent of each other, which makes this stage the
// pipeline's primary parallelism point.
package pitchcontrol

// Grid is one frame's control field. Cells are stored flat, row-major by
// grid y then grid x; Home holds the home team's control probability in
// [0,1] and the away probability is its complement at every cell.
type Grid struct {
	FrameID int       `json:"frame_id"`
	Width   int       `json:"width"`  // cells along the pitch length
	Height  int       `json:"height"` // cells along the pitch width
	Home    []float64 `json:"home"`   // len = Width*Height
	// Degenerate marks frames with no players, where every cell is
	// undefined and zero-filled rather than crashing the frame.
	Degenerate bool `json:"degenerate,omitempty"`
	// Computed is false for frames skipped by cancellation; such grids
	// are retained as explicit gaps in a partial result.
	Computed bool `json:"computed"`
}

// Idx returns the flat index of cell (ix, iy).
func (g *Grid) Idx(ix, iy int) int { return iy*g.Width + ix }

// HomeAt returns home control at cell (ix, iy).
func (g *Grid) HomeAt(ix, iy int) float64 { return g.Home[g.Idx(ix, iy)] }

// AwayAt returns away control at cell (ix, iy).
func (g *Grid) AwayAt(ix, iy int) float64 { return 1 - g.Home[g.Idx(ix, iy)] }

// HomeShare returns the mean home control across all cells, the team's
// territory share for the frame. Degenerate grids report 0.5.
func (g *Grid) HomeShare() float64 {
	if g.Degenerate || len(g.Home) == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range g.Home {
		sum += v
	}
	return sum / float64(len(g.Home))
}

// AverageGrids element-wise averages the computed, non-degenerate grids.
// Returns nil when no grid qualifies.
func AverageGrids(grids []Grid) *Grid {
	var acc *Grid
	var n int
	for _, g := range grids {
		if !g.Computed || g.Degenerate {
			continue
		}
		if acc == nil {
			acc = &Grid{
				Width:    g.Width,
				Height:   g.Height,
				Home:     make([]float64, len(g.Home)),
				Computed: true,
			}
		}
		for i, v := range g.Home {
			acc.Home[i] += v
		}
		n++
	}
	if acc == nil {
		return nil
	}
	for i := range acc.Home {
		acc.Home[i] /= float64(n)
	}
	return acc
}
