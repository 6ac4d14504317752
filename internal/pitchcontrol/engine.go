package pitchcontrol

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/pitchwise-data/tacticore/internal/events"
	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// Config holds the motion model and grid parameters.
type Config struct {
	GridWidth   int     // cells along pitch length
	GridHeight  int     // cells along pitch width
	PitchLength float64 // meters
	PitchWidth  float64 // meters

	ReactionTimeS  float64 // time before a player's run begins
	InterceptSpeed float64 // sustained intercept speed, m/s
	MaxAccel       float64 // bounded acceleration, m/s²
	ControlTau     float64 // logistic scale on time advantage, seconds
}

// DefaultConfig returns default pitch control parameters.
func DefaultConfig() Config {
	return Config{
		GridWidth:      32,
		GridHeight:     24,
		PitchLength:    geo.PitchLength,
		PitchWidth:     geo.PitchWidth,
		ReactionTimeS:  0.7,
		InterceptSpeed: 5.0,
		MaxAccel:       3.0,
		ControlTau:     0.45,
	}
}

// Engine computes control grids. The cell coordinate vectors are built
// once; per-frame work reuses caller-owned scratch to avoid allocation
// churn across the ~135k frames of a full match.
type Engine struct {
	cfg   Config
	cellX []float64 // flat cell centers, len GridWidth*GridHeight
	cellY []float64
	// fixed time cost of accelerating up to intercept speed
	accelPenalty float64
}

// NewEngine precomputes the cell-center coordinate vectors.
func NewEngine(cfg Config) *Engine {
	n := cfg.GridWidth * cfg.GridHeight
	e := &Engine{
		cfg:   cfg,
		cellX: make([]float64, n),
		cellY: make([]float64, n),
	}
	if cfg.MaxAccel > 0 {
		e.accelPenalty = cfg.InterceptSpeed / (2 * cfg.MaxAccel)
	}
	dx := cfg.PitchLength / float64(cfg.GridWidth)
	dy := cfg.PitchWidth / float64(cfg.GridHeight)
	for iy := 0; iy < cfg.GridHeight; iy++ {
		for ix := 0; ix < cfg.GridWidth; ix++ {
			i := iy*cfg.GridWidth + ix
			e.cellX[i] = (float64(ix) + 0.5) * dx
			e.cellY[i] = (float64(iy) + 0.5) * dy
		}
	}
	return e
}

// scratch holds per-worker buffers sized to the grid.
type scratch struct {
	tHome []float64
	tAway []float64
	dx    []float64
	dy    []float64
}

func (e *Engine) newScratch() *scratch {
	n := len(e.cellX)
	return &scratch{
		tHome: make([]float64, n),
		tAway: make([]float64, n),
		dx:    make([]float64, n),
		dy:    make([]float64, n),
	}
}

// ComputeFrame computes one frame's grid. Allocates its own scratch; use
// ComputeSeries for full-match throughput.
func (e *Engine) ComputeFrame(fr events.FrameSnapshot) Grid {
	return e.computeInto(fr, e.newScratch())
}

// computeInto evaluates the control field for one frame using the given
// scratch buffers. The whole-grid slice operations are the vectorized
// formulation: one pass per player over the flat cell vectors, then a
// single logistic pass over the per-team minima.
func (e *Engine) computeInto(fr events.FrameSnapshot, s *scratch) Grid {
	g := Grid{
		FrameID:  fr.FrameID,
		Width:    e.cfg.GridWidth,
		Height:   e.cfg.GridHeight,
		Home:     make([]float64, len(e.cellX)),
		Computed: true,
	}

	fillConst(s.tHome, math.Inf(1))
	fillConst(s.tAway, math.Inf(1))

	var homeSeen, awaySeen bool
	for _, p := range fr.Players {
		var dst []float64
		switch p.Team {
		case track.TeamHome:
			dst = s.tHome
			homeSeen = true
		case track.TeamAway:
			dst = s.tAway
			awaySeen = true
		default:
			continue // referees and unassigned tracks control nothing
		}
		e.minTimeToReach(p, dst, s)
	}

	if !homeSeen && !awaySeen {
		// Degenerate frame: nobody on the pitch. Zero grid, flagged.
		g.Degenerate = true
		return g
	}

	for i := range g.Home {
		g.Home[i] = e.control(s.tHome[i], s.tAway[i])
	}
	return g
}

// minTimeToReach folds player p's time-to-reach into the team's running
// per-cell minimum. The motion model advances the player by their current
// velocity over the reaction time, then charges a fixed acceleration
// penalty plus straight-line travel at intercept speed.
func (e *Engine) minTimeToReach(p events.Entity, teamMin []float64, s *scratch) {
	ox := p.Pos.X + p.Vel.X*e.cfg.ReactionTimeS
	oy := p.Pos.Y + p.Vel.Y*e.cfg.ReactionTimeS

	copy(s.dx, e.cellX)
	floats.AddConst(-ox, s.dx)
	floats.Mul(s.dx, s.dx)
	copy(s.dy, e.cellY)
	floats.AddConst(-oy, s.dy)
	floats.Mul(s.dy, s.dy)
	floats.Add(s.dx, s.dy) // dx now holds squared distances

	base := e.cfg.ReactionTimeS + e.accelPenalty
	inv := 1.0 / e.cfg.InterceptSpeed
	for i, d2 := range s.dx {
		t := base + math.Sqrt(d2)*inv
		if t < teamMin[i] {
			teamMin[i] = t
		}
	}
}

// control converts the two teams' best arrival times into home control
// probability via a logistic curve over the time advantage. The two
// probabilities sum to 1 by construction.
func (e *Engine) control(tHome, tAway float64) float64 {
	if math.IsInf(tHome, 1) && math.IsInf(tAway, 1) {
		return 0.5
	}
	if math.IsInf(tHome, 1) {
		return 0
	}
	if math.IsInf(tAway, 1) {
		return 1
	}
	return 1.0 / (1.0 + math.Exp(-(tAway-tHome)/e.cfg.ControlTau))
}

// ComputeSeries computes grids for all frames, fanning out across workers.
// Frames are addressed by index into the preallocated grid arena, so
// workers never contend on shared state. On cancellation the grids
// already computed are retained; the rest stay marked Computed=false and
// the context error is returned so the caller can flag the result partial.
func (e *Engine) ComputeSeries(ctx context.Context, frames []events.FrameSnapshot, workers int) ([]Grid, error) {
	grids := make([]Grid, len(frames))
	if workers < 1 {
		workers = 1
	}

	var next atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			s := e.newScratch()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(frames) {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				grids[i] = e.computeInto(frames[i], s)
			}
		})
	}
	err := g.Wait()
	return grids, err
}

func fillConst(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
