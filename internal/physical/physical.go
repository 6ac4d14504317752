// Package physical derives per-player running load metrics (distance,
// speed, sprints) from smoothed trajectories. Aggregation is monotone:
// values only accumulate as frames are consumed, so per-player work
// parallelizes freely.
package physical

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/smooth"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// Stats holds one player's physical output for the match. Speeds are m/s
// and distance is meters; unit conversion belongs to the report layer.
type Stats struct {
	TrackID       int64        `json:"track_id"`
	Team          track.TeamID `json:"team"`
	TotalDistance float64      `json:"total_distance_m"`
	MaxSpeed      float64      `json:"max_speed_mps"`
	AvgSpeed      float64      `json:"avg_speed_mps"`
	SprintCount   int          `json:"sprint_count"`
	ClampedFrames int          `json:"clamped_frames"`
	Frames        int          `json:"frames"`
}

// Config holds sprint detection parameters.
type Config struct {
	SprintSpeedMps  float64 // threshold for sprinting, ~7 m/s
	SprintMinFrames int     // minimum run length to count as a sprint
	SprintMergeGap  int     // runs this close are one sprint, not two
}

// DefaultConfig returns default physical aggregation parameters.
func DefaultConfig() Config {
	return Config{
		SprintSpeedMps:  7.0,
		SprintMinFrames: 25, // 1s at 25fps
		SprintMergeGap:  5,
	}
}

// Aggregator computes Stats from smoothed trajectories.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// AggregateAll computes stats for every player trajectory, in parallel
// across players. Ball and referee tracks are skipped. Output is ordered
// by track id for deterministic results.
func (a *Aggregator) AggregateAll(ctx context.Context, trajectories []*smooth.SmoothedTrajectory, workers int) ([]Stats, error) {
	if workers < 1 {
		workers = 1
	}
	players := make([]*smooth.SmoothedTrajectory, 0, len(trajectories))
	for _, st := range trajectories {
		if st.Class == track.ClassPlayer {
			players = append(players, st)
		}
	}

	out := make([]Stats, len(players))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, st := range players {
		i, st := i, st
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = a.Aggregate(st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out, nil
}

// Aggregate computes one player's stats. Distance uses post-smoothing,
// post-clamp positions, so a flagged single-frame glitch cannot inflate
// the totals.
func (a *Aggregator) Aggregate(st *smooth.SmoothedTrajectory) Stats {
	s := Stats{
		TrackID:       st.TrackID,
		Team:          st.Team,
		ClampedFrames: st.ClampedFrames,
		Frames:        len(st.Samples),
	}
	if len(st.Samples) == 0 {
		return s
	}

	speeds := make([]float64, len(st.Samples))
	for i, smp := range st.Samples {
		speeds[i] = smp.Speed
		if smp.Speed > s.MaxSpeed {
			s.MaxSpeed = smp.Speed
		}
		if i > 0 {
			prev := st.Samples[i-1]
			step := geo.Dist(geo.Point{X: prev.X, Y: prev.Y}, geo.Point{X: smp.X, Y: smp.Y})
			dt := smp.Timestamp - prev.Timestamp
			if dt > 0 {
				// Cap the per-frame step at the clamped speed so a
				// residual position jump cannot bypass the clamp.
				if maxStep := smp.Speed * dt; step > maxStep {
					step = maxStep
				}
			}
			s.TotalDistance += step
		}
	}
	s.AvgSpeed = stat.Mean(speeds, nil)
	s.SprintCount = a.countSprints(speeds)
	return s
}

// countSprints counts maximal runs above the sprint threshold lasting at
// least SprintMinFrames. Runs separated by no more than SprintMergeGap
// frames are one effort with a momentary dip, not two sprints.
func (a *Aggregator) countSprints(speeds []float64) int {
	type run struct{ start, end int }
	var runs []run
	inRun := false
	var start int
	for i, v := range speeds {
		if v >= a.cfg.SprintSpeedMps {
			if !inRun {
				inRun = true
				start = i
			}
			continue
		}
		if inRun {
			runs = append(runs, run{start, i - 1})
			inRun = false
		}
	}
	if inRun {
		runs = append(runs, run{start, len(speeds) - 1})
	}

	// Merge adjacent runs within the gap tolerance before applying the
	// duration minimum.
	merged := runs[:0]
	for _, r := range runs {
		if n := len(merged); n > 0 && r.start-merged[n-1].end-1 <= a.cfg.SprintMergeGap {
			merged[n-1].end = r.end
			continue
		}
		merged = append(merged, r)
	}

	count := 0
	for _, r := range merged {
		if r.end-r.start+1 >= a.cfg.SprintMinFrames {
			count++
		}
	}
	return count
}
