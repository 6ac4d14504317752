// Package tactical combines inferred events and control fields into
// windowed team metrics: pressing intensity (PPDA), territory and
// compactness. Pure aggregation over immutable inputs; windows are
// independent and can be computed in parallel.
package tactical

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pitchwise-data/tacticore/internal/events"
	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/pitchcontrol"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// Snapshot is one window's team metrics. PPDA is undefined (Valid=false)
// for a window in which the pressing team recorded no defensive actions
// in the pressing zone; consumers must not read the value in that case.
type Snapshot struct {
	WindowStart int `json:"window_start"` // first frame, inclusive
	WindowEnd   int `json:"window_end"`   // last frame, inclusive

	PPDAHome      float64 `json:"ppda_home"`
	PPDAHomeValid bool    `json:"ppda_home_valid"`
	PPDAAway      float64 `json:"ppda_away"`
	PPDAAwayValid bool    `json:"ppda_away_valid"`

	PassesHome int `json:"passes_home"`
	PassesAway int `json:"passes_away"`

	DefensiveActionsHome int `json:"defensive_actions_home"`
	DefensiveActionsAway int `json:"defensive_actions_away"`

	// Press counts by pitch third, from each team's attacking direction.
	PressesByZoneHome map[geo.Zone]int `json:"presses_by_zone_home"`
	PressesByZoneAway map[geo.Zone]int `json:"presses_by_zone_away"`

	// TerritoryHome is the mean home control share over the window's
	// computed grids; away territory is its complement.
	TerritoryHome  float64 `json:"territory_home"`
	TerritoryValid bool    `json:"territory_valid"`

	// Compactness is the RMS dispersion of a team's control mass around
	// its control centroid, in meters; lower is more compact.
	CompactnessHome  float64 `json:"compactness_home"`
	CompactnessAway  float64 `json:"compactness_away"`
	CompactnessValid bool    `json:"compactness_valid"`
}

// Config holds windowing and zone parameters.
type Config struct {
	WindowFrames int     // e.g. 7500 = 5 minutes at 25fps
	PitchLength  float64 // meters
	PitchWidth   float64 // meters
}

// DefaultConfig returns default tactical aggregation parameters.
func DefaultConfig() Config {
	return Config{
		WindowFrames: 7500,
		PitchLength:  geo.PitchLength,
		PitchWidth:   geo.PitchWidth,
	}
}

// Aggregator computes Snapshots.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// AggregateAll splits the frame range [0, lastFrame] into fixed windows
// and computes each window's snapshot in parallel.
func (a *Aggregator) AggregateAll(ctx context.Context, evs []events.Event, grids []pitchcontrol.Grid, lastFrame, workers int) ([]Snapshot, error) {
	if a.cfg.WindowFrames <= 0 || lastFrame < 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}
	nWindows := lastFrame/a.cfg.WindowFrames + 1
	out := make([]Snapshot, nWindows)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := 0; w < nWindows; w++ {
		w := w
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := w * a.cfg.WindowFrames
			end := start + a.cfg.WindowFrames - 1
			if end > lastFrame {
				end = lastFrame
			}
			out[w] = a.Aggregate(evs, grids, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Aggregate computes one window over frames [start, end], both inclusive.
// Events are attributed to the window containing their start frame.
func (a *Aggregator) Aggregate(evs []events.Event, grids []pitchcontrol.Grid, start, end int) Snapshot {
	s := Snapshot{
		WindowStart:       start,
		WindowEnd:         end,
		PressesByZoneHome: make(map[geo.Zone]int),
		PressesByZoneAway: make(map[geo.Zone]int),
	}

	var defInZoneHome, defInZoneAway int
	for _, e := range evs {
		if e.FrameStart < start || e.FrameStart > end {
			continue
		}
		switch e.Type {
		case events.TypePassComplete:
			switch e.Team {
			case track.TeamHome:
				s.PassesHome++
			case track.TeamAway:
				s.PassesAway++
			}
		case events.TypePressure, events.TypeTurnover:
			team := e.Team // the defending/winning team
			switch team {
			case track.TeamHome:
				s.DefensiveActionsHome++
				if a.inOwnDefensiveTwoThirds(e.X, track.TeamAway) {
					defInZoneHome++
				}
				if e.Type == events.TypePressure {
					s.PressesByZoneHome[a.zoneFor(e.X, track.TeamHome)]++
				}
			case track.TeamAway:
				s.DefensiveActionsAway++
				if a.inOwnDefensiveTwoThirds(e.X, track.TeamHome) {
					defInZoneAway++
				}
				if e.Type == events.TypePressure {
					s.PressesByZoneAway[a.zoneFor(e.X, track.TeamAway)]++
				}
			}
		case events.TypePossession, events.TypePassAttempt:
			// No windowed metric counts these directly.
		}
	}

	// PPDA for a pressing team: opponent completed passes released inside
	// the opponent's own defensive two-thirds, per pressing-team defensive
	// action in that same zone.
	passesInZoneAgainstHome := a.countPassesInZone(evs, start, end, track.TeamAway)
	passesInZoneAgainstAway := a.countPassesInZone(evs, start, end, track.TeamHome)
	if defInZoneHome > 0 {
		s.PPDAHome = float64(passesInZoneAgainstHome) / float64(defInZoneHome)
		s.PPDAHomeValid = true
	}
	if defInZoneAway > 0 {
		s.PPDAAway = float64(passesInZoneAgainstAway) / float64(defInZoneAway)
		s.PPDAAwayValid = true
	}

	a.aggregateControl(&s, grids, start, end)
	return s
}

// countPassesInZone counts completed passes by team released inside that
// team's own defensive two-thirds of the pitch.
func (a *Aggregator) countPassesInZone(evs []events.Event, start, end int, team track.TeamID) int {
	n := 0
	for _, e := range evs {
		if e.Type != events.TypePassComplete || e.Team != team {
			continue
		}
		if e.FrameStart < start || e.FrameStart > end {
			continue
		}
		if a.inOwnDefensiveTwoThirds(e.X, team) {
			n++
		}
	}
	return n
}

// inOwnDefensiveTwoThirds reports whether x lies in team's own defensive
// two-thirds. Home defends x=0 and attacks toward positive x; away the
// reverse.
func (a *Aggregator) inOwnDefensiveTwoThirds(x float64, team track.TeamID) bool {
	third := a.cfg.PitchLength / 3.0
	switch team {
	case track.TeamHome:
		return x < 2*third
	case track.TeamAway:
		return x > third
	default:
		return false
	}
}

// zoneFor maps x to a pitch third from team's attacking perspective.
func (a *Aggregator) zoneFor(x float64, team track.TeamID) geo.Zone {
	if team == track.TeamAway {
		x = a.cfg.PitchLength - x
	}
	return geo.ThirdOf(x, a.cfg.PitchLength)
}

// aggregateControl averages the window's control grids into territory and
// compactness. Windows whose grids are all missing or degenerate leave
// the control metrics invalid rather than fabricating neutral values.
func (a *Aggregator) aggregateControl(s *Snapshot, grids []pitchcontrol.Grid, start, end int) {
	var windowGrids []pitchcontrol.Grid
	for _, g := range grids {
		if g.FrameID >= start && g.FrameID <= end {
			windowGrids = append(windowGrids, g)
		}
	}
	avg := pitchcontrol.AverageGrids(windowGrids)
	if avg == nil {
		return
	}

	s.TerritoryHome = avg.HomeShare()
	s.TerritoryValid = true

	s.CompactnessHome = a.controlDispersion(avg, false)
	s.CompactnessAway = a.controlDispersion(avg, true)
	s.CompactnessValid = true
}

// controlDispersion computes the RMS distance of a team's control mass
// from its control centroid over the averaged grid.
func (a *Aggregator) controlDispersion(g *pitchcontrol.Grid, away bool) float64 {
	cw := a.cfg.PitchLength / float64(g.Width)
	ch := a.cfg.PitchWidth / float64(g.Height)

	var mass, cx, cy float64
	for iy := 0; iy < g.Height; iy++ {
		for ix := 0; ix < g.Width; ix++ {
			v := g.HomeAt(ix, iy)
			if away {
				v = 1 - v
			}
			x := (float64(ix) + 0.5) * cw
			y := (float64(iy) + 0.5) * ch
			mass += v
			cx += v * x
			cy += v * y
		}
	}
	if mass == 0 {
		return 0
	}
	cx /= mass
	cy /= mass

	var sumSq float64
	for iy := 0; iy < g.Height; iy++ {
		for ix := 0; ix < g.Width; ix++ {
			v := g.HomeAt(ix, iy)
			if away {
				v = 1 - v
			}
			x := (float64(ix)+0.5)*cw - cx
			y := (float64(iy)+0.5)*ch - cy
			sumSq += v * (x*x + y*y)
		}
	}
	return math.Sqrt(sumSq / mass)
}
