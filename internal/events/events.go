// Package events infers semantic match events (possession, passes,
// turnovers, pressure) from smoothed tracking data. Detection is a single
// sequential pass over the match timeline: state at frame N depends on
// frame N-1, so this stage never parallelizes across frames.
package events

import (
	"fmt"
	"sort"

	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// Type identifies an inferred event. The set is closed: every consumer
// switch over Type should enumerate all five values.
type Type string

const (
	TypePossession   Type = "POSSESSION"
	TypePassAttempt  Type = "PASS_ATTEMPT"
	TypePassComplete Type = "PASS_COMPLETE"
	TypeTurnover     Type = "TURNOVER"
	TypePressure     Type = "PRESSURE"
)

// Valid reports whether t is one of the closed event types.
func (t Type) Valid() bool {
	switch t {
	case TypePossession, TypePassAttempt, TypePassComplete, TypeTurnover, TypePressure:
		return true
	}
	return false
}

// Event is one inferred match event. Immutable once emitted.
type Event struct {
	Type       Type         `json:"type"`
	FrameStart int          `json:"frame_start"`
	FrameEnd   int          `json:"frame_end"`
	Actors     []int64      `json:"actors"` // ordered: [holder], [passer, receiver], [loser, winner], [presser, carrier]
	Team       track.TeamID `json:"team"`
	X          float64      `json:"x"` // release position for passes
	Y          float64      `json:"y"`
	// ReceptionX/Y are set for PASS_COMPLETE and TURNOVER only.
	ReceptionX float64 `json:"reception_x,omitempty"`
	ReceptionY float64 `json:"reception_y,omitempty"`
}

// Entity is one tracked object's state at a single frame.
type Entity struct {
	TrackID int64
	Team    track.TeamID
	Pos     geo.Point
	Vel     geo.Vec
	Speed   float64
}

// FrameSnapshot is the full pitch state at one frame: every player plus
// the ball. Ball is nil when the ball track is missing for the frame.
type FrameSnapshot struct {
	FrameID   int
	Timestamp float64
	Ball      *Entity
	Players   []Entity
}

// DetectorConfig holds event detection thresholds. All values are tuning
// parameters, not policy; see config.TuningConfig.
type DetectorConfig struct {
	BallProximityM      float64 // on-ball radius
	PossessionMinFrames int     // hysteresis: consecutive frames inside radius
	PressureRadiusM     float64 // distance to carrier for pressure
	PressureClosingMps  float64 // min closing speed for pressure
	PassMinDistanceM    float64 // below this a transfer is a dribble/duel
	PassMinBallSpeedMps float64 // ball must travel at least this fast in flight
}

// DefaultDetectorConfig returns default detection thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		BallProximityM:      1.5,
		PossessionMinFrames: 3,
		PressureRadiusM:     2.0,
		PressureClosingMps:  3.0,
		PassMinDistanceM:    3.0,
		PassMinBallSpeedMps: 4.0,
	}
}

// possessionState is the machine's current possession, if any.
type possessionState struct {
	active     bool
	playerID   int64
	team       track.TeamID
	startFrame int
	lastFrame  int
	pos        geo.Point // holder position at the most recent on-ball frame
}

// release records the end of a possession while the ball is loose, so the
// next acquisition can be classified as pass, dribble or turnover.
type release struct {
	pending      bool
	playerID     int64
	team         track.TeamID
	frame        int
	pos          geo.Point
	maxBallSpeed float64 // max ball speed observed while loose
}

// candidate tracks the hysteresis counter for possession acquisition.
type candidate struct {
	playerID int64
	frames   int
}

// pressureRun is an open pressure interval for one defender.
type pressureRun struct {
	startFrame int
	lastFrame  int
	carrierID  int64
	team       track.TeamID
	pos        geo.Point
}

// Detector is the possession/pass/pressure state machine.
type Detector struct {
	cfg DetectorConfig
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs the state machine over the frame sequence and returns the
// ordered event list. Frames must be in ascending frame order. When the
// ball is missing for a frame, the machine holds its previous state rather
// than guessing a transition from incomplete data.
func (d *Detector) Detect(frames []FrameSnapshot) ([]Event, error) {
	for i := 1; i < len(frames); i++ {
		if frames[i].FrameID <= frames[i-1].FrameID {
			return nil, fmt.Errorf("frames out of order at index %d: %d after %d", i, frames[i].FrameID, frames[i-1].FrameID)
		}
	}

	var events []Event
	var poss possessionState
	var rel release
	var cand candidate
	pressure := make(map[int64]*pressureRun)

	for _, fr := range frames {
		if fr.Ball == nil {
			// Hold state; no transitions on incomplete data.
			continue
		}
		ball := *fr.Ball
		if rel.pending && ball.Speed > rel.maxBallSpeed {
			rel.maxBallSpeed = ball.Speed
		}

		holder, holderDist := nearestPlayer(fr.Players, ball.Pos)

		if poss.active {
			if holder != nil && holder.TrackID == poss.playerID && holderDist <= d.cfg.BallProximityM {
				// Possession continues.
				poss.lastFrame = fr.FrameID
				poss.pos = holder.Pos
				cand = candidate{}
			} else {
				// Ball left the holder: close the possession and go loose.
				events = append(events, closedPossession(poss))
				rel = release{
					pending:  true,
					playerID: poss.playerID,
					team:     poss.team,
					frame:    poss.lastFrame,
					pos:      poss.pos,
				}
				poss = possessionState{}
			}
		}

		if !poss.active && holder != nil && holderDist <= d.cfg.BallProximityM {
			if cand.playerID == holder.TrackID {
				cand.frames++
			} else {
				cand = candidate{playerID: holder.TrackID, frames: 1}
			}
			if cand.frames >= d.cfg.PossessionMinFrames {
				// Acquisition confirmed. Classify the transfer before
				// opening the new possession.
				if rel.pending && rel.playerID != holder.TrackID {
					events = append(events, d.classifyTransfer(rel, *holder, fr.FrameID)...)
				}
				startFrame := fr.FrameID - (cand.frames - 1)
				poss = possessionState{
					active:     true,
					playerID:   holder.TrackID,
					team:       holder.Team,
					startFrame: startFrame,
					lastFrame:  fr.FrameID,
					pos:        holder.Pos,
				}
				rel = release{}
				cand = candidate{}
			}
		} else if !poss.active {
			cand = candidate{}
		}

		// Pressure detection runs independently of possession transitions.
		if poss.active {
			events = append(events, d.updatePressure(pressure, fr, poss)...)
		} else if len(pressure) > 0 {
			events = append(events, flushPressure(pressure)...)
		}
	}

	// Close whatever is still open at the end of the match.
	if poss.active {
		events = append(events, closedPossession(poss))
	}
	events = append(events, flushPressure(pressure)...)

	sortEvents(events)
	return events, nil
}

// classifyTransfer decides whether a confirmed acquisition by next after a
// release by rel is a pass, a turnover, or an unclassified scramble.
func (d *Detector) classifyTransfer(rel release, next Entity, frame int) []Event {
	if next.Team != rel.team {
		return []Event{{
			Type:       TypeTurnover,
			FrameStart: rel.frame,
			FrameEnd:   frame,
			Actors:     []int64{rel.playerID, next.TrackID},
			Team:       next.Team, // the team that won the ball
			X:          rel.pos.X,
			Y:          rel.pos.Y,
			ReceptionX: next.Pos.X,
			ReceptionY: next.Pos.Y,
		}}
	}

	dist := geo.Dist(rel.pos, next.Pos)
	if dist < d.cfg.PassMinDistanceM || rel.maxBallSpeed < d.cfg.PassMinBallSpeedMps {
		// Short shuffle or slow roll between teammates: a dribble
		// exchange, not a pass.
		return nil
	}

	attempt := Event{
		Type:       TypePassAttempt,
		FrameStart: rel.frame,
		FrameEnd:   rel.frame,
		Actors:     []int64{rel.playerID, next.TrackID},
		Team:       rel.team,
		X:          rel.pos.X,
		Y:          rel.pos.Y,
	}
	complete := Event{
		Type:       TypePassComplete,
		FrameStart: rel.frame,
		FrameEnd:   frame,
		Actors:     []int64{rel.playerID, next.TrackID},
		Team:       rel.team,
		X:          rel.pos.X,
		Y:          rel.pos.Y,
		ReceptionX: next.Pos.X,
		ReceptionY: next.Pos.Y,
	}
	return []Event{attempt, complete}
}

// updatePressure opens, extends and closes pressure runs against the
// current carrier. A defender must be inside the pressure radius while
// closing distance above the threshold.
func (d *Detector) updatePressure(open map[int64]*pressureRun, fr FrameSnapshot, poss possessionState) []Event {
	var closed []Event
	var carrier *Entity
	for i := range fr.Players {
		if fr.Players[i].TrackID == poss.playerID {
			carrier = &fr.Players[i]
			break
		}
	}
	if carrier == nil {
		return flushPressure(open)
	}

	pressing := make(map[int64]bool)
	for _, p := range fr.Players {
		if p.Team == poss.team || p.Team == track.TeamNone {
			continue
		}
		dist := geo.Dist(p.Pos, carrier.Pos)
		closing := geo.ClosingSpeed(p.Pos, carrier.Pos, p.Vel, carrier.Vel)
		if dist > d.cfg.PressureRadiusM || closing < d.cfg.PressureClosingMps {
			continue
		}
		pressing[p.TrackID] = true
		if run, ok := open[p.TrackID]; ok {
			run.lastFrame = fr.FrameID
			run.pos = p.Pos
		} else {
			open[p.TrackID] = &pressureRun{
				startFrame: fr.FrameID,
				lastFrame:  fr.FrameID,
				carrierID:  poss.playerID,
				team:       p.Team,
				pos:        p.Pos,
			}
		}
	}

	for id, run := range open {
		if !pressing[id] {
			closed = append(closed, pressureEvent(id, run))
			delete(open, id)
		}
	}
	return closed
}

func flushPressure(open map[int64]*pressureRun) []Event {
	var out []Event
	for id, run := range open {
		out = append(out, pressureEvent(id, run))
		delete(open, id)
	}
	return out
}

func pressureEvent(defenderID int64, run *pressureRun) Event {
	return Event{
		Type:       TypePressure,
		FrameStart: run.startFrame,
		FrameEnd:   run.lastFrame,
		Actors:     []int64{defenderID, run.carrierID},
		Team:       run.team,
		X:          run.pos.X,
		Y:          run.pos.Y,
	}
}

func closedPossession(poss possessionState) Event {
	return Event{
		Type:       TypePossession,
		FrameStart: poss.startFrame,
		FrameEnd:   poss.lastFrame,
		Actors:     []int64{poss.playerID},
		Team:       poss.team,
		X:          poss.pos.X,
		Y:          poss.pos.Y,
	}
}

// nearestPlayer returns the player closest to pos, or nil when the frame
// has no players.
func nearestPlayer(players []Entity, pos geo.Point) (*Entity, float64) {
	var best *Entity
	bestDist := 0.0
	for i := range players {
		d := geo.Dist(players[i].Pos, pos)
		if best == nil || d < bestDist {
			best = &players[i]
			bestDist = d
		}
	}
	return best, bestDist
}

// sortEvents orders events by start frame, then end frame, then type, so
// output is deterministic across runs regardless of map iteration order in
// pressure tracking.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return eventLess(events[i], events[j]) })
}

func eventLess(a, b Event) bool {
	if a.FrameStart != b.FrameStart {
		return a.FrameStart < b.FrameStart
	}
	if a.FrameEnd != b.FrameEnd {
		return a.FrameEnd < b.FrameEnd
	}
	return a.Type < b.Type
}
