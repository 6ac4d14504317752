// Package track holds the raw detection model produced by the upstream
// vision tracker and the cleaning stage that turns noisy per-frame tracks
// into stable trajectories.
package track

import (
	"sort"

	"github.com/pitchwise-data/tacticore/internal/geo"
)

// ObjectClass identifies what kind of entity a track follows.
type ObjectClass string

const (
	ClassPlayer  ObjectClass = "player"
	ClassBall    ObjectClass = "ball"
	ClassReferee ObjectClass = "referee"
)

// TeamID is the best-effort team assignment from the vision stage.
// Empty for the ball, the referee, or when the classifier could not decide.
type TeamID string

const (
	TeamHome TeamID = "home"
	TeamAway TeamID = "away"
	TeamNone TeamID = ""
)

// Opponent returns the opposing team, or TeamNone for non-team ids.
func (t TeamID) Opponent() TeamID {
	switch t {
	case TeamHome:
		return TeamAway
	case TeamAway:
		return TeamHome
	default:
		return TeamNone
	}
}

// RawDetection is one observation of one track in one video frame, already
// mapped into pitch-metric coordinates by the upstream homography.
// Immutable once received.
type RawDetection struct {
	FrameID    int         `json:"frame_id"`
	Timestamp  float64     `json:"timestamp"` // seconds from kickoff
	TrackID    int64       `json:"track_id"`
	X          float64     `json:"x"` // meters, 0..105
	Y          float64     `json:"y"` // meters, 0..68
	Class      ObjectClass `json:"class"`
	Team       TeamID      `json:"team,omitempty"`
	Confidence float64     `json:"confidence"`
	// Interpolated marks detections synthesized to fill a merge gap.
	Interpolated bool `json:"interpolated,omitempty"`
}

// Pos returns the detection position as a geo.Point.
func (d RawDetection) Pos() geo.Point {
	return geo.Point{X: d.X, Y: d.Y}
}

// Trajectory is the ordered observation sequence of a single track id.
type Trajectory struct {
	TrackID int64
	Class   ObjectClass
	Team    TeamID
	Points  []RawDetection // ordered by FrameID
}

// FirstFrame returns the first observed frame id.
func (tr *Trajectory) FirstFrame() int { return tr.Points[0].FrameID }

// LastFrame returns the last observed frame id.
func (tr *Trajectory) LastFrame() int { return tr.Points[len(tr.Points)-1].FrameID }

// SpanFrames returns the number of frames the track is active over,
// inclusive of both endpoints.
func (tr *Trajectory) SpanFrames() int {
	return tr.LastFrame() - tr.FirstFrame() + 1
}

// CleanedTrajectory is a Trajectory after ghost removal and fragment
// merging. Its TrackID is a stable proxy for one physical entity for its
// entire active lifetime.
type CleanedTrajectory struct {
	Trajectory
	// MergedFrom lists the retired track ids folded into this one.
	MergedFrom []int64
}

// GroupDetections buckets detections by track id and returns trajectories
// sorted by first frame, each with points ordered by frame id. Class and
// team are taken from the first observation of the track.
func GroupDetections(detections []RawDetection) []*Trajectory {
	byTrack := make(map[int64][]RawDetection)
	for _, d := range detections {
		byTrack[d.TrackID] = append(byTrack[d.TrackID], d)
	}

	tracks := make([]*Trajectory, 0, len(byTrack))
	for id, points := range byTrack {
		sort.Slice(points, func(i, j int) bool { return points[i].FrameID < points[j].FrameID })
		tracks = append(tracks, &Trajectory{
			TrackID: id,
			Class:   points[0].Class,
			Team:    points[0].Team,
			Points:  points,
		})
	}
	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].FirstFrame() != tracks[j].FirstFrame() {
			return tracks[i].FirstFrame() < tracks[j].FirstFrame()
		}
		return tracks[i].TrackID < tracks[j].TrackID
	})
	return tracks
}
