package pipeline

import (
	"sort"

	"github.com/pitchwise-data/tacticore/internal/events"
	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/smooth"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// BuildFrames pivots per-track smoothed trajectories into per-frame
// snapshots ordered by frame id. Players within a frame are ordered by
// track id so downstream stages see a deterministic layout. Referee
// tracks are dropped: they carry no team and must not influence
// possession. When several ball tracks overlap on a frame the lowest
// track id wins.
func BuildFrames(trajectories []*smooth.SmoothedTrajectory) []events.FrameSnapshot {
	byFrame := make(map[int]*events.FrameSnapshot)

	for _, st := range trajectories {
		if st.Class == track.ClassReferee {
			continue
		}
		for _, smp := range st.Samples {
			fr, ok := byFrame[smp.FrameID]
			if !ok {
				fr = &events.FrameSnapshot{FrameID: smp.FrameID, Timestamp: smp.Timestamp}
				byFrame[smp.FrameID] = fr
			}
			ent := events.Entity{
				TrackID: st.TrackID,
				Team:    st.Team,
				Pos:     geo.Point{X: smp.X, Y: smp.Y},
				Vel:     geo.Vec{X: smp.VX, Y: smp.VY},
				Speed:   smp.Speed,
			}
			switch st.Class {
			case track.ClassBall:
				if fr.Ball == nil || st.TrackID < fr.Ball.TrackID {
					fr.Ball = &ent
				}
			case track.ClassPlayer:
				fr.Players = append(fr.Players, ent)
			}
		}
	}

	out := make([]events.FrameSnapshot, 0, len(byFrame))
	for _, fr := range byFrame {
		sort.Slice(fr.Players, func(i, j int) bool {
			return fr.Players[i].TrackID < fr.Players[j].TrackID
		})
		out = append(out, *fr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FrameID < out[j].FrameID })
	return out
}

// sampleFrames returns every step-th frame, always including the first.
// Pitch control fields change slowly relative to the capture rate, so
// computing them on a stride keeps the stage tractable on full matches.
func sampleFrames(frames []events.FrameSnapshot, step int) []events.FrameSnapshot {
	if step <= 1 {
		return frames
	}
	out := make([]events.FrameSnapshot, 0, len(frames)/step+1)
	for i := 0; i < len(frames); i += step {
		out = append(out, frames[i])
	}
	return out
}
