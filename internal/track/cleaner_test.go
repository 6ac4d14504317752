package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTrack builds a synthetic straight-line track at 25fps.
func makeTrack(id int64, class ObjectClass, team TeamID, firstFrame, frames int, startX, startY, stepX, stepY float64) *Trajectory {
	points := make([]RawDetection, 0, frames)
	for i := 0; i < frames; i++ {
		points = append(points, RawDetection{
			FrameID:    firstFrame + i,
			Timestamp:  float64(firstFrame+i) / 25.0,
			TrackID:    id,
			X:          startX + float64(i)*stepX,
			Y:          startY + float64(i)*stepY,
			Class:      class,
			Team:       team,
			Confidence: 0.9,
		})
	}
	return &Trajectory{TrackID: id, Class: class, Team: team, Points: points}
}

func TestGhostRemoval(t *testing.T) {
	t.Parallel()

	cfg := DefaultCleanerConfig()
	cleaner := NewCleaner(cfg)

	ghost := makeTrack(7, ClassPlayer, TeamHome, 100, 5, 50, 30, 0.1, 0)
	real := makeTrack(8, ClassPlayer, TeamHome, 100, 200, 20, 20, 0.1, 0)

	cleaned, audit := cleaner.Clean([]*Trajectory{ghost, real})

	require.Len(t, cleaned, 1)
	assert.Equal(t, int64(8), cleaned[0].TrackID)

	// No trace of the ghost id in the output.
	for _, ct := range cleaned {
		for _, p := range ct.Points {
			assert.NotEqual(t, int64(7), p.TrackID)
		}
	}

	require.Len(t, audit, 1)
	assert.Equal(t, AuditGhostRemoved, audit[0].Kind)
	assert.Equal(t, int64(7), audit[0].TrackID)
}

func TestFragmentMerge(t *testing.T) {
	t.Parallel()

	cleaner := NewCleaner(DefaultCleanerConfig())

	// Track 2 begins 4 frames after track 1 ends, 0.5m away.
	a := makeTrack(1, ClassPlayer, TeamHome, 0, 50, 10, 10, 0.1, 0)
	b := makeTrack(2, ClassPlayer, TeamHome, 53, 50, 15.4, 10, 0.1, 0)

	cleaned, audit := cleaner.Clean([]*Trajectory{a, b})

	require.Len(t, cleaned, 1)
	ct := cleaned[0]
	assert.Equal(t, int64(1), ct.TrackID)
	assert.Equal(t, []int64{2}, ct.MergedFrom)

	// Gap frames 50..52 are filled by interpolation under the surviving id.
	require.Len(t, ct.Points, 103)
	var interpolated int
	for _, p := range ct.Points {
		assert.Equal(t, int64(1), p.TrackID)
		if p.Interpolated {
			interpolated++
		}
	}
	assert.Equal(t, 3, interpolated)

	// Interpolated positions lie between the endpoints.
	gapPoint := ct.Points[50]
	assert.True(t, gapPoint.Interpolated)
	assert.Greater(t, gapPoint.X, a.Points[len(a.Points)-1].X)
	assert.Less(t, gapPoint.X, b.Points[0].X)

	require.Len(t, audit, 1)
	assert.Equal(t, AuditMerged, audit[0].Kind)
}

func TestMergeChain(t *testing.T) {
	t.Parallel()

	cleaner := NewCleaner(DefaultCleanerConfig())

	a := makeTrack(1, ClassPlayer, TeamAway, 0, 40, 30, 30, 0.05, 0)
	b := makeTrack(2, ClassPlayer, TeamAway, 45, 40, 32.2, 30, 0.05, 0)
	c := makeTrack(3, ClassPlayer, TeamAway, 90, 40, 34.4, 30, 0.05, 0)

	cleaned, _ := cleaner.Clean([]*Trajectory{a, b, c})

	require.Len(t, cleaned, 1)
	assert.Equal(t, []int64{2, 3}, cleaned[0].MergedFrom)
	assert.Equal(t, 0, cleaned[0].FirstFrame())
	assert.Equal(t, 129, cleaned[0].LastFrame())
}

func TestMergeRejectedOnTeamReassignment(t *testing.T) {
	t.Parallel()

	cleaner := NewCleaner(DefaultCleanerConfig())

	a := makeTrack(1, ClassPlayer, TeamHome, 0, 50, 10, 10, 0.1, 0)
	b := makeTrack(2, ClassPlayer, TeamAway, 53, 50, 15.2, 10, 0.1, 0)

	cleaned, audit := cleaner.Clean([]*Trajectory{a, b})

	// Both tracks survive separately; the rejection is recorded, not
	// silently resolved.
	require.Len(t, cleaned, 2)

	var rejected []AuditEntry
	for _, e := range audit {
		if e.Kind == AuditMergeRejected {
			rejected = append(rejected, e)
		}
	}
	require.Len(t, rejected, 1)
	assert.Equal(t, string(RejectTeamMismatch), rejected[0].Detail)
	assert.True(t, rejected[0].Anomalous())
}

func TestMergeRejectedOnOverlap(t *testing.T) {
	t.Parallel()

	// Concurrent tracks at the same position must never merge: one player
	// cannot be two track ids at once.
	a := makeTrack(1, ClassPlayer, TeamHome, 0, 50, 10, 10, 0, 0)
	b := makeTrack(2, ClassPlayer, TeamHome, 25, 50, 10.1, 10, 0, 0)

	d := EvaluateMerge(a, b, DefaultCleanerConfig())
	assert.False(t, d.Merge)
	assert.Equal(t, RejectFrameOverlap, d.Reason)
}

func TestEvaluateMergeRejections(t *testing.T) {
	t.Parallel()

	cfg := DefaultCleanerConfig()
	base := makeTrack(1, ClassPlayer, TeamHome, 0, 50, 10, 10, 0, 0)

	t.Run("gap too large", func(t *testing.T) {
		t.Parallel()
		far := makeTrack(2, ClassPlayer, TeamHome, 100, 50, 10, 10, 0, 0)
		d := EvaluateMerge(base, far, cfg)
		assert.Equal(t, RejectFrameGap, d.Reason)
	})

	t.Run("distance too large", func(t *testing.T) {
		t.Parallel()
		teleport := makeTrack(2, ClassPlayer, TeamHome, 53, 50, 40, 40, 0, 0)
		d := EvaluateMerge(base, teleport, cfg)
		assert.Equal(t, RejectDistance, d.Reason)
	})

	t.Run("class mismatch", func(t *testing.T) {
		t.Parallel()
		ball := makeTrack(2, ClassBall, TeamNone, 53, 50, 10.2, 10, 0, 0)
		d := EvaluateMerge(base, ball, cfg)
		assert.Equal(t, RejectClassMismatch, d.Reason)
	})
}

func TestAmbiguousCandidatesRecorded(t *testing.T) {
	t.Parallel()

	cleaner := NewCleaner(DefaultCleanerConfig())

	a := makeTrack(1, ClassPlayer, TeamHome, 0, 50, 10, 10, 0, 0)
	near := makeTrack(2, ClassPlayer, TeamHome, 53, 50, 10.2, 10, 0, 0)
	alsoNear := makeTrack(3, ClassPlayer, TeamHome, 54, 50, 10.5, 10, 0, 0)

	cleaned, audit := cleaner.Clean([]*Trajectory{a, near, alsoNear})

	var ambiguous bool
	for _, e := range audit {
		if e.Kind == AuditAmbiguous {
			ambiguous = true
		}
	}
	assert.True(t, ambiguous, "ambiguity between candidates should be audited")
	// The nearest candidate wins the first merge.
	require.NotEmpty(t, cleaned)
	assert.Equal(t, int64(2), cleaned[0].MergedFrom[0])
}

func TestGroupDetections(t *testing.T) {
	t.Parallel()

	detections := []RawDetection{
		{FrameID: 2, TrackID: 1, Class: ClassPlayer, Team: TeamHome, X: 1},
		{FrameID: 0, TrackID: 1, Class: ClassPlayer, Team: TeamHome, X: 0},
		{FrameID: 1, TrackID: 1, Class: ClassPlayer, Team: TeamHome, X: 0.5},
		{FrameID: 5, TrackID: 9, Class: ClassBall, X: 50},
	}

	tracks := GroupDetections(detections)
	require.Len(t, tracks, 2)
	assert.Equal(t, int64(1), tracks[0].TrackID)
	assert.Equal(t, 0, tracks[0].FirstFrame())
	assert.Equal(t, 2, tracks[0].LastFrame())
	assert.Equal(t, ClassBall, tracks[1].Class)
}
