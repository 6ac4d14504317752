package track

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/pitchwise-data/tacticore/internal/geo"
)

// CleanerConfig holds configuration parameters for track cleaning.
type CleanerConfig struct {
	MinTrackFrames    int     // Tracks spanning fewer frames are ghosts (~0.5s at 25fps)
	MergeMaxFrameGap  int     // Max frames between track end and candidate start
	MergeMaxDistanceM float64 // Max meters between track end and candidate start
}

// DefaultCleanerConfig returns default cleaning configuration.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		MinTrackFrames:    13, // ~0.5s at 25fps
		MergeMaxFrameGap:  10,
		MergeMaxDistanceM: 2.0,
	}
}

// AuditKind classifies an audit log entry.
type AuditKind string

const (
	AuditGhostRemoved  AuditKind = "ghost_removed"
	AuditMerged        AuditKind = "merged"
	AuditMergeRejected AuditKind = "merge_rejected"
	AuditAmbiguous     AuditKind = "ambiguous_candidates"
)

// AuditEntry records one cleaning decision for diagnostics. Rejected merges
// and ambiguous candidate sets surface as track-anomaly warnings on the
// match result; they are never silently resolved.
type AuditEntry struct {
	ID          uuid.UUID `json:"id"`
	Kind        AuditKind `json:"kind"`
	TrackID     int64     `json:"track_id"`
	IntoTrackID int64     `json:"into_track_id,omitempty"`
	FrameFirst  int       `json:"frame_first"`
	FrameLast   int       `json:"frame_last"`
	Detail      string    `json:"detail,omitempty"`
}

// Anomalous reports whether the entry should be surfaced as a warning.
func (e AuditEntry) Anomalous() bool {
	return e.Kind == AuditMergeRejected || e.Kind == AuditAmbiguous
}

// RejectReason explains why a candidate merge was not applied.
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectFrameOverlap  RejectReason = "frame_overlap"
	RejectFrameGap      RejectReason = "frame_gap_exceeded"
	RejectDistance      RejectReason = "distance_exceeded"
	RejectClassMismatch RejectReason = "class_mismatch"
	RejectTeamMismatch  RejectReason = "team_reassignment"
)

// MergeDecision is the outcome of evaluating one candidate merge.
// Either Merge is true, or Reason explains the rejection.
type MergeDecision struct {
	Merge       bool
	Reason      RejectReason
	GapFrames   int
	GapDistance float64
}

// EvaluateMerge decides whether candidate b can be appended to track a.
// Pure function over the two trajectories; it never mutates either.
// A merge implying a team reassignment is always rejected: repairing a
// fragment is not worth corrupting team attribution.
func EvaluateMerge(a, b *Trajectory, cfg CleanerConfig) MergeDecision {
	gap := b.FirstFrame() - a.LastFrame()
	dist := geo.Dist(a.Points[len(a.Points)-1].Pos(), b.Points[0].Pos())
	d := MergeDecision{GapFrames: gap, GapDistance: dist}

	switch {
	case gap <= 0:
		// Concurrent tracks are distinct entities; merging them would put
		// one entity in two places at the same frame.
		d.Reason = RejectFrameOverlap
	case gap > cfg.MergeMaxFrameGap:
		d.Reason = RejectFrameGap
	case dist > cfg.MergeMaxDistanceM:
		d.Reason = RejectDistance
	case a.Class != b.Class:
		d.Reason = RejectClassMismatch
	case a.Class == ClassPlayer && a.Team != b.Team:
		d.Reason = RejectTeamMismatch
	default:
		d.Merge = true
	}
	return d
}

// Cleaner removes ghost tracks and repairs fragmented tracks.
type Cleaner struct {
	cfg CleanerConfig
}

// NewCleaner creates a Cleaner with the given configuration.
func NewCleaner(cfg CleanerConfig) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// Clean runs ghost removal then fragment merging over the grouped tracks
// and returns the surviving trajectories plus the full audit log.
func (c *Cleaner) Clean(tracks []*Trajectory) ([]*CleanedTrajectory, []AuditEntry) {
	var audit []AuditEntry

	// Ghost removal: short-lived tracks are detector noise, not players
	// who briefly appeared.
	survivors := make([]*Trajectory, 0, len(tracks))
	for _, tr := range tracks {
		if tr.SpanFrames() < c.cfg.MinTrackFrames {
			audit = append(audit, AuditEntry{
				ID:         uuid.New(),
				Kind:       AuditGhostRemoved,
				TrackID:    tr.TrackID,
				FrameFirst: tr.FirstFrame(),
				FrameLast:  tr.LastFrame(),
				Detail:     fmt.Sprintf("span %d frames below minimum %d", tr.SpanFrames(), c.cfg.MinTrackFrames),
			})
			continue
		}
		survivors = append(survivors, tr)
	}

	cleaned, mergeAudit := c.mergeFragments(survivors)
	audit = append(audit, mergeAudit...)

	log.Printf("track cleaner: %d raw tracks, %d ghosts removed, %d cleaned trajectories",
		len(tracks), len(tracks)-len(survivors), len(cleaned))
	return cleaned, audit
}

// mergeFragments greedily extends each track with later fragments that pass
// EvaluateMerge. Tracks are processed in first-frame order so a repaired
// track can absorb a chain of fragments.
func (c *Cleaner) mergeFragments(tracks []*Trajectory) ([]*CleanedTrajectory, []AuditEntry) {
	var audit []AuditEntry
	consumed := make(map[int64]bool)
	out := make([]*CleanedTrajectory, 0, len(tracks))

	for _, base := range tracks {
		if consumed[base.TrackID] {
			continue
		}
		consumed[base.TrackID] = true

		ct := &CleanedTrajectory{Trajectory: Trajectory{
			TrackID: base.TrackID,
			Class:   base.Class,
			Team:    base.Team,
			Points:  append([]RawDetection(nil), base.Points...),
		}}

		for {
			candidates, rejections := c.collectCandidates(&ct.Trajectory, tracks, consumed)
			audit = append(audit, rejections...)
			if len(candidates) == 0 {
				break
			}
			if len(candidates) > 1 {
				// The choice is resolved by proximity, but the ambiguity
				// itself is worth surfacing to consumers.
				audit = append(audit, AuditEntry{
					ID:          uuid.New(),
					Kind:        AuditAmbiguous,
					TrackID:     candidates[1].track.TrackID,
					IntoTrackID: ct.TrackID,
					FrameFirst:  candidates[1].track.FirstFrame(),
					FrameLast:   candidates[1].track.LastFrame(),
					Detail:      fmt.Sprintf("%d candidates qualified for merge into track %d; nearest chosen", len(candidates), ct.TrackID),
				})
			}
			best := candidates[0]
			c.appendFragment(ct, best.track)
			consumed[best.track.TrackID] = true
			audit = append(audit, AuditEntry{
				ID:          uuid.New(),
				Kind:        AuditMerged,
				TrackID:     best.track.TrackID,
				IntoTrackID: ct.TrackID,
				FrameFirst:  best.track.FirstFrame(),
				FrameLast:   best.track.LastFrame(),
				Detail:      fmt.Sprintf("gap %d frames, %.2fm", best.decision.GapFrames, best.decision.GapDistance),
			})
		}

		out = append(out, ct)
	}
	return out, audit
}

type mergeCandidate struct {
	track    *Trajectory
	decision MergeDecision
}

// collectCandidates evaluates every unconsumed later fragment against the
// current track. Qualifying candidates come back sorted by gap distance;
// near-miss rejections (within gap but failing another check) come back as
// audit entries.
func (c *Cleaner) collectCandidates(base *Trajectory, tracks []*Trajectory, consumed map[int64]bool) ([]mergeCandidate, []AuditEntry) {
	var candidates []mergeCandidate
	var rejections []AuditEntry

	for _, other := range tracks {
		if consumed[other.TrackID] {
			continue
		}
		d := EvaluateMerge(base, other, c.cfg)
		if d.Merge {
			candidates = append(candidates, mergeCandidate{track: other, decision: d})
			continue
		}
		// Only class/team conflicts inside the merge window are anomalies;
		// distant fragments failing the gap checks are ordinary. The gap and
		// distance checks run first in EvaluateMerge, so these reasons imply
		// the candidate was otherwise mergeable.
		if d.Reason == RejectTeamMismatch || d.Reason == RejectClassMismatch {
			rejections = append(rejections, AuditEntry{
				ID:          uuid.New(),
				Kind:        AuditMergeRejected,
				TrackID:     other.TrackID,
				IntoTrackID: base.TrackID,
				FrameFirst:  other.FirstFrame(),
				FrameLast:   other.LastFrame(),
				Detail:      string(d.Reason),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].decision.GapDistance != candidates[j].decision.GapDistance {
			return candidates[i].decision.GapDistance < candidates[j].decision.GapDistance
		}
		return candidates[i].track.TrackID < candidates[j].track.TrackID
	})
	return candidates, rejections
}

// appendFragment fills the frame gap between ct's last point and the
// fragment's first point by linear interpolation, then appends the fragment
// under ct's track id.
func (c *Cleaner) appendFragment(ct *CleanedTrajectory, frag *Trajectory) {
	last := ct.Points[len(ct.Points)-1]
	first := frag.Points[0]
	gap := first.FrameID - last.FrameID

	for f := last.FrameID + 1; f < first.FrameID; f++ {
		t := float64(f-last.FrameID) / float64(gap)
		ct.Points = append(ct.Points, RawDetection{
			FrameID:      f,
			Timestamp:    last.Timestamp + t*(first.Timestamp-last.Timestamp),
			TrackID:      ct.TrackID,
			X:            last.X + t*(first.X-last.X),
			Y:            last.Y + t*(first.Y-last.Y),
			Class:        ct.Class,
			Team:         ct.Team,
			Confidence:   min(last.Confidence, first.Confidence),
			Interpolated: true,
		})
	}
	for _, p := range frag.Points {
		p.TrackID = ct.TrackID
		ct.Points = append(ct.Points, p)
	}
	ct.MergedFrom = append(ct.MergedFrom, frag.TrackID)
}
