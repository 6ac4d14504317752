// Package pipeline orchestrates the analysis stages: track cleaning,
// trajectory smoothing, then event detection, pitch control and physical
// metrics over the smoothed output, and finally tactical aggregation.
// A run is deterministic for a given input and tuning config.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pitchwise-data/tacticore/internal/config"
	"github.com/pitchwise-data/tacticore/internal/events"
	"github.com/pitchwise-data/tacticore/internal/physical"
	"github.com/pitchwise-data/tacticore/internal/pitchcontrol"
	"github.com/pitchwise-data/tacticore/internal/smooth"
	"github.com/pitchwise-data/tacticore/internal/tactical"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// Result is the output of one analysis run. When Partial is true a stage
// was cut short; everything computed before the cut is retained and the
// missing pieces are absent rather than zeroed.
type Result struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"`
	Partial   bool      `json:"partial"`
	Warnings  []string  `json:"warnings,omitempty"`

	Frames       int                          `json:"frames"`
	Audit        []track.AuditEntry           `json:"audit,omitempty"`
	Trajectories []*smooth.SmoothedTrajectory `json:"-"`
	Events       []events.Event               `json:"events"`
	Grids        []pitchcontrol.Grid          `json:"-"`
	Physical     []physical.Stats             `json:"physical"`
	Tactical     []tactical.Snapshot          `json:"tactical"`
}

// Pipeline wires the analysis stages together under one tuning config.
type Pipeline struct {
	cfg      *config.TuningConfig
	cleaner  *track.Cleaner
	smoother *smooth.Engine
	detector *events.Detector
	control  *pitchcontrol.Engine
	physical *physical.Aggregator
	tactical *tactical.Aggregator
}

// New builds a Pipeline from a tuning config. nil means all defaults.
func New(cfg *config.TuningConfig) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	smoother, err := smooth.NewEngine(cfg.SmoothConfig())
	if err != nil {
		return nil, fmt.Errorf("building smoother: %w", err)
	}
	return &Pipeline{
		cfg:      cfg,
		cleaner:  track.NewCleaner(cfg.CleanerConfig()),
		smoother: smoother,
		detector: events.NewDetector(cfg.DetectorConfig()),
		control:  pitchcontrol.NewEngine(cfg.PitchControlConfig()),
		physical: physical.NewAggregator(cfg.PhysicalConfig()),
		tactical: tactical.NewAggregator(cfg.TacticalConfig()),
	}, nil
}

// Run executes the full analysis over a detection stream. On context
// cancellation mid-run it returns the partial Result alongside a
// StageTimeoutError; callers decide whether a partial run is worth
// keeping.
func (p *Pipeline) Run(ctx context.Context, detections []track.RawDetection) (*Result, error) {
	if len(detections) == 0 {
		return nil, ErrNoDetections
	}

	res := &Result{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	start := time.Now()
	log.Printf("[pipeline] run %s: %d detections", res.RunID, len(detections))

	// Stage 1: cleaning. Ghost removal and fragment merging are pure CPU
	// over grouped tracks; anomalies become warnings, not failures.
	raw := track.GroupDetections(detections)
	cleaned, audit := p.cleaner.Clean(raw)
	res.Audit = audit
	for _, a := range audit {
		if a.Anomalous() {
			res.Warnings = append(res.Warnings, (&TrackAnomalyError{TrackID: a.TrackID, Reason: string(a.Kind) + ": " + a.Detail}).Error())
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoUsableTracks
	}

	// Stage 2: smoothing.
	workers := p.cfg.GetWorkers()
	smoothed, err := p.smoother.SmoothAll(ctx, cleaned, workers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Partial = true
			return res, &StageTimeoutError{Stage: "smooth", Err: ctxErr}
		}
		return nil, &NumericalError{Stage: "smooth", Err: err}
	}
	res.Trajectories = smoothed

	frames := BuildFrames(smoothed)
	res.Frames = len(frames)
	if len(frames) == 0 {
		return nil, ErrNoUsableTracks
	}
	lastFrame := frames[len(frames)-1].FrameID

	// Stage 3a: event detection. The state machine walks frames in order,
	// so this stage stays sequential.
	evs, err := p.detector.Detect(frames)
	if err != nil {
		return nil, fmt.Errorf("event detection: %w", err)
	}
	res.Events = evs

	// Stage 3b: pitch control on a frame stride. Cancellation keeps the
	// grids already computed.
	ctrlFrames := sampleFrames(frames, p.cfg.GetControlFrameStep())
	grids, err := p.control.ComputeSeries(ctx, ctrlFrames, workers)
	res.Grids = grids
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Partial = true
			return res, &StageTimeoutError{Stage: "pitchcontrol", Err: err}
		}
		return nil, fmt.Errorf("pitch control: %w", err)
	}

	// Stage 3c: physical metrics.
	stats, err := p.physical.AggregateAll(ctx, smoothed, workers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Partial = true
			return res, &StageTimeoutError{Stage: "physical", Err: ctxErr}
		}
		return nil, fmt.Errorf("physical metrics: %w", err)
	}
	res.Physical = stats

	// Stage 4: tactical aggregation over events and control fields.
	snaps, err := p.tactical.AggregateAll(ctx, evs, grids, lastFrame, workers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Partial = true
			return res, &StageTimeoutError{Stage: "tactical", Err: ctxErr}
		}
		return nil, fmt.Errorf("tactical aggregation: %w", err)
	}
	res.Tactical = snaps

	log.Printf("[pipeline] run %s: %d frames, %d events, %d grids, %d players, %d windows in %s",
		res.RunID, res.Frames, len(res.Events), len(res.Grids), len(res.Physical), len(res.Tactical),
		time.Since(start).Round(time.Millisecond))
	return res, nil
}
