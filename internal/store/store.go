// Package store persists analysis runs and their outputs to SQLite.
// Schema changes go through golang-migrate files under migrations/.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pitchwise-data/tacticore/internal/config"
	"github.com/pitchwise-data/tacticore/internal/events"
	"github.com/pitchwise-data/tacticore/internal/physical"
	"github.com/pitchwise-data/tacticore/internal/pipeline"
	"github.com/pitchwise-data/tacticore/internal/tactical"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
}

// RunSummary is one row of the analysis_runs table.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"`
	Partial   bool      `json:"partial"`
	Frames    int       `json:"frames"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// NewDB opens (or creates) the database at path. WAL keeps concurrent
// readers off the writer's back during long saves.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	return &DB{db}, nil
}

// SaveResult persists one run and all of its stage outputs in a single
// transaction, with the tuning parameters that produced it.
func (db *DB) SaveResult(res *pipeline.Result, params *config.TuningConfig) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling params: %w", err)
	}
	warningsJSON, err := json.Marshal(res.Warnings)
	if err != nil {
		return fmt.Errorf("marshaling warnings: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO analysis_runs
		(run_id, created_at, source, params_json, partial, frames, warnings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.CreatedAt, res.Source, string(paramsJSON), res.Partial, res.Frames, string(warningsJSON))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", res.RunID, err)
	}

	for _, e := range res.Events {
		actorsJSON, err := json.Marshal(e.Actors)
		if err != nil {
			return fmt.Errorf("marshaling actors: %w", err)
		}
		_, err = tx.Exec(`INSERT INTO match_events
			(run_id, type, frame_start, frame_end, team, x, y, reception_x, reception_y, actors_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, string(e.Type), e.FrameStart, e.FrameEnd, string(e.Team),
			e.X, e.Y, e.ReceptionX, e.ReceptionY, string(actorsJSON))
		if err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	for _, s := range res.Physical {
		_, err = tx.Exec(`INSERT INTO physical_stats
			(run_id, track_id, team, total_distance_m, max_speed_mps, avg_speed_mps, sprint_count, clamped_frames, frames)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, s.TrackID, string(s.Team), s.TotalDistance, s.MaxSpeed, s.AvgSpeed,
			s.SprintCount, s.ClampedFrames, s.Frames)
		if err != nil {
			return fmt.Errorf("inserting stats for track %d: %w", s.TrackID, err)
		}
	}

	for _, w := range res.Tactical {
		_, err = tx.Exec(`INSERT INTO tactical_windows
			(run_id, window_start, window_end,
			 ppda_home, ppda_home_valid, ppda_away, ppda_away_valid,
			 passes_home, passes_away, defensive_actions_home, defensive_actions_away,
			 territory_home, territory_valid, compactness_home, compactness_away, compactness_valid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, w.WindowStart, w.WindowEnd,
			w.PPDAHome, w.PPDAHomeValid, w.PPDAAway, w.PPDAAwayValid,
			w.PassesHome, w.PassesAway, w.DefensiveActionsHome, w.DefensiveActionsAway,
			w.TerritoryHome, w.TerritoryValid, w.CompactnessHome, w.CompactnessAway, w.CompactnessValid)
		if err != nil {
			return fmt.Errorf("inserting window %d: %w", w.WindowStart, err)
		}
	}

	for _, a := range res.Audit {
		_, err = tx.Exec(`INSERT INTO track_audit
			(audit_id, run_id, kind, track_id, into_track_id, frame_first, frame_last, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID.String(), res.RunID, string(a.Kind), a.TrackID, a.IntoTrackID, a.FrameFirst, a.FrameLast, a.Detail)
		if err != nil {
			return fmt.Errorf("inserting audit entry: %w", err)
		}
	}

	for _, g := range res.Grids {
		if !g.Computed {
			continue
		}
		homeJSON, err := json.Marshal(g.Home)
		if err != nil {
			return fmt.Errorf("marshaling grid: %w", err)
		}
		_, err = tx.Exec(`INSERT INTO control_grids
			(run_id, frame_id, width, height, degenerate, home_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			res.RunID, g.FrameID, g.Width, g.Height, g.Degenerate, string(homeJSON))
		if err != nil {
			return fmt.Errorf("inserting grid for frame %d: %w", g.FrameID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns run summaries, newest first.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT run_id, created_at, source, partial, frames, warnings_json
		FROM analysis_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var source, warningsJSON sql.NullString
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &source, &r.Partial, &r.Frames, &warningsJSON); err != nil {
			return nil, err
		}
		r.Source = source.String
		if warningsJSON.Valid && warningsJSON.String != "" {
			if err := json.Unmarshal([]byte(warningsJSON.String), &r.Warnings); err != nil {
				return nil, fmt.Errorf("unmarshaling warnings for run %s: %w", r.RunID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRunParams returns the tuning config a run was executed with.
func (db *DB) GetRunParams(runID string) (*config.TuningConfig, error) {
	var paramsJSON string
	err := db.QueryRow(`SELECT params_json FROM analysis_runs WHERE run_id = ?`, runID).Scan(&paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	cfg := config.EmptyTuningConfig()
	if err := json.Unmarshal([]byte(paramsJSON), cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling params for run %s: %w", runID, err)
	}
	return cfg, nil
}

// EventsForRun returns a run's events ordered by start frame.
func (db *DB) EventsForRun(runID string) ([]events.Event, error) {
	rows, err := db.Query(`SELECT type, frame_start, frame_end, team, x, y, reception_x, reception_y, actors_json
		FROM match_events WHERE run_id = ? ORDER BY frame_start, frame_end`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		var typ, team string
		var actorsJSON sql.NullString
		if err := rows.Scan(&typ, &e.FrameStart, &e.FrameEnd, &team, &e.X, &e.Y, &e.ReceptionX, &e.ReceptionY, &actorsJSON); err != nil {
			return nil, err
		}
		e.Type = events.Type(typ)
		e.Team = track.TeamID(team)
		if actorsJSON.Valid && actorsJSON.String != "" {
			if err := json.Unmarshal([]byte(actorsJSON.String), &e.Actors); err != nil {
				return nil, fmt.Errorf("unmarshaling actors: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PhysicalForRun returns a run's per-player stats ordered by track id.
func (db *DB) PhysicalForRun(runID string) ([]physical.Stats, error) {
	rows, err := db.Query(`SELECT track_id, team, total_distance_m, max_speed_mps, avg_speed_mps, sprint_count, clamped_frames, frames
		FROM physical_stats WHERE run_id = ? ORDER BY track_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []physical.Stats
	for rows.Next() {
		var s physical.Stats
		var team string
		if err := rows.Scan(&s.TrackID, &team, &s.TotalDistance, &s.MaxSpeed, &s.AvgSpeed, &s.SprintCount, &s.ClampedFrames, &s.Frames); err != nil {
			return nil, err
		}
		s.Team = track.TeamID(team)
		out = append(out, s)
	}
	return out, rows.Err()
}

// TacticalForRun returns a run's windows in order.
func (db *DB) TacticalForRun(runID string) ([]tactical.Snapshot, error) {
	rows, err := db.Query(`SELECT window_start, window_end,
			ppda_home, ppda_home_valid, ppda_away, ppda_away_valid,
			passes_home, passes_away, defensive_actions_home, defensive_actions_away,
			territory_home, territory_valid, compactness_home, compactness_away, compactness_valid
		FROM tactical_windows WHERE run_id = ? ORDER BY window_start`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tactical.Snapshot
	for rows.Next() {
		var w tactical.Snapshot
		if err := rows.Scan(&w.WindowStart, &w.WindowEnd,
			&w.PPDAHome, &w.PPDAHomeValid, &w.PPDAAway, &w.PPDAAwayValid,
			&w.PassesHome, &w.PassesAway, &w.DefensiveActionsHome, &w.DefensiveActionsAway,
			&w.TerritoryHome, &w.TerritoryValid, &w.CompactnessHome, &w.CompactnessAway, &w.CompactnessValid); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AuditForRun returns the cleaning audit trail for a run.
func (db *DB) AuditForRun(runID string) ([]track.AuditEntry, error) {
	rows, err := db.Query(`SELECT audit_id, kind, track_id, into_track_id, frame_first, frame_last, detail
		FROM track_audit WHERE run_id = ? ORDER BY frame_first, track_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []track.AuditEntry
	for rows.Next() {
		var a track.AuditEntry
		var id string
		var detail sql.NullString
		if err := rows.Scan(&id, &a.Kind, &a.TrackID, &a.IntoTrackID, &a.FrameFirst, &a.FrameLast, &detail); err != nil {
			return nil, err
		}
		if err := a.ID.UnmarshalText([]byte(id)); err != nil {
			return nil, fmt.Errorf("parsing audit id %q: %w", id, err)
		}
		a.Detail = detail.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// GridsForRun returns a run's stored control grids ordered by frame.
func (db *DB) GridsForRun(runID string) ([]StoredGrid, error) {
	rows, err := db.Query(`SELECT frame_id, width, height, degenerate, home_json
		FROM control_grids WHERE run_id = ? ORDER BY frame_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredGrid
	for rows.Next() {
		var g StoredGrid
		var homeJSON string
		if err := rows.Scan(&g.FrameID, &g.Width, &g.Height, &g.Degenerate, &homeJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(homeJSON), &g.Home); err != nil {
			return nil, fmt.Errorf("unmarshaling grid for frame %d: %w", g.FrameID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// StoredGrid is one persisted control field.
type StoredGrid struct {
	FrameID    int       `json:"frame_id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Degenerate bool      `json:"degenerate"`
	Home       []float64 `json:"home"`
}
