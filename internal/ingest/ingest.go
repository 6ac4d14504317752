// Package ingest reads raw detection streams from CSV or JSONL files.
// Malformed records are skipped and counted rather than aborting the
// load; a detection feed from an upstream vision system is never clean.
package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pitchwise-data/tacticore/internal/geo"
	"github.com/pitchwise-data/tacticore/internal/pipeline"
	"github.com/pitchwise-data/tacticore/internal/track"
)

// LoadStats counts what happened during a load.
type LoadStats struct {
	Records int      `json:"records"`
	Skipped int      `json:"skipped"`
	Reasons []string `json:"reasons,omitempty"` // first few skip reasons, for diagnostics
}

const maxReportedReasons = 20

func (s *LoadStats) skip(err error) {
	s.Skipped++
	if len(s.Reasons) < maxReportedReasons {
		s.Reasons = append(s.Reasons, err.Error())
	}
}

// LoadFile dispatches on the file extension: .csv or .jsonl/.ndjson.
func LoadFile(path string) ([]track.RawDetection, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(f)
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	default:
		return nil, LoadStats{}, fmt.Errorf("unsupported detection format %q (want .csv or .jsonl)", ext)
	}
}

// csvColumns is the required header, in order.
var csvColumns = []string{"frame_id", "timestamp", "track_id", "x", "y", "class", "team", "confidence"}

// ReadCSV reads detections from CSV with a mandatory header row.
func ReadCSV(r io.Reader) ([]track.RawDetection, LoadStats, error) {
	var stats LoadStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvColumns)

	header, err := cr.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("reading CSV header: %w", err)
	}
	for i, want := range csvColumns {
		if i >= len(header) || strings.TrimSpace(header[i]) != want {
			return nil, stats, fmt.Errorf("CSV header mismatch: column %d is %q, want %q", i, header[i], want)
		}
	}

	var out []track.RawDetection
	for recNo := 0; ; recNo++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		stats.Records++
		if err != nil {
			stats.skip(&pipeline.DataQualityError{Record: recNo, Reason: "malformed CSV row", Err: err})
			continue
		}
		det, err := parseCSVRecord(recNo, rec)
		if err != nil {
			stats.skip(err)
			continue
		}
		out = append(out, det)
	}
	logStats("csv", stats)
	return out, stats, nil
}

func parseCSVRecord(recNo int, rec []string) (track.RawDetection, error) {
	var det track.RawDetection
	bad := func(field string, err error) (track.RawDetection, error) {
		return det, &pipeline.DataQualityError{Record: recNo, Reason: "bad " + field, Err: err}
	}

	frame, err := strconv.Atoi(strings.TrimSpace(rec[0]))
	if err != nil {
		return bad("frame_id", err)
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return bad("timestamp", err)
	}
	trackID, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
	if err != nil {
		return bad("track_id", err)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
	if err != nil {
		return bad("x", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
	if err != nil {
		return bad("y", err)
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(rec[7]), 64)
	if err != nil {
		return bad("confidence", err)
	}

	det = track.RawDetection{
		FrameID:    frame,
		Timestamp:  ts,
		TrackID:    trackID,
		X:          x,
		Y:          y,
		Class:      track.ObjectClass(strings.TrimSpace(rec[5])),
		Team:       track.TeamID(strings.TrimSpace(rec[6])),
		Confidence: conf,
	}
	return det, validate(recNo, det)
}

// ReadJSONL reads one JSON detection object per line.
func ReadJSONL(r io.Reader) ([]track.RawDetection, LoadStats, error) {
	var stats LoadStats
	var out []track.RawDetection

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for recNo := 0; sc.Scan(); recNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Records++

		var det track.RawDetection
		if err := json.Unmarshal([]byte(line), &det); err != nil {
			stats.skip(&pipeline.DataQualityError{Record: recNo, Reason: "malformed JSON line", Err: err})
			continue
		}
		if err := validate(recNo, det); err != nil {
			stats.skip(err)
			continue
		}
		out = append(out, det)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading JSONL: %w", err)
	}
	logStats("jsonl", stats)
	return out, stats, nil
}

// validate rejects records that cannot belong to a match: off-pitch
// beyond tolerance, unknown classes, non-finite or negative fields.
func validate(recNo int, det track.RawDetection) error {
	bad := func(reason string) error {
		return &pipeline.DataQualityError{Record: recNo, Reason: reason}
	}

	switch det.Class {
	case track.ClassPlayer, track.ClassBall, track.ClassReferee:
	default:
		return bad(fmt.Sprintf("unknown class %q", det.Class))
	}
	switch det.Team {
	case track.TeamHome, track.TeamAway, track.TeamNone:
	default:
		return bad(fmt.Sprintf("unknown team %q", det.Team))
	}
	if det.FrameID < 0 {
		return bad("negative frame id")
	}
	if math.IsNaN(det.X) || math.IsInf(det.X, 0) || math.IsNaN(det.Y) || math.IsInf(det.Y, 0) {
		return bad("non-finite position")
	}
	// Allow a small apron around the pitch for throw-ins and keepers
	// retrieving the ball.
	const apron = 5.0
	if det.X < -apron || det.X > geo.PitchLength+apron || det.Y < -apron || det.Y > geo.PitchWidth+apron {
		return bad(fmt.Sprintf("position (%.1f, %.1f) off pitch", det.X, det.Y))
	}
	if det.Confidence < 0 || det.Confidence > 1 {
		return bad(fmt.Sprintf("confidence %.3f out of range", det.Confidence))
	}
	return nil
}

func logStats(format string, stats LoadStats) {
	if stats.Skipped > 0 {
		log.Printf("[ingest] %s: %d records, %d skipped", format, stats.Records, stats.Skipped)
	}
}
