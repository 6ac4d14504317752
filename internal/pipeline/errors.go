package pipeline

import (
	"errors"
	"fmt"
)

// Fatal input conditions. These abort the run before any stage output
// exists.
var (
	ErrNoDetections   = errors.New("no detections in input")
	ErrNoUsableTracks = errors.New("no usable tracks after cleaning")
)

// DataQualityError marks a malformed or implausible input record. The
// ingest layer recovers from these per record; the pipeline only sees
// them when corruption survives into the detection stream.
type DataQualityError struct {
	Record int    // zero-based record index, -1 when unknown
	Reason string
	Err    error
}

func (e *DataQualityError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("data quality: record %d: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("data quality: %s", e.Reason)
}

func (e *DataQualityError) Unwrap() error { return e.Err }

// TrackAnomalyError marks a single track the pipeline had to drop. Other
// tracks continue; the anomaly is surfaced as a warning on the result.
type TrackAnomalyError struct {
	TrackID int64
	Reason  string
}

func (e *TrackAnomalyError) Error() string {
	return fmt.Sprintf("track %d anomaly: %s", e.TrackID, e.Reason)
}

// NumericalError marks a stage computation that failed to converge or
// produced non-finite output for one track.
type NumericalError struct {
	Stage   string
	TrackID int64
	Err     error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical failure in %s on track %d: %v", e.Stage, e.TrackID, e.Err)
}

func (e *NumericalError) Unwrap() error { return e.Err }

// StageTimeoutError marks a stage cut short by context cancellation or
// deadline. Results produced before the cut are retained and the run is
// flagged partial.
type StageTimeoutError struct {
	Stage string
	Err   error
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s cut short: %v", e.Stage, e.Err)
}

func (e *StageTimeoutError) Unwrap() error { return e.Err }
