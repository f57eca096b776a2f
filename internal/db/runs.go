package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/bodysim/internal/los"
	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrInvalidStatus = errors.New("invalid run status")
)

// Run is one LOS run as recorded in los_runs.
type Run struct {
	RunID        string          `json:"run_id"`
	Source       string          `json:"source"`
	OutputDir    string          `json:"output_dir"`
	FrameStart   int             `json:"frame_start"`
	FrameEnd     int             `json:"frame_end"`
	SampleCount  int             `json:"sample_count"`
	SampleRadius float64         `json:"sample_radius"`
	Workers      int             `json:"workers"`
	Status       RunStatus       `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ParamsJSON   json.RawMessage `json:"params_json,omitempty"`
	StartedAt    int64           `json:"started_at"`
	FinishedAt   int64           `json:"finished_at,omitempty"`
	DurationMs   int64           `json:"duration_ms,omitempty"`
}

// InsertRun persists a new run in the running state. If RunID is empty, a
// UUID is generated; if StartedAt is zero, the store clock is used.
func (db *DB) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAt == 0 {
		run.StartedAt = db.Clock.Now().UnixNano()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.Workers == 0 {
		run.Workers = 1
	}

	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	_, err := db.Exec(`
		INSERT INTO los_runs (
			run_id, source, output_dir, frame_start, frame_end,
			sample_count, sample_radius, workers, status, params_json, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.OutputDir, run.FrameStart, run.FrameEnd,
		run.SampleCount, run.SampleRadius, run.Workers, string(run.Status), params, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// CompleteRun moves a run to a terminal status and stamps its finish time.
// runErr, when non-nil, is stored as the error message.
func (db *DB) CompleteRun(runID string, status RunStatus, sampleRadius float64, runErr error) error {
	if status != RunCompleted && status != RunFailed {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	var startedAt int64
	err := db.QueryRow(`SELECT started_at FROM los_runs WHERE run_id = ?`, runID).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}

	finished := db.Clock.Now().UnixNano()
	var msg interface{}
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err = db.Exec(`
		UPDATE los_runs
		SET status = ?, error_message = ?, sample_radius = ?,
		    finished_at = ?, duration_ms = ?
		WHERE run_id = ?`,
		string(status), msg, sampleRadius, finished, (finished-startedAt)/1e6, runID,
	)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	return nil
}

const runColumns = `
	run_id, source, output_dir, frame_start, frame_end, sample_count,
	sample_radius, workers, status, error_message, params_json,
	started_at, finished_at, duration_ms`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		status   string
		errMsg   sql.NullString
		params   sql.NullString
		finished sql.NullInt64
		duration sql.NullInt64
	)
	err := row.Scan(
		&run.RunID, &run.Source, &run.OutputDir, &run.FrameStart, &run.FrameEnd, &run.SampleCount,
		&run.SampleRadius, &run.Workers, &status, &errMsg, &params,
		&run.StartedAt, &finished, &duration,
	)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.ErrorMessage = errMsg.String
	if params.Valid && params.String != "" {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	run.FinishedAt = finished.Int64
	run.DurationMs = duration.Int64
	return &run, nil
}

// GetRun returns one run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM los_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM los_runs ORDER BY started_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// InsertSummaries stores the per-sensor summaries of a run, replacing any
// already stored for it. Roster order is kept.
func (db *DB) InsertSummaries(runID string, summaries []los.SensorSummary) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRow(`SELECT COUNT(*) FROM los_runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("insert summaries: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}

	if _, err = tx.Exec(`DELETE FROM los_sensor_summaries WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("insert summaries: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO los_sensor_summaries (
			run_id, position, sensor_id, name, frames,
			mean_interference, stddev_interference, max_interference, los_clear_fraction
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("insert summaries: %w", err)
	}
	defer stmt.Close()

	for i, s := range summaries {
		if _, err = stmt.Exec(runID, i, s.SensorID, s.Name, s.Frames,
			s.MeanInterference, s.StdDevInterference, s.MaxInterference, s.LOSClearFraction); err != nil {
			return fmt.Errorf("insert summary %s: %w", s.SensorID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit summaries: %w", err)
	}
	return nil
}

// ListSummaries returns the stored summaries of a run in roster order.
func (db *DB) ListSummaries(runID string) ([]los.SensorSummary, error) {
	rows, err := db.Query(`
		SELECT sensor_id, name, frames,
		       mean_interference, stddev_interference, max_interference, los_clear_fraction
		FROM los_sensor_summaries
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []los.SensorSummary
	for rows.Next() {
		var s los.SensorSummary
		if err := rows.Scan(&s.SensorID, &s.Name, &s.Frames,
			&s.MeanInterference, &s.StdDevInterference, &s.MaxInterference, &s.LOSClearFraction); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
