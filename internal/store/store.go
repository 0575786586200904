// Package store records simulation runs in SQLite so that draws and
// likelihoods can be compared across models and sampling methods.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sensorlaw/internal/sim"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies all pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Run is a recorded simulation run. State, Sensor and sample values are
// stored as JSON so that any measurement and state types fit.
type Run struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Method      string          `json:"method"`
	SampleCount int             `json:"sample_count"`
	State       json.RawMessage `json:"state"`
	Sensor      json.RawMessage `json:"sensor,omitempty"` // nil: model without sensor parameter
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Samples     []Sample        `json:"samples,omitempty"`
}

// Sample is one draw of a run.
type Sample struct {
	Index      int             `json:"index"`
	Value      json.RawMessage `json:"value"`
	Likelihood float64         `json:"likelihood"`
}

// NewRun converts a simulation result into a Run. withSensor records
// req.Sensor; otherwise the sensor column stays NULL.
func NewRun[M, S any](kind string, req sim.Request[S], res *sim.Result[M], withSensor bool) (*Run, error) {
	state, err := json.Marshal(req.State)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	run := &Run{
		ID:          res.ID.String(),
		Kind:        kind,
		Method:      res.Method.String(),
		SampleCount: len(res.Samples),
		State:       state,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Samples:     make([]Sample, len(res.Samples)),
	}
	if withSensor {
		if run.Sensor, err = json.Marshal(req.Sensor); err != nil {
			return nil, fmt.Errorf("failed to encode sensor parameter: %w", err)
		}
	}
	for i, z := range res.Samples {
		v, err := json.Marshal(z)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sample %d: %w", i, err)
		}
		run.Samples[i] = Sample{Index: i, Value: v, Likelihood: res.Likelihoods[i]}
	}
	return run, nil
}

// RecordRun stores run and its samples in one transaction.
func (db *DB) RecordRun(ctx context.Context, run *Run) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sensor any
	if run.Sensor != nil {
		sensor = string(run.Sensor)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sim_runs (
			run_id, model_kind, method, sample_count, state_json, sensor_json,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Method, run.SampleCount, string(run.State), sensor,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sim_samples (run_id, sample_index, value_json, likelihood)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range run.Samples {
		if _, err := stmt.ExecContext(ctx, run.ID, s.Index, string(s.Value), s.Likelihood); err != nil {
			return fmt.Errorf("failed to insert sample %d of run %s: %w", s.Index, run.ID, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run with all its samples.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `
		SELECT run_id, model_kind, method, sample_count, state_json, sensor_json,
			started_at, finished_at
		FROM sim_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT sample_index, value_json, likelihood
		FROM sim_samples WHERE run_id = ? ORDER BY sample_index`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s     Sample
			value string
		)
		if err := rows.Scan(&s.Index, &value, &s.Likelihood); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Value = json.RawMessage(value)
		run.Samples = append(run.Samples, s)
	}
	return run, rows.Err()
}

// ListRuns returns up to limit runs, newest first, without samples.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, model_kind, method, sample_count, state_json, sensor_json,
			started_at, finished_at
		FROM sim_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its samples.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sim_samples WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete samples: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sim_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run               Run
		state             string
		sensor            sql.NullString
		started, finished int64
	)
	if err := s.Scan(&run.ID, &run.Kind, &run.Method, &run.SampleCount, &state, &sensor, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.State = json.RawMessage(state)
	if sensor.Valid {
		run.Sensor = json.RawMessage(sensor.String)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()
	return &run, nil
}
