package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Run is one execution of the steering loop against one frame source.
type Run struct {
	ID        string     `json:"id"`
	SessionID int        `json:"session_id"`
	Source    string     `json:"source"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Config    string     `json:"config"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int        `json:"frames"`
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run. StartedAt is set to now when zero.
func (r *RunRepository) Create(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.Round(0)
	if run.Config == "" {
		run.Config = "{}"
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, session_id, source, width, height, config, started_at, frames)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.Source, run.Width, run.Height, run.Config, run.StartedAt, run.Frames,
	)
	return err
}

// Finish records the end time of a run.
func (r *RunRepository) Finish(id string, endedAt time.Time) error {
	result, err := r.db.Exec(`UPDATE runs SET ended_at = ? WHERE id = ?`, endedAt.Round(0), id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, session_id, source, width, height, config, started_at, ended_at, frames
		 FROM runs WHERE id = ?`,
		id,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves all runs, newest first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, source, width, height, config, started_at, ended_at, frames
		 FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
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

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and, through the foreign key, its samples.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var ended sql.NullTime
	if err := s.Scan(&run.ID, &run.SessionID, &run.Source, &run.Width, &run.Height,
		&run.Config, &run.StartedAt, &ended, &run.Frames); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	return run, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
