package store

import (
	"database/sql"
)

// Sample is one frame's steering outcome.
type Sample struct {
	ID            int64   `json:"id"`
	RunID         string  `json:"run_id"`
	Frame         int64   `json:"frame"`
	TimestampUS   int64   `json:"timestamp_us"`
	Angle         float64 `json:"angle"`
	Case          string  `json:"case"`
	Branch        string  `json:"branch"`
	Held          bool    `json:"held"`
	Direction     string  `json:"direction"`
	Dropout       int     `json:"dropout"`
	BluePresent   bool    `json:"blue_present"`
	BlueX         int     `json:"blue_x"`
	YellowPresent bool    `json:"yellow_present"`
	YellowX       int     `json:"yellow_x"`
}

// SampleRepository provides access to per-frame samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append inserts samples in a single transaction and advances the frame
// count of every run they belong to.
func (r *SampleRepository) Append(samples ...*Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO samples (run_id, frame, timestamp_us, angle, decision, branch, held, direction,
		                      dropout, blue_present, blue_x, yellow_present, yellow_x)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	perRun := make(map[string]int)
	for _, s := range samples {
		result, err := stmt.Exec(s.RunID, s.Frame, s.TimestampUS, s.Angle, s.Case, s.Branch, s.Held, s.Direction,
			s.Dropout, s.BluePresent, s.BlueX, s.YellowPresent, s.YellowX)
		if err != nil {
			return err
		}
		if id, err := result.LastInsertId(); err == nil {
			s.ID = id
		}
		perRun[s.RunID]++
	}

	for runID, n := range perRun {
		if _, err := tx.Exec(`UPDATE runs SET frames = frames + ? WHERE id = ?`, n, runID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByRun retrieves samples of a run in frame order. A limit <= 0
// returns every sample from offset on.
func (r *SampleRepository) ListByRun(runID string, limit, offset int) ([]Sample, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, run_id, frame, timestamp_us, angle, decision, branch, held, direction,
		        dropout, blue_present, blue_x, yellow_present, yellow_x
		 FROM samples
		 WHERE run_id = ?
		 ORDER BY frame, id
		 LIMIT ? OFFSET ?`,
		runID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.RunID, &s.Frame, &s.TimestampUS, &s.Angle, &s.Case, &s.Branch,
			&s.Held, &s.Direction, &s.Dropout, &s.BluePresent, &s.BlueX, &s.YellowPresent, &s.YellowX); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// CountByRun returns the number of samples recorded for a run.
func (r *SampleRepository) CountByRun(runID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
