package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Pipeline stage names.
const (
	StageBlast     = "blast"
	StageSelfBlast = "self_blast"
	StageMatch     = "match"
	StageRefCDS    = "ref_cds"
)

// StageRecord is one completed pipeline stage.
type StageRecord struct {
	RunID       string
	Iteration   int
	Stage       string
	Fingerprint string
	Output      string
	CompletedAt time.Time
}

// StageDone reports whether stage of iteration completed with the same fingerprint.
func (s *Store) StageDone(iteration int, stage, fingerprint string) (bool, error) {
	var stored string
	err := s.db.QueryRow(`SELECT fingerprint FROM stage_results
		WHERE iteration=? AND stage=?`, int64(iteration), stage).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query stage: %w", err)
	}
	return stored == fingerprint, nil
}

// MarkStage records a completed stage, replacing any earlier record for it.
func (s *Store) MarkStage(rec StageRecord) error {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO stage_results VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, int64(rec.Iteration), rec.Stage, rec.Fingerprint, rec.Output, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("mark stage %s: %w", rec.Stage, err)
	}
	return nil
}

// Stages lists completed stages ordered by iteration and completion time.
func (s *Store) Stages() ([]StageRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, iteration, stage, fingerprint, output, completed_at
		FROM stage_results ORDER BY iteration, completed_at, stage`)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var rec StageRecord
		var iteration int64
		if err := rows.Scan(&rec.RunID, &iteration, &rec.Stage, &rec.Fingerprint, &rec.Output, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		rec.Iteration = int(iteration)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return out, nil
}

// ClearStages forgets every completed stage, forcing a full rerun.
func (s *Store) ClearStages() error {
	_, err := s.db.Exec("DELETE FROM stage_results")
	return err
}
