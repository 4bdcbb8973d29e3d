package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// --- Check operations ---

// RecordCheck records a new check within a run. An empty ID and zero
// start time are filled in.
func (s *SQLiteStore) RecordCheck(check *core.Check) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if check.ID == "" {
		check.ID = generateID()
	}
	if check.StartedAt.IsZero() {
		check.StartedAt = time.Now().UTC()
	}
	if check.Status == "" {
		check.Status = core.CheckStatusPending
	}

	_, err := s.db.Exec(
		`INSERT INTO checks (id, run_id, kind, target, status, started_at, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		check.ID, check.RunID, check.Kind, check.Target, check.Status, check.StartedAt, check.Error, check.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}

	return nil
}

// UpdateCheck updates the outcome of a check.
func (s *SQLiteStore) UpdateCheck(id string, status core.CheckStatus, durationMS int64, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE checks SET status = ?, completed_at = ?, error = ?, duration_ms = ? WHERE id = ?`,
		status, now, errorPtr, durationMS, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update check: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("check %s: %w", id, core.ErrNotFound)
	}

	return nil
}

// GetChecksForRun retrieves all checks for a given run in start order.
func (s *SQLiteStore) GetChecksForRun(runID string) ([]*core.Check, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, kind, target, status, started_at, completed_at, error, duration_ms
		 FROM checks WHERE run_id = ? ORDER BY started_at, target`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get checks: %w", err)
	}
	defer rows.Close()

	var checks []*core.Check
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}

	return checks, rows.Err()
}

// GetLatestCheck retrieves the most recent check of a kind for a target,
// across all runs. Returns nil without error when the target was never
// checked.
func (s *SQLiteStore) GetLatestCheck(kind core.CheckKind, target string) (*core.Check, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, run_id, kind, target, status, started_at, completed_at, error, duration_ms
		 FROM checks WHERE kind = ? AND target = ? ORDER BY started_at DESC LIMIT 1`,
		kind, target,
	)

	check, err := scanCheck(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return check, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheck(row rowScanner) (*core.Check, error) {
	check := &core.Check{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&check.ID, &check.RunID, &check.Kind, &check.Target, &check.Status,
		&check.StartedAt, &completedAt, &errMsg, &check.DurationMS)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan check: %w", err)
	}

	if completedAt.Valid {
		check.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		check.Error = errMsg.String
	}

	return check, nil
}
