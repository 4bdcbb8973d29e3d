package state

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// --- Finding operations ---

// SaveFindings stores the lint findings for a run, replacing any
// findings recorded for it earlier. IDs are assigned where empty.
func (s *SQLiteStore) SaveFindings(runID string, findings []*core.Finding) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM findings WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete existing findings: %w", err)
	}

	for _, f := range findings {
		if f.ID == "" {
			f.ID = generateID()
		}
		f.RunID = runID

		_, err := tx.Exec(
			`INSERT INTO findings (id, run_id, rule_id, severity, message, file, line)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.RunID, f.RuleID, f.Severity, f.Message, f.File, f.Line,
		)
		if err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetFindingsForRun retrieves the findings recorded for a run, ordered
// by rule then location.
func (s *SQLiteStore) GetFindingsForRun(runID string) ([]*core.Finding, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, rule_id, severity, message, file, line
		 FROM findings WHERE run_id = ? ORDER BY rule_id, file, line`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	var findings []*core.Finding
	for rows.Next() {
		f := &core.Finding{}
		if err := rows.Scan(&f.ID, &f.RunID, &f.RuleID, &f.Severity, &f.Message, &f.File, &f.Line); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}

	return findings, rows.Err()
}
