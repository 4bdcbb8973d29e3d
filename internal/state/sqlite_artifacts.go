package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// --- Artifact operations ---

// SaveArtifact records the resolved facts for a fetched dependency.
// Saving the same name again replaces the previous record, so the table
// always holds the latest fetch per dependency.
func (s *SQLiteStore) SaveArtifact(artifact *core.Artifact) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if artifact.FetchedAt.IsZero() {
		artifact.FetchedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO artifacts (name, url, sha256, size, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET url = excluded.url, sha256 = excluded.sha256,
		 size = excluded.size, fetched_at = excluded.fetched_at`,
		artifact.Name, artifact.URL, artifact.SHA256, artifact.Size, artifact.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	return nil
}

// GetArtifact retrieves the latest fetch record for a dependency.
// Returns nil without error when the dependency was never fetched.
func (s *SQLiteStore) GetArtifact(name string) (*core.Artifact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	artifact := &core.Artifact{}
	err := s.db.QueryRow(
		`SELECT name, url, sha256, size, fetched_at FROM artifacts WHERE name = ?`,
		name,
	).Scan(&artifact.Name, &artifact.URL, &artifact.SHA256, &artifact.Size, &artifact.FetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return artifact, nil
}

// ListArtifacts retrieves all fetch records ordered by dependency name.
func (s *SQLiteStore) ListArtifacts() ([]*core.Artifact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT name, url, sha256, size, fetched_at FROM artifacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*core.Artifact
	for rows.Next() {
		artifact := &core.Artifact{}
		if err := rows.Scan(&artifact.Name, &artifact.URL, &artifact.SHA256, &artifact.Size, &artifact.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

// DeleteArtifact removes the fetch record for a dependency.
func (s *SQLiteStore) DeleteArtifact(name string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM artifacts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("artifact %s: %w", name, core.ErrNotFound)
	}

	return nil
}
