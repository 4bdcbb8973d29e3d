package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/starpoint-labs/starpin/pkg/core"
)

func init() {
	Register("postgres", func() core.Store { return NewPostgresStore() })
}

// PostgresStore implements core.Store on PostgreSQL. It exists for
// teams that share audit history across machines; the per-checkout
// default is SQLiteStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres state store instance.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

// buildPostgresDSN constructs a key=value connection string from the
// individual config fields.
func buildPostgresDSN(cfg core.StateConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)

	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Open opens a connection to the PostgreSQL database.
func (s *PostgresStore) Open(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the PostgreSQL connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema brings the database schema up to date.
func (s *PostgresStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return migrate(s.db, "postgres")
}

// --- Run operations ---

// CreateRun creates a new audit run for a project.
func (s *PostgresStore) CreateRun(project string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Project:   project,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, project, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Project, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *PostgresStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(
		`SELECT id, project, status, started_at, completed_at, error FROM runs WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun marks a run as completed with the given status.
func (s *PostgresStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		status, time.Now().UTC(), errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run %s: %w", id, core.ErrNotFound)
	}

	return nil
}

// GetLatestRun retrieves the most recent run for a project.
func (s *PostgresStore) GetLatestRun(project string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(
		`SELECT id, project, status, started_at, completed_at, error
		 FROM runs WHERE project = $1 ORDER BY started_at DESC LIMIT 1`,
		project,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns retrieves the most recent runs across all projects, newest
// first. A limit of 0 or less means no limit.
func (s *PostgresStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var limitArg any // NULL means no limit
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.db.Query(
		`SELECT id, project, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func scanRun(row rowScanner) (*core.Run, error) {
	run := &core.Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&run.ID, &run.Project, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}

	return run, nil
}

// --- Check operations ---

// RecordCheck records a new check within a run.
func (s *PostgresStore) RecordCheck(check *core.Check) error {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		check.ID, check.RunID, check.Kind, check.Target, check.Status, check.StartedAt, check.Error, check.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}

	return nil
}

// UpdateCheck updates the outcome of a check.
func (s *PostgresStore) UpdateCheck(id string, status core.CheckStatus, durationMS int64, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE checks SET status = $1, completed_at = $2, error = $3, duration_ms = $4 WHERE id = $5`,
		status, time.Now().UTC(), errorPtr, durationMS, id,
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
func (s *PostgresStore) GetChecksForRun(runID string) ([]*core.Check, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, kind, target, status, started_at, completed_at, error, duration_ms
		 FROM checks WHERE run_id = $1 ORDER BY started_at, target`,
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

// GetLatestCheck retrieves the most recent check of a kind for a target.
func (s *PostgresStore) GetLatestCheck(kind core.CheckKind, target string) (*core.Check, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	check, err := scanCheck(s.db.QueryRow(
		`SELECT id, run_id, kind, target, status, started_at, completed_at, error, duration_ms
		 FROM checks WHERE kind = $1 AND target = $2 ORDER BY started_at DESC LIMIT 1`,
		kind, target,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return check, nil
}

// --- Artifact operations ---

// SaveArtifact records the resolved facts for a fetched dependency.
func (s *PostgresStore) SaveArtifact(artifact *core.Artifact) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if artifact.FetchedAt.IsZero() {
		artifact.FetchedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO artifacts (name, url, sha256, size, fetched_at) VALUES ($1, $2, $3, $4, $5)
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
func (s *PostgresStore) GetArtifact(name string) (*core.Artifact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	artifact := &core.Artifact{}
	err := s.db.QueryRow(
		`SELECT name, url, sha256, size, fetched_at FROM artifacts WHERE name = $1`,
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
func (s *PostgresStore) ListArtifacts() ([]*core.Artifact, error) {
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
func (s *PostgresStore) DeleteArtifact(name string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM artifacts WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("artifact %s: %w", name, core.ErrNotFound)
	}

	return nil
}

// --- Finding operations ---

// SaveFindings stores the lint findings for a run, replacing any
// findings recorded for it earlier.
func (s *PostgresStore) SaveFindings(runID string, findings []*core.Finding) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM findings WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete existing findings: %w", err)
	}

	for _, f := range findings {
		if f.ID == "" {
			f.ID = generateID()
		}
		f.RunID = runID

		_, err := tx.Exec(
			`INSERT INTO findings (id, run_id, rule_id, severity, message, file, line)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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

// GetFindingsForRun retrieves the findings recorded for a run.
func (s *PostgresStore) GetFindingsForRun(runID string) ([]*core.Finding, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, rule_id, severity, message, file, line
		 FROM findings WHERE run_id = $1 ORDER BY rule_id, file, line`,
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

// --- Symbol cache operations ---

// SaveModuleSymbols stores the symbols of a module, replacing any
// cached set.
func (s *PostgresStore) SaveModuleSymbols(module string, symbols []*core.Symbol) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM module_symbols WHERE module = $1`, module); err != nil {
		return fmt.Errorf("failed to delete existing symbols: %w", err)
	}

	for _, sym := range symbols {
		_, err := tx.Exec(
			`INSERT INTO module_symbols (module, name, kind, origin, public, file, line, col)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			module, sym.Name, sym.Kind, sym.Origin, sym.Public, sym.Pos.File, sym.Pos.Line, sym.Pos.Col,
		)
		if err != nil {
			return fmt.Errorf("failed to insert symbol: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetModuleSymbols retrieves the cached symbols of a module in source
// order.
func (s *PostgresStore) GetModuleSymbols(module string) ([]*core.Symbol, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT name, kind, origin, public, file, line, col
		 FROM module_symbols WHERE module = $1 ORDER BY line, name`,
		module,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get module symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*core.Symbol
	for rows.Next() {
		sym := &core.Symbol{Module: module}
		if err := rows.Scan(&sym.Name, &sym.Kind, &sym.Origin, &sym.Public, &sym.Pos.File, &sym.Pos.Line, &sym.Pos.Col); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}

	return symbols, rows.Err()
}

// DeleteModuleSymbols drops the cached symbols of a module.
func (s *PostgresStore) DeleteModuleSymbols(module string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.Exec(`DELETE FROM module_symbols WHERE module = $1`, module); err != nil {
		return fmt.Errorf("failed to delete module symbols: %w", err)
	}

	return nil
}

// ListModulePaths retrieves the dotted paths of all cached modules.
func (s *PostgresStore) ListModulePaths() ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT DISTINCT module FROM module_symbols ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("failed to list module paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan module path: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// Ensure PostgresStore implements the Store interface
var _ core.Store = (*PostgresStore)(nil)
