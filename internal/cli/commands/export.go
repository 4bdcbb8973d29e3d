package commands

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"github.com/spf13/cobra"
	"github.com/starpoint-labs/starpin/internal/cli/output"
	"github.com/starpoint-labs/starpin/internal/engine"
	"github.com/starpoint-labs/starpin/internal/report"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the project catalog to a DuckDB file",
		Long: `Write the audit catalog into a DuckDB database for analytics.

The export contains the effective declarations with their verification
status, mirror URLs, documentation pages and per-module coverage,
lint findings, and the dependency graph edges. Re-exporting into the
same file replaces the tables.`,
		Example: `  # Export with defaults
  starpin export

  # Export to a custom path
  starpin export --output audits/starpin.duckdb

  # Query it
  duckdb audits/starpin.duckdb "SELECT name, verify FROM dependencies"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Output, "output", "starpin.duckdb", "Output database path")

	return cmd
}

// ExportOutput is the JSON output for the export command.
type ExportOutput struct {
	Path   string         `json:"path"`
	Tables map[string]int `json:"tables"`
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	if _, err := eng.Discover(engine.DiscoveryOptions{}); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	catalog, err := report.NewGenerator(eng).GenerateCatalog()
	if err != nil {
		return err
	}

	counts, err := writeDuckDB(cmd.Context(), opts.Output, catalog)
	if err != nil {
		return err
	}

	exportOutput := &ExportOutput{Path: opts.Output, Tables: counts}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(exportOutput)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Export"))
		r.Println("")
		r.Println(output.FormatKeyValue("Path", exportOutput.Path))
		for _, table := range sortedTableNames(counts) {
			r.Println(output.FormatKeyValue(table, fmt.Sprintf("%d rows", counts[table])))
		}
		return nil
	default:
		r.Success(fmt.Sprintf("Exported catalog to %s", exportOutput.Path))
		for _, table := range sortedTableNames(counts) {
			r.Printf("  %-18s %d\n", table, counts[table])
		}
		return nil
	}
}

func sortedTableNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// exportSchema creates the analytics tables. CREATE OR REPLACE keeps
// re-exports into the same file idempotent.
var exportSchema = []string{
	`CREATE OR REPLACE TABLE meta (
		key   VARCHAR PRIMARY KEY,
		value VARCHAR
	)`,
	`CREATE OR REPLACE TABLE dependencies (
		name          VARCHAR PRIMARY KEY,
		kind          VARCHAR NOT NULL,
		pinned        BOOLEAN NOT NULL,
		sha256        VARCHAR,
		commit_hash   VARCHAR,
		tag           VARCHAR,
		remote        VARCHAR,
		strip_prefix  VARCHAR,
		verify        VARCHAR,
		declared_line INTEGER
	)`,
	`CREATE OR REPLACE TABLE mirrors (
		dependency VARCHAR NOT NULL,
		idx        INTEGER NOT NULL,
		url        VARCHAR NOT NULL
	)`,
	`CREATE OR REPLACE TABLE pages (
		path       VARCHAR PRIMARY KEY,
		title      VARCHAR,
		module     VARCHAR,
		entries    INTEGER NOT NULL,
		unresolved INTEGER NOT NULL,
		orphan     BOOLEAN NOT NULL
	)`,
	`CREATE OR REPLACE TABLE coverage (
		module     VARCHAR PRIMARY KEY,
		public     INTEGER NOT NULL,
		documented INTEGER NOT NULL,
		percent    DOUBLE NOT NULL
	)`,
	`CREATE OR REPLACE TABLE coverage_symbols (
		module VARCHAR NOT NULL,
		name   VARCHAR NOT NULL,
		status VARCHAR NOT NULL
	)`,
	`CREATE OR REPLACE TABLE findings (
		rule_id  VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		target   VARCHAR,
		message  VARCHAR NOT NULL,
		file     VARCHAR,
		line     INTEGER
	)`,
	`CREATE OR REPLACE TABLE graph_edges (
		source VARCHAR NOT NULL,
		target VARCHAR NOT NULL
	)`,
}

// writeDuckDB writes the catalog into a DuckDB database at path and
// returns per-table row counts.
func writeDuckDB(ctx context.Context, path string, catalog *report.Catalog) (map[string]int, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to open duckdb database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ddl := range exportSchema {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	counts := make(map[string]int)

	meta := [][2]string{
		{"generated_at", catalog.GeneratedAt.Format(time.RFC3339)},
		{"title", catalog.Title},
		{"project", catalog.Project},
		{"workspace", catalog.Workspace},
	}
	for _, kv := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("failed to insert meta: %w", err)
		}
		counts["meta"]++
	}

	for _, dep := range catalog.Dependencies {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO dependencies
			 (name, kind, pinned, sha256, commit_hash, tag, remote, strip_prefix, verify, declared_line)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			dep.Name, dep.Kind, dep.Pinned, dep.SHA256, dep.Commit, dep.Tag,
			dep.Remote, dep.StripPrefix, dep.Verify, dep.DeclaredLine,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert dependency %s: %w", dep.Name, err)
		}
		counts["dependencies"]++

		for i, url := range dep.URLs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO mirrors (dependency, idx, url) VALUES (?, ?, ?)`,
				dep.Name, i, url,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert mirror for %s: %w", dep.Name, err)
			}
			counts["mirrors"]++
		}
	}

	for _, page := range catalog.Pages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pages (path, title, module, entries, unresolved, orphan)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			page.Path, page.Title, page.Module, page.Entries, page.Unresolved, page.Orphan,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert page %s: %w", page.Path, err)
		}
		counts["pages"]++
	}

	for _, cov := range catalog.Coverage {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO coverage (module, public, documented, percent) VALUES (?, ?, ?, ?)`,
			cov.Module, cov.Public, cov.Documented, cov.Percent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert coverage for %s: %w", cov.Module, err)
		}
		counts["coverage"]++

		for _, name := range cov.Missing {
			if err := insertCoverageSymbol(ctx, tx, cov.Module, name, "missing"); err != nil {
				return nil, err
			}
			counts["coverage_symbols"]++
		}
		for _, name := range cov.Extra {
			if err := insertCoverageSymbol(ctx, tx, cov.Module, name, "extra"); err != nil {
				return nil, err
			}
			counts["coverage_symbols"]++
		}
	}

	for _, f := range catalog.Findings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO findings (rule_id, severity, target, message, file, line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			f.RuleID, f.Severity, f.Target, f.Message, f.File, f.Line,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert finding: %w", err)
		}
		counts["findings"]++
	}

	for _, edge := range catalog.Graph.Edges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO graph_edges (source, target) VALUES (?, ?)`,
			edge.Source, edge.Target,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert graph edge: %w", err)
		}
		counts["graph_edges"]++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit export: %w", err)
	}
	return counts, nil
}

func insertCoverageSymbol(ctx context.Context, tx *sql.Tx, module, name, status string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO coverage_symbols (module, name, status) VALUES (?, ?, ?)`,
		module, name, status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert coverage symbol %s.%s: %w", module, name, err)
	}
	return nil
}
