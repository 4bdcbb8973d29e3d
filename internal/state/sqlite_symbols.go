package state

import (
	"fmt"

	"github.com/starpoint-labs/starpin/pkg/core"
)

// --- Symbol cache operations ---
//
// The symbol cache stores the scanned surface of each Python module so
// repeated doc checks can skip rescanning sources that have not changed.

// SaveModuleSymbols stores the symbols of a module, replacing any
// cached set.
func (s *SQLiteStore) SaveModuleSymbols(module string, symbols []*core.Symbol) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM module_symbols WHERE module = ?`, module); err != nil {
		return fmt.Errorf("failed to delete existing symbols: %w", err)
	}

	for _, sym := range symbols {
		_, err := tx.Exec(
			`INSERT INTO module_symbols (module, name, kind, origin, public, file, line, col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
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
// order. Returns an empty slice when the module is not cached.
func (s *SQLiteStore) GetModuleSymbols(module string) ([]*core.Symbol, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT name, kind, origin, public, file, line, col
		 FROM module_symbols WHERE module = ? ORDER BY line, name`,
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
func (s *SQLiteStore) DeleteModuleSymbols(module string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.Exec(`DELETE FROM module_symbols WHERE module = ?`, module); err != nil {
		return fmt.Errorf("failed to delete module symbols: %w", err)
	}

	return nil
}

// ListModulePaths retrieves the dotted paths of all cached modules.
func (s *SQLiteStore) ListModulePaths() ([]string, error) {
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
