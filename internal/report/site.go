package report

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed static/*
var staticFiles embed.FS

// Build generates the catalog and writes the static site to outputDir.
func (g *Generator) Build(outputDir string) (*Catalog, error) {
	catalog, err := g.GenerateCatalog()
	if err != nil {
		return nil, err
	}
	if err := WriteSite(catalog, outputDir); err != nil {
		return nil, err
	}
	return catalog, nil
}

// WriteSite writes a catalog and the embedded viewer assets to outputDir.
func WriteSite(catalog *Catalog, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dataDir := filepath.Join(outputDir, "data")
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := WriteJSON(filepath.Join(dataDir, "catalog.json"), catalog); err != nil {
		return fmt.Errorf("failed to write catalog.json: %w", err)
	}

	if err := copyStaticFiles(outputDir); err != nil {
		return fmt.Errorf("failed to copy static files: %w", err)
	}

	return nil
}

// copyStaticFiles copies the embedded viewer assets to the output directory.
func copyStaticFiles(outputDir string) error {
	return fs.WalkDir(staticFiles, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip the root "static" directory
		if path == "static" {
			return nil
		}

		relPath := path[len("static/"):]
		outPath := filepath.Join(outputDir, relPath)

		if d.IsDir() {
			return os.MkdirAll(outPath, 0750)
		}

		content, err := staticFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		return os.WriteFile(outPath, content, 0600)
	})
}

// SiteHandler serves a built site directory. Responses are uncacheable so
// a rebuilt catalog shows up on refresh.
func SiteHandler(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// Serve starts a local HTTP server for a built site.
func Serve(dir string, port int) error {
	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("Serving report at http://localhost%s\n", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           SiteHandler(dir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// CopyStateDatabase copies the state database into the site so the audit
// history ships with the report. The copy is vacuumed into contiguous
// pages, which keeps it friendly to HTTP range requests.
func CopyStateDatabase(statePath, outputPath string) error {
	if err := CopyFile(statePath, outputPath); err != nil {
		return fmt.Errorf("failed to copy state database: %w", err)
	}

	db, err := sql.Open("sqlite", outputPath)
	if err != nil {
		return fmt.Errorf("failed to open copied database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(context.Background(), "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// WriteJSON writes any data structure to a JSON file.
func WriteJSON(path string, data any) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is from trusted source
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// CopyFile copies a file from src to dst.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src) //nolint:gosec // G304: src is from trusted source
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.Create(dst) //nolint:gosec // G304: dst is from trusted source
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
