/**
 * PostgreSQL Artifact Registry
 *
 * Records every export artifact so finished results can be listed and
 * re-downloaded later. Recording is best effort from the exporter's
 * point of view; this layer only reports its own failures.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/henryLiu9527/invoice-ocr/internal/export"
)

// PostgresRegistry persists export artifact records.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry opens the database, configures the pool and
// verifies connectivity.
func NewPostgresRegistry(databaseURL string) (*PostgresRegistry, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRegistry{db: db}, nil
}

// EnsureSchema creates the artifact table when it does not exist yet.
func (r *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS export_artifacts (
			id BIGSERIAL PRIMARY KEY,
			path TEXT NOT NULL,
			format TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			original_file TEXT NOT NULL,
			engine TEXT NOT NULL,
			document_type TEXT NOT NULL,
			exported_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create artifact table: %w", err)
	}
	return nil
}

// RecordArtifact stores one finished artifact.
func (r *PostgresRegistry) RecordArtifact(ctx context.Context, a export.Artifact, meta export.Metadata) error {
	if a.Path == "" {
		return fmt.Errorf("artifact path is required")
	}

	query := `
		INSERT INTO export_artifacts (
			path, format, size_bytes,
			original_file, engine, document_type, exported_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		a.Path,
		string(a.Format),
		a.Size,
		meta.OriginalFile,
		meta.Engine,
		meta.DocumentType,
		meta.ExportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact (path=%s, format=%s): %w", a.Path, a.Format, err)
	}
	return nil
}

// FindByName returns the artifact whose generated file name matches, or
// sql.ErrNoRows when no export produced it.
func (r *PostgresRegistry) FindByName(ctx context.Context, name string) (*export.Artifact, error) {
	if name == "" {
		return nil, fmt.Errorf("artifact name is required")
	}

	query := `
		SELECT path, format, size_bytes
		FROM export_artifacts
		WHERE path = $1 OR path LIKE '%/' || $1
		ORDER BY exported_at DESC
		LIMIT 1
	`
	var a export.Artifact
	var format string
	err := r.db.QueryRowContext(ctx, query, name).Scan(&a.Path, &format, &a.Size)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find artifact %s: %w", name, err)
	}
	a.Format = export.Format(format)
	return &a, nil
}

// ListByOriginalFile returns the artifacts exported for one upload,
// newest first.
func (r *PostgresRegistry) ListByOriginalFile(ctx context.Context, originalFile string) ([]export.Artifact, error) {
	if originalFile == "" {
		return nil, fmt.Errorf("original file is required")
	}

	query := `
		SELECT path, format, size_bytes
		FROM export_artifacts
		WHERE original_file = $1
		ORDER BY exported_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, originalFile)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []export.Artifact
	for rows.Next() {
		var a export.Artifact
		var format string
		if err := rows.Scan(&a.Path, &format, &a.Size); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		a.Format = export.Format(format)
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifact rows: %w", err)
	}
	return artifacts, nil
}

// Ping checks database connectivity.
func (r *PostgresRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *PostgresRegistry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
