// Package store handles the SQLite archive of exported annotations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/segmark/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for archived annotations.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			path TEXT NOT NULL,
			count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS annotations (
			fname TEXT NOT NULL,
			artifact TEXT NOT NULL,
			start_ms INTEGER NOT NULL,
			end_ms INTEGER NOT NULL,
			start_str TEXT NOT NULL,
			end_str TEXT NOT NULL,
			export_id TEXT NOT NULL,
			PRIMARY KEY (fname, artifact)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_artifact ON annotations(artifact);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveExport records an export and upserts its annotations, one row per
// recording and artifact kind.
func (s *Store) SaveExport(ctx context.Context, path string, annotations []model.Annotation) (id string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	id = uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO exports (id, created_at, path, count) VALUES (?, ?, ?, ?)`,
		id, s.now().UTC().Format(time.RFC3339Nano), path, len(annotations),
	); err != nil {
		return "", err
	}

	if len(annotations) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO annotations (fname, artifact, start_ms, end_ms, start_str, end_str, export_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (fname, artifact) DO UPDATE SET
				start_ms = excluded.start_ms,
				end_ms = excluded.end_ms,
				start_str = excluded.start_str,
				end_str = excluded.end_str,
				export_id = excluded.export_id`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, a := range annotations {
			if _, err = stmt.ExecContext(ctx,
				a.RecordingID,
				string(a.Artifact),
				model.EpochMillis(a.Start),
				model.EpochMillis(a.End),
				model.FormatTimestamp(a.Start),
				model.FormatTimestamp(a.End),
				id,
			); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListAnnotations returns archived annotations ordered by recording and artifact.
func (s *Store) ListAnnotations(ctx context.Context, filter model.AnnotationFilter) ([]model.Annotation, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.RecordingID != "" {
		clauses = append(clauses, "fname = ?")
		args = append(args, filter.RecordingID)
	}
	if filter.Artifact != "" {
		clauses = append(clauses, "artifact = ?")
		args = append(args, string(filter.Artifact))
	}
	query := fmt.Sprintf(`SELECT fname, artifact, start_ms, end_ms
		FROM annotations
		WHERE %s
		ORDER BY fname ASC, artifact ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Annotation
	for rows.Next() {
		var a model.Annotation
		var artifact string
		var startMs, endMs int64
		if err := rows.Scan(&a.RecordingID, &artifact, &startMs, &endMs); err != nil {
			return nil, err
		}
		a.Artifact = model.ArtifactKind(artifact)
		a.Start = time.UnixMilli(startMs).UTC()
		a.End = time.UnixMilli(endMs).UTC()
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListExports returns exports, newest first.
func (s *Store) ListExports(ctx context.Context) ([]model.ExportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, path, count FROM exports ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ExportRecord
	for rows.Next() {
		var rec model.ExportRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Path, &rec.Count); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = parsed
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
