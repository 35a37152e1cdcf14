package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/braindump/internal/domain"
	"github.com/ashureev/braindump/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	// DefaultListLimit bounds ListExports when the caller passes no limit.
	DefaultListLimit = 20
	maxListLimit     = 200
	writeRetries     = 3
	writeRetryDelay  = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to keep SQLITE_BUSY rare
}

// NewSQLite creates a new SQLite-backed export archive.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Pragmas in the DSN run on every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS exports (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		task_count INTEGER NOT NULL,
		snapshot_json TEXT NOT NULL,
		exported_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exports_session ON exports(session_id, exported_at);
	CREATE INDEX IF NOT EXISTS idx_exports_exported_at ON exports(exported_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveExport stores rec, retrying with backoff on SQLITE_BUSY.
func (s *SQLiteStore) SaveExport(ctx context.Context, rec *domain.ExportRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
	INSERT INTO exports (id, session_id, task_count, snapshot_json, exported_at)
	VALUES (?, ?, ?, ?, ?)`

	err = shared.RetryOnConflict(ctx, "save export", writeRetries, writeRetryDelay, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_, execErr := s.db.ExecContext(ctx, query,
			rec.ID, rec.SessionID, len(rec.Snapshot.Tasks), string(snapshot), rec.ExportedAt.UnixMilli())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save export %s: %w", rec.ID, err)
	}
	return nil
}

// ListExports returns up to limit exports for sessionID, newest first.
func (s *SQLiteStore) ListExports(ctx context.Context, sessionID string, limit int) ([]*domain.ExportRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, session_id, snapshot_json, exported_at
		FROM exports WHERE session_id = ?
		ORDER BY exported_at DESC, rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.ExportRecord, 0)
	for rows.Next() {
		var rec domain.ExportRecord
		var snapshot string
		var exportedAt int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &snapshot, &exportedAt); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", rec.ID, err)
		}
		rec.ExportedAt = time.UnixMilli(exportedAt).UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return records, nil
}

// PruneExports deletes exports older than olderThan.
func (s *SQLiteStore) PruneExports(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().Add(-olderThan).UnixMilli()

	var deleted int64
	err := shared.RetryOnConflict(ctx, "prune exports", writeRetries, writeRetryDelay, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		res, execErr := s.db.ExecContext(ctx, `DELETE FROM exports WHERE exported_at < ?`, threshold)
		if execErr != nil {
			return execErr
		}
		deleted, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune exports: %w", err)
	}
	return deleted, nil
}

var _ Repository = (*SQLiteStore)(nil)
