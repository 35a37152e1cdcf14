// Package store archives exported session snapshots. Live session state never
// goes through here; the archive is write-mostly history.
package store

import (
	"context"
	"time"

	"github.com/ashureev/braindump/internal/domain"
)

// Repository defines the export archive.
type Repository interface {
	// SaveExport stores one exported snapshot.
	SaveExport(ctx context.Context, rec *domain.ExportRecord) error

	// ListExports returns up to limit exports for a session, newest first.
	ListExports(ctx context.Context, sessionID string, limit int) ([]*domain.ExportRecord, error)

	// PruneExports removes exports older than the retention window.
	PruneExports(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
