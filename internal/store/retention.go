package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRetentionInterval is how often the retention worker sweeps.
const DefaultRetentionInterval = time.Hour

// Pruner is the part of Repository the retention worker needs.
type Pruner interface {
	PruneExports(ctx context.Context, olderThan time.Duration) (int64, error)
}

// StartRetentionWorker runs a background goroutine that periodically deletes
// archived exports older than retention. A non-positive retention disables it.
func StartRetentionWorker(ctx context.Context, repo Pruner, retention, interval time.Duration) {
	if retention <= 0 {
		slog.Info("Export retention disabled")
		return
	}
	if interval <= 0 {
		interval = DefaultRetentionInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				pruneExports(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneExports(ctx context.Context, repo Pruner, retention time.Duration) {
	deleted, err := repo.PruneExports(ctx, retention)
	if err != nil {
		slog.Error("Retention worker failed to prune exports", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention worker pruned exports", "count", deleted)
	}
}
