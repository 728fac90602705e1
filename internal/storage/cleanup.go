package storage

import (
	"context"
	"log/slog"
	"os"
	"time"

	"reelbatch/internal/entity"
)

// CleanupExpiredBatches periodically evicts expired batches and removes their
// on-disk leftovers. Only terminal batches are ever evicted; a running batch
// past its TTL is left alone until it finishes.
func (stg *storage) CleanupExpiredBatches(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stg.cleanupOnce(ctx)
		}
	}
}

func (stg *storage) cleanupOnce(ctx context.Context) {
	now := time.Now()

	stg.mu.Lock()
	defer stg.mu.Unlock()

	var removedBatches, removedFiles int

	for id, batch := range stg.batches {
		if batch.ExpiresAt.IsZero() || now.Before(batch.ExpiresAt) {
			continue
		}

		if batch.Status != entity.BatchStatusDone && batch.Status != entity.BatchStatusFailed {
			continue
		}

		removedFiles += stg.removeArtifacts(ctx, batch)
		delete(stg.batches, id)
		removedBatches++
	}

	if removedBatches == 0 {
		return
	}

	stg.metrics.SetStoredBatches(len(stg.batches))
	stg.metrics.RecordCleanup(removedBatches, removedFiles)
	stg.log.InfoContext(ctx, "cleanup finished",
		slog.Int("batches_removed", removedBatches),
		slog.Int("files_removed", removedFiles))
}

func (stg *storage) removeArtifacts(ctx context.Context, batch *entity.Batch) int {
	var removed int

	if batch.ScratchDir != "" {
		if err := os.RemoveAll(batch.ScratchDir); err != nil {
			stg.log.ErrorContext(ctx, "remove scratch dir", slog.String("error", err.Error()), "batch", batch)
		} else {
			removed++
		}
	}

	if batch.ArchivePath != "" {
		if err := os.Remove(batch.ArchivePath); err != nil && !os.IsNotExist(err) {
			stg.log.ErrorContext(ctx, "remove archive", slog.String("error", err.Error()), "batch", batch)
		} else {
			removed++
		}
	}

	return removed
}
