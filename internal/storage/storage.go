// Package storage provides the in-memory batch registry.
package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelbatch/internal/config"
	"reelbatch/internal/entity"
	"reelbatch/internal/errs"
	"reelbatch/internal/observability"
	"reelbatch/pkg/calc"
)

// Storer defines the interface for storage operations.
type Storer interface {
	SetBatch(ctx context.Context, batch *entity.Batch)
	GetBatchByID(ctx context.Context, id string) *entity.Batch
	GetBatches(ctx context.Context) ([]*entity.Batch, error)
	SetStatus(ctx context.Context, id string, status entity.BatchStatus, errorMsg string)
	SetArchive(ctx context.Context, id, archivePath string)

	// Progress and Done make the store the default progress observer:
	// the HTTP layer reads back what the orchestrator reports.
	Progress(ctx context.Context, id string, completed, total int, label string)
	Done(ctx context.Context, id string, report *entity.BatchReport)

	CleanupExpiredBatches(ctx context.Context, interval time.Duration)
}

type storage struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics

	mu      sync.RWMutex
	batches map[string]*entity.Batch // batch UUID : batch
}

// New creates a new in-memory storage instance and starts its cleanup loop.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) Storer {
	stg := &storage{
		log:     log.With(slog.String("package", "storage")),
		cfg:     cfg,
		metrics: metrics,
		batches: make(map[string]*entity.Batch),
	}

	go stg.CleanupExpiredBatches(ctx, cfg.Storage.CleanupInterval)

	return stg
}

func (stg *storage) SetBatch(ctx context.Context, batch *entity.Batch) {
	if batch == nil || batch.UUID == "" {
		stg.log.ErrorContext(ctx, "set batch: nil or unidentified batch")

		return
	}

	stg.mu.Lock()
	defer stg.mu.Unlock()

	stg.batches[batch.UUID] = batch
	stg.metrics.SetStoredBatches(len(stg.batches))
}

func (stg *storage) GetBatchByID(_ context.Context, id string) *entity.Batch {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	return stg.batches[id]
}

func (stg *storage) GetBatches(_ context.Context) ([]*entity.Batch, error) {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	if len(stg.batches) == 0 {
		return nil, errs.ErrNoBatches
	}

	batches := make([]*entity.Batch, 0, len(stg.batches))
	for _, batch := range stg.batches {
		batches = append(batches, batch)
	}

	return batches, nil
}

func (stg *storage) SetStatus(ctx context.Context, id string, status entity.BatchStatus, errorMsg string) {
	stg.mu.Lock()
	defer stg.mu.Unlock()

	batch, ok := stg.batches[id]
	if !ok {
		stg.log.ErrorContext(ctx, "set status: unknown batch", slog.String("batch_id", id))

		return
	}

	batch.Status = status
	batch.UpdatedAt = time.Now()
	if errorMsg != "" {
		batch.Error = errorMsg
	}

	stg.log.DebugContext(ctx, "batch status updated", "batch", batch)
}

func (stg *storage) SetArchive(ctx context.Context, id, archivePath string) {
	stg.mu.Lock()
	defer stg.mu.Unlock()

	batch, ok := stg.batches[id]
	if !ok {
		stg.log.ErrorContext(ctx, "set archive: unknown batch", slog.String("batch_id", id))

		return
	}

	batch.ArchivePath = archivePath
	batch.UpdatedAt = time.Now()
}

func (stg *storage) Progress(ctx context.Context, id string, completed, total int, label string) {
	stg.mu.Lock()
	defer stg.mu.Unlock()

	batch, ok := stg.batches[id]
	if !ok {
		stg.log.ErrorContext(ctx, "progress: unknown batch", slog.String("batch_id", id))

		return
	}

	// Monotonic: a stale event never moves the counter backwards.
	if completed < batch.Completed {
		return
	}

	batch.Completed = completed
	batch.Total = total
	batch.CurrentLabel = label
	batch.Progress = calc.Progress(completed, total)
	batch.EstimatedETA = calc.ETA(completed, total, batch.CreatedAt)
	batch.UpdatedAt = time.Now()

	stg.log.DebugContext(ctx, "batch progress", "batch", batch)
}

func (stg *storage) Done(ctx context.Context, id string, report *entity.BatchReport) {
	stg.mu.Lock()
	defer stg.mu.Unlock()

	batch, ok := stg.batches[id]
	if !ok {
		stg.log.ErrorContext(ctx, "done: unknown batch", slog.String("batch_id", id))

		return
	}

	batch.Report = report
	batch.UpdatedAt = time.Now()
}
