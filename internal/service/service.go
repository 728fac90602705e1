// Package service implements the batch orchestrator: it accepts raw input,
// runs items through the pipeline and hands finished files to the packager.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"reelbatch/internal/archive"
	"reelbatch/internal/config"
	"reelbatch/internal/consts"
	"reelbatch/internal/credential"
	"reelbatch/internal/entity"
	"reelbatch/internal/errs"
	"reelbatch/internal/observability"
	"reelbatch/internal/parse"
	"reelbatch/internal/pipeline"
	"reelbatch/internal/storage"
	"reelbatch/pkg/gen"
)

// Observer receives progress events while a batch runs. The batch store is
// the default observer; tests plug in their own.
type Observer interface {
	Progress(ctx context.Context, batchID string, completed, total int, label string)
	Done(ctx context.Context, batchID string, report *entity.BatchReport)
}

// Batch is the orchestrator's public surface.
type Batch interface {
	Start(ctx context.Context)

	Enqueue(ctx context.Context, input, cookieText, format string) (*entity.Batch, error)

	GetByID(ctx context.Context, id string) *entity.Batch
	GetAll(ctx context.Context) ([]*entity.Batch, error)
}

type workItem struct {
	batch *entity.Batch
	cred  *credential.Credential
}

type batchService struct {
	log      *slog.Logger
	cfg      *config.Config
	storer   storage.Storer
	pipe     *pipeline.Pipeline
	packager *archive.Packager
	resolver *credential.Resolver
	observer Observer
	metrics  *observability.Metrics

	queue chan *workItem

	wg        sync.WaitGroup
	closed    atomic.Bool
	startOnce sync.Once
}

var _ Batch = (*batchService)(nil)

// New creates the orchestrator. The observer may be nil.
func New(
	log *slog.Logger,
	cfg *config.Config,
	storer storage.Storer,
	pipe *pipeline.Pipeline,
	packager *archive.Packager,
	resolver *credential.Resolver,
	observer Observer,
	metrics *observability.Metrics,
) Batch {
	return &batchService{
		log:      log.With(slog.String("package", "service")),
		cfg:      cfg,
		storer:   storer,
		pipe:     pipe,
		packager: packager,
		resolver: resolver,
		observer: observer,
		metrics:  metrics,
		queue:    make(chan *workItem, cfg.Batch.QueueSize),
	}
}

// Start launches the worker pool. Safe to call more than once.
func (svc *batchService) Start(ctx context.Context) {
	svc.startOnce.Do(func() {
		workers := svc.cfg.Batch.Workers
		if workers <= 0 {
			workers = consts.DefaultBatchWorkers
		}

		for i := range workers {
			svc.wg.Add(1)
			go svc.worker(ctx, i)
		}
	})
}

// Enqueue validates input, resolves a credential and queues the batch.
// Credential resolution happens before any work: a batch with no usable
// authentication is rejected whole, with zero retrieval attempts.
func (svc *batchService) Enqueue(ctx context.Context, input, cookieText, format string) (*entity.Batch, error) {
	if svc.closed.Load() {
		return nil, errs.ErrServiceClosed
	}

	items := parse.Items(input)
	if len(items) == 0 {
		return nil, errs.ErrEmptyBatch
	}

	if format == "" {
		format = svc.cfg.Archive.Format
	}

	if format != consts.ArchiveFormatZip && format != consts.ArchiveFormatTarXz {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidArchiveFormat, format)
	}

	cred, err := svc.resolver.Resolve(cookieText)
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}

	id := gen.UUIDv5(input, format)

	existing := svc.storer.GetBatchByID(ctx, id)
	if existing != nil && existing.Status != entity.BatchStatusFailed {
		svc.cleanupCredential(ctx, cred)

		return existing, errs.ErrBatchAlreadyExists
	}

	now := time.Now()
	batch := &entity.Batch{
		UUID:          id,
		Status:        entity.BatchStatusQueued,
		Items:         items,
		Total:         len(items),
		ArchiveFormat: format,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(svc.cfg.Storage.TTL),
	}

	svc.storer.SetBatch(ctx, batch)
	svc.metrics.RecordBatchCreated()

	select {
	case svc.queue <- &workItem{batch: batch, cred: cred}:

		return batch, nil
	case <-ctx.Done():
		svc.cleanupCredential(ctx, cred)

		return nil, fmt.Errorf("enqueue batch canceled: %w", ctx.Err())
	default:
		svc.cleanupCredential(ctx, cred)
		svc.storer.SetStatus(ctx, batch.UUID, entity.BatchStatusFailed, "batch queue is full")
		svc.metrics.RecordBatchFailed()

		return nil, fmt.Errorf("%w: %d/%d", errs.ErrBatchQueueFull, len(svc.queue), cap(svc.queue))
	}
}

func (svc *batchService) GetByID(ctx context.Context, id string) *entity.Batch {
	return svc.storer.GetBatchByID(ctx, id)
}

func (svc *batchService) GetAll(ctx context.Context) ([]*entity.Batch, error) {
	return svc.storer.GetBatches(ctx)
}

func (svc *batchService) worker(ctx context.Context, workerID int) {
	defer svc.wg.Done()

	log := svc.log.With(slog.Int("worker_id", workerID))

	for {
		select {
		case item, ok := <-svc.queue:
			if !ok {
				log.WarnContext(ctx, "batch queue closed")

				return
			}

			if item == nil || item.batch == nil {
				log.WarnContext(ctx, "received nil batch")

				continue
			}

			svc.processBatch(ctx, item)
		case <-ctx.Done():
			svc.closed.Store(true)
			log.InfoContext(ctx, "got ctx done signal", slog.Any("error", ctx.Err()))

			return
		}
	}
}

// processBatch runs a whole batch: items sequentially, then packaging.
// One failing item never aborts the batch; only a packaging failure does.
func (svc *batchService) processBatch(ctx context.Context, item *workItem) {
	batch, cred := item.batch, item.cred

	defer svc.cleanupCredential(ctx, cred)

	stop := svc.metrics.BatchTimer()
	defer stop()

	batchCtx, cancel := context.WithTimeout(ctx, svc.cfg.Batch.Timeout)
	defer cancel()

	scratch, err := svc.makeScratchDir(batch.UUID)
	if err != nil {
		svc.failBatch(ctx, batch, fmt.Errorf("scratch dir: %w", err))

		return
	}

	batch.ScratchDir = scratch
	svc.storer.SetStatus(ctx, batch.UUID, entity.BatchStatusRunning, "")

	report := &entity.BatchReport{
		Successes: []string{},
		Failures:  []entity.ItemFailure{},
	}

	var outputs []string

	for i, it := range batch.Items {
		outcome := svc.pipe.Run(batchCtx, it, cred, scratch)
		svc.metrics.RecordItemOutcome(outcome.Succeeded(), outcome.Degraded)

		if outcome.Succeeded() {
			outputs = append(outputs, outcome.OutputPath)
			report.Successes = append(report.Successes, filepath.Base(outcome.OutputPath))
		} else {
			report.Failures = append(report.Failures, *outcome.Failure)
		}

		svc.notifyProgress(ctx, batch.UUID, i+1, len(batch.Items), it.Label())
	}

	if len(outputs) > 0 {
		archivePath, err := svc.packageOutputs(batchCtx, batch, outputs)
		if err != nil {
			svc.notifyDone(ctx, batch.UUID, report)
			svc.failBatch(ctx, batch, fmt.Errorf("package outputs: %w", err))

			return
		}

		svc.storer.SetArchive(ctx, batch.UUID, archivePath)
	}

	svc.removeScratch(ctx, batch)

	svc.notifyDone(ctx, batch.UUID, report)
	svc.storer.SetStatus(ctx, batch.UUID, entity.BatchStatusDone, "")
	svc.metrics.RecordBatchCompleted()

	svc.log.InfoContext(ctx, "batch processed", "batch", batch,
		slog.Int("successes", len(report.Successes)),
		slog.Int("failures", len(report.Failures)))
}

func (svc *batchService) makeScratchDir(batchID string) (string, error) {
	if err := os.MkdirAll(svc.cfg.Dir.Work, 0o750); err != nil {
		return "", fmt.Errorf("ensure work dir: %w", err)
	}

	scratch, err := os.MkdirTemp(svc.cfg.Dir.Work, "batch-"+batchID+"-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	return scratch, nil
}

func (svc *batchService) packageOutputs(ctx context.Context, batch *entity.Batch, outputs []string) (string, error) {
	if err := os.MkdirAll(svc.cfg.Dir.Archives, 0o750); err != nil {
		return "", fmt.Errorf("ensure archives dir: %w", err)
	}

	destBase := filepath.Join(svc.cfg.Dir.Archives, batch.UUID)

	return svc.packager.Create(ctx, outputs, destBase, batch.ArchiveFormat)
}

func (svc *batchService) failBatch(ctx context.Context, batch *entity.Batch, err error) {
	svc.log.ErrorContext(ctx, "batch failed", "batch", batch, slog.Any("error", err))
	svc.removeScratch(ctx, batch)
	svc.storer.SetStatus(ctx, batch.UUID, entity.BatchStatusFailed, err.Error())
	svc.metrics.RecordBatchFailed()
}

// removeScratch drops the batch's scratch directory once its files are no
// longer needed. Best-effort: a failure is logged and the TTL cleanup gets
// another chance later.
func (svc *batchService) removeScratch(ctx context.Context, batch *entity.Batch) {
	if batch.ScratchDir == "" {
		return
	}

	if err := os.RemoveAll(batch.ScratchDir); err != nil {
		svc.log.WarnContext(ctx, "remove scratch dir", slog.Any("error", err), "batch", batch)

		return
	}

	batch.ScratchDir = ""
}

func (svc *batchService) notifyProgress(ctx context.Context, batchID string, completed, total int, label string) {
	if svc.observer == nil {
		return
	}

	svc.observer.Progress(ctx, batchID, completed, total, label)
}

func (svc *batchService) notifyDone(ctx context.Context, batchID string, report *entity.BatchReport) {
	if svc.observer == nil {
		return
	}

	svc.observer.Done(ctx, batchID, report)
}

func (svc *batchService) cleanupCredential(ctx context.Context, cred *credential.Credential) {
	if cred == nil {
		return
	}

	if err := cred.Cleanup(); err != nil {
		svc.log.WarnContext(ctx, "credential cleanup", slog.Any("error", err))
	}
}
