package service_test

import (
	"archive/zip"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelbatch/internal/archive"
	"reelbatch/internal/config"
	"reelbatch/internal/consts"
	"reelbatch/internal/credential"
	"reelbatch/internal/encoder"
	"reelbatch/internal/entity"
	"reelbatch/internal/errs"
	"reelbatch/internal/observability"
	"reelbatch/internal/pipeline"
	"reelbatch/internal/retriever"
	"reelbatch/internal/service"
	"reelbatch/internal/storage"
)

// testCookies is long enough to pass the minimum cookie jar length check.
const testCookies = "# Netscape HTTP Cookie File\n.example.com\tTRUE\t/\tFALSE\t0\tsid\tabc123\n"

type harness struct {
	svc     service.Batch
	storer  storage.Storer
	ret     *retriever.Mock
	enc     *encoder.Mock
	cfg     *config.Config
	metrics *observability.Metrics
}

func newHarness(t *testing.T, mutate func(cfg *config.Config), observer service.Observer) *harness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := &config.Config{
		Batch: config.Batch{
			Workers:   1,
			Timeout:   consts.DefaultBatchTimeout,
			QueueSize: consts.DefaultQueueSize,
		},
		Dir: config.Dir{
			Work:     t.TempDir(),
			Archives: t.TempDir(),
		},
		Storage: config.Storage{
			TTL:             consts.DefaultBatchTTL,
			CleanupInterval: time.Hour,
		},
		Auth:     config.Auth{Cookies: testCookies},
		Retrieve: config.Retrieve{Timeout: time.Minute},
		Archive:  config.Archive{Format: consts.ArchiveFormatZip},
	}

	if mutate != nil {
		mutate(cfg)
	}

	metrics := observability.New()
	storer := storage.New(t.Context(), log, cfg, metrics)
	ret := retriever.NewMock()
	enc := encoder.NewMock()
	pipe := pipeline.New(log, cfg, ret, enc)
	packager := archive.New(log, metrics)
	resolver := credential.NewResolver(log, cfg)

	if observer == nil {
		observer = storer
	}

	svc := service.New(log, cfg, storer, pipe, packager, resolver, observer, metrics)
	svc.Start(t.Context())

	return &harness{svc: svc, storer: storer, ret: ret, enc: enc, cfg: cfg, metrics: metrics}
}

func waitForTerminal(t *testing.T, storer storage.Storer, id string) *entity.Batch {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		batch := storer.GetBatchByID(t.Context(), id)
		if batch != nil &&
			(batch.Status == entity.BatchStatusDone || batch.Status == entity.BatchStatusFailed) {
			return batch
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("batch %s never reached a terminal status", id)

	return nil
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive %s: %v", path, err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	return names
}

func TestEnqueueFullBatch(t *testing.T) {
	h := newHarness(t, nil, nil)

	input := "http://example.com/one - My Clip\nhttp://example.com/two\n"

	batch, err := h.svc.Enqueue(t.Context(), input, "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if batch.Total != 2 {
		t.Fatalf("expected 2 items, got %d", batch.Total)
	}

	got := waitForTerminal(t, h.storer, batch.UUID)
	if got.Status != entity.BatchStatusDone {
		t.Fatalf("expected done, got %s (error %q)", got.Status, got.Error)
	}

	want := []string{"My Clip.mp4", "item2_mac.mp4"}
	if len(got.Report.Successes) != len(want) {
		t.Fatalf("expected %d successes, got %+v", len(want), got.Report.Successes)
	}

	for i, name := range want {
		if got.Report.Successes[i] != name {
			t.Errorf("success[%d]: expected %q, got %q", i, name, got.Report.Successes[i])
		}
	}

	if len(got.Report.Failures) != 0 {
		t.Errorf("expected no failures, got %+v", got.Report.Failures)
	}

	if got.ArchivePath == "" {
		t.Fatal("expected an archive path")
	}

	entries := zipEntries(t, got.ArchivePath)
	if len(entries) != 2 {
		t.Errorf("expected 2 archive entries, got %v", entries)
	}

	for _, name := range entries {
		if strings.ContainsRune(name, '/') {
			t.Errorf("archive entry %q is not flat", name)
		}
	}
}

func TestTranscodeFailureDegrades(t *testing.T) {
	h := newHarness(t, nil, nil)

	// The second retrieved file fails to transcode; the original is kept.
	h.enc.Fail["item2.mp4"] = true

	input := "http://example.com/one\nhttp://example.com/two\n"

	batch, err := h.svc.Enqueue(t.Context(), input, "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got := waitForTerminal(t, h.storer, batch.UUID)
	if got.Status != entity.BatchStatusDone {
		t.Fatalf("expected done, got %s (error %q)", got.Status, got.Error)
	}

	if len(got.Report.Successes) != 2 || len(got.Report.Failures) != 0 {
		t.Fatalf("expected 2 successes and 0 failures, got %+v", got.Report)
	}

	if got.Report.Successes[1] != "item2.mp4" {
		t.Errorf("expected degraded original %q, got %q", "item2.mp4", got.Report.Successes[1])
	}
}

func TestRetrievalFailureIsolated(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.ret.Fail["http://example.com/broken"] = true

	input := "http://example.com/broken\nhttp://example.com/two\n"

	batch, err := h.svc.Enqueue(t.Context(), input, "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got := waitForTerminal(t, h.storer, batch.UUID)
	if got.Status != entity.BatchStatusDone {
		t.Fatalf("expected done, got %s (error %q)", got.Status, got.Error)
	}

	if len(got.Report.Successes) != 1 || len(got.Report.Failures) != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %+v", got.Report)
	}

	failure := got.Report.Failures[0]
	if failure.SourceURL != "http://example.com/broken" {
		t.Errorf("expected failure for broken URL, got %q", failure.SourceURL)
	}

	if failure.Reason != entity.ErrorKindRetrieval {
		t.Errorf("expected retrieval failure, got %q", failure.Reason)
	}

	// Every item is accounted for exactly once.
	if got.Report.Total() != batch.Total {
		t.Errorf("expected report to cover %d items, got %d", batch.Total, got.Report.Total())
	}
}

func TestEnqueueEmptyInput(t *testing.T) {
	h := newHarness(t, nil, nil)

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "blank lines only", input: "\n  \n\t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Enqueue(t.Context(), tt.input, "", "")
			if !errors.Is(err, errs.ErrEmptyBatch) {
				t.Fatalf("expected ErrEmptyBatch, got %v", err)
			}
		})
	}
}

func TestEnqueueNoCredential(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Auth = config.Auth{}
	}, nil)

	_, err := h.svc.Enqueue(t.Context(), "http://example.com/one\n", "", "")
	if !errors.Is(err, errs.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}

	// The precondition rejects the batch whole: zero retrieval attempts.
	if calls := h.ret.Calls.Load(); calls != 0 {
		t.Errorf("expected no retrieval attempts, got %d", calls)
	}
}

func TestEnqueueShortCookieText(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, err := h.svc.Enqueue(t.Context(), "http://example.com/one\n", "ok", "")
	if !errors.Is(err, errs.ErrCookieTooShort) {
		t.Fatalf("expected ErrCookieTooShort, got %v", err)
	}
}

func TestEnqueueInvalidFormat(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, err := h.svc.Enqueue(t.Context(), "http://example.com/one\n", "", "rar")
	if !errors.Is(err, errs.ErrInvalidArchiveFormat) {
		t.Fatalf("expected ErrInvalidArchiveFormat, got %v", err)
	}
}

func TestEnqueueDuplicateBatch(t *testing.T) {
	h := newHarness(t, nil, nil)

	input := "http://example.com/one\n"

	first, err := h.svc.Enqueue(t.Context(), input, "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dup, err := h.svc.Enqueue(t.Context(), input, "", "")
	if !errors.Is(err, errs.ErrBatchAlreadyExists) {
		t.Fatalf("expected ErrBatchAlreadyExists, got %v", err)
	}

	if dup == nil || dup.UUID != first.UUID {
		t.Errorf("expected the existing batch back")
	}

	waitForTerminal(t, h.storer, first.UUID)
}

type recordingObserver struct {
	mu       sync.Mutex
	progress []int
	labels   []string
	report   *entity.BatchReport
}

func (o *recordingObserver) Progress(_ context.Context, _ string, completed, _ int, label string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.progress = append(o.progress, completed)
	o.labels = append(o.labels, label)
}

func (o *recordingObserver) Done(_ context.Context, _ string, report *entity.BatchReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.report = report
}

func TestProgressEvents(t *testing.T) {
	obs := &recordingObserver{}
	h := newHarness(t, nil, obs)

	input := "http://example.com/one - First Clip\nhttp://example.com/two\nhttp://example.com/three\n"

	batch, err := h.svc.Enqueue(t.Context(), input, "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForTerminal(t, h.storer, batch.UUID)

	obs.mu.Lock()
	defer obs.mu.Unlock()

	if len(obs.progress) != 3 {
		t.Fatalf("expected 3 progress events, got %v", obs.progress)
	}

	for i, completed := range obs.progress {
		if completed != i+1 {
			t.Errorf("event %d: expected completed %d, got %d", i, i+1, completed)
		}
	}

	if obs.labels[0] != "First Clip" {
		t.Errorf("expected custom name label, got %q", obs.labels[0])
	}

	if obs.labels[1] != "http://example.com/two" {
		t.Errorf("expected URL label, got %q", obs.labels[1])
	}

	if obs.report == nil || obs.report.Total() != 3 {
		t.Errorf("expected final report covering 3 items, got %+v", obs.report)
	}
}

func TestPackagingFailureFailsBatch(t *testing.T) {
	// A regular file where the archives directory should go makes
	// packaging impossible without touching the per-item pipeline.
	blocker := filepath.Join(t.TempDir(), "archives")
	if err := os.WriteFile(blocker, []byte("in the way"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	h := newHarness(t, func(cfg *config.Config) {
		cfg.Dir.Archives = blocker
	}, nil)

	batch, err := h.svc.Enqueue(t.Context(), "http://example.com/one - My Clip", "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got := waitForTerminal(t, h.storer, batch.UUID)
	if got.Status != entity.BatchStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}

	if got.Error == "" {
		t.Error("expected a batch error message")
	}

	if got.Report == nil || len(got.Report.Successes) != 1 {
		t.Fatalf("expected the item report to survive packaging failure, got %+v", got.Report)
	}

	if got.ArchivePath != "" {
		t.Errorf("expected no archive path, got %q", got.ArchivePath)
	}
}

func TestStartDefaultWorkerCount(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Batch.Workers = 0
	}, nil)

	batch, err := h.svc.Enqueue(t.Context(), "http://example.com/one", "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got := waitForTerminal(t, h.storer, batch.UUID)
	if got.Status != entity.BatchStatusDone {
		t.Fatalf("expected done, got %s (error %q)", got.Status, got.Error)
	}
}
