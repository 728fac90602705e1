package httprouter_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelbatch/internal/entity"
	"reelbatch/internal/errs"
	httprouter "reelbatch/internal/infrastructure/delivery/http"
	"reelbatch/internal/observability"
)

// stubService scripts the orchestrator so handler behavior can be pinned
// without running workers.
type stubService struct {
	enqueueBatch *entity.Batch
	enqueueErr   error
	batches      map[string]*entity.Batch
}

func (s *stubService) Start(_ context.Context) {}

func (s *stubService) Enqueue(_ context.Context, _, _, _ string) (*entity.Batch, error) {
	return s.enqueueBatch, s.enqueueErr
}

func (s *stubService) GetByID(_ context.Context, id string) *entity.Batch {
	return s.batches[id]
}

func (s *stubService) GetAll(_ context.Context) ([]*entity.Batch, error) {
	if len(s.batches) == 0 {
		return nil, errs.ErrNoBatches
	}

	batches := make([]*entity.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		batches = append(batches, b)
	}

	return batches, nil
}

func newTestRouter(svc *stubService) *httprouter.Router {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return httprouter.New(log, svc, observability.New())
}

func TestCreateBatch(t *testing.T) {
	queued := &entity.Batch{UUID: "b1", Status: entity.BatchStatusQueued, Total: 2}

	tests := []struct {
		name       string
		body       string
		svc        *stubService
		wantStatus int
	}{
		{
			name:       "accepted",
			body:       `{"input":"http://example.com/one\nhttp://example.com/two"}`,
			svc:        &stubService{enqueueBatch: queued},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "invalid json",
			body:       `{"input":`,
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank input",
			body:       `{"input":"  \n "}`,
			svc:        &stubService{},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad format",
			body:       `{"input":"http://example.com/one","format":"rar"}`,
			svc:        &stubService{},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "no credential",
			body:       `{"input":"http://example.com/one"}`,
			svc:        &stubService{enqueueErr: errs.ErrNoCredential},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "cookie text too short",
			body:       `{"input":"http://example.com/one","cookies":"ok"}`,
			svc:        &stubService{enqueueErr: errs.ErrCookieTooShort},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "duplicate batch",
			body:       `{"input":"http://example.com/one"}`,
			svc:        &stubService{enqueueBatch: queued, enqueueErr: errs.ErrBatchAlreadyExists},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "queue full",
			body:       `{"input":"http://example.com/one"}`,
			svc:        &stubService{enqueueErr: errs.ErrBatchQueueFull},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.svc)

			req := httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestGetBatch(t *testing.T) {
	svc := &stubService{batches: map[string]*entity.Batch{
		"b1": {UUID: "b1", Status: entity.BatchStatusRunning, Completed: 1, Total: 3},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/batches/b1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data entity.Batch `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Data.UUID != "b1" || resp.Data.Completed != 1 {
		t.Errorf("unexpected batch in response: %+v", resp.Data)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/batches/missing", nil)
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetBatchesEmpty(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestGetArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "b1.zip")
	if err := os.WriteFile(archivePath, []byte("PK archive bytes"), 0600); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	svc := &stubService{batches: map[string]*entity.Batch{
		"running": {UUID: "running", Status: entity.BatchStatusRunning},
		"empty":   {UUID: "empty", Status: entity.BatchStatusDone},
		"b1": {
			UUID:          "b1",
			Status:        entity.BatchStatusDone,
			ArchivePath:   archivePath,
			ArchiveFormat: "zip",
		},
	}}
	router := newTestRouter(svc)

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "unknown batch", id: "missing", wantStatus: http.StatusNotFound},
		{name: "not done yet", id: "running", wantStatus: http.StatusConflict},
		{name: "done without archive", id: "empty", wantStatus: http.StatusNotFound},
		{name: "served", id: "b1", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/batches/"+tt.id+"/archive", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				return
			}

			if got := rec.Header().Get("Content-Type"); got != "application/zip" {
				t.Errorf("got content type %q, want %q", got, "application/zip")
			}

			if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, `b1.zip`) {
				t.Errorf("content disposition %q missing filename", got)
			}

			if rec.Body.String() != "PK archive bytes" {
				t.Errorf("unexpected archive body %q", rec.Body.String())
			}
		})
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected runtime metrics in exposition output")
	}
}
