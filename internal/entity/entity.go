// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"time"
)

// BatchStatus represents the lifecycle state of a batch run.
type BatchStatus string

const (
	// BatchStatusQueued indicates that the batch is accepted and waiting for a worker.
	BatchStatusQueued BatchStatus = "queued"
	// BatchStatusRunning indicates that items are being processed.
	BatchStatusRunning BatchStatus = "running"
	// BatchStatusDone indicates that all items were processed and the report is final.
	BatchStatusDone BatchStatus = "done"
	// BatchStatusFailed indicates that the batch died before delivering (packaging or setup failure).
	BatchStatusFailed BatchStatus = "failed"
)

// ErrorKind classifies a per-item or batch-level failure in reports.
type ErrorKind string

const (
	// ErrorKindRetrieval covers network errors, auth rejections, missing
	// streams and adapter timeouts while fetching a source URL.
	ErrorKindRetrieval ErrorKind = "retrieval"
	// ErrorKindTranscode covers encoder failures. Never appears in a report's
	// failure list: transcode failures downgrade to delivering the original file.
	ErrorKindTranscode ErrorKind = "transcode"
	// ErrorKindPackaging covers archive creation failures.
	ErrorKindPackaging ErrorKind = "packaging"
	// ErrorKindInternal covers unexpected defects caught at the item boundary.
	ErrorKindInternal ErrorKind = "internal"
)

// BatchItem is one parsed unit of work: a source URL with an optional custom
// output name, at a fixed position within the batch. Immutable after parsing.
type BatchItem struct {
	SourceURL  string `json:"sourceUrl"`
	CustomName string `json:"customName,omitempty"`
	Position   int    `json:"position"`
}

// Label is what progress events show for the item: the custom name when the
// user gave one, otherwise the URL.
func (it BatchItem) Label() string {
	if it.CustomName != "" {
		return it.CustomName
	}

	return it.SourceURL
}

// ItemFailure records why one item produced no output file.
type ItemFailure struct {
	SourceURL string    `json:"sourceUrl"`
	Reason    ErrorKind `json:"reason"`
}

// ItemOutcome is the result of processing one BatchItem; exactly one of
// OutputPath or Failure is set.
type ItemOutcome struct {
	Position   int
	OutputPath string
	Degraded   bool // retrieved fine but transcode failed; OutputPath is the original file
	Failure    *ItemFailure
}

// Succeeded reports whether the item produced an output file.
func (o ItemOutcome) Succeeded() bool { return o.Failure == nil }

// BatchReport is the aggregate result of a full batch run. Successes and
// failures each preserve input order.
type BatchReport struct {
	Successes []string      `json:"successes"`
	Failures  []ItemFailure `json:"failures"`
}

// Total is the number of items the report accounts for.
func (r *BatchReport) Total() int {
	if r == nil {
		return 0
	}

	return len(r.Successes) + len(r.Failures)
}

// Batch represents one batch run.
type Batch struct {
	UUID          string        `json:"uuid"`
	Status        BatchStatus   `json:"status"`
	Items         []BatchItem   `json:"items"`
	Completed     int           `json:"completed"`
	Total         int           `json:"total"`
	Progress      int           `json:"progress"` // percent
	CurrentLabel  string        `json:"currentLabel,omitempty"`
	Report        *BatchReport  `json:"report,omitempty"`
	ArchivePath   string        `json:"-"`
	ArchiveFormat string        `json:"archiveFormat"`
	ScratchDir    string        `json:"-"`
	Error         string        `json:"error,omitempty"`
	EstimatedETA  time.Duration `json:"estimatedEta"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	ExpiresAt     time.Time     `json:"expiresAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (b Batch) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("uuid", b.UUID),
		slog.String("status", string(b.Status)),
		slog.Int("completed", b.Completed),
		slog.Int("total", b.Total),
		slog.Int("progress", b.Progress),
		slog.String("current_label", b.CurrentLabel),
		slog.String("archive_format", b.ArchiveFormat),
		slog.Duration("estimated_eta", b.EstimatedETA),
	)
}
