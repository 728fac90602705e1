// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultBatchTimeout is the default timeout for one whole batch run.
	DefaultBatchTimeout = 30 * time.Minute
	// DefaultBatchWorkers is the default number of concurrent batch workers.
	DefaultBatchWorkers = 2
	// DefaultQueueSize is the default size of the batch queue.
	DefaultQueueSize = 16
	// DefaultBatchTTL is the default time-to-live for finished batches and their files.
	DefaultBatchTTL = 24 * time.Hour
)

// Archive formats.
const (
	// ArchiveFormatZip is the default zip container.
	ArchiveFormatZip = "zip"
	// ArchiveFormatTarXz is the xz-compressed tarball container.
	ArchiveFormatTarXz = "tar.xz"
)

// Retriever identifiers.
const (
	// RetrieverYTdlp is the yt-dlp retriever identifier.
	RetrieverYTdlp = "ytdlp"
	// RetrieverNative is the plain HTTP retriever identifier.
	RetrieverNative = "native"
	// RetrieverMock is the mock retriever identifier for testing.
	RetrieverMock = "mock"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespNothingToDo is returned when the input text parses to zero items.
	RespNothingToDo = "nothing to do"
	// RespAuthRequired is returned when no authentication material is available.
	RespAuthRequired = "authentication required"
	// RespBatchEnqueued is returned when a batch is successfully enqueued.
	RespBatchEnqueued = "batch enqueued"
	// RespBatchEnqueueFail is returned when a batch cannot be enqueued.
	RespBatchEnqueueFail = "batch enqueue failed"
	// RespBatchAlreadyExists is returned when an identical live batch exists.
	RespBatchAlreadyExists = "batch already exists"
	// RespBatchRetrieved is returned when a batch is successfully retrieved.
	RespBatchRetrieved = "batch retrieved"
	// RespBatchesRetrieved is returned when batches are successfully retrieved.
	RespBatchesRetrieved = "batches retrieved"
	// RespBatchNotFound is returned when a batch is not found.
	RespBatchNotFound = "batch not found"
	// RespNoBatches is returned when there are no batches available.
	RespNoBatches = "no batches"
	// RespBatchNotDone is returned when the archive is requested before the batch finished.
	RespBatchNotDone = "batch not done yet"
	// RespNoArchive is returned when a finished batch produced no archive.
	RespNoArchive = "no archive produced"
)
