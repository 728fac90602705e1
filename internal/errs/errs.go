// Package errs defines common error variables used across the application.
package errs

import "errors"

var (
	// ErrServiceClosed indicates that the service is closed and cannot accept new batches.
	ErrServiceClosed = errors.New("service is closed")
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// Batch submission errors.
var (
	// ErrEmptyBatch indicates that the input text contained no usable lines.
	ErrEmptyBatch = errors.New("no links provided")
	// ErrNoCredential indicates that no authentication material is available.
	ErrNoCredential = errors.New("no credential available")
	// ErrCookieTooShort indicates that pasted cookie text is too short to be usable.
	ErrCookieTooShort = errors.New("cookie text too short")
	// ErrInvalidArchiveFormat indicates an unsupported archive format was requested.
	ErrInvalidArchiveFormat = errors.New("invalid archive format")
	// ErrBatchAlreadyExists indicates a live batch with the same input and format already exists.
	ErrBatchAlreadyExists = errors.New("batch already exists")
	// ErrBatchQueueFull indicates that the batch queue is full.
	ErrBatchQueueFull = errors.New("batch queue is full")
)

// Batch and storage errors.
var (
	// ErrNoBatches indicates that there are no batches in storage.
	ErrNoBatches = errors.New("no batches")
	// ErrBatchNotFound indicates that the batch is not found in storage.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrBatchNil indicates that the batch is nil.
	ErrBatchNil = errors.New("batch is nil")
	// ErrBatchNotDone indicates that the batch has not finished processing yet.
	ErrBatchNotDone = errors.New("batch not done")
	// ErrNoArchive indicates that the batch produced no archive.
	ErrNoArchive = errors.New("no archive produced")
)

// Per-item and packaging errors.
var (
	// ErrRetrievalFailed indicates that fetching a source URL failed.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrFileMissing indicates that a declared output file does not exist or is empty.
	ErrFileMissing = errors.New("output file missing or empty")
	// ErrTranscodeFailed indicates that normalizing a retrieved file failed.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrPackagingFailed indicates that the archive could not be created.
	ErrPackagingFailed = errors.New("packaging failed")
	// ErrInvalidProfile indicates that the encoding profile configuration is invalid.
	ErrInvalidProfile = errors.New("invalid encoding profile")
	// ErrNoRetriever indicates that no retriever can handle the URL.
	ErrNoRetriever = errors.New("no suitable retriever found")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)
