// Package pipeline processes one batch item end to end: retrieve, verify,
// normalize, rename. Every failure mode is converted into an ItemOutcome at
// this boundary, so nothing an item does can take down the batch loop.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"reelbatch/internal/config"
	"reelbatch/internal/credential"
	"reelbatch/internal/encoder"
	"reelbatch/internal/entity"
	"reelbatch/internal/retriever"
	"reelbatch/pkg/namesafe"
)

// Pipeline composes the retrieval and transcode adapters for one item.
type Pipeline struct {
	log     *slog.Logger
	ret     retriever.Retriever
	enc     encoder.Encoder
	timeout time.Duration
}

// New creates an item pipeline.
func New(log *slog.Logger, cfg *config.Config, ret retriever.Retriever, enc encoder.Encoder) *Pipeline {
	return &Pipeline{
		log:     log.With(slog.String("package", "pipeline")),
		ret:     ret,
		enc:     enc,
		timeout: cfg.Retrieve.Timeout,
	}
}

// Run produces exactly one outcome for one item. A retrieval failure fails
// the item; a transcode failure downgrades to delivering the retrieved file
// as-is; an unexpected panic is caught and recorded as a generic failure.
func (p *Pipeline) Run(ctx context.Context, item entity.BatchItem, cred *credential.Credential, scratchDir string) (outcome entity.ItemOutcome) {
	log := p.log.With(slog.String("url", item.SourceURL), slog.Int("position", item.Position))

	defer func() {
		if rvr := recover(); rvr != nil {
			log.ErrorContext(ctx, "item panicked", slog.Any("panic", rvr))
			outcome = failure(item, entity.ErrorKindInternal)
		}
	}()

	retrieveCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	got, err := p.ret.Retrieve(retrieveCtx, item.SourceURL, scratchDir, cred)
	if err != nil {
		log.ErrorContext(ctx, "retrieve", slog.Any("error", err))

		return failure(item, entity.ErrorKindRetrieval)
	}

	// The adapter already recovers a missing declared path; this is the
	// pipeline's own invariant check before the file is handed onward.
	if info, statErr := os.Stat(got.Path); statErr != nil || info.Size() == 0 {
		log.ErrorContext(ctx, "retrieved file missing or empty", slog.String("path", got.Path))

		return failure(item, entity.ErrorKindRetrieval)
	}

	outputPath, err := p.enc.Encode(ctx, got.Path, desiredBase(item, got))
	if err != nil {
		// Degrade, don't drop: the retrieved file is still a deliverable.
		log.WarnContext(ctx, "transcode failed, delivering original",
			slog.Any("error", err), slog.String("path", got.Path))

		return entity.ItemOutcome{Position: item.Position, OutputPath: got.Path, Degraded: true}
	}

	log.DebugContext(ctx, "item done", slog.String("output", outputPath))

	return entity.ItemOutcome{Position: item.Position, OutputPath: outputPath}
}

// desiredBase picks the output base name: the sanitized custom name when the
// user gave one and it survives sanitization, otherwise empty so the encoder
// derives a name from the retrieved file.
func desiredBase(item entity.BatchItem, got *retriever.Retrieved) string {
	if item.CustomName == "" {
		return ""
	}

	safe := namesafe.Clean(item.CustomName)
	if safe == "" {
		// A name that sanitizes to nothing falls back to the item id
		// so the file never ends up extension-only.
		return got.ID
	}

	return safe
}

func failure(item entity.BatchItem, kind entity.ErrorKind) entity.ItemOutcome {
	return entity.ItemOutcome{
		Position: item.Position,
		Failure:  &entity.ItemFailure{SourceURL: item.SourceURL, Reason: kind},
	}
}
