package retriever

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"reelbatch/internal/config"
	"reelbatch/internal/consts"
	"reelbatch/internal/credential"
	"reelbatch/internal/errs"
	"reelbatch/internal/observability"
)

// Native fetches direct media-file URLs with a plain HTTP GET, skipping the
// yt-dlp process spawn for links that point straight at a file.
type Native struct {
	log     *slog.Logger
	cfg     *config.Config
	client  *http.Client
	metrics *observability.Metrics
}

// NewNative creates a new native retriever.
func NewNative(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) Retriever {
	return &Native{
		log:     log.With(slog.String("package", "retriever"), slog.String("retriever", consts.RetrieverNative)),
		cfg:     cfg,
		client:  &http.Client{},
		metrics: metrics,
	}
}

// Retrieve downloads rawURL into destDir. The item id is the URL path's base
// name without extension, which keeps per-item filenames unique per source.
func (n *Native) Retrieve(ctx context.Context, rawURL, destDir string, _ *credential.Credential) (*Retrieved, error) {
	log := n.log.With(slog.String("url", rawURL))

	u, err := url.Parse(rawURL)
	if err != nil {
		n.metrics.RecordRetrieverError(consts.RetrieverNative, "retrieve")

		return nil, fmt.Errorf("parse url: %w: %w", errs.ErrRetrievalFailed, err)
	}

	base := path.Base(u.Path)
	itemID := strings.TrimSuffix(base, path.Ext(base))
	localPath := filepath.Join(destDir, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		n.metrics.RecordRetrieverError(consts.RetrieverNative, "retrieve")

		return nil, fmt.Errorf("new request: %w: %w", errs.ErrRetrievalFailed, err)
	}
	req.Header.Set("User-Agent", n.cfg.Retrieve.UserAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		n.metrics.RecordRetrieverError(consts.RetrieverNative, classifyError(err))

		return nil, fmt.Errorf("get: %w: %w", errs.ErrRetrievalFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.metrics.RecordRetrieverError(consts.RetrieverNative, "status")

		return nil, fmt.Errorf("get %q: status %d: %w", rawURL, resp.StatusCode, errs.ErrRetrievalFailed)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", localPath, err)
	}

	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(localPath)
		n.metrics.RecordRetrieverError(consts.RetrieverNative, classifyError(err))

		return nil, fmt.Errorf("download %q: %w: %w", rawURL, errs.ErrRetrievalFailed, err)
	}

	if written == 0 {
		os.Remove(localPath)
		n.metrics.RecordRetrieverError(consts.RetrieverNative, "empty")

		return nil, fmt.Errorf("download %q: %w", rawURL, errs.ErrFileMissing)
	}

	n.metrics.RecordRetrieverRequest(consts.RetrieverNative, "ok")
	log.DebugContext(ctx, "retrieved", slog.String("path", localPath), slog.Int64("bytes", written))

	return &Retrieved{Path: localPath, ID: itemID, Title: itemID}, nil
}
