// Package retriever defines the retrieval adapter interface and its implementations.
package retriever

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"reelbatch/internal/credential"
)

// Retrieved describes one successfully fetched item. ID is the extractor's
// item identifier; it seeds the on-disk filename, so concurrent items never
// collide inside a shared scratch directory.
type Retrieved struct {
	Path     string
	ID       string
	Title    string
	Duration int
	Width    int
	Height   int
}

// Retriever fetches one URL into destDir and reports the local file.
type Retriever interface {
	Retrieve(ctx context.Context, rawURL, destDir string, cred *credential.Credential) (*Retrieved, error)
}

// mediaExts are file extensions the native retriever fetches directly,
// bypassing yt-dlp.
var mediaExts = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".webm": {},
	".mkv":  {},
	".gif":  {},
}

// auto routes direct media-file URLs to the native retriever and everything
// else through yt-dlp.
type auto struct {
	ytdlp  Retriever
	native Retriever
}

// NewAuto creates the routing retriever used in production.
func NewAuto(ytdlp, native Retriever) Retriever {
	return &auto{ytdlp: ytdlp, native: native}
}

func (a *auto) Retrieve(ctx context.Context, rawURL, destDir string, cred *credential.Credential) (*Retrieved, error) {
	if isDirectMediaURL(rawURL) {
		return a.native.Retrieve(ctx, rawURL, destDir, cred)
	}

	return a.ytdlp.Retrieve(ctx, rawURL, destDir, cred)
}

func isDirectMediaURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	_, ok := mediaExts[ext]

	return ok
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "retrieve"
	}
}
