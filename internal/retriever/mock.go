package retriever

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"reelbatch/internal/credential"
	"reelbatch/internal/errs"
)

// Mock is a scripted retriever for tests. URLs listed in Fail return a
// retrieval error; everything else materializes a small file named after a
// per-call sequence number.
type Mock struct {
	// Fail lists URLs whose retrieval must fail.
	Fail map[string]bool
	// Calls counts Retrieve invocations, failed or not.
	Calls atomic.Int64
}

// NewMock creates a scripted mock retriever.
func NewMock() *Mock {
	return &Mock{Fail: make(map[string]bool)}
}

// Retrieve writes a non-empty placeholder file into destDir, or fails when
// the URL is scripted to fail.
func (m *Mock) Retrieve(_ context.Context, rawURL, destDir string, _ *credential.Credential) (*Retrieved, error) {
	seq := m.Calls.Add(1)

	if m.Fail[rawURL] {
		return nil, fmt.Errorf("scripted failure for %q: %w", rawURL, errs.ErrRetrievalFailed)
	}

	id := fmt.Sprintf("item%d", seq)
	localPath := filepath.Join(destDir, id+".mp4")

	if err := os.WriteFile(localPath, []byte("video bytes"), 0o600); err != nil {
		return nil, fmt.Errorf("write mock file: %w", err)
	}

	return &Retrieved{Path: localPath, ID: id, Title: id}, nil
}
