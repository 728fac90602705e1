package encoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"reelbatch/internal/errs"
)

// Mock is a scripted encoder for tests. Inputs whose base name is listed in
// Fail report a transcode error and leave the input untouched; everything
// else is renamed to the normalized output path, mimicking the real encoder's
// single-surviving-copy behavior.
type Mock struct {
	// Fail lists input base names (with extension) that must fail.
	Fail map[string]bool
}

// NewMock creates a scripted mock encoder.
func NewMock() *Mock {
	return &Mock{Fail: make(map[string]bool)}
}

// Encode renames the input to the derived output path, or fails when scripted to.
func (m *Mock) Encode(_ context.Context, inputPath, desiredBase string) (string, error) {
	if m.Fail[filepath.Base(inputPath)] {
		return "", fmt.Errorf("scripted failure for %q: %w", inputPath, errs.ErrTranscodeFailed)
	}

	outputPath := OutputPath(inputPath, desiredBase)

	if err := os.Rename(inputPath, outputPath); err != nil {
		return "", fmt.Errorf("rename mock output: %w", err)
	}

	return outputPath, nil
}
