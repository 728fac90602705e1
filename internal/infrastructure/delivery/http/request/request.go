// Package request defines the HTTP request bodies and their validation.
package request

import (
	"strings"

	"reelbatch/internal/consts"
	"reelbatch/internal/errs"
)

// CreateBatch is the body of POST /v1/batches. Input carries the raw
// multi-line text, one URL per line with an optional " - name" suffix.
type CreateBatch struct {
	Input   string `json:"input"`
	Cookies string `json:"cookies,omitempty"`
	Format  string `json:"format,omitempty"` // "zip" or "tar.xz", defaults to server config
}

// Validate rejects bodies that cannot possibly produce a batch. Per-line
// parsing happens later; only the whole-body shape is checked here.
func (c *CreateBatch) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errs.ErrEmptyBatch
	}

	if c.Format != "" && c.Format != consts.ArchiveFormatZip && c.Format != consts.ArchiveFormatTarXz {
		return errs.ErrInvalidArchiveFormat
	}

	return nil
}
