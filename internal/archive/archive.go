// Package archive packages the successful outputs of a batch into one
// downloadable container.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"reelbatch/internal/consts"
	"reelbatch/internal/errs"
	"reelbatch/internal/observability"

	"github.com/ulikunitz/xz"
)

// Packager builds flat archives: one entry per input file, stored under its
// base name with directory components stripped. Duplicate base names are
// written as-is; extraction order decides which survives.
type Packager struct {
	log     *slog.Logger
	metrics *observability.Metrics
}

// New creates an archive packager.
func New(log *slog.Logger, metrics *observability.Metrics) *Packager {
	return &Packager{
		log:     log.With(slog.String("package", "archive")),
		metrics: metrics,
	}
}

// Create writes the files into destBase plus the format's extension and
// returns the archive path. The caller decides whether to call at all: an
// empty file list is a caller bug, not a no-op.
func (p *Packager) Create(ctx context.Context, files []string, destBase, format string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no files to package: %w", errs.ErrPackagingFailed)
	}

	var (
		archivePath string
		err         error
	)

	switch format {
	case consts.ArchiveFormatZip, "":
		archivePath, err = p.createZip(ctx, files, destBase)
	case consts.ArchiveFormatTarXz:
		archivePath, err = p.createTarXz(ctx, files, destBase)
	default:
		return "", fmt.Errorf("format %q: %w", format, errs.ErrInvalidArchiveFormat)
	}

	if err != nil {
		os.Remove(archivePath)

		return "", err
	}

	info, err := os.Stat(archivePath)
	if err != nil || info.Size() == 0 {
		os.Remove(archivePath)

		return "", fmt.Errorf("archive %q missing or empty: %w", archivePath, errs.ErrPackagingFailed)
	}

	p.metrics.RecordArchive(info.Size())
	p.log.Debug("archive created",
		slog.String("path", archivePath),
		slog.Int("entries", len(files)),
		slog.Int64("bytes", info.Size()))

	return archivePath, nil
}

func (p *Packager) createZip(ctx context.Context, files []string, destBase string) (string, error) {
	archivePath := destBase + ".zip"

	f, err := os.Create(archivePath)
	if err != nil {
		return archivePath, fmt.Errorf("create archive: %w: %w", errs.ErrPackagingFailed, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			zw.Close()

			return archivePath, fmt.Errorf("packaging interrupted: %w: %w", errs.ErrPackagingFailed, err)
		}

		w, err := zw.Create(filepath.Base(file))
		if err != nil {
			zw.Close()

			return archivePath, fmt.Errorf("create entry %q: %w: %w", file, errs.ErrPackagingFailed, err)
		}

		if err := copyFile(w, file); err != nil {
			zw.Close()

			return archivePath, fmt.Errorf("write entry %q: %w: %w", file, errs.ErrPackagingFailed, err)
		}
	}

	if err := zw.Close(); err != nil {
		return archivePath, fmt.Errorf("close archive: %w: %w", errs.ErrPackagingFailed, err)
	}

	return archivePath, nil
}

func (p *Packager) createTarXz(ctx context.Context, files []string, destBase string) (string, error) {
	archivePath := destBase + ".tar.xz"

	f, err := os.Create(archivePath)
	if err != nil {
		return archivePath, fmt.Errorf("create archive: %w: %w", errs.ErrPackagingFailed, err)
	}
	defer f.Close()

	xzw, err := xz.NewWriter(f)
	if err != nil {
		return archivePath, fmt.Errorf("create xz writer: %w: %w", errs.ErrPackagingFailed, err)
	}

	tw := tar.NewWriter(xzw)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return archivePath, fmt.Errorf("packaging interrupted: %w: %w", errs.ErrPackagingFailed, err)
		}

		info, err := os.Stat(file)
		if err != nil {
			return archivePath, fmt.Errorf("stat %q: %w: %w", file, errs.ErrPackagingFailed, err)
		}

		hdr := &tar.Header{
			Name: filepath.Base(file),
			Mode: 0o644,
			Size: info.Size(),
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return archivePath, fmt.Errorf("write header %q: %w: %w", file, errs.ErrPackagingFailed, err)
		}

		if err := copyFile(tw, file); err != nil {
			return archivePath, fmt.Errorf("write entry %q: %w: %w", file, errs.ErrPackagingFailed, err)
		}
	}

	if err := tw.Close(); err != nil {
		return archivePath, fmt.Errorf("close tar: %w: %w", errs.ErrPackagingFailed, err)
	}

	if err := xzw.Close(); err != nil {
		return archivePath, fmt.Errorf("close xz: %w: %w", errs.ErrPackagingFailed, err)
	}

	return archivePath, nil
}

func copyFile(w io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(w, src)

	return err
}

// ContentType returns the MIME type for a packaged archive format.
func ContentType(format string) string {
	if format == consts.ArchiveFormatTarXz {
		return "application/x-xz"
	}

	return "application/zip"
}

// Ext returns the filename extension for a packaged archive format.
func Ext(format string) string {
	if format == consts.ArchiveFormatTarXz {
		return ".tar.xz"
	}

	return ".zip"
}
