package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelbatch/internal/config"
	"reelbatch/internal/errs"

	"github.com/floostack/transcoder/ffmpeg"
)

// FFmpeg normalizes files by shelling out to ffmpeg.
type FFmpeg struct {
	log     *slog.Logger
	profile Profile
	cfg     *ffmpeg.Config
}

// NewFFmpeg creates an ffmpeg-backed encoder with the given fixed profile.
func NewFFmpeg(log *slog.Logger, encCfg config.Encode, profile Profile) *FFmpeg {
	return &FFmpeg{
		log:     log.With(slog.String("package", "encoder")),
		profile: profile,
		cfg: &ffmpeg.Config{
			FfmpegBinPath:   encCfg.FFmpegPath,
			FfprobeBinPath:  encCfg.FFprobePath,
			ProgressEnabled: true,
		},
	}
}

// Encode converts inputPath into the target profile, writing next to the
// input. On success the input file is deleted and the output path returned;
// any failure leaves the input untouched for the caller's fallback.
func (e *FFmpeg) Encode(ctx context.Context, inputPath, desiredBase string) (string, error) {
	log := e.log.With(slog.String("input", inputPath))

	outputPath := OutputPath(inputPath, desiredBase)

	trans := ffmpeg.
		New(e.cfg).
		Input(inputPath).
		Output(outputPath).
		WithContext(&ctx)

	progressCh, err := trans.Start(e.profile.Options())
	if err != nil {
		return "", fmt.Errorf("ffmpeg start: %w: %w", errs.ErrTranscodeFailed, err)
	}

	for prog := range progressCh {
		log.DebugContext(ctx, "ffmpeg progress",
			slog.Float64("progress", prog.GetProgress()),
			slog.String("time", prog.GetCurrentTime()),
			slog.String("speed", prog.GetSpeed()))
	}

	if err := ctx.Err(); err != nil {
		os.Remove(outputPath)

		return "", fmt.Errorf("ffmpeg interrupted: %w: %w", errs.ErrTranscodeFailed, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outputPath)

		return "", fmt.Errorf("output %q: %w", outputPath, errs.ErrTranscodeFailed)
	}

	// Exactly one copy survives.
	if err := os.Remove(inputPath); err != nil {
		log.Warn("remove pre-transcode file", slog.Any("error", err))
	}

	log.DebugContext(ctx, "normalized", slog.String("output", outputPath), slog.Int64("bytes", info.Size()))

	return outputPath, nil
}

// OutputPath derives the normalized output path for inputPath. A non-empty
// desiredBase names the file directly; otherwise the input's stem gets the
// normalization suffix, mirroring the rename done for custom names.
func OutputPath(inputPath, desiredBase string) string {
	dir := filepath.Dir(inputPath)

	if desiredBase == "" {
		stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		desiredBase = stem + normalizedSuffix
	}

	return filepath.Join(dir, desiredBase+outputExt)
}
