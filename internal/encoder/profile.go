package encoder

import (
	"fmt"
	"strings"

	"reelbatch/internal/config"
	"reelbatch/internal/errs"
	"reelbatch/pkg/ptr"

	"github.com/floostack/transcoder/ffmpeg"
)

// strictExperimental unlocks ffmpeg's native aac encoder on older builds.
const strictExperimental = -2

// Enumerated values a profile may use. The target is QuickTime/Mac
// compatibility, so the sets are deliberately narrow.
var (
	allowedVideoCodecs = map[string]struct{}{"libx264": {}, "libx265": {}, "copy": {}}
	allowedAudioCodecs = map[string]struct{}{"aac": {}, "copy": {}}
	allowedPixFmts     = map[string]struct{}{"yuv420p": {}, "yuv422p": {}, "yuv444p": {}}
)

// Profile is the fixed target encoding profile: validated once at startup,
// immutable afterwards, shared by every batch.
type Profile struct {
	VideoCodec  string
	AudioCodec  string
	PixelFormat string
	ScaleFilter string // empty disables scaling
}

// NewProfile builds and validates the profile from configuration.
func NewProfile(cfg config.Encode) (Profile, error) {
	p := Profile{
		VideoCodec:  cfg.VideoCodec,
		AudioCodec:  cfg.AudioCodec,
		PixelFormat: cfg.PixelFormat,
		ScaleFilter: cfg.ScaleFilter,
	}

	if _, ok := allowedVideoCodecs[p.VideoCodec]; !ok {
		return Profile{}, fmt.Errorf("video codec %q: %w", p.VideoCodec, errs.ErrInvalidProfile)
	}

	if _, ok := allowedAudioCodecs[p.AudioCodec]; !ok {
		return Profile{}, fmt.Errorf("audio codec %q: %w", p.AudioCodec, errs.ErrInvalidProfile)
	}

	if _, ok := allowedPixFmts[p.PixelFormat]; !ok {
		return Profile{}, fmt.Errorf("pixel format %q: %w", p.PixelFormat, errs.ErrInvalidProfile)
	}

	if p.ScaleFilter != "" && !strings.HasPrefix(p.ScaleFilter, "scale=") {
		return Profile{}, fmt.Errorf("scale filter %q: %w", p.ScaleFilter, errs.ErrInvalidProfile)
	}

	return p, nil
}

// Options maps the profile onto ffmpeg flags.
func (p Profile) Options() *ffmpeg.Options {
	opts := &ffmpeg.Options{
		VideoCodec: ptr.Of(p.VideoCodec),
		AudioCodec: ptr.Of(p.AudioCodec),
		PixFmt:     ptr.Of(p.PixelFormat),
		Strict:     ptr.Of(strictExperimental),
		Overwrite:  ptr.Of(true),
	}

	if p.ScaleFilter != "" {
		opts.VideoFilter = ptr.Of(p.ScaleFilter)
	}

	return opts
}
