// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP     HTTP
	App      App
	Batch    Batch
	Dir      Dir
	Storage  Storage
	Auth     Auth
	Retrieve Retrieve
	Encode   Encode
	Archive  Archive
	Proxy    Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"REELBATCH_APP_LOG_LEVEL" envDefault:"info"`
}

// Batch holds batch processing configuration.
type Batch struct {
	Workers   int           `env:"REELBATCH_BATCH_WORKERS"    envDefault:"2"`
	Timeout   time.Duration `env:"REELBATCH_BATCH_TIMEOUT"    envDefault:"30m"`
	QueueSize int           `env:"REELBATCH_BATCH_QUEUE_SIZE" envDefault:"16"`
}

// Storage holds batch store configuration.
type Storage struct {
	TTL             time.Duration `env:"REELBATCH_STORAGE_TTL"              envDefault:"24h"`
	CleanupInterval time.Duration `env:"REELBATCH_STORAGE_CLEANUP_INTERVAL" envDefault:"1h"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"REELBATCH_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"REELBATCH_HTTP_HANDLER_TIMEOUT"  envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"REELBATCH_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for scratch space and served archives.
type Dir struct {
	// Work is the parent of per-batch scratch directories.
	Work string `env:"REELBATCH_DIR_WORK" envDefault:"./data/work"`
	// Archives is where finished archives are written. Kept outside the
	// scratch directories so scratch removal can never clobber a served archive.
	Archives string `env:"REELBATCH_DIR_ARCHIVES" envDefault:"./data/archives"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (d *Dir) SetAbsPaths() error {
	var err error
	if d.Work, err = filepath.Abs(d.Work); err != nil {
		return fmt.Errorf("work: %w", err)
	}

	if d.Archives, err = filepath.Abs(d.Archives); err != nil {
		return fmt.Errorf("archives: %w", err)
	}

	return nil
}

// Auth holds pre-provisioned authentication material. Per-request cookie text
// supplied over HTTP takes precedence over both fields.
type Auth struct {
	// Cookies is inline Netscape cookie-jar text, typically injected as a secret.
	Cookies string `env:"REELBATCH_AUTH_COOKIES" envDefault:""`
	// CookieFile points at an existing cookies.txt file.
	CookieFile string `env:"REELBATCH_AUTH_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts the cookie file path to an absolute path.
func (a *Auth) SetAbsPaths() error {
	if a.CookieFile == "" {
		return nil
	}

	var err error
	if a.CookieFile, err = filepath.Abs(a.CookieFile); err != nil {
		return fmt.Errorf("cookie file: %w", err)
	}

	return nil
}

// Retrieve holds retrieval adapter configuration.
type Retrieve struct {
	// Format is the yt-dlp format selector for the best mp4-compatible streams.
	Format string `env:"REELBATCH_RETRIEVE_FORMAT" envDefault:"bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"` //nolint:lll
	// UserAgent is sent with every retrieval request.
	UserAgent string `env:"REELBATCH_RETRIEVE_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"` //nolint:lll
	// Timeout bounds a single item's retrieval.
	Timeout time.Duration `env:"REELBATCH_RETRIEVE_TIMEOUT" envDefault:"10m"`
}

// Encode holds the fixed target encoding profile and ffmpeg binary locations.
// The profile is constant for the lifetime of the process, not per-batch.
type Encode struct {
	VideoCodec  string `env:"REELBATCH_ENCODE_VIDEO_CODEC"  envDefault:"libx264"`
	AudioCodec  string `env:"REELBATCH_ENCODE_AUDIO_CODEC"  envDefault:"aac"`
	PixelFormat string `env:"REELBATCH_ENCODE_PIXEL_FORMAT" envDefault:"yuv420p"`
	// ScaleFilter upscales to 1080 wide, keeping aspect, height even for yuv420p.
	ScaleFilter string `env:"REELBATCH_ENCODE_SCALE_FILTER" envDefault:"scale=1080:-2:flags=lanczos"`
	FFmpegPath  string `env:"REELBATCH_ENCODE_FFMPEG_PATH"  envDefault:"ffmpeg"`
	FFprobePath string `env:"REELBATCH_ENCODE_FFPROBE_PATH" envDefault:"ffprobe"`
}

// Archive holds archive packaging configuration.
type Archive struct {
	// Format is the default container: "zip" or "tar.xz". A request may
	// override it per batch.
	Format string `env:"REELBATCH_ARCHIVE_FORMAT" envDefault:"zip"`
}

// Proxy holds proxy configuration for retrieval requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h or http format.
	List string `env:"REELBATCH_PROXY_LIST" envDefault:""`
	// HealthCheck enables a TCP connect probe before handing out a proxy.
	HealthCheck bool `env:"REELBATCH_PROXY_HEALTH_CHECK" envDefault:"true"`
	// HealthTimeout bounds a single probe.
	HealthTimeout time.Duration `env:"REELBATCH_PROXY_HEALTH_TIMEOUT" envDefault:"5s"`

	// URLs is the parsed list of proxy URLs.
	URLs []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.URLs = append(p.URLs, proxy)
		}
	}
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.Auth.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set auth absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}
