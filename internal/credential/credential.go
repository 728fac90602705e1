// Package credential resolves authentication material into one opaque handle.
//
// Material arrives three ways: cookie text pasted with a request, inline
// cookie text pre-provisioned as a secret, or a cookies.txt file on disk.
// All three resolve to a Credential before any retrieval starts; a batch
// without one never starts at all.
package credential

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"reelbatch/internal/config"
	"reelbatch/internal/errs"
)

// minCookieTextLen guards against pasting something that is obviously not a
// cookie jar (a bare "ok", an empty export).
const minCookieTextLen = 50

// Credential is an opaque handle to usable authentication material. The core
// only ever passes it through to the retrieval adapter.
type Credential struct {
	cookieFile string
	temp       bool
}

// CookieFile returns the path of the cookies.txt file backing this credential.
func (c *Credential) CookieFile() string {
	if c == nil {
		return ""
	}

	return c.cookieFile
}

// Cleanup removes the backing temp file, if this credential created one.
// Best-effort: a failure is logged by the caller, never surfaced.
func (c *Credential) Cleanup() error {
	if c == nil || !c.temp {
		return nil
	}

	if err := os.Remove(c.cookieFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cookie file: %w", err)
	}

	return nil
}

// Resolver builds credentials from pasted text or pre-provisioned material.
type Resolver struct {
	log *slog.Logger
	cfg *config.Config
}

// NewResolver creates a credential resolver.
func NewResolver(log *slog.Logger, cfg *config.Config) *Resolver {
	return &Resolver{
		log: log.With(slog.String("package", "credential")),
		cfg: cfg,
	}
}

// Resolve turns pasted cookie text, falling back to the pre-provisioned
// secret or cookie file, into a Credential. Returns errs.ErrNoCredential when
// nothing usable is available and errs.ErrCookieTooShort when pasted text is
// too short to be a cookie jar.
func (r *Resolver) Resolve(pasted string) (*Credential, error) {
	pasted = strings.TrimSpace(pasted)
	if pasted != "" {
		if len(pasted) < minCookieTextLen {
			return nil, errs.ErrCookieTooShort
		}

		return r.fromText(pasted)
	}

	if secret := strings.TrimSpace(r.cfg.Auth.Cookies); secret != "" {
		if len(secret) < minCookieTextLen {
			return nil, errs.ErrCookieTooShort
		}

		return r.fromText(secret)
	}

	if r.cfg.Auth.CookieFile != "" {
		info, err := os.Stat(r.cfg.Auth.CookieFile)
		if err != nil || info.Size() == 0 {
			return nil, fmt.Errorf("cookie file %q unusable: %w", r.cfg.Auth.CookieFile, errs.ErrNoCredential)
		}

		return &Credential{cookieFile: r.cfg.Auth.CookieFile}, nil
	}

	return nil, errs.ErrNoCredential
}

// fromText writes cookie text to a private temp file scoped to one batch run.
func (r *Resolver) fromText(text string) (*Credential, error) {
	f, err := os.CreateTemp("", "reelbatch-cookies-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create cookie file: %w", err)
	}

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())

		return nil, fmt.Errorf("chmod cookie file: %w", err)
	}

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())

		return nil, fmt.Errorf("write cookie file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())

		return nil, fmt.Errorf("close cookie file: %w", err)
	}

	r.log.Debug("cookie text materialized", slog.String("path", f.Name()))

	return &Credential{cookieFile: f.Name(), temp: true}, nil
}
