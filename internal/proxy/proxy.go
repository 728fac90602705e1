// Package proxy handles proxy selection and health checking for retrievals.
package proxy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"reelbatch/internal/errs"
)

const (
	defaultSOCKSPort = "1080"
	defaultHTTPPort  = "8080"

	// failureCooldown is how long a proxy sits out after a marked failure.
	failureCooldown = time.Minute
)

// Manager hands out proxy URLs for retrieval requests.
type Manager struct {
	proxies       []string
	healthCheck   bool
	healthTimeout time.Duration

	mu      sync.Mutex
	benched map[string]time.Time // proxy URL : benched-until
}

// New creates a proxy manager from a list of proxy URLs. An empty list is
// valid: Pick then always returns the empty string, meaning direct.
func New(proxyURLs []string, healthCheck bool, healthTimeout time.Duration) (*Manager, error) {
	cleaned := make([]string, 0, len(proxyURLs))

	for _, p := range proxyURLs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if _, err := url.Parse(p); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", p, err)
		}

		cleaned = append(cleaned, p)
	}

	return &Manager{
		proxies:       cleaned,
		healthCheck:   healthCheck,
		healthTimeout: healthTimeout,
		benched:       make(map[string]time.Time),
	}, nil
}

// Pick returns a healthy proxy URL, or the empty string when no proxies are
// configured. With health checking enabled, each candidate is probed once in
// shuffled order.
func (m *Manager) Pick(ctx context.Context) (string, error) {
	if len(m.proxies) == 0 {
		return "", nil
	}

	indices := rand.Perm(len(m.proxies))

	if !m.healthCheck {
		for _, idx := range indices {
			if p := m.proxies[idx]; !m.isBenched(p) {
				return p, nil
			}
		}

		return "", errs.ErrNoProxiesAvailable
	}

	for _, idx := range indices {
		p := m.proxies[idx]
		if m.isBenched(p) {
			continue
		}

		if m.checkHealth(ctx, p) {
			return p, nil
		}
	}

	return "", errs.ErrNoProxiesAvailable
}

// MarkFailure benches a proxy for the cooldown period after a failed retrieval.
func (m *Manager) MarkFailure(proxyURL string) {
	if proxyURL == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.benched[proxyURL] = time.Now().Add(failureCooldown)
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	return len(m.proxies)
}

func (m *Manager) isBenched(proxyURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.benched[proxyURL]
	if !ok {
		return false
	}

	if time.Now().After(until) {
		delete(m.benched, proxyURL)

		return false
	}

	return true
}

// checkHealth attempts a TCP connection to the proxy endpoint.
func (m *Manager) checkHealth(ctx context.Context, proxyURL string) bool {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return false
	}

	host := u.Host
	if !strings.Contains(host, ":") {
		switch u.Scheme {
		case "socks5", "socks5h":
			host = net.JoinHostPort(host, defaultSOCKSPort)
		case "http", "https":
			host = net.JoinHostPort(host, defaultHTTPPort)
		default:
			return false
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.healthTimeout)
	defer cancel()

	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(checkCtx, "tcp", host)
	if err != nil {
		return false
	}
	conn.Close()

	return true
}
