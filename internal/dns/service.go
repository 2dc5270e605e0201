// Package dns keeps a local cache of resolved hosts so the worker can skip
// proxy routing for destinations that are already reachable directly.
package dns

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Resolver abstracts net.Resolver for testing.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Service implements feed.DNSResolver. It is safe for concurrent use: reads
// take the lock briefly and Refresh swaps entries one host at a time.
type Service struct {
	hosts    []string
	resolver Resolver
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string][]string
}

// New builds a Service tracking the given hosts. A nil resolver uses the
// system resolver.
func New(hosts []string, resolver Resolver, logger *zap.Logger) *Service {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}
	return &Service{
		hosts:    normalized,
		resolver: resolver,
		logger:   logger,
		cache:    make(map[string][]string),
	}
}

// IsResolvedURL reports whether the URL's host has addresses in the cache.
func (s *Service) IsResolvedURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache[host]) > 0
}

// Refresh re-resolves every tracked host. Hosts that fail keep their
// previous addresses; the first error is returned after all lookups ran.
func (s *Service) Refresh(ctx context.Context) error {
	var firstErr error
	for _, host := range s.hosts {
		addrs, err := s.resolver.LookupHost(ctx, host)
		if err != nil {
			s.logger.Warn("dns refresh lookup failed",
				zap.String("host", host),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("lookup %s: %w", host, err)
			}
			continue
		}
		s.mu.Lock()
		s.cache[host] = addrs
		s.mu.Unlock()
	}
	return firstErr
}
