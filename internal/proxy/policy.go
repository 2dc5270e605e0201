// Package proxy decides proxy routing for outbound URLs.
package proxy

import (
	"strings"
)

// Config controls the proxy policy.
type Config struct {
	// ProxyURL is the outbound proxy; empty disables proxy routing entirely.
	ProxyURL string
	// TaggedPrefixes lists URL prefixes that must always route through the
	// proxy, regardless of any other signal.
	TaggedPrefixes []string
}

// Policy implements feed.ProxyPolicy.
type Policy struct {
	cfg Config
}

// New builds a Policy.
func New(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// HasProxy reports whether an outbound proxy is configured.
func (p *Policy) HasProxy() bool {
	return p.cfg.ProxyURL != ""
}

// ProxyURL returns the configured proxy endpoint, or "".
func (p *Policy) ProxyURL() string {
	return p.cfg.ProxyURL
}

// IsProxyTagged reports whether the URL is explicitly marked for proxy
// routing. Tag matching is a case-insensitive prefix test.
func (p *Policy) IsProxyTagged(url string) bool {
	lower := strings.ToLower(url)
	for _, prefix := range p.cfg.TaggedPrefixes {
		if prefix != "" && strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}
