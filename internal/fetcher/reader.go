// Package fetcher implements the feed transport over net/http.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/ratelimit"
)

const defaultAccept = "application/rss+xml, application/atom+xml, " +
	"application/xml, text/xml, text/html, */*"

// Config controls HTTPReader behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int64
	// ProxyURL enables the proxied client; empty means no proxy available.
	ProxyURL string
	// RatePerHost paces fetches per origin host; zero disables pacing.
	RatePerHost float64
	RateBurst   int
}

// HTTPReader implements feed.Reader. Transport failures never surface as
// errors; they are folded into negative response statuses so callers have a
// single branch point.
type HTTPReader struct {
	cfg         Config
	client      *http.Client
	proxyClient *http.Client
	limiter     *ratelimit.Limiter
	logger      *zap.Logger
}

// New builds an HTTPReader, wiring a second proxied client when
// cfg.ProxyURL is set.
func New(cfg Config, logger *zap.Logger) (*HTTPReader, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &HTTPReader{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: newTransport(nil)},
		limiter: ratelimit.New(ratelimit.Config{DefaultRPS: cfg.RatePerHost, DefaultBurst: cfg.RateBurst}),
		logger:  logger,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		r.proxyClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(http.ProxyURL(proxyURL)),
		}
	}
	return r, nil
}

func newTransport(proxy func(*http.Request) (*url.URL, error)) *http.Transport {
	return &http.Transport{
		Proxy:               proxy,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// HasProxy reports whether a proxied client is configured.
func (r *HTTPReader) HasProxy() bool {
	return r.proxyClient != nil
}

// Read performs one fetch. ETag/LastModified in opts enable a conditional
// request; a 304 comes back with no content. Body reads are bounded by
// cfg.MaxBodySize.
func (r *HTTPReader) Read(ctx context.Context, rawURL string, opts feed.ReadOptions) *feed.Response {
	result := &feed.Response{URL: rawURL, UseProxy: opts.UseProxy}

	if err := r.limiter.Wait(ctx, rawURL); err != nil {
		result.Status = classifyError(err, opts.UseProxy)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Status = feed.StatusConnectionError
		return result
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", defaultAccept)
	if opts.ETag != "" {
		req.Header.Set("If-None-Match", opts.ETag)
	}
	if opts.LastModified != "" {
		req.Header.Set("If-Modified-Since", opts.LastModified)
	}

	client := r.client
	if opts.UseProxy && r.proxyClient != nil {
		client = r.proxyClient
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = classifyError(err, opts.UseProxy)
		r.logger.Debug("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status", result.Status),
			zap.Error(err),
		)
		return result
	}
	defer resp.Body.Close() //nolint:errcheck

	result.Status = resp.StatusCode
	if finalURL := resp.Request.URL.String(); finalURL != "" {
		result.URL = finalURL
	}
	result.ETag = resp.Header.Get("ETag")
	result.LastModified = resp.Header.Get("Last-Modified")
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode == http.StatusNotModified {
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.cfg.MaxBodySize+1))
	if err != nil {
		result.Status = classifyError(err, opts.UseProxy)
		return result
	}
	if int64(len(body)) > r.cfg.MaxBodySize {
		result.Status = feed.StatusContentTooLarge
		return result
	}

	content, encoding := decodeBody(body, resp.Header.Get("Content-Type"))
	result.Content = content
	result.Encoding = encoding
	return result
}

// classifyError maps transport errors onto the negative status codes.
func classifyError(err error, usedProxy bool) int {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return feed.StatusReadTimeout
	case errors.As(err, new(*net.DNSError)):
		return feed.StatusDNSError
	case errors.As(err, new(*tls.CertificateVerificationError)),
		errors.As(err, new(tls.RecordHeaderError)):
		return feed.StatusTLSError
	case errors.As(err, &netErr) && netErr.Timeout():
		return feed.StatusConnectionTimeout
	case strings.Contains(err.Error(), "stopped after"):
		return feed.StatusTooManyRedirects
	case usedProxy:
		return feed.StatusProxyError
	default:
		return feed.StatusConnectionError
	}
}
