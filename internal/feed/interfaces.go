package feed

import (
	"context"
	"time"
)

// ReadOptions carries per-fetch knobs for the transport. ETag and
// LastModified enable a conditional fetch; leave both empty to force a
// full response body.
type ReadOptions struct {
	ETag         string
	LastModified string
	UseProxy     bool
}

// Reader performs a single HTTP fetch. Implementations never return an
// error: transport failures are folded into Response.Status using the
// negative status codes, so callers branch on status alone.
type Reader interface {
	Read(ctx context.Context, url string, opts ReadOptions) *Response
	HasProxy() bool
}

// FoundFeed pairs the transport response with the raw parse of a
// discovered feed.
type FoundFeed struct {
	Response *Response
	Raw      *RawFeedResult
}

// Finder locates a working feed at or near a candidate URL. Diagnostic
// messages accumulated during the search are returned alongside the result;
// a nil FoundFeed with nil error means no feed was found.
type Finder interface {
	Find(ctx context.Context, url string, useProxy bool) (*FoundFeed, []string)
}

// ResultSink is the external reporting boundary. All terminal outcomes of
// the worker pipelines flow through it; implementations must be safe for
// concurrent use.
type ResultSink interface {
	UpdateFeedCreationStatus(ctx context.Context, feedCreationID int64, status Status) error
	SaveFeedCreationResult(ctx context.Context, result FeedCreationResult) error
	UpdateFeedInfo(ctx context.Context, update FeedInfoUpdate) error
	UpdateFeed(ctx context.Context, update FeedUpdate) error
	UpdateStory(ctx context.Context, result StoryResult) (StoryUpdateReply, error)
}

// ProxyPolicy decides proxy routing for outbound URLs.
type ProxyPolicy interface {
	// HasProxy reports whether a proxy is configured at all.
	HasProxy() bool
	// IsProxyTagged reports whether the URL is explicitly marked for proxy
	// routing regardless of other signals.
	IsProxyTagged(url string) bool
}

// DNSResolver exposes the DNS cache contract the worker depends on.
type DNSResolver interface {
	// IsResolvedURL reports whether the URL's host is already resolved in
	// the local cache, making proxy routing unnecessary.
	IsResolvedURL(url string) bool
	// Refresh re-resolves the tracked hosts.
	Refresh(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
