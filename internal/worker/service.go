// Package worker orchestrates the feed pipelines. It wires transport,
// discovery, parsing and content extraction into three operations (feed
// discovery, feed synchronization, story enrichment) and reports every
// terminal outcome to the result sink.
package worker

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/hash"
	"github.com/feedworks/feedsync/internal/metrics"
	"github.com/feedworks/feedsync/internal/parser"
)

// Hard truncation points for story enrichment payloads, and the default
// proxy/redirect heuristics.
const (
	DefaultMaxStoryHTML = 5000000
	DefaultMaxContent   = 1024000
	DefaultMaxSummary   = 300

	// DefaultSwitchProb is the chance of dropping proxy usage on a sync
	// that would otherwise use it.
	DefaultSwitchProb = 0.25

	// DefaultMaxRedirects bounds the client-side redirect hops followed
	// after the initial story fetch.
	DefaultMaxRedirects = 2
)

// Config tunes the worker pipelines. Zero values fall back to the defaults
// above.
type Config struct {
	SwitchProb   float64
	MaxRedirects int
	MaxStoryHTML int
	MaxContent   int
	MaxSummary   int
}

func (c Config) withDefaults() Config {
	if c.SwitchProb <= 0 {
		c.SwitchProb = DefaultSwitchProb
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.MaxStoryHTML <= 0 {
		c.MaxStoryHTML = DefaultMaxStoryHTML
	}
	if c.MaxContent <= 0 {
		c.MaxContent = DefaultMaxContent
	}
	if c.MaxSummary <= 0 {
		c.MaxSummary = DefaultMaxSummary
	}
	return c
}

// FindFeedRequest asks for feed discovery at or near a candidate URL.
type FindFeedRequest struct {
	FeedCreationID int64  `json:"feed_creation_id"`
	URL            string `json:"url"`
}

// SyncFeedRequest carries one sync invocation. ChecksumDataBase64 and
// ContentHashBase64 are round-tripped verbatim from the previous sync;
// IsRefresh discards conditional tokens and fingerprint history so every
// entry is re-emitted.
type SyncFeedRequest struct {
	FeedID             int64  `json:"feed_id"`
	URL                string `json:"url"`
	UseProxy           bool   `json:"use_proxy"`
	ChecksumDataBase64 string `json:"checksum_data_base64"`
	ContentHashBase64  string `json:"content_hash_base64"`
	ETag               string `json:"etag"`
	LastModified       string `json:"last_modified"`
	IsRefresh          bool   `json:"is_refresh"`
}

// FetchStoryRequest asks for story webpage enrichment. NumSubSentences is
// the sentence count of the feed-supplied summary; when set, it gates the
// full-text acceptance heuristic.
type FetchStoryRequest struct {
	FeedID          int64  `json:"feed_id"`
	Offset          int    `json:"offset"`
	URL             string `json:"url"`
	UseProxy        bool   `json:"use_proxy"`
	NumSubSentences *int   `json:"num_sub_sentences"`
}

// Service executes the worker operations. Each operation is an independent
// unit of work; the service holds no per-feed state and is safe for
// concurrent invocations.
type Service struct {
	feedReader  feed.Reader
	storyReader feed.Reader
	finder      feed.Finder
	sink        feed.ResultSink
	proxy       feed.ProxyPolicy
	dns         feed.DNSResolver
	clock       feed.Clock
	raw         *parser.RawParser
	cfg         Config
	logger      *zap.Logger

	randFloat func() float64
}

// New constructs a Service. The story reader is expected to carry a shorter
// timeout than the feed reader so enrichment stays under the caller's own
// deadline budget.
func New(
	feedReader feed.Reader,
	storyReader feed.Reader,
	finder feed.Finder,
	sink feed.ResultSink,
	proxyPolicy feed.ProxyPolicy,
	dnsResolver feed.DNSResolver,
	clock feed.Clock,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		feedReader:  feedReader,
		storyReader: storyReader,
		finder:      finder,
		sink:        sink,
		proxy:       proxyPolicy,
		dns:         dnsResolver,
		clock:       clock,
		raw:         parser.NewRawParser(),
		cfg:         cfg.withDefaults(),
		logger:      logger,
		randFloat:   rand.Float64,
	}
}

// FindFeed locates a feed at or near req.URL. It reports progress before any
// network I/O, then exactly one terminal result with accumulated diagnostic
// messages. Discovery or normalization failures become messages, never
// errors; the returned error covers sink delivery only.
func (s *Service) FindFeed(ctx context.Context, req FindFeedRequest) error {
	if err := s.sink.UpdateFeedCreationStatus(ctx, req.FeedCreationID, feed.StatusUpdating); err != nil {
		s.logger.Warn("update feed creation status failed",
			zap.Int64("feed_creation_id", req.FeedCreationID), zap.Error(err))
	}

	useProxy := s.proxy.IsProxyTagged(req.URL)
	found, messages := s.finder.Find(ctx, req.URL, useProxy)

	var normalized *feed.NormalizedFeed
	if found != nil {
		nf, err := s.buildFeed(found.Response, found.Raw, "", false)
		if err != nil {
			s.logger.Error("invalid feed", zap.String("url", req.URL), zap.Error(err))
			messages = append(messages, "invalid feed: "+err.Error())
		} else {
			normalized = nf
		}
	}
	if messages == nil {
		messages = []string{}
	}
	return s.sink.SaveFeedCreationResult(ctx, feed.FeedCreationResult{
		FeedCreationID: req.FeedCreationID,
		Messages:       messages,
		Feed:           normalized,
	})
}

// SyncFeed fetches a feed conditionally, detects whether content actually
// changed and reports either a metadata-only update or a full update with
// the new or changed stories.
func (s *Service) SyncFeed(ctx context.Context, req SyncFeedRequest) error {
	opts := feed.ReadOptions{}
	if !req.IsRefresh {
		opts.ETag = req.ETag
		opts.LastModified = req.LastModified
	}
	opts.UseProxy = s.resolveFeedProxy(req.URL, req.UseProxy)

	resp := s.feedReader.Read(ctx, req.URL, opts)
	s.logger.Info("read feed",
		zap.Int64("feed_id", req.FeedID), zap.String("url", req.URL),
		zap.Int("status", resp.Status), zap.Bool("use_proxy", opts.UseProxy))

	if !opts.UseProxy && s.feedReader.HasProxy() && feed.IsNeedProxy(resp.Status) {
		retry := opts
		retry.UseProxy = true
		proxyResp := s.feedReader.Read(ctx, req.URL, retry)
		s.logger.Info("proxy read feed",
			zap.Int64("feed_id", req.FeedID), zap.String("url", req.URL),
			zap.Int("status", proxyResp.Status))
		if proxyResp.OK() {
			resp = proxyResp
		}
	}

	if !resp.OK() || len(resp.Content) == 0 {
		status := feed.StatusError
		outcome := "error"
		if resp.NotModified() {
			status = feed.StatusReady
			outcome = "not_modified"
		}
		metrics.ObserveFeedSync(req.URL, outcome, 0)
		return s.updateFeedInfo(ctx, req.FeedID, status, resp, "")
	}

	newHash := hash.ContentBase64(resp.Content)
	if !req.IsRefresh && newHash == req.ContentHashBase64 {
		s.logger.Info("feed unchanged by content hash",
			zap.Int64("feed_id", req.FeedID), zap.String("url", req.URL))
		metrics.ObserveFeedSync(req.URL, "unchanged", len(resp.Content))
		return s.updateFeedInfo(ctx, req.FeedID, "", resp, "")
	}

	raw, err := s.raw.Parse(resp)
	if err != nil {
		s.logger.Warn("feed parse failed",
			zap.Int64("feed_id", req.FeedID), zap.String("url", req.URL), zap.Error(err))
		metrics.ObserveFeedSync(req.URL, "error", len(resp.Content))
		return s.updateFeedInfo(ctx, req.FeedID, feed.StatusError, resp, err.Error())
	}
	if len(raw.Warnings) > 0 {
		s.logger.Warn("feed parse warnings",
			zap.Int64("feed_id", req.FeedID), zap.String("url", req.URL),
			zap.Strings("warnings", raw.Warnings))
	}

	normalized, err := s.buildFeed(resp, raw, req.ChecksumDataBase64, req.IsRefresh)
	if err != nil {
		s.logger.Error("invalid feed",
			zap.Int64("feed_id", req.FeedID), zap.String("url", req.URL), zap.Error(err))
		metrics.ObserveFeedSync(req.URL, "error", len(resp.Content))
		return s.updateFeedInfo(ctx, req.FeedID, feed.StatusError, resp, err.Error())
	}

	metrics.ObserveFeedSync(req.URL, "updated", len(resp.Content))
	return s.sink.UpdateFeed(ctx, feed.FeedUpdate{
		FeedID:    req.FeedID,
		Feed:      normalized,
		IsRefresh: req.IsRefresh,
	})
}

// resolveFeedProxy applies the proxy precedence chain. Order matters: the
// resolved-URL override beats the random drop, and an explicit proxy tag
// beats both.
func (s *Service) resolveFeedProxy(url string, useProxy bool) bool {
	if s.dns.IsResolvedURL(url) {
		useProxy = false
	}
	useProxy = useProxy && s.feedReader.HasProxy()
	if useProxy && s.randFloat() < s.cfg.SwitchProb {
		useProxy = false
	}
	if s.proxy.IsProxyTagged(url) {
		useProxy = true
	}
	return useProxy
}

func (s *Service) updateFeedInfo(ctx context.Context, feedID int64, status feed.Status, resp *feed.Response, warnings string) error {
	return s.sink.UpdateFeedInfo(ctx, feed.FeedInfoUpdate{
		FeedID:         feedID,
		Status:         status,
		ResponseStatus: resp.Status,
		Warnings:       warnings,
	})
}
