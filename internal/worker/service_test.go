package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/hash"
	"github.com/feedworks/feedsync/internal/parser"
)

const syncRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Example Blog</title>
<link>https://blog.example.com/</link>
<description>An example blog</description>
<item><guid>post-1</guid><title>First post</title><link>https://blog.example.com/p/1</link><description>Hello world one.</description><pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate></item>
<item><guid>post-2</guid><title>Second post</title><link>https://blog.example.com/p/2</link><description>Hello world two.</description><pubDate>Tue, 03 Jun 2025 10:00:00 GMT</pubDate></item>
</channel></rss>`

// Same entries, different bytes. Servers that rebuild documents per request
// defeat the content hash but not the fingerprint history.
const syncRSSRebuilt = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Example Blog</title>
<link>https://blog.example.com/</link>
<description>An example blog</description>

<item><guid>post-1</guid><title>First post</title><link>https://blog.example.com/p/1</link><description>Hello world one.</description><pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate></item>
<item><guid>post-2</guid><title>Second post</title><link>https://blog.example.com/p/2</link><description>Hello world two.</description><pubDate>Tue, 03 Jun 2025 10:00:00 GMT</pubDate></item>
</channel></rss>`

type fakeReader struct {
	hasProxy bool
	fn       func(url string, opts feed.ReadOptions) *feed.Response
	urls     []string
	opts     []feed.ReadOptions
}

func (r *fakeReader) Read(_ context.Context, url string, opts feed.ReadOptions) *feed.Response {
	r.urls = append(r.urls, url)
	r.opts = append(r.opts, opts)
	return r.fn(url, opts)
}

func (r *fakeReader) HasProxy() bool { return r.hasProxy }

func respondWith(resp *feed.Response) func(string, feed.ReadOptions) *feed.Response {
	return func(string, feed.ReadOptions) *feed.Response { return resp }
}

type fakeFinder struct {
	found    *feed.FoundFeed
	messages []string
}

func (f *fakeFinder) Find(context.Context, string, bool) (*feed.FoundFeed, []string) {
	return f.found, f.messages
}

type fakeSink struct {
	statuses  []feed.Status
	creations []feed.FeedCreationResult
	infos     []feed.FeedInfoUpdate
	feeds     []feed.FeedUpdate
	stories   []feed.StoryResult
	reply     feed.StoryUpdateReply
}

func (s *fakeSink) UpdateFeedCreationStatus(_ context.Context, _ int64, status feed.Status) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeSink) SaveFeedCreationResult(_ context.Context, result feed.FeedCreationResult) error {
	s.creations = append(s.creations, result)
	return nil
}

func (s *fakeSink) UpdateFeedInfo(_ context.Context, update feed.FeedInfoUpdate) error {
	s.infos = append(s.infos, update)
	return nil
}

func (s *fakeSink) UpdateFeed(_ context.Context, update feed.FeedUpdate) error {
	s.feeds = append(s.feeds, update)
	return nil
}

func (s *fakeSink) UpdateStory(_ context.Context, result feed.StoryResult) (feed.StoryUpdateReply, error) {
	s.stories = append(s.stories, result)
	return s.reply, nil
}

type fakePolicy struct {
	hasProxy bool
	tagged   map[string]bool
}

func (p *fakePolicy) HasProxy() bool              { return p.hasProxy }
func (p *fakePolicy) IsProxyTagged(url string) bool { return p.tagged[url] }

type fakeDNS struct {
	resolved map[string]bool
}

func (d *fakeDNS) IsResolvedURL(url string) bool { return d.resolved[url] }
func (d *fakeDNS) Refresh(context.Context) error { return nil }

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type testHarness struct {
	feedReader  *fakeReader
	storyReader *fakeReader
	finder      *fakeFinder
	sink        *fakeSink
	policy      *fakePolicy
	dns         *fakeDNS
	svc         *Service
}

func newHarness(cfg Config) *testHarness {
	h := &testHarness{
		feedReader:  &fakeReader{},
		storyReader: &fakeReader{},
		finder:      &fakeFinder{},
		sink:        &fakeSink{},
		policy:      &fakePolicy{tagged: map[string]bool{}},
		dns:         &fakeDNS{resolved: map[string]bool{}},
	}
	clock := fakeClock{now: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
	h.svc = New(h.feedReader, h.storyReader, h.finder, h.sink, h.policy, h.dns, clock, cfg, zap.NewNop())
	h.svc.randFloat = func() float64 { return 0.99 }
	return h
}

const feedURL = "https://blog.example.com/feed.xml"

func okResponse(content string) *feed.Response {
	return &feed.Response{
		Status:   200,
		Content:  []byte(content),
		URL:      feedURL,
		ETag:     `"v1"`,
		Encoding: "utf-8",
	}
}

func TestSyncFeedReportsFullUpdate(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(okResponse(syncRSS))

	err := h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL})
	require.NoError(t, err)

	require.Len(t, h.sink.feeds, 1)
	require.Empty(t, h.sink.infos)
	update := h.sink.feeds[0]
	require.Equal(t, int64(7), update.FeedID)
	require.Equal(t, "Example Blog", update.Feed.Title)
	require.Equal(t, "https://blog.example.com/", update.Feed.Link)
	require.Len(t, update.Feed.Storys, 2)
	require.NotEmpty(t, update.Feed.ContentHashBase64)
	require.NotEmpty(t, update.Feed.ChecksumDataBase64)
}

func TestSyncFeedContentHashDedup(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(okResponse(syncRSS))

	err := h.svc.SyncFeed(context.Background(), SyncFeedRequest{
		FeedID:            7,
		URL:               feedURL,
		ContentHashBase64: hash.ContentBase64([]byte(syncRSS)),
	})
	require.NoError(t, err)

	require.Empty(t, h.sink.feeds)
	require.Len(t, h.sink.infos, 1)
	require.Equal(t, feed.Status(""), h.sink.infos[0].Status)
	require.Equal(t, 200, h.sink.infos[0].ResponseStatus)
}

func TestSyncFeedChecksumIdempotence(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(okResponse(syncRSS))
	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL}))
	require.Len(t, h.sink.feeds, 1)
	first := h.sink.feeds[0].Feed

	// Second sync sees different bytes carrying the same entries.
	h.feedReader.fn = respondWith(okResponse(syncRSSRebuilt))
	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{
		FeedID:             7,
		URL:                feedURL,
		ContentHashBase64:  first.ContentHashBase64,
		ChecksumDataBase64: first.ChecksumDataBase64,
	}))
	require.Len(t, h.sink.feeds, 2)
	require.Empty(t, h.sink.feeds[1].Feed.Storys)
}

func TestSyncFeedRefreshReemitsAllEntries(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(okResponse(syncRSS))
	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL}))
	first := h.sink.feeds[0].Feed

	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{
		FeedID:             7,
		URL:                feedURL,
		ContentHashBase64:  first.ContentHashBase64,
		ChecksumDataBase64: first.ChecksumDataBase64,
		IsRefresh:          true,
	}))
	require.Len(t, h.sink.feeds, 2)
	require.True(t, h.sink.feeds[1].IsRefresh)
	require.Len(t, h.sink.feeds[1].Feed.Storys, 2)
}

func TestSyncFeedRefreshDiscardsConditionalTokens(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(okResponse(syncRSS))
	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{
		FeedID:       7,
		URL:          feedURL,
		ETag:         `"v1"`,
		LastModified: "Mon, 02 Jun 2025 10:00:00 GMT",
		IsRefresh:    true,
	}))
	require.Len(t, h.feedReader.opts, 1)
	require.Empty(t, h.feedReader.opts[0].ETag)
	require.Empty(t, h.feedReader.opts[0].LastModified)
}

func TestSyncFeedNotModifiedMapsToReady(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(&feed.Response{Status: 304, URL: feedURL})

	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL}))
	require.Len(t, h.sink.infos, 1)
	require.Equal(t, feed.StatusReady, h.sink.infos[0].Status)
	require.Equal(t, 304, h.sink.infos[0].ResponseStatus)
}

func TestSyncFeedFailureMapsToError(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(&feed.Response{Status: 500, URL: feedURL})

	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL}))
	require.Len(t, h.sink.infos, 1)
	require.Equal(t, feed.StatusError, h.sink.infos[0].Status)
}

func TestSyncFeedParseFailureReportsError(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.fn = respondWith(okResponse("this is not a feed document"))

	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL}))
	require.Empty(t, h.sink.feeds)
	require.Len(t, h.sink.infos, 1)
	require.Equal(t, feed.StatusError, h.sink.infos[0].Status)
	require.NotEmpty(t, h.sink.infos[0].Warnings)
}

func TestSyncFeedProxyRetryOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.feedReader.hasProxy = true
	h.feedReader.fn = func(_ string, opts feed.ReadOptions) *feed.Response {
		if opts.UseProxy {
			resp := okResponse(syncRSS)
			resp.UseProxy = true
			return resp
		}
		return &feed.Response{Status: 403, URL: feedURL}
	}

	require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL}))
	require.Len(t, h.feedReader.opts, 2)
	require.False(t, h.feedReader.opts[0].UseProxy)
	require.True(t, h.feedReader.opts[1].UseProxy)
	require.Len(t, h.sink.feeds, 1)
	require.True(t, h.sink.feeds[0].Feed.UseProxy)
}

func TestSyncFeedProxyPrecedence(t *testing.T) {
	t.Parallel()

	t.Run("resolved url forces proxy off", func(t *testing.T) {
		t.Parallel()
		h := newHarness(Config{})
		h.feedReader.hasProxy = true
		h.dns.resolved[feedURL] = true
		h.feedReader.fn = respondWith(okResponse(syncRSS))

		require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL, UseProxy: true}))
		require.False(t, h.feedReader.opts[0].UseProxy)
	})

	t.Run("proxy tag overrides resolution", func(t *testing.T) {
		t.Parallel()
		h := newHarness(Config{})
		h.feedReader.hasProxy = true
		h.dns.resolved[feedURL] = true
		h.policy.tagged[feedURL] = true
		h.feedReader.fn = respondWith(okResponse(syncRSS))

		require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL, UseProxy: false}))
		require.True(t, h.feedReader.opts[0].UseProxy)
	})

	t.Run("random drop skips eligible proxy", func(t *testing.T) {
		t.Parallel()
		h := newHarness(Config{})
		h.feedReader.hasProxy = true
		h.svc.randFloat = func() float64 { return 0.1 }
		h.feedReader.fn = respondWith(okResponse(syncRSS))

		require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL, UseProxy: true}))
		require.False(t, h.feedReader.opts[0].UseProxy)
	})

	t.Run("no proxy configured means no proxy", func(t *testing.T) {
		t.Parallel()
		h := newHarness(Config{})
		h.feedReader.hasProxy = false
		h.feedReader.fn = respondWith(okResponse(syncRSS))

		require.NoError(t, h.svc.SyncFeed(context.Background(), SyncFeedRequest{FeedID: 7, URL: feedURL, UseProxy: true}))
		require.False(t, h.feedReader.opts[0].UseProxy)
	})
}

func TestFindFeedReportsProgressAndResult(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	resp := okResponse(syncRSS)
	raw, err := parser.NewRawParser().Parse(resp)
	require.NoError(t, err)
	h.finder.found = &feed.FoundFeed{Response: resp, Raw: raw}
	h.finder.messages = []string{"found feed at https://blog.example.com/feed.xml"}

	require.NoError(t, h.svc.FindFeed(context.Background(), FindFeedRequest{FeedCreationID: 11, URL: "blog.example.com"}))

	require.Equal(t, []feed.Status{feed.StatusUpdating}, h.sink.statuses)
	require.Len(t, h.sink.creations, 1)
	result := h.sink.creations[0]
	require.Equal(t, int64(11), result.FeedCreationID)
	require.NotNil(t, result.Feed)
	require.Equal(t, "Example Blog", result.Feed.Title)
	require.Len(t, result.Feed.Storys, 2)
	require.Equal(t, h.finder.messages, result.Messages)
}

func TestFindFeedNotFound(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	h.finder.messages = []string{"no feed found in HTML page"}

	require.NoError(t, h.svc.FindFeed(context.Background(), FindFeedRequest{FeedCreationID: 11, URL: "https://example.com"}))
	require.Len(t, h.sink.creations, 1)
	require.Nil(t, h.sink.creations[0].Feed)
	require.Equal(t, h.finder.messages, h.sink.creations[0].Messages)
}

func TestFindFeedInvalidNormalizationBecomesMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	resp := okResponse(syncRSS)
	resp.URL = "" // breaks feed-level validation
	raw, err := parser.NewRawParser().Parse(resp)
	require.NoError(t, err)
	h.finder.found = &feed.FoundFeed{Response: resp, Raw: raw}

	require.NoError(t, h.svc.FindFeed(context.Background(), FindFeedRequest{FeedCreationID: 11, URL: "https://example.com"}))
	require.Len(t, h.sink.creations, 1)
	require.Nil(t, h.sink.creations[0].Feed)
	require.NotEmpty(t, h.sink.creations[0].Messages)
	require.Contains(t, h.sink.creations[0].Messages[0], "invalid feed")
}
