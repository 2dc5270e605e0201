package finder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/parser"
)

// maxCandidateFetches bounds how many autodiscovered links are tried after
// the page itself.
const maxCandidateFetches = 3

// Diagnostics collects human-readable messages produced during discovery.
// It replaces an ad-hoc logging callback: the collected messages travel
// with the result instead of living in a captured closure.
type Diagnostics struct {
	logger   *zap.Logger
	messages []string
}

// Addf records a message and mirrors it to the logger.
func (d *Diagnostics) Addf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.logger.Info(msg)
	d.messages = append(d.messages, msg)
}

// Messages returns everything recorded so far.
func (d *Diagnostics) Messages() []string {
	return d.messages
}

// Finder implements feed.Finder: fetch the candidate URL, accept it when it
// already is a feed, otherwise scan the HTML for rel=alternate links and
// try the best-ranked ones, then fall back to well-known site-root paths.
type Finder struct {
	reader feed.Reader
	raw    *parser.RawParser
	logger *zap.Logger
}

// New builds a Finder.
func New(reader feed.Reader, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{
		reader: reader,
		raw:    parser.NewRawParser(),
		logger: logger,
	}
}

// Find locates a feed at or near url. A nil result means no feed was found;
// the diagnostics messages are always returned.
func (f *Finder) Find(ctx context.Context, rawURL string, useProxy bool) (*feed.FoundFeed, []string) {
	diag := &Diagnostics{logger: f.logger}
	rawURL = normalizeURL(rawURL)

	resp := f.reader.Read(ctx, rawURL, feed.ReadOptions{UseProxy: useProxy})
	diag.Addf("fetch %s status=%d", rawURL, resp.Status)
	if !resp.OK() || len(resp.Content) == 0 {
		diag.Addf("no usable response from %s", rawURL)
		return nil, diag.Messages()
	}

	if found := f.tryParse(resp, diag); found != nil {
		return found, diag.Messages()
	}

	if !looksLikeHTML(resp.ContentType, resp.Content) {
		diag.Addf("%s is neither a feed nor an html page", resp.URL)
		return nil, diag.Messages()
	}

	candidates := rankCandidates(parseFeedLinks(resp.Content, resp.URL), resp.URL)
	if len(candidates) == 0 {
		diag.Addf("no feed links found in %s", resp.URL)
	}
	if len(candidates) > maxCandidateFetches {
		candidates = candidates[:maxCandidateFetches]
	}
	if found := f.tryCandidates(ctx, candidates, useProxy, diag); found != nil {
		return found, diag.Messages()
	}

	// Last resort: the usual site-root feed locations.
	if found := f.tryCandidates(ctx, wellKnownCandidates(resp.URL), useProxy, diag); found != nil {
		return found, diag.Messages()
	}

	diag.Addf("no working feed found near %s", rawURL)
	return nil, diag.Messages()
}

func (f *Finder) tryCandidates(ctx context.Context, candidates []candidate, useProxy bool, diag *Diagnostics) *feed.FoundFeed {
	for _, c := range candidates {
		diag.Addf("try feed link %s (%s)", c.URL, c.Type)
		resp := f.reader.Read(ctx, c.URL, feed.ReadOptions{UseProxy: useProxy})
		diag.Addf("fetch %s status=%d", c.URL, resp.Status)
		if !resp.OK() || len(resp.Content) == 0 {
			continue
		}
		if found := f.tryParse(resp, diag); found != nil {
			return found
		}
	}
	return nil
}

// tryParse accepts the response as a feed when it both looks like one and
// parses cleanly.
func (f *Finder) tryParse(resp *feed.Response, diag *Diagnostics) *feed.FoundFeed {
	if !looksLikeFeed(resp.ContentType, resp.Content) {
		return nil
	}
	raw, err := f.raw.Parse(resp)
	if err != nil {
		diag.Addf("parse %s failed: %v", resp.URL, err)
		return nil
	}
	diag.Addf("found feed %q at %s with %d entries", raw.Feed.Title, resp.URL, len(raw.Entries))
	return &feed.FoundFeed{Response: resp, Raw: raw}
}

func normalizeURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}
