package worker

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/metrics"
	"github.com/feedworks/feedsync/internal/processor"
)

// FetchStory retrieves and cleans a story's source webpage. A content-less
// result is a valid outcome meaning nothing usable was fetched; the returned
// error covers sink delivery only.
func (s *Service) FetchStory(ctx context.Context, req FetchStoryRequest) (feed.StoryResult, error) {
	s.logger.Info("fetch story begin",
		zap.Int64("feed_id", req.FeedID), zap.Int("offset", req.Offset),
		zap.String("url", req.URL))

	useProxy := req.UseProxy
	if s.dns.IsResolvedURL(req.URL) {
		useProxy = false
	}
	useProxy = useProxy && s.storyReader.HasProxy()

	finalURL, content, resp := s.fetchStoryContent(ctx, req, useProxy)
	result := feed.StoryResult{
		FeedID:         req.FeedID,
		Offset:         req.Offset,
		URL:            finalURL,
		ResponseStatus: resp.Status,
		UseProxy:       resp.UseProxy,
	}
	if content == "" {
		metrics.ObserveStoryFetch("no_content")
		return result, nil
	}

	if len(content) >= s.cfg.MaxStoryHTML {
		content = processor.CleanHTML(content)
		if len(content) >= s.cfg.MaxStoryHTML {
			s.logger.Warn("oversized story",
				zap.Int64("feed_id", req.FeedID), zap.Int("offset", req.Offset),
				zap.Int("size", len(content)), zap.String("url", finalURL))
			content = truncateBytes(processor.StoryHTMLToText(content), s.cfg.MaxStoryHTML)
		}
	}

	out, err := s.processStoryWebpage(ctx, result, content, req.NumSubSentences)
	if err != nil {
		return out, err
	}
	if out.Content != "" {
		metrics.ObserveStoryFetch("accepted")
	} else {
		metrics.ObserveStoryFetch("rejected")
	}
	return out, nil
}

// fetchStoryContent runs the bounded redirect loop: fetch, inspect the body
// for a client-side redirect hint, follow it if it points elsewhere. After
// the configured hops it stops regardless, keeping whatever was last
// retrieved.
func (s *Service) fetchStoryContent(ctx context.Context, req FetchStoryRequest, useProxy bool) (string, string, *feed.Response) {
	url := req.URL
	var content string
	var resp *feed.Response
	for i := 0; i <= s.cfg.MaxRedirects; i++ {
		resp = s.storyReader.Read(ctx, url, feed.ReadOptions{UseProxy: useProxy})
		if resp.URL != "" {
			url = resp.URL
		}
		s.logger.Info("fetch story",
			zap.Int64("feed_id", req.FeedID), zap.Int("offset", req.Offset),
			zap.String("url", url), zap.Int("status", resp.Status))
		if !resp.OK() || len(resp.Content) == 0 {
			return url, "", resp
		}
		content = string(resp.Content)
		redirect := processor.HTMLRedirectURL(content)
		if redirect == "" || redirect == url {
			return url, content, resp
		}
		s.logger.Info("story html redirect",
			zap.Int64("feed_id", req.FeedID), zap.Int("offset", req.Offset),
			zap.String("redirect", redirect))
		url = redirect
	}
	return url, content, resp
}

// processStoryWebpage is the extraction pipeline: clean, extract the main
// content, rewrite links, analyze, then decide whether the result is a
// genuine improvement over the feed-supplied summary.
func (s *Service) processStoryWebpage(ctx context.Context, base feed.StoryResult, text string, numSubSentences *int) (feed.StoryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return base, nil
	}
	cleaned := processor.CleanHTML(text)
	content := processor.ExtractReadable(cleaned, base.URL)
	content = processor.ProcessStoryLinks(content, base.URL)

	info := processor.NewContentInfo(content)
	// Shorten caps runes; the ceiling is in bytes, so multibyte text needs
	// the extra byte-level cut.
	textContent := truncateBytes(processor.Shorten(info.Text, s.cfg.MaxContent), s.cfg.MaxContent)
	numSentences := len(processor.SplitSentences(textContent))
	if len(content) > s.cfg.MaxContent {
		s.logger.Warn("story content too large, keeping plain text only",
			zap.Int64("feed_id", base.FeedID), zap.Int("offset", base.Offset),
			zap.Int("size", len(content)), zap.String("url", base.URL))
		content = textContent
	}

	// Content shorter than the feed's own summary is not real full text.
	if numSubSentences != nil && !processor.IsFulltextContent(info) && numSentences <= *numSubSentences {
		s.logger.Info("story content rejected",
			zap.Int64("feed_id", base.FeedID), zap.Int("offset", base.Offset),
			zap.String("url", base.URL),
			zap.Int("num_sentences", numSentences),
			zap.Int("num_sub_sentences", *numSubSentences))
		return base, nil
	}

	summary := processor.Shorten(textContent, s.cfg.MaxSummary)
	if summary == "" {
		return base, nil
	}

	result := base
	result.Content = content
	result.Summary = summary
	result.SentenceCount = numSentences
	reply, err := s.sink.UpdateStory(ctx, result)
	if err != nil {
		return result, err
	}
	result.Accept = reply.Accept
	return result, nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
