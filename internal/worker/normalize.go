package worker

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/checksum"
	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/hash"
	"github.com/feedworks/feedsync/internal/parser"
	"github.com/feedworks/feedsync/internal/processor"
)

// buildFeed folds a fetch response and its raw parse into the normalized
// record handed to the sink. The fingerprint history decides which entries
// survive; a refresh ignores history so every entry is re-emitted.
func (s *Service) buildFeed(resp *feed.Response, raw *feed.RawFeedResult, checksumDataBase64 string, isRefresh bool) (*feed.NormalizedFeed, error) {
	var history *checksum.Checksum
	if !isRefresh {
		history = checksum.DecodeBase64(checksumDataBase64)
	}
	result := parser.Diff(raw, history)
	s.logger.Info("feed diff",
		zap.String("url", resp.URL),
		zap.Int("entries", len(raw.Entries)),
		zap.Int("changed", len(result.Entries)))

	normalized := &feed.NormalizedFeed{
		UseProxy:           resp.UseProxy,
		URL:                resp.URL,
		ContentLength:      len(resp.Content),
		ContentHashBase64:  hash.ContentBase64(resp.Content),
		ETag:               resp.ETag,
		LastModified:       resp.LastModified,
		Encoding:           resp.Encoding,
		ResponseStatus:     resp.Status,
		Title:              result.Feed.Title,
		Link:               result.Feed.HomeURL,
		Author:             result.Feed.AuthorName,
		Icon:               result.Feed.IconURL,
		Description:        result.Feed.Description,
		Version:            result.Feed.Version,
		DTUpdated:          result.Feed.DTUpdated,
		ChecksumDataBase64: checksum.EncodeBase64(result.Checksum, checksum.DefaultLimit),
		Warnings:           strings.Join(raw.Warnings, "; "),
	}
	normalized.Storys = s.buildStorys(result.Entries)
	return s.validateFeed(normalized)
}

// buildStorys converts the changed raw entries into normalized stories,
// sorted by publish timestamp descending so a truncating consumer keeps
// the newest first.
func (s *Service) buildStorys(entries []feed.RawEntry) []feed.Story {
	now := s.clock.Now().UTC()
	storys := make([]feed.Story, 0, len(entries))
	for _, entry := range entries {
		storys = append(storys, s.buildStory(entry, now))
	}
	sort.SliceStable(storys, func(i, j int) bool {
		return storys[i].DTPublished.After(storys[j].DTPublished)
	})
	return storys
}

func (s *Service) buildStory(entry feed.RawEntry, now time.Time) feed.Story {
	published := pickTime(entry.DTPublished, entry.DTUpdated, now)
	updated := pickTime(entry.DTUpdated, entry.DTPublished, now)

	content := entry.Content
	if content != "" {
		content = processor.CleanHTML(content)
	}
	summarySource := entry.Summary
	if summarySource == "" {
		summarySource = entry.Content
	}
	summary := processor.Shorten(processor.StoryHTMLToText(summarySource), s.cfg.MaxSummary)

	return feed.Story{
		Ident:       entry.Ident,
		Title:       entry.Title,
		Link:        entry.Link,
		Author:      entry.Author,
		DTPublished: published,
		DTUpdated:   updated,
		Summary:     summary,
		Content:     content,
	}
}

func pickTime(first, second *time.Time, fallback time.Time) time.Time {
	if first != nil {
		return first.UTC()
	}
	if second != nil {
		return second.UTC()
	}
	return fallback
}
