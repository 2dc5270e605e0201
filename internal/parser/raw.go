// Package parser turns transport responses into raw feed results and folds
// them through the checksum history to isolate new or changed entries.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedworks/feedsync/internal/feed"
)

// ErrEmptyResponse is returned when the response carries no body to parse.
var ErrEmptyResponse = errors.New("parser: empty response content")

// RawParser parses RSS/Atom/JSON Feed documents into RawFeedResult.
type RawParser struct {
	parser *gofeed.Parser
}

// NewRawParser builds a RawParser.
func NewRawParser() *RawParser {
	return &RawParser{parser: gofeed.NewParser()}
}

// Parse decodes the response body. Malformed documents return an error;
// recoverable oddities (entries without ids or timestamps) become warnings
// on the result instead.
func (p *RawParser) Parse(resp *feed.Response) (*feed.RawFeedResult, error) {
	if resp == nil || len(resp.Content) == 0 {
		return nil, ErrEmptyResponse
	}
	parsed, err := p.parser.Parse(bytes.NewReader(resp.Content))
	if err != nil {
		return nil, fmt.Errorf("parse feed document: %w", err)
	}

	result := &feed.RawFeedResult{
		Feed: feed.RawFeedInfo{
			Title:       parsed.Title,
			HomeURL:     parsed.Link,
			Description: parsed.Description,
			Version:     feedVersion(parsed),
			DTUpdated:   firstTime(parsed.UpdatedParsed, parsed.PublishedParsed),
		},
	}
	if parsed.Image != nil {
		result.Feed.IconURL = parsed.Image.URL
	}
	if len(parsed.Authors) > 0 && parsed.Authors[0] != nil {
		result.Feed.AuthorName = parsed.Authors[0].Name
	}

	for i, item := range parsed.Items {
		if item == nil {
			continue
		}
		entry := convertItem(item)
		if entry.Ident == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("entry %d has no id, link or title; skipped", i))
			continue
		}
		if entry.DTPublished == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("entry %q has no publish or update time", entry.Ident))
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func convertItem(item *gofeed.Item) feed.RawEntry {
	entry := feed.RawEntry{
		Ident:       firstNonEmpty(item.GUID, item.Link, item.Title),
		Title:       item.Title,
		Link:        item.Link,
		Content:     item.Content,
		Summary:     item.Description,
		DTPublished: firstTime(item.PublishedParsed, item.UpdatedParsed),
		DTUpdated:   firstTime(item.UpdatedParsed, item.PublishedParsed),
	}
	if entry.Content == "" {
		entry.Content = item.Description
	}
	if item.Author != nil {
		entry.Author = item.Author.Name
	}
	if entry.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	}
	// a GUID that looks like a URL can stand in for a missing link
	if entry.Link == "" && (strings.HasPrefix(item.GUID, "http://") ||
		strings.HasPrefix(item.GUID, "https://")) {
		entry.Link = item.GUID
	}
	return entry
}

func feedVersion(parsed *gofeed.Feed) string {
	if parsed.FeedVersion == "" {
		return parsed.FeedType
	}
	return strings.TrimSpace(parsed.FeedType + " " + parsed.FeedVersion)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil {
			t := v.UTC()
			return &t
		}
	}
	return nil
}
