// Package feed defines core types shared across subsystems.
package feed

import (
	"time"
)

// Status represents the lifecycle state of a feed as reported to the sink.
type Status string

// Feed status values understood by the harbor service.
const (
	StatusPending  Status = "pending"
	StatusUpdating Status = "updating"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
	StatusDiscard  Status = "discard"
)

// Response is the outcome of one transport fetch. It is immutable once
// returned by the reader; network-level failures are folded into Status
// using the negative codes defined in status.go.
type Response struct {
	Status       int
	Content      []byte
	URL          string
	ETag         string
	LastModified string
	ContentType  string
	Encoding     string
	UseProxy     bool
}

// OK reports whether the response carries a usable 2xx payload.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// NotModified reports a conditional-fetch hit.
func (r *Response) NotModified() bool {
	return r != nil && r.Status == 304
}

// RawFeedInfo holds feed-level attributes straight out of the raw parser.
type RawFeedInfo struct {
	Title       string
	HomeURL     string
	AuthorName  string
	IconURL     string
	Description string
	Version     string
	DTUpdated   *time.Time
}

// RawEntry is a single feed entry before checksum diffing and validation.
type RawEntry struct {
	Ident       string
	Title       string
	Link        string
	Author      string
	Content     string
	Summary     string
	DTPublished *time.Time
	DTUpdated   *time.Time
}

// RawFeedResult is produced once per fetch and folded into a parse result.
// Warnings are non-fatal parser diagnostics.
type RawFeedResult struct {
	Feed     RawFeedInfo
	Entries  []RawEntry
	Warnings []string
}

// NormalizedFeed is the terminal record handed to the sink after a
// successful sync. It is constructed fresh per attempt and never mutated.
type NormalizedFeed struct {
	UseProxy           bool         `json:"use_proxy"`
	URL                string       `json:"url"`
	ContentLength      int          `json:"content_length"`
	ContentHashBase64  string       `json:"content_hash_base64"`
	ETag               string       `json:"etag,omitempty"`
	LastModified       string       `json:"last_modified,omitempty"`
	Encoding           string       `json:"encoding,omitempty"`
	ResponseStatus     int          `json:"response_status"`
	Title              string       `json:"title"`
	Link               string       `json:"link"`
	Author             string       `json:"author,omitempty"`
	Icon               string       `json:"icon,omitempty"`
	Description        string       `json:"description,omitempty"`
	Version            string       `json:"version,omitempty"`
	DTUpdated          *time.Time   `json:"dt_updated,omitempty"`
	Storys             []Story      `json:"storys"`
	ChecksumDataBase64 string       `json:"checksum_data_base64"`
	Warnings           string       `json:"warnings,omitempty"`
}

// Story is a normalized feed entry. Storys within one sync result are
// ordered by DTPublished descending so a truncating consumer keeps the
// newest first.
type Story struct {
	Ident       string    `json:"ident"`
	Title       string    `json:"title"`
	Link        string    `json:"link,omitempty"`
	Author      string    `json:"author,omitempty"`
	DTPublished time.Time `json:"dt_published"`
	DTUpdated   time.Time `json:"dt_updated"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
}

// StoryResult is the outcome of a story enrichment attempt. A result
// without Content is valid and means nothing usable was fetched.
type StoryResult struct {
	FeedID         int64  `json:"feed_id"`
	Offset         int    `json:"offset"`
	URL            string `json:"url"`
	ResponseStatus int    `json:"response_status"`
	UseProxy       bool   `json:"use_proxy"`
	Content        string `json:"content,omitempty"`
	Summary        string `json:"summary,omitempty"`
	SentenceCount  int    `json:"sentence_count,omitempty"`
	Accept         string `json:"accept,omitempty"`
}

// FeedCreationResult is the terminal discovery outcome.
type FeedCreationResult struct {
	FeedCreationID int64           `json:"feed_creation_id"`
	Messages       []string        `json:"messages"`
	Feed           *NormalizedFeed `json:"feed,omitempty"`
}

// FeedInfoUpdate is a lightweight status/metadata update with no content
// change.
type FeedInfoUpdate struct {
	FeedID         int64  `json:"feed_id"`
	Status         Status `json:"status,omitempty"`
	ResponseStatus int    `json:"response_status"`
	Warnings       string `json:"warnings,omitempty"`
}

// FeedUpdate is a full feed update carrying new or changed stories.
type FeedUpdate struct {
	FeedID    int64           `json:"feed_id"`
	Feed      *NormalizedFeed `json:"feed"`
	IsRefresh bool            `json:"is_refresh"`
}

// StoryUpdateReply is returned by the sink for a story update; the sink may
// re-derive the accept strategy downstream.
type StoryUpdateReply struct {
	Accept string `json:"accept,omitempty"`
}
