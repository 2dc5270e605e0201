package parser

import (
	"github.com/feedworks/feedsync/internal/checksum"
	"github.com/feedworks/feedsync/internal/feed"
)

// Result is a raw feed result reduced to its new or changed entries, along
// with the updated fingerprint history.
type Result struct {
	Feed     feed.RawFeedInfo
	Entries  []feed.RawEntry
	Checksum *checksum.Checksum
}

// Diff runs the raw entries through the fingerprint history. Entries whose
// fingerprint is already recorded are dropped; everything else is kept and
// the history updated. A nil history means no prior sync, so every entry
// comes back.
func Diff(raw *feed.RawFeedResult, history *checksum.Checksum) *Result {
	if history == nil {
		history = checksum.New()
	}
	result := &Result{Feed: raw.Feed, Checksum: history}
	for _, entry := range raw.Entries {
		if history.Update(entry.Ident, fingerprintBody(entry)) {
			result.Entries = append(result.Entries, entry)
		}
	}
	return result
}

// fingerprintBody selects the entry text that participates in change
// detection. Title changes and content edits both count; author or date
// tweaks alone do not re-emit an entry.
func fingerprintBody(entry feed.RawEntry) string {
	body := entry.Content
	if body == "" {
		body = entry.Summary
	}
	return entry.Title + "\x00" + body
}
