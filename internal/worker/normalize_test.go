package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedworks/feedsync/internal/feed"
)

func tp(t time.Time) *time.Time { return &t }

func rawEntry(ident string, published time.Time) feed.RawEntry {
	return feed.RawEntry{
		Ident:       ident,
		Title:       "Entry " + ident,
		Link:        "https://blog.example.com/p/" + ident,
		Summary:     "Summary of " + ident,
		DTPublished: tp(published),
	}
}

func TestBuildFeedStoryOrdering(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	raw := &feed.RawFeedResult{
		Feed: feed.RawFeedInfo{Title: "Example", HomeURL: "https://blog.example.com/"},
		Entries: []feed.RawEntry{
			rawEntry("b", base.AddDate(0, 0, 2)),
			rawEntry("d", base.AddDate(0, 0, 4)),
			rawEntry("a", base.AddDate(0, 0, 1)),
			rawEntry("c", base.AddDate(0, 0, 3)),
		},
	}
	resp := okResponse(syncRSS)

	normalized, err := h.svc.buildFeed(resp, raw, "", false)
	require.NoError(t, err)
	require.Len(t, normalized.Storys, 4)
	for i := 1; i < len(normalized.Storys); i++ {
		require.False(t, normalized.Storys[i].DTPublished.After(normalized.Storys[i-1].DTPublished),
			"storys must be ordered by publish time descending")
	}
	require.Equal(t, "d", normalized.Storys[0].Ident)
}

func TestBuildFeedPerStoryFaultIsolation(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bad := rawEntry("", base.AddDate(0, 0, 2)) // empty ident fails validation
	raw := &feed.RawFeedResult{
		Feed: feed.RawFeedInfo{Title: "Example"},
		Entries: []feed.RawEntry{
			rawEntry("a", base),
			bad,
			rawEntry("c", base.AddDate(0, 0, 3)),
		},
	}

	normalized, err := h.svc.buildFeed(okResponse(syncRSS), raw, "", false)
	require.NoError(t, err)
	require.Len(t, normalized.Storys, 2)
	for _, story := range normalized.Storys {
		require.NotEmpty(t, story.Ident)
	}
}

func TestBuildFeedFatalValidationAnnotated(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	raw := &feed.RawFeedResult{Feed: feed.RawFeedInfo{Title: "Broken", HomeURL: "https://x.example.com/"}}
	resp := okResponse(syncRSS)
	resp.URL = "not a url"

	_, err := h.svc.buildFeed(resp, raw, "", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a url")
	require.Contains(t, err.Error(), "Broken")
}

func TestBuildFeedMissingTimestampsFallBackToClock(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	raw := &feed.RawFeedResult{
		Feed: feed.RawFeedInfo{Title: "Example"},
		Entries: []feed.RawEntry{{
			Ident: "no-dates",
			Title: "Undated entry",
			Link:  "https://blog.example.com/p/no-dates",
		}},
	}

	normalized, err := h.svc.buildFeed(okResponse(syncRSS), raw, "", false)
	require.NoError(t, err)
	require.Len(t, normalized.Storys, 1)
	want := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, want, normalized.Storys[0].DTPublished)
	require.Equal(t, want, normalized.Storys[0].DTUpdated)
}

func TestBuildFeedJoinsWarnings(t *testing.T) {
	t.Parallel()

	h := newHarness(Config{})
	raw := &feed.RawFeedResult{
		Feed:     feed.RawFeedInfo{Title: "Example"},
		Warnings: []string{"entry 1 has no ident", "entry 2 has no timestamps"},
	}

	normalized, err := h.svc.buildFeed(okResponse(syncRSS), raw, "", false)
	require.NoError(t, err)
	require.Equal(t, "entry 1 has no ident; entry 2 has no timestamps", normalized.Warnings)
}

func TestTruncateBytes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello", truncateBytes("hello", 10))
	require.Equal(t, "hel", truncateBytes("hello", 3))
	// Never splits a multibyte rune.
	s := "héllo" // 'é' is two bytes starting at index 1
	require.Equal(t, "h", truncateBytes(s, 2))
	require.Equal(t, "hé", truncateBytes(s, 3))
}
