package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	require.Equal(t, "blog.example.com", SanitizeSite("https://Blog.Example.com/feed.xml"))
	require.Equal(t, "blog.example.com", SanitizeSite("blog.example.com"))
	require.Equal(t, "unknown", SanitizeSite("::::"))
	require.Equal(t, "unknown", SanitizeSite(""))
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()
	Init() // idempotent

	ObserveFeedSync("https://blog.example.com/feed.xml", "updated", 1024)
	ObserveFeedSync("https://blog.example.com/feed.xml", "error", 0)
	ObserveStoryFetch("accepted")
	ObserveHarborRequest("update_feed", 200, 15*time.Millisecond)
	ObserveHTTPRequest("POST", "/v1/worker/sync_feed", 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "feedsync_feed_syncs_total")
}
