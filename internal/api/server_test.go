package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/config"
	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/worker"
)

type stubService struct {
	findReqs  []worker.FindFeedRequest
	syncReqs  []worker.SyncFeedRequest
	fetchReqs []worker.FetchStoryRequest
	fetchResp feed.StoryResult
	err       error
}

func (s *stubService) FindFeed(_ context.Context, req worker.FindFeedRequest) error {
	s.findReqs = append(s.findReqs, req)
	return s.err
}

func (s *stubService) SyncFeed(_ context.Context, req worker.SyncFeedRequest) error {
	s.syncReqs = append(s.syncReqs, req)
	return s.err
}

func (s *stubService) FetchStory(_ context.Context, req worker.FetchStoryRequest) (feed.StoryResult, error) {
	s.fetchReqs = append(s.fetchReqs, req)
	return s.fetchResp, s.err
}

func newTestServer(t *testing.T, svc *stubService, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(&cfg)
	}
	return NewServer(svc, cfg, zap.NewNop())
}

func postJSON(t *testing.T, srv *Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFindFeedEndpoint(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	srv := newTestServer(t, svc, nil)

	rec := postJSON(t, srv, "/v1/worker/find_feed", map[string]any{
		"feed_creation_id": 11,
		"url":              "https://blog.example.com",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.findReqs, 1)
	require.Equal(t, int64(11), svc.findReqs[0].FeedCreationID)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFindFeedEndpointRejectsMissingFields(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	srv := newTestServer(t, svc, nil)

	rec := postJSON(t, srv, "/v1/worker/find_feed", map[string]any{"url": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, svc.findReqs)
}

func TestSyncFeedEndpoint(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	srv := newTestServer(t, svc, nil)

	rec := postJSON(t, srv, "/v1/worker/sync_feed", map[string]any{
		"feed_id":              7,
		"url":                  "https://blog.example.com/feed.xml",
		"etag":                 `"v1"`,
		"checksum_data_base64": "AQ",
		"is_refresh":           true,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.syncReqs, 1)
	require.Equal(t, int64(7), svc.syncReqs[0].FeedID)
	require.True(t, svc.syncReqs[0].IsRefresh)
	require.Equal(t, "AQ", svc.syncReqs[0].ChecksumDataBase64)
}

func TestFetchStoryEndpointReturnsResult(t *testing.T) {
	t.Parallel()

	svc := &stubService{fetchResp: feed.StoryResult{
		FeedID:         7,
		Offset:         3,
		URL:            "https://blog.example.com/p/1",
		ResponseStatus: 200,
		Content:        "<p>body</p>",
		Summary:        "body",
		SentenceCount:  1,
	}}
	srv := newTestServer(t, svc, nil)

	rec := postJSON(t, srv, "/v1/worker/fetch_story", map[string]any{
		"feed_id":           7,
		"offset":            3,
		"url":               "https://blog.example.com/p/1",
		"num_sub_sentences": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.fetchReqs, 1)
	require.NotNil(t, svc.fetchReqs[0].NumSubSentences)
	require.Equal(t, 4, *svc.fetchReqs[0].NumSubSentences)

	var result feed.StoryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "<p>body</p>", result.Content)
	require.Equal(t, 1, result.SentenceCount)
}

func TestInvalidJSONRejected(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/worker/sync_feed", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{}, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	srv := newTestServer(t, svc, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = "secret"
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
