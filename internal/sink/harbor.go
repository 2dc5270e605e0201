// Package sink provides implementations of the result sink boundary. The
// harbor client reports worker outcomes to the harbor service over HTTP;
// the log sink is a stand-in for development and audits.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/metrics"
)

const maxErrorBodySnippet = 512

// HarborConfig carries the connection settings for the harbor service.
type HarborConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// HarborClient reports worker results to the harbor service as JSON RPC
// calls. It is safe for concurrent use.
type HarborClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHarborClient builds a client against cfg.BaseURL. A zero Timeout
// defaults to ten seconds.
func NewHarborClient(cfg HarborConfig, logger *zap.Logger) *HarborClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HarborClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// UpdateFeedCreationStatus reports a discovery progress transition.
func (c *HarborClient) UpdateFeedCreationStatus(ctx context.Context, feedCreationID int64, status feed.Status) error {
	payload := struct {
		FeedCreationID int64       `json:"feed_creation_id"`
		Status         feed.Status `json:"status"`
	}{FeedCreationID: feedCreationID, Status: status}
	return c.call(ctx, "update_feed_creation_status", payload, nil)
}

// SaveFeedCreationResult reports the terminal outcome of a discovery.
func (c *HarborClient) SaveFeedCreationResult(ctx context.Context, result feed.FeedCreationResult) error {
	return c.call(ctx, "save_feed_creation_result", result, nil)
}

// UpdateFeedInfo reports a status or metadata change with no new content.
func (c *HarborClient) UpdateFeedInfo(ctx context.Context, update feed.FeedInfoUpdate) error {
	return c.call(ctx, "update_feed_info", update, nil)
}

// UpdateFeed reports a full sync result with new or changed stories.
func (c *HarborClient) UpdateFeed(ctx context.Context, update feed.FeedUpdate) error {
	return c.call(ctx, "update_feed", update, nil)
}

// UpdateStory reports a story enrichment result and returns the harbor's
// accept decision.
func (c *HarborClient) UpdateStory(ctx context.Context, result feed.StoryResult) (feed.StoryUpdateReply, error) {
	var reply feed.StoryUpdateReply
	if err := c.call(ctx, "update_story", result, &reply); err != nil {
		return feed.StoryUpdateReply{}, err
	}
	return reply, nil
}

func (c *HarborClient) call(ctx context.Context, method string, payload any, reply any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("harbor %s: encode payload: %w", method, err)
	}
	url := c.baseURL + "/api/v1/harbor/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("harbor %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveHarborRequest(method, 0, time.Since(start))
		return fmt.Errorf("harbor %s: %w", method, err)
	}
	defer resp.Body.Close()
	metrics.ObserveHarborRequest(method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySnippet))
		c.logger.Warn("harbor call failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("harbor %s: unexpected status %d", method, resp.StatusCode)
	}
	if reply != nil {
		if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
			return fmt.Errorf("harbor %s: decode reply: %w", method, err)
		}
	}
	return nil
}
