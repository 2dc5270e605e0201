package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
)

// LogSink emits structured logs instead of calling the harbor service. It is
// useful during development or audits where no harbor is available. Story
// updates echo the worker's own accept decision back.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// UpdateFeedCreationStatus logs the discovery progress transition.
func (s *LogSink) UpdateFeedCreationStatus(_ context.Context, feedCreationID int64, status feed.Status) error {
	s.logger.Info("feed creation status",
		zap.Int64("feed_creation_id", feedCreationID),
		zap.String("status", string(status)),
	)
	return nil
}

// SaveFeedCreationResult logs the terminal discovery outcome.
func (s *LogSink) SaveFeedCreationResult(_ context.Context, result feed.FeedCreationResult) error {
	fields := []zap.Field{
		zap.Int64("feed_creation_id", result.FeedCreationID),
		zap.Strings("messages", result.Messages),
	}
	if result.Feed != nil {
		fields = append(fields,
			zap.String("url", result.Feed.URL),
			zap.String("title", result.Feed.Title),
			zap.Int("storys", len(result.Feed.Storys)),
		)
	}
	s.logger.Info("feed creation result", fields...)
	return nil
}

// UpdateFeedInfo logs the status or metadata change.
func (s *LogSink) UpdateFeedInfo(_ context.Context, update feed.FeedInfoUpdate) error {
	s.logger.Info("feed info update",
		zap.Int64("feed_id", update.FeedID),
		zap.String("status", string(update.Status)),
		zap.Int("response_status", update.ResponseStatus),
		zap.String("warnings", update.Warnings),
	)
	return nil
}

// UpdateFeed logs the full sync result.
func (s *LogSink) UpdateFeed(_ context.Context, update feed.FeedUpdate) error {
	fields := []zap.Field{
		zap.Int64("feed_id", update.FeedID),
		zap.Bool("is_refresh", update.IsRefresh),
	}
	if update.Feed != nil {
		fields = append(fields,
			zap.String("url", update.Feed.URL),
			zap.Int("storys", len(update.Feed.Storys)),
			zap.Int("response_status", update.Feed.ResponseStatus),
		)
	}
	s.logger.Info("feed update", fields...)
	return nil
}

// UpdateStory logs the enrichment result and echoes its accept decision.
func (s *LogSink) UpdateStory(_ context.Context, result feed.StoryResult) (feed.StoryUpdateReply, error) {
	s.logger.Info("story update",
		zap.Int64("feed_id", result.FeedID),
		zap.Int("offset", result.Offset),
		zap.String("url", result.URL),
		zap.Int("response_status", result.ResponseStatus),
		zap.Int("sentence_count", result.SentenceCount),
		zap.String("accept", result.Accept),
	)
	return feed.StoryUpdateReply{Accept: result.Accept}, nil
}
