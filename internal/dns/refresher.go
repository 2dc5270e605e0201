package dns

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
)

// Refresher periodically refreshes a DNS cache. It never exits on its own:
// refresh failures are logged and the loop continues until the context is
// canceled.
type Refresher struct {
	resolver feed.DNSResolver
	warmup   time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewRefresher builds a Refresher with the given warm-up delay before the
// first refresh and fixed interval between refreshes.
func NewRefresher(resolver feed.DNSResolver, warmup, interval time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		resolver: resolver,
		warmup:   warmup,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("dns refresher started",
		zap.Duration("warmup", r.warmup),
		zap.Duration("interval", r.interval),
	)
	if !sleepCtx(ctx, r.warmup) {
		return
	}
	for {
		if err := r.resolver.Refresh(ctx); err != nil {
			r.logger.Error("dns refresh failed", zap.Error(err))
		}
		if !sleepCtx(ctx, r.interval) {
			r.logger.Info("dns refresher stopped")
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
