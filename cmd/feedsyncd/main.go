// Package main wires together the feed sync worker service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/api"
	"github.com/feedworks/feedsync/internal/clock/system"
	"github.com/feedworks/feedsync/internal/config"
	"github.com/feedworks/feedsync/internal/dns"
	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/fetcher"
	"github.com/feedworks/feedsync/internal/finder"
	"github.com/feedworks/feedsync/internal/logging"
	"github.com/feedworks/feedsync/internal/metrics"
	"github.com/feedworks/feedsync/internal/proxy"
	"github.com/feedworks/feedsync/internal/sink"
	"github.com/feedworks/feedsync/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedReader, err := fetcher.New(fetcher.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.FeedTimeout(),
		MaxBodySize: cfg.Fetch.MaxFeedBytes,
		ProxyURL:    cfg.Proxy.URL,
		RatePerHost: cfg.Fetch.RatePerHost,
		RateBurst:   cfg.Fetch.RateBurst,
	}, logger.Named("feed-fetcher"))
	if err != nil {
		logger.Fatal("feed fetcher init failed", zap.Error(err))
	}
	// Story fetches run under a tighter timeout than feed fetches so they
	// finish inside the scheduler's own deadline budget.
	storyReader, err := fetcher.New(fetcher.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.StoryTimeout(),
		MaxBodySize: cfg.Fetch.MaxStoryBytes,
		ProxyURL:    cfg.Proxy.URL,
		RatePerHost: cfg.Fetch.RatePerHost,
		RateBurst:   cfg.Fetch.RateBurst,
	}, logger.Named("story-fetcher"))
	if err != nil {
		logger.Fatal("story fetcher init failed", zap.Error(err))
	}

	proxyPolicy := proxy.New(proxy.Config{
		ProxyURL:       cfg.Proxy.URL,
		TaggedPrefixes: cfg.Proxy.TaggedPrefixes,
	})
	dnsService := dns.New(cfg.DNS.Hosts, nil, logger.Named("dns"))
	feedFinder := finder.New(feedReader, logger.Named("finder"))

	var resultSink feed.ResultSink
	if cfg.Harbor.BaseURL != "" {
		resultSink = sink.NewHarborClient(sink.HarborConfig{
			BaseURL: cfg.Harbor.BaseURL,
			Timeout: cfg.HarborTimeout(),
			APIKey:  cfg.Harbor.APIKey,
		}, logger.Named("harbor"))
	} else {
		logger.Warn("no harbor base url configured, results go to logs only")
		resultSink = sink.NewLogSink(logger.Named("sink"))
	}

	svc := worker.New(
		feedReader,
		storyReader,
		feedFinder,
		resultSink,
		proxyPolicy,
		dnsService,
		system.New(),
		worker.Config{
			SwitchProb:   cfg.Worker.SwitchProb,
			MaxRedirects: cfg.Worker.MaxRedirects,
			MaxStoryHTML: cfg.Worker.MaxStoryHTML,
			MaxContent:   cfg.Worker.MaxContent,
			MaxSummary:   cfg.Worker.MaxSummary,
		},
		logger.Named("worker"),
	)

	refresher := dns.NewRefresher(dnsService, cfg.DNSWarmup(), cfg.DNSInterval(), logger.Named("dns-refresh"))
	go refresher.Run(ctx)

	apiServer := api.NewServer(svc, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
