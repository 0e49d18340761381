package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"rental-bot/api"
	"rental-bot/bot"
	"rental-bot/config"
	"rental-bot/fetcher"
	"rental-bot/scheduler"
	"rental-bot/scraper"
	"rental-bot/scraper/canary"
	"rental-bot/scraper/suumo"
	"rental-bot/storage"
	"rental-bot/utils"
)

const (
	version = "1.0.0"

	knownCacheTTL = 7 * 24 * time.Hour
	eventTimeout  = 3 * time.Minute
)

func main() {
	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Config error: %v", err)
		os.Exit(1)
	}

	logger.Info("=== rental-bot v%s starting ===", version)
	logger.Info("Config: transport: %s | per message: %d | max notifications: %d | schedule: %q",
		cfg.FetchTransport, cfg.MaxPerMessage, cfg.MaxNotifications, cfg.ScheduleSpec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	pg, err := storage.NewPostgresStore(ctx, cfg.DSN(), retry)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer pg.Close()
	logger.Info("PostgreSQL connected")

	var listings storage.ListingStore = pg
	if cfg.RedisURL != "" {
		rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache: %v", err)
		} else {
			defer rdb.Close()
			listings = storage.NewCachedListingStore(pg, rdb, knownCacheTTL, logger)
			logger.Info("Redis known-listing cache enabled")
		}
	}

	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	fetch := &fetcher.Dispatch{
		Direct: fetcher.NewHTTPFetcher(cfg.HTTPTimeout(), cfg.RequestRPS),
		Render: renderer,
	}

	registry := scraper.NewRegistry(
		suumo.Source(cfg.Sites.SuumoBaseURL, cfg.Sites.SafetyCap, logger),
		canary.Source(cfg.Sites.CanaryBaseURL, cfg.Sites.SafetyCap, logger),
	)
	scrapeSvc := scraper.NewService(registry, fetch, logger)

	client, err := linebot.New(cfg.LineChannelSecret, cfg.LineChannelToken)
	if err != nil {
		logger.Error("Failed to create LINE client: %v", err)
		os.Exit(1)
	}

	deps := bot.Deps{
		Searches:  pg,
		Listings:  listings,
		Scraper:   scrapeSvc,
		Sites:     registry,
		Messenger: bot.NewLineMessenger(client, logger),
	}
	if cfg.ListingsCSVPath != "" {
		audit, err := storage.NewCSVWriter(cfg.ListingsCSVPath)
		if err != nil {
			logger.Error("Failed to open listings CSV: %v", err)
			os.Exit(1)
		}
		defer audit.Close()
		deps.Audit = audit
		logger.Info("Notified listings are appended to %s", cfg.ListingsCSVPath)
	}
	handler := bot.NewHandler(cfg, deps, logger)

	var sched *scheduler.Scheduler
	if cfg.ScheduleSpec != "" {
		sched = scheduler.New(pg, handler, scheduler.Options{
			Spec:           cfg.ScheduleSpec,
			MaxConcurrency: cfg.MaxConcurrency,
			RateLimitMs:    cfg.RateLimitMs,
			RunTimeout:     eventTimeout,
		}, logger)
		if err := sched.Start(ctx); err != nil {
			logger.Error("Failed to start scheduler: %v", err)
			os.Exit(1)
		}
	}

	apiSrv := api.NewServer(cfg.LineChannelSecret, handler, version, eventTimeout, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiSrv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
	if sched != nil {
		sched.Stop()
	}
	apiSrv.Wait()
	cancel()
	logger.Info("=== rental-bot stopped ===")
}

// newRenderer picks the transport used for pages that need JavaScript.
func newRenderer(cfg *config.Config, logger *utils.Logger) (fetcher.Fetcher, error) {
	switch cfg.FetchTransport {
	case "scrapingbee":
		if cfg.ScrapingBeeAPIKey == "" {
			logger.Warn("SCRAPINGBEE_API_KEY is empty, rendered sources will report an auth error")
		}
		return fetcher.NewScrapingBeeFetcher(cfg.ScrapingBeeAPIKey, cfg.RenderTimeout()), nil
	case "phantomjscloud":
		if cfg.PhantomJSCloudKey == "" {
			logger.Warn("PHANTOMJSCLOUD_API_KEY is empty, rendered sources will report an auth error")
		}
		return fetcher.NewPhantomJSCloudFetcher(cfg.PhantomJSCloudKey, cfg.RenderTimeout()), nil
	case "chromedp", "browser":
		return fetcher.NewBrowserFetcher(cfg.ChromeBin, cfg.RenderTimeout(), cfg.MaxRetries, logger), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown FETCH_TRANSPORT %q", cfg.FetchTransport)
	}
}
