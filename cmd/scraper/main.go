package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/blockedby/tgstore-scraper/internal/catalog"
	"github.com/blockedby/tgstore-scraper/internal/collector"
	"github.com/blockedby/tgstore-scraper/internal/config"
	"github.com/blockedby/tgstore-scraper/internal/database"
	"github.com/blockedby/tgstore-scraper/internal/export"
	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/migrator"
	"github.com/blockedby/tgstore-scraper/internal/mirror"
	"github.com/blockedby/tgstore-scraper/internal/nats"
	"github.com/blockedby/tgstore-scraper/internal/organizer"
	"github.com/blockedby/tgstore-scraper/internal/pipeline"
	"github.com/blockedby/tgstore-scraper/internal/publisher"
	"github.com/blockedby/tgstore-scraper/internal/telegram"
	"github.com/blockedby/tgstore-scraper/migrations"
)

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	flags.apply(cfg)

	validate := cfg.Validate
	if flags.serve {
		validate = cfg.ValidateServe
	}
	if err := validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	log := logger.Get()

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Telegram session and client
	sessionDB, err := telegram.OpenSessionDB(cfg.TGSessionPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session database")
	}

	tgManager := telegram.NewManager(cfg, sessionDB)
	if err := tgManager.Init(ctx); err != nil {
		log.Fatal().Err(err).Str("session", cfg.TGSessionPath).Msg("telegram is not ready")
	}

	tgClient := telegram.NewClient(tgManager, telegram.NewRateLimiter(cfg.TGRateLimit, 1))
	defer tgClient.Close()

	// 5. Output: local files, optionally mirrored to S3
	fs := afero.NewOsFs()
	var writer organizer.ByteWriter = organizer.NewFsWriter(fs)
	if cfg.S3Endpoint != "" {
		s3, err := mirror.NewClient(ctx, mirror.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to s3, mirroring disabled")
		} else {
			writer = mirror.NewWriter(writer, s3, cfg.S3Bucket, cfg.S3Prefix, cfg.DownloadsDir, log.Component("mirror"))
		}
	}

	// 6. Catalog sink
	var store collector.CatalogStore
	if cfg.DatabaseURL != "" {
		if db := openCatalog(ctx, cfg, log); db != nil {
			defer db.Close()
			store = catalog.NewRepository(db.Pool)
		}
	}

	// 7. Event publisher
	var pub collector.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to ensure nats stream")
			}
			pub = publisher.NewNATSPublisher(nc)
		}
	}

	profile := export.DefaultProfile()
	if cfg.BigCommerceProfile != "" {
		profile, err = export.LoadProfile(fs, cfg.BigCommerceProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load bigcommerce profile")
		}
	}

	// 8. Collector service
	svc := collector.NewService(collector.Config{
		Telegram:     tgClient,
		Media:        telegram.NewMediaDownloader(tgClient),
		Organizer:    organizer.New(cfg.DownloadsDir, writer, log.Component("organizer")),
		Fs:           fs,
		DownloadsDir: cfg.DownloadsDir,
		Catalog:      store,
		Publisher:    pub,
		Pipeline: pipeline.Options{
			PacingDelay:   time.Duration(cfg.PacingDelayMs) * time.Millisecond,
			MaxRetryWaits: cfg.MaxRetryWaits,
		},
		FetchPolicy: pipeline.FetchPolicy{
			Attempts:        cfg.MediaAttempts,
			InitialInterval: time.Duration(cfg.MediaRetryDelayMs) * time.Millisecond,
		},
		Log: log.Component("collector"),
	})

	opts := collector.ScrapeOptions{
		Channel:      cfg.Channel,
		Limit:        cfg.ScanLimit,
		OldestFirst:  cfg.OldestFirst,
		ExportFormat: cfg.ExportFormat,
		BigCommerce:  flags.bigcommerce,
		ImageBaseURL: cfg.ImageBaseURL,
		Profile:      profile,
	}

	if flags.serve {
		serve(ctx, cfg, svc, opts, log)
		return
	}

	result, err := svc.Scrape(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("scrape failed")
	}
	printSummary(result)
	if result.ScanError != "" {
		os.Exit(1)
	}
}

func openCatalog(ctx context.Context, cfg *config.Config, log *logger.Logger) *database.DB {
	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load migrations, catalog disabled")
		return nil
	}
	if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("failed to migrate catalog, catalog disabled")
		return nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to database, catalog disabled")
		return nil
	}
	return db
}

func serve(ctx context.Context, cfg *config.Config, svc *collector.Service, defaults collector.ScrapeOptions, log *logger.Logger) {
	scrapeManager := collector.NewScrapeManager(svc)
	handler := collector.NewHandler(scrapeManager, defaults)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           collector.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Int("port", cfg.HTTPPort).Msg("starting control api")
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	scrapeManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = scrapeManager.Wait(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("shutdown complete")
}

func printSummary(r *collector.ScrapeResult) {
	fmt.Println()
	fmt.Println("=== run summary ===")
	fmt.Printf("messages:  %d\n", r.Fetched)
	fmt.Printf("posts:     %d\n", r.Posts)
	fmt.Printf("products:  %d\n", r.Products)
	fmt.Printf("unparsed:  %d\n", r.Unparsed)
	fmt.Printf("dropped:   %d\n", r.Dropped)
	fmt.Printf("errors:    %d\n", r.Errors)
	switch {
	case r.Cancelled:
		fmt.Println("export:    skipped (cancelled)")
	case r.ExportPath != "":
		fmt.Printf("export:    %s\n", r.ExportPath)
	}
	if r.BigCommerce != "" {
		fmt.Printf("bigcommerce: %s\n", r.BigCommerce)
	}
	if r.ScanError != "" {
		fmt.Printf("scan stopped early: %s\n", r.ScanError)
	}
}
