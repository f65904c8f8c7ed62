package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rentloop/internal/api"
	"rentloop/internal/config"
	"rentloop/internal/database"
	"rentloop/internal/domain"
	"rentloop/internal/events"
	"rentloop/internal/export"
	"rentloop/internal/logging"
	"rentloop/internal/metrics"
	"rentloop/internal/models"
	"rentloop/internal/repository"
	"rentloop/internal/service"
	"rentloop/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	yamlv2 "gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	itemsPath := flag.String("items", "", "optional seed items file overriding the config list")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedItems := cfg.Items
	if *itemsPath != "" {
		seedItems, err = loadSeedItems(*itemsPath)
		if err != nil {
			return fmt.Errorf("failed to load seed items: %w", err)
		}
	}
	if err := seedCatalog(ctx, db, seedItems, logger); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	var redisClient *redis.Client
	rateRepo := domain.RateLimitRepository(repository.NewMemoryRateLimitRepository())
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := repository.Ping(pingCtx, redisClient)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable at startup, failover will use memory")
		}

		rateRepo = repository.NewFailoverRateLimitRepository(
			repository.NewRedisRateLimitRepository(redisClient),
			repository.NewMemoryRateLimitRepository(),
			logger,
		)
	}

	eventBus := events.NewEventBus()
	subscribeEventLogging(eventBus, logger)

	bookingSvc := service.NewBookingService(db, db, db, eventBus, nil, logger)
	itemSvc := service.NewItemService(db, db, db, db, eventBus, nil, logger)
	userSvc := service.NewUserService(db, logger)
	requestSvc := service.NewRequestService(db, db, db, logger)

	exporter := export.NewExporter(db, db, db, cfg.Exports.Path)
	exportWorker := worker.NewExportWorker(exporter, redisClient, worker.RetryPolicy{}, logger)

	server := api.NewHTTPServer(&cfg.API, bookingSvc, itemSvc, userSvc, requestSvc, exportWorker, rateRepo, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		exportWorker.Run(ctx)
	}()

	var metricsServer *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info().Str("addr", metricsServer.Addr).Msg("metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	stop()
	wg.Wait()

	logger.Info().Msg("shutdown complete")
	return nil
}

// seedItemsFile is the standalone catalog format, kept separate from
// the main config schema.
type seedItemsFile struct {
	Items []models.Item `yaml:"items"`
}

func loadSeedItems(path string) ([]models.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file seedItemsFile
	if err := yamlv2.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}
	if err := config.ValidateItems(file.Items); err != nil {
		return nil, err
	}
	return file.Items, nil
}

// seedCatalog inserts configured items under their fixed ids, leaving
// existing rows untouched.
func seedCatalog(ctx context.Context, db *database.DB, items []models.Item, logger *zerolog.Logger) error {
	for i := range items {
		item := items[i]
		if err := db.SeedItem(ctx, &item); err != nil {
			return err
		}
		logger.Info().Int64("item_id", item.ID).Str("name", item.Name).Msg("seeded catalog item")
	}
	return nil
}

func subscribeEventLogging(bus *events.EventBus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingApproved,
		events.EventBookingRejected,
		events.EventCommentAdded,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Info().
				Str("event", event.Type).
				RawJSON("payload", event.Payload).
				Msg("domain event")
			return nil
		})
	}
}
