package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"lendledger/config"
	"lendledger/database"
	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
	"lendledger/domain/services"
	"lendledger/events"
	"lendledger/infrastructure"
	"lendledger/infrastructure/observability"
	"lendledger/repository"

	log "github.com/sirupsen/logrus"
)

// app holds the components shared by the server and the report command
type app struct {
	cfg       *config.Config
	db        *database.DB
	bus       *events.Bus
	metrics   *observability.Metrics
	positions interfaces.PositionService
}

// configureLogging applies the configured level and format to the global logger
func configureLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: expected text or json", cfg.LogFormat)
	}
	return nil
}

// newApp connects to the database, applies migrations and builds the service graph
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log.Info("Connecting to database...")
	databaseURL := cfg.GetDatabaseURL()
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	metrics := observability.Default()
	eventBus.Subscribe(events.EventTypeRecordsCached, metrics.HandleRecordsCached)

	upstream := infrastructure.NewUpstreamSource(
		infrastructure.NewSubgraphClient(cfg.SubgraphURL, cfg.RequestTimeout),
		infrastructure.NewRatesClient(cfg.RatesURL, cfg.RequestTimeout),
	)
	dataSource := infrastructure.NewCachedDataSource(uowFactory, upstream)

	registry := entities.NewTokenRegistry(cfg.Tokens...)
	positions := services.NewPositionService(dataSource, uowFactory, registry, cfg.ReconcilerConfig(), metrics)

	log.WithFields(log.Fields{
		"tokens":     strings.Join(registry.Symbols(), ","),
		"leadingGap": cfg.LeadingGapPolicy,
		"supplyRate": cfg.SupplyRateMode,
	}).Info("Services initialized successfully")

	return &app{
		cfg:       cfg,
		db:        db,
		bus:       eventBus,
		metrics:   metrics,
		positions: positions,
	}, nil
}

func (a *app) close() {
	log.Info("Closing database connection...")
	a.db.Close()
}
