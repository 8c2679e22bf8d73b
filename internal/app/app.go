// Package app wires configuration into the aggregation components shared by
// the server and the one-shot command.
package app

import (
	"context"
	"fmt"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/internal/infrastructure/config"
	"flight-aggregator-service/internal/infrastructure/persistence"
	repo "flight-aggregator-service/internal/interface/repository"
	"flight-aggregator-service/internal/usecase"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "flight_aggregator"

// App holds the wired components
type App struct {
	Session   *usecase.FlightSession
	Exporter  *usecase.ExportService
	Persister *usecase.PersistenceService
	// Runs is nil when MONGODB_DSN is not set
	Runs    repository.RunRepository
	Metrics *metrics.Metrics

	closers []func(context.Context) error
	logger  logger.Logger
}

// New connects the optional backends named in cfg and builds the session
func New(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Metrics: metrics.NewMetrics(MetricsNamespace, reg),
		logger:  log,
	}

	catalog, err := a.loadCatalog(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	log.Info("Catalog loaded",
		"source", cfg.CatalogSource,
		"targets", len(catalog.Targets()),
		"timezones", len(catalog.Timezones()))

	if cfg.SourceAccessKey == "" {
		log.Warn("AVIATIONSTACK_ACCESS_KEY is empty; source requests will be rejected")
	}

	source := repo.NewAviationstackRepository(repo.AviationstackConfig{
		BaseURL:    cfg.SourceBaseURL,
		AccessKey:  cfg.SourceAccessKey,
		FlightDate: cfg.FlightDate,
		Limit:      cfg.ResultLimit,
		Timeout:    cfg.SourceTimeout,
	}, log.With("component", "source"))
	store := repo.NewHTTPFlightStoreRepository(cfg.PersistEndpoint, cfg.PersistTimeout, log.With("component", "store"))

	opts := []usecase.SessionOption{usecase.WithRunTimeout(cfg.RunTimeout)}

	if cfg.MongoURI != "" {
		log.Info("Connecting to MongoDB")
		client, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)

		runRepo := repo.NewMongoRunRepository(db)
		if err := runRepo.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to create run history indexes", "error", err)
		}
		a.Runs = runRepo
		opts = append(opts, usecase.WithRunRepository(runRepo))
	}

	if cfg.RedisAddr != "" {
		log.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		client, err := persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		opts = append(opts, usecase.WithRunLock(repo.NewRedisRunLockRepository(client, "flight-aggregation", cfg.RunLockTTL)))
	}

	var archive repository.ArtifactRepository
	if cfg.ArchiveBucket != "" {
		client, err := persistence.NewS3Client(ctx, cfg.AWSRegion)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		archive = repo.NewS3ArtifactRepository(client, cfg.ArchiveBucket, cfg.ArchivePrefix)
		opts = append(opts, usecase.WithSnapshotArchive(archive))
		log.Info("Archive enabled", "bucket", cfg.ArchiveBucket, "prefix", cfg.ArchivePrefix)
	}

	filter := usecase.NewAcceptanceFilter(catalog.Timezones())
	pipeline := usecase.NewAggregationPipeline(source, filter, cfg.FailurePolicy, a.Metrics, log.With("component", "pipeline"))

	a.Session = usecase.NewFlightSession(pipeline, catalog, cfg.FlightDate, a.Metrics, log.With("component", "session"), opts...)
	a.Exporter = usecase.NewExportService(a.Session, archive, a.Metrics, log.With("component", "export"))
	a.Persister = usecase.NewPersistenceService(a.Session, store, a.Metrics, log.With("component", "persist"))

	return a, nil
}

func (a *App) loadCatalog(ctx context.Context, cfg *config.Config) (*entity.Catalog, error) {
	if cfg.CatalogSource != config.CatalogSourcePostgres {
		return repo.NewStaticCatalogRepository(entity.DefaultCatalog()).Load(ctx)
	}

	a.logger.Info("Loading catalog from PostgreSQL")
	db, err := persistence.NewPostgresDB(cfg.PostgresURI)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL handle: %w", err)
	}
	// The catalog is read once; the connection is not needed afterwards.
	defer sqlDB.Close()

	return repo.NewGormCatalogRepository(db).Load(ctx)
}

// Close cancels the run in flight and releases every backend connection
func (a *App) Close(ctx context.Context) {
	if a.Session != nil {
		a.Session.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("Failed to close backend", "error", err)
		}
	}
	a.closers = nil
}
