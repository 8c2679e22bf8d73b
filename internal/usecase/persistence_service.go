package usecase

import (
	"context"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/metrics"
)

// PersistenceService forwards the current collection to the flight store
type PersistenceService struct {
	runs    RunReader
	store   repository.FlightStoreRepository
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewPersistenceService creates a new persistence service
func NewPersistenceService(runs RunReader, store repository.FlightStoreRepository, metrics *metrics.Metrics, logger logger.Logger) *PersistenceService {
	return &PersistenceService{
		runs:    runs,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Persist submits the whole collection in one request and returns its size.
// A failure leaves the collection untouched.
func (s *PersistenceService) Persist(ctx context.Context) (int, error) {
	run := s.runs.Current()
	if len(run.Flights) == 0 {
		return 0, entity.ErrNoFlights
	}

	if err := s.store.Save(ctx, run.Flights); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("persist").Inc()
		s.logger.Error("Failed to persist flights", "runId", run.ID, "count", len(run.Flights), "error", err)
		return 0, err
	}

	s.logger.Info("Flights persisted", "runId", run.ID, "count", len(run.Flights))
	return len(run.Flights), nil
}
