package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/metrics"
	"flight-aggregator-service/pkg/utils"

	"github.com/google/uuid"
)

const historyTimeout = 10 * time.Second

// SessionOption configures optional collaborators of a FlightSession
type SessionOption func(*FlightSession)

// WithRunRepository records every finished run in history
func WithRunRepository(repo repository.RunRepository) SessionOption {
	return func(s *FlightSession) {
		s.runRepo = repo
	}
}

// WithRunLock guards runs with a lock shared across replicas
func WithRunLock(lock repository.RunLockRepository) SessionOption {
	return func(s *FlightSession) {
		s.runLock = lock
	}
}

// WithSnapshotArchive uploads the accepted flights of every populated run
func WithSnapshotArchive(archive repository.ArtifactRepository) SessionOption {
	return func(s *FlightSession) {
		s.archive = archive
	}
}

// WithRunTimeout bounds a single run. Zero means no bound.
func WithRunTimeout(timeout time.Duration) SessionOption {
	return func(s *FlightSession) {
		s.runTimeout = timeout
	}
}

// FlightSession owns the current aggregated collection and its run state.
// Starting a run discards the previous collection. A run started while
// another is in flight cancels the older one, and only the newest run
// may commit its outcome.
type FlightSession struct {
	pipeline   *AggregationPipeline
	catalog    *entity.Catalog
	flightDate string
	runRepo    repository.RunRepository
	runLock    repository.RunLockRepository
	archive    repository.ArtifactRepository
	runTimeout time.Duration
	metrics    *metrics.Metrics
	logger     logger.Logger

	mu      sync.RWMutex
	current *entity.AggregationRun
	seq     uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

type runHandle struct {
	token   uint64
	run     *entity.AggregationRun
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	release repository.ReleaseFunc
}

// NewFlightSession creates a session in the idle state
func NewFlightSession(
	pipeline *AggregationPipeline,
	catalog *entity.Catalog,
	flightDate string,
	metrics *metrics.Metrics,
	logger logger.Logger,
	opts ...SessionOption,
) *FlightSession {
	s := &FlightSession{
		pipeline:   pipeline,
		catalog:    catalog,
		flightDate: flightDate,
		metrics:    metrics,
		logger:     logger,
		current:    &entity.AggregationRun{State: entity.RunStateIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one aggregation and blocks until it is finished
func (s *FlightSession) Run(ctx context.Context) (*entity.AggregationRun, error) {
	h, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return s.execute(h)
}

// Start begins an aggregation in the background and returns the loading run.
// ctx must outlive the run; it is not tied to the caller's request.
func (s *FlightSession) Start(ctx context.Context) (*entity.AggregationRun, error) {
	h, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	started := *h.run
	go func() {
		if _, err := s.execute(h); err != nil {
			s.logger.Debug("Background run ended with error", "runId", h.run.ID, "error", err)
		}
	}()

	return &started, nil
}

// Current returns a copy of the current run
func (s *FlightSession) Current() entity.AggregationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRun(s.current)
}

// Flights returns a copy of the current collection
func (s *FlightSession) Flights() []entity.AggregatedFlight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.AggregatedFlight(nil), s.current.Flights...)
}

// Wait blocks until every run started so far has finished
func (s *FlightSession) Wait() {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Close cancels the run in flight and waits for it and all older runs
func (s *FlightSession) Close() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	s.Wait()
}

func (s *FlightSession) begin(parent context.Context) (*runHandle, error) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(parent, s.runTimeout)
	} else {
		runCtx, cancel = context.WithCancel(parent)
	}

	run := &entity.AggregationRun{
		ID:          uuid.NewString(),
		State:       entity.RunStateLoading,
		Policy:      s.pipeline.Policy(),
		FlightDate:  s.flightDate,
		TargetCount: len(s.catalog.Targets()),
		StartedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	previous := s.done
	s.seq++
	h := &runHandle{
		token:  s.seq,
		run:    run,
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.cancel = cancel
	s.done = h.done
	s.current = run
	s.mu.Unlock()

	s.logger.Info("Starting aggregation run",
		"runId", run.ID,
		"policy", run.Policy,
		"flightDate", run.FlightDate,
		"targets", run.TargetCount)

	// A run's done channel closes only after every older run has finished,
	// so the previous run's lock and history writes are settled here.
	if previous != nil {
		<-previous
	}
	if err := runCtx.Err(); err != nil {
		if !s.isCurrent(h.token) {
			err = fmt.Errorf("%w: %v", entity.ErrRunSuperseded, err)
		}
		return nil, s.abandon(h, err)
	}

	if s.runLock != nil {
		release, err := s.runLock.Acquire(runCtx)
		if err != nil {
			return nil, s.abandon(h, err)
		}
		h.release = release
	}

	return h, nil
}

// abandon finishes a run that never reached the pipeline
func (s *FlightSession) abandon(h *runHandle, cause error) error {
	defer close(h.done)
	defer h.cancel()

	finished := *h.run
	finished.State = entity.RunStateError
	finished.Err = cause
	finished.FinishedAt = time.Now().UTC()

	if s.commit(h.token, &finished) {
		s.logger.Warn("Aggregation run not started", "runId", finished.ID, "error", cause)
	}
	s.metrics.RunsTotal.WithLabelValues(runOutcome(cause)).Inc()
	s.recordHistory(context.WithoutCancel(h.ctx), &finished)
	return cause
}

func (s *FlightSession) execute(h *runHandle) (*entity.AggregationRun, error) {
	defer close(h.done)
	defer h.cancel()
	if h.release != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), historyTimeout)
			defer cancel()
			if err := h.release(ctx); err != nil {
				s.logger.Warn("Failed to release run lock", "runId", h.run.ID, "error", err)
			}
		}()
	}

	result, err := s.pipeline.Run(h.ctx, s.catalog.Targets())

	finished := *h.run
	finished.FinishedAt = time.Now().UTC()
	if err != nil {
		if !s.isCurrent(h.token) && errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", entity.ErrRunSuperseded, err)
		}
		finished.State = entity.RunStateError
		finished.Err = err
	} else {
		finished.State = entity.RunStatePopulated
		finished.Flights = result.Flights
		finished.Failures = result.Failures
		finished.Fetched = result.Fetched
		finished.Accepted = result.Accepted
		finished.Rejected = result.Rejected
	}

	duration := finished.FinishedAt.Sub(finished.StartedAt)
	s.metrics.RunDuration.Observe(duration.Seconds())
	s.metrics.RunsTotal.WithLabelValues(runOutcome(err)).Inc()

	committed := s.commit(h.token, &finished)
	if committed {
		if err != nil {
			s.logger.Error("Aggregation run failed",
				"runId", finished.ID,
				"duration", duration,
				"error", err)
		} else {
			s.logger.Info("Aggregation run completed",
				"runId", finished.ID,
				"duration", duration,
				"fetched", finished.Fetched,
				"accepted", finished.Accepted,
				"rejected", finished.Rejected,
				"failedTargets", len(finished.Failures))
		}
	} else {
		s.logger.Info("Aggregation run superseded", "runId", finished.ID)
	}

	bg := context.WithoutCancel(h.ctx)
	s.recordHistory(bg, &finished)
	if committed && err == nil {
		s.archiveSnapshot(bg, &finished)
	}

	out := copyRun(&finished)
	return &out, err
}

func (s *FlightSession) commit(token uint64, run *entity.AggregationRun) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != token {
		return false
	}
	s.current = run
	return true
}

func (s *FlightSession) isCurrent(token uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq == token
}

func (s *FlightSession) recordHistory(ctx context.Context, run *entity.AggregationRun) {
	if s.runRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	if err := s.runRepo.Save(ctx, run.Summary()); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("run_history").Inc()
		s.logger.Warn("Failed to record run history", "runId", run.ID, "error", err)
	}
}

func (s *FlightSession) archiveSnapshot(ctx context.Context, run *entity.AggregationRun) {
	if s.archive == nil || len(run.Flights) == 0 {
		return
	}

	body, err := utils.EncodeJSONLGZ(run.Flights)
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("snapshot").Inc()
		s.logger.Warn("Failed to encode run snapshot", "runId", run.ID, "error", err)
		return
	}

	key := fmt.Sprintf("snapshots/%s/flights.jsonl.gz", run.ID)
	if err := s.archive.Put(ctx, key, utils.CONTENT_TYPE_JSONL_GZ, body); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("snapshot").Inc()
		s.logger.Warn("Failed to archive run snapshot", "runId", run.ID, "key", key, "error", err)
		return
	}

	s.logger.Debug("Run snapshot archived", "runId", run.ID, "key", key, "bytes", len(body))
}

func copyRun(run *entity.AggregationRun) entity.AggregationRun {
	out := *run
	out.Flights = append([]entity.AggregatedFlight(nil), run.Flights...)
	out.Failures = append([]entity.TargetFailure(nil), run.Failures...)
	return out
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return "populated"
	case errors.Is(err, entity.ErrRunSuperseded), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, entity.ErrRunInProgress):
		return "locked"
	default:
		return "error"
	}
}
