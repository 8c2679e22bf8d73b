package usecase

import (
	"context"
	"errors"
	"fmt"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"
	"flight-aggregator-service/pkg/logger"
	"flight-aggregator-service/pkg/metrics"
)

// AggregationPipeline fetches every query target in order, filters the
// results and tags accepted flights with a run-local sequence number.
type AggregationPipeline struct {
	source  repository.FlightSourceRepository
	filter  *AcceptanceFilter
	policy  entity.FailurePolicy
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewAggregationPipeline creates a new aggregation pipeline
func NewAggregationPipeline(
	source repository.FlightSourceRepository,
	filter *AcceptanceFilter,
	policy entity.FailurePolicy,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *AggregationPipeline {
	return &AggregationPipeline{
		source:  source,
		filter:  filter,
		policy:  policy,
		metrics: metrics,
		logger:  logger,
	}
}

// Policy returns the failure policy the pipeline runs with
func (p *AggregationPipeline) Policy() entity.FailurePolicy {
	return p.policy
}

// Run executes one aggregation over targets. Fetches are strictly sequential
// so identifiers follow target order, then response order.
//
// With FailurePolicyAbort the first failing target ends the run and nothing
// is returned. With FailurePolicyPartial failures are collected and the run
// only fails when no target succeeded. Cancellation is checked before each fetch.
func (p *AggregationPipeline) Run(ctx context.Context, targets []entity.QueryTarget) (*entity.AggregationResult, error) {
	result := &entity.AggregationResult{
		Flights: []entity.AggregatedFlight{},
	}
	nextID := 1
	succeeded := 0
	var failures []error

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("aggregation stopped before %s: %w", target, err)
		}

		flights, err := p.source.FetchArrivals(ctx, target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("aggregation stopped at %s: %w", target, ctxErr)
			}

			p.metrics.SourceRequests.WithLabelValues("error").Inc()

			if p.policy == entity.FailurePolicyAbort {
				p.logger.Error("Aborting aggregation on failed target",
					"target", target,
					"position", i+1,
					"error", err)
				return nil, err
			}

			p.logger.Warn("Skipping failed target",
				"target", target,
				"position", i+1,
				"error", err)
			failures = append(failures, err)
			result.Failures = append(result.Failures, entity.TargetFailure{
				Target: target,
				Error:  err.Error(),
			})
			continue
		}

		p.metrics.SourceRequests.WithLabelValues("ok").Inc()
		succeeded++

		if len(flights) == 0 {
			p.logger.Debug("No flights for target", "target", target)
			continue
		}

		accepted := 0
		for j := range flights {
			if !p.filter.Accepts(&flights[j]) {
				continue
			}
			result.Flights = append(result.Flights, entity.AggregatedFlight{
				ID:     nextID,
				Flight: flights[j],
			})
			nextID++
			accepted++
		}

		rejected := len(flights) - accepted
		result.Fetched += len(flights)
		result.Accepted += accepted
		result.Rejected += rejected

		p.metrics.FlightsFetched.Add(float64(len(flights)))
		p.metrics.FlightsAccepted.Add(float64(accepted))
		p.metrics.FlightsRejected.Add(float64(rejected))

		p.logger.Info("Processed target",
			"target", target,
			"position", i+1,
			"fetched", len(flights),
			"accepted", accepted)
	}

	if len(targets) > 0 && succeeded == 0 {
		return nil, fmt.Errorf("all %d query targets failed: %w", len(targets), errors.Join(failures...))
	}

	return result, nil
}
