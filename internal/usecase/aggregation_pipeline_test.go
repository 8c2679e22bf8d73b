package usecase

import (
	"context"
	"errors"
	"testing"

	"flight-aggregator-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTimezones = []string{"Europe/Madrid", "Europe/Paris", "Europe/Berlin", "Atlantic/Canary"}

func newTestPipeline(source *fakeSource, policy entity.FailurePolicy) *AggregationPipeline {
	return NewAggregationPipeline(source, NewAcceptanceFilter(testTimezones), policy, newTestMetrics(), newTestLogger())
}

func TestPipelineAssignsSequentialIDs(t *testing.T) {
	source := newFakeSource()
	source.responses["MAD"] = []entity.Flight{
		makeFlight(t, "IB1", "Europe/Madrid", "Europe/Madrid"),
		makeFlight(t, "AA2", "America/New_York", "Europe/Madrid"),
		makeFlight(t, "AF3", "Europe/Paris", "Europe/Madrid"),
	}
	source.responses["BCN"] = []entity.Flight{
		makeFlight(t, "LH4", "Europe/Berlin", "Europe/Madrid"),
	}

	result, err := newTestPipeline(source, entity.FailurePolicyAbort).Run(context.Background(), []entity.QueryTarget{"MAD", "BCN"})
	require.NoError(t, err)

	require.Len(t, result.Flights, 3)
	for i, f := range result.Flights {
		assert.Equal(t, i+1, f.ID)
	}
	assert.Equal(t, "IB1", flightIATA(result.Flights[0]))
	assert.Equal(t, "AF3", flightIATA(result.Flights[1]))
	assert.Equal(t, "LH4", flightIATA(result.Flights[2]))

	assert.Equal(t, 4, result.Fetched)
	assert.Equal(t, 3, result.Accepted)
	assert.Equal(t, 1, result.Rejected)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []entity.QueryTarget{"MAD", "BCN"}, source.Calls())
}

func TestPipelineRejectsNonEuropeanLeg(t *testing.T) {
	source := newFakeSource()
	source.responses["MAD"] = []entity.Flight{
		makeFlight(t, "IB6251", "Europe/Madrid", "America/New_York"),
	}

	result, err := newTestPipeline(source, entity.FailurePolicyAbort).Run(context.Background(), []entity.QueryTarget{"MAD"})
	require.NoError(t, err)

	assert.Empty(t, result.Flights)
	assert.Equal(t, 1, result.Rejected)
}

func TestPipelineEmptyResponseIsNotAFailure(t *testing.T) {
	source := newFakeSource()

	result, err := newTestPipeline(source, entity.FailurePolicyAbort).Run(context.Background(), []entity.QueryTarget{"MAD", "BCN"})
	require.NoError(t, err)

	assert.Empty(t, result.Flights)
	assert.Len(t, source.Calls(), 2)
}

func TestPipelineAbortPolicy(t *testing.T) {
	source := newFakeSource()
	source.responses["MAD"] = []entity.Flight{makeFlight(t, "IB1", "Europe/Madrid", "Europe/Madrid")}
	source.errs["BCN"] = sourceErr("BCN", 500)
	source.responses["AGP"] = []entity.Flight{makeFlight(t, "IB2", "Europe/Madrid", "Europe/Madrid")}

	result, err := newTestPipeline(source, entity.FailurePolicyAbort).Run(context.Background(), []entity.QueryTarget{"MAD", "BCN", "AGP"})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, entity.ErrSourceUnavailable))

	var srcErr *entity.SourceUnavailableError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, entity.QueryTarget("BCN"), srcErr.Target)

	assert.Equal(t, []entity.QueryTarget{"MAD", "BCN"}, source.Calls(), "no target is fetched after the failure")
}

func TestPipelinePartialPolicy(t *testing.T) {
	source := newFakeSource()
	source.responses["MAD"] = []entity.Flight{makeFlight(t, "IB1", "Europe/Madrid", "Europe/Madrid")}
	source.errs["BCN"] = sourceErr("BCN", 503)
	source.responses["AGP"] = []entity.Flight{makeFlight(t, "IB2", "Europe/Paris", "Europe/Madrid")}

	result, err := newTestPipeline(source, entity.FailurePolicyPartial).Run(context.Background(), []entity.QueryTarget{"MAD", "BCN", "AGP"})
	require.NoError(t, err)

	require.Len(t, result.Flights, 2)
	assert.Equal(t, 1, result.Flights[0].ID)
	assert.Equal(t, 2, result.Flights[1].ID)
	assert.Equal(t, "IB2", flightIATA(result.Flights[1]))

	require.Len(t, result.Failures, 1)
	assert.Equal(t, entity.QueryTarget("BCN"), result.Failures[0].Target)
	assert.NotEmpty(t, result.Failures[0].Error)
}

func TestPipelinePartialPolicyAllTargetsFailed(t *testing.T) {
	source := newFakeSource()
	source.errs["MAD"] = sourceErr("MAD", 500)
	source.errs["BCN"] = sourceErr("BCN", 401)

	result, err := newTestPipeline(source, entity.FailurePolicyPartial).Run(context.Background(), []entity.QueryTarget{"MAD", "BCN"})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, entity.ErrSourceUnavailable))
}

func TestPipelineNoTargets(t *testing.T) {
	result, err := newTestPipeline(newFakeSource(), entity.FailurePolicyAbort).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Flights)
}

func TestPipelineCancelledBeforeStart(t *testing.T) {
	source := newFakeSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestPipeline(source, entity.FailurePolicyPartial).Run(ctx, []entity.QueryTarget{"MAD"})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, source.Calls())
}
