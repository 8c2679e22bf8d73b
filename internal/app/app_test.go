package app

import (
	"context"
	"testing"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/infrastructure/config"
	"flight-aggregator-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutOptionalBackends(t *testing.T) {
	cfg := &config.Config{
		SourceBaseURL:   "http://127.0.0.1:1",
		FlightDate:      "2023-12-29",
		ResultLimit:     10000,
		FailurePolicy:   entity.FailurePolicyPartial,
		CatalogSource:   config.CatalogSourceStatic,
		PersistEndpoint: "http://127.0.0.1:1/saveFlights",
	}

	a, err := New(context.Background(), cfg, logger.NewNopLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Nil(t, a.Runs)
	require.NotNil(t, a.Session)
	assert.Equal(t, entity.RunStateIdle, a.Session.Current().State)
	assert.NotNil(t, a.Exporter)
	assert.NotNil(t, a.Persister)
}
