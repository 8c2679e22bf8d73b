package repository

import (
	"context"

	"flight-aggregator-service/internal/domain/entity"
)

// FlightStoreRepository defines the interface for the remote flight store
type FlightStoreRepository interface {
	Save(ctx context.Context, flights []entity.AggregatedFlight) error
}
