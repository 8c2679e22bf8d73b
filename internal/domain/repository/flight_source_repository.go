package repository

import (
	"context"

	"flight-aggregator-service/internal/domain/entity"
)

// FlightSourceRepository defines the interface for the remote flight data source
type FlightSourceRepository interface {
	// FetchArrivals issues exactly one request for the target and returns every
	// record the source produced, or an error. It never retries.
	FetchArrivals(ctx context.Context, target entity.QueryTarget) ([]entity.Flight, error)
}
