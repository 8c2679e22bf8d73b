package repository

import (
	"context"

	"flight-aggregator-service/internal/domain/entity"
)

// RunRepository defines the interface for aggregation run history
type RunRepository interface {
	Save(ctx context.Context, summary *entity.RunSummary) error
	FindRecent(ctx context.Context, limit int) ([]*entity.RunSummary, error)
}
