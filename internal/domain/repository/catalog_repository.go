package repository

import (
	"context"

	"flight-aggregator-service/internal/domain/entity"
)

// CatalogRepository loads the query target catalog once at startup
type CatalogRepository interface {
	Load(ctx context.Context) (*entity.Catalog, error)
}
