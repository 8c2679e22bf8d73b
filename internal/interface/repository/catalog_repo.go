package repository

import (
	"context"
	"fmt"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"

	"gorm.io/gorm"
)

// StaticCatalogRepository serves a catalog fixed at construction time
type StaticCatalogRepository struct {
	catalog *entity.Catalog
}

// NewStaticCatalogRepository wraps an already built catalog
func NewStaticCatalogRepository(catalog *entity.Catalog) *StaticCatalogRepository {
	return &StaticCatalogRepository{catalog: catalog}
}

// Load returns the wrapped catalog
func (r *StaticCatalogRepository) Load(ctx context.Context) (*entity.Catalog, error) {
	return r.catalog, nil
}

// GormCatalogRepository reads the catalog from reference tables in PostgreSQL
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GORM catalog repository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{
		db: db,
	}
}

var (
	_ repository.CatalogRepository = (*StaticCatalogRepository)(nil)
	_ repository.CatalogRepository = (*GormCatalogRepository)(nil)
)

// QueryTargetRow GORM model for the airport list
type QueryTargetRow struct {
	ID          uint   `gorm:"primaryKey"`
	AirportCode string `gorm:"column:airport_code;unique"`
	SortOrder   int    `gorm:"column:sort_order"`
	Active      bool   `gorm:"column:active"`
}

// TableName overrides the default table name
func (QueryTargetRow) TableName() string {
	return "m_query_targets"
}

// TimezoneAllowlistRow GORM model for accepted timezones
type TimezoneAllowlistRow struct {
	ID     uint   `gorm:"primaryKey"`
	TzName string `gorm:"column:tzname;unique"`
}

// TableName overrides the default table name
func (TimezoneAllowlistRow) TableName() string {
	return "m_timezone_allowlist"
}

// Load reads active airports in sort order plus the full timezone allowlist
func (r *GormCatalogRepository) Load(ctx context.Context) (*entity.Catalog, error) {
	var targetRows []QueryTargetRow
	result := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order, id").
		Find(&targetRows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load query targets: %w", result.Error)
	}

	var timezoneRows []TimezoneAllowlistRow
	result = r.db.WithContext(ctx).Order("id").Find(&timezoneRows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load timezone allowlist: %w", result.Error)
	}

	// Convert GORM models to the domain catalog
	targets := make([]entity.QueryTarget, 0, len(targetRows))
	for _, row := range targetRows {
		targets = append(targets, entity.QueryTarget(row.AirportCode))
	}

	timezones := make([]string, 0, len(timezoneRows))
	for _, row := range timezoneRows {
		timezones = append(timezones, row.TzName)
	}

	return entity.NewCatalog(targets, timezones)
}
