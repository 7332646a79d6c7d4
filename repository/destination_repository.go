package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
)

// DestinationRepositoryImpl implements DestinationRepository on PostgreSQL
type DestinationRepositoryImpl struct {
	*CatalogRepositoryImpl[models.Destination, *models.Destination]
}

// NewDestinationRepository creates a new destination repository
func NewDestinationRepository(db *gorm.DB) DestinationRepository {
	return &DestinationRepositoryImpl{
		CatalogRepositoryImpl: newCatalogRepository[models.Destination, *models.Destination](db, "destination"),
	}
}

// Browse returns dataset rows by id, optionally restricted to a name_lower prefix
func (r *DestinationRepositoryImpl) Browse(ctx context.Context, namePrefix string, limit int) ([]*models.Destination, error) {
	db := r.getDB(ctx).Model(&models.Destination{})
	if namePrefix != "" {
		db = db.Where("name_lower >= ? AND name_lower < ?", namePrefix, namePrefix+listing.HighSentinel)
	}

	var rows []*models.Destination
	if err := db.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to browse destinations: %w", err)
	}
	return rows, nil
}
