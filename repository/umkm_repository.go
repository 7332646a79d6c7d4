package repository

import (
	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/models"
)

// UmkmRepositoryImpl implements UmkmRepository on PostgreSQL
type UmkmRepositoryImpl struct {
	*CatalogRepositoryImpl[models.Umkm, *models.Umkm]
}

// NewUmkmRepository creates a new UMKM repository
func NewUmkmRepository(db *gorm.DB) UmkmRepository {
	return &UmkmRepositoryImpl{
		CatalogRepositoryImpl: newCatalogRepository[models.Umkm, *models.Umkm](db, "umkm"),
	}
}
