package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/listing"
)

// catalogRecord is a pointer to a listable model.
type catalogRecord[T any] interface {
	*T
	listing.Keyed
}

// CatalogRepositoryImpl is the PostgreSQL implementation of CatalogRepository. Rows
// are keyed by doc_id, the decimal form of id.
type CatalogRepositoryImpl[T any, PT catalogRecord[T]] struct {
	*BaseRepository[T]
	kind string
}

func newCatalogRepository[T any, PT catalogRecord[T]](db *gorm.DB, kind string) *CatalogRepositoryImpl[T, PT] {
	return &CatalogRepositoryImpl[T, PT]{
		BaseRepository: NewBaseRepository[T](db),
		kind:           kind,
	}
}

func (r *CatalogRepositoryImpl[T, PT]) ByID(ctx context.Context, id int64) (*T, error) {
	entity, err := r.first(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %d: %w", r.kind, id, err)
	}
	return entity, nil
}

func (r *CatalogRepositoryImpl[T, PT]) Create(ctx context.Context, entity *T) error {
	if err := r.insert(ctx, entity); err != nil {
		return fmt.Errorf("failed to create %s %d: %w", r.kind, PT(entity).ListingID(), err)
	}
	return nil
}

func (r *CatalogRepositoryImpl[T, PT]) Update(ctx context.Context, entity *T) error {
	id := PT(entity).ListingID()
	res := r.getDB(ctx).Model(new(T)).Where("id = ?", id).Select("*").Omit("created_at").Updates(entity)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s %d: %w", r.kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepositoryImpl[T, PT]) Delete(ctx context.Context, id int64) error {
	res := r.getDB(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s %d: %w", r.kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CatalogRepositoryImpl[T, PT]) SaveBatch(ctx context.Context, entities []*T) error {
	if err := r.upsertBatch(ctx, entities, "doc_id"); err != nil {
		return fmt.Errorf("failed to save %s batch: %w", r.kind, err)
	}
	return nil
}

func (r *CatalogRepositoryImpl[T, PT]) List(ctx context.Context, q listing.Query) ([]*T, error) {
	var rows []*T
	if err := applyListing(r.getDB(ctx).Model(new(T)), q).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.kind, err)
	}
	return rows, nil
}
