package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/utils"
)

// FavoriteRepositoryImpl implements FavoriteRepository on PostgreSQL
type FavoriteRepositoryImpl struct {
	*BaseRepository[models.Favorite]
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &FavoriteRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Favorite](db),
	}
}

func (r *FavoriteRepositoryImpl) ByKey(ctx context.Context, docID string) (*models.Favorite, error) {
	fav, err := r.first(ctx, "doc_id = ?", docID)
	if err != nil {
		return nil, fmt.Errorf("failed to find favorite %s: %w", docID, err)
	}
	return fav, nil
}

func (r *FavoriteRepositoryImpl) Save(ctx context.Context, favorite *models.Favorite) error {
	err := r.getDB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "doc_id"}}, UpdateAll: true}).
		Create(favorite).Error
	if err != nil {
		return fmt.Errorf("failed to save favorite %s: %w", favorite.DocID, err)
	}
	return nil
}

func (r *FavoriteRepositoryImpl) SaveBatch(ctx context.Context, favorites []*models.Favorite) error {
	if err := r.upsertBatch(ctx, favorites, "doc_id"); err != nil {
		return fmt.Errorf("failed to save favorite batch: %w", err)
	}
	return nil
}

func (r *FavoriteRepositoryImpl) ListByUser(ctx context.Context, userID, namePrefix string) ([]*models.Favorite, error) {
	db := r.getDB(ctx).Where("user_id = ?", userID)
	if namePrefix != "" {
		db = db.Where("name_lower >= ? AND name_lower < ?", namePrefix, namePrefix+listing.HighSentinel)
	}

	var favorites []*models.Favorite
	if err := db.Order("destination_id ASC").Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites of %s: %w", userID, err)
	}
	return favorites, nil
}

func (r *FavoriteRepositoryImpl) Delete(ctx context.Context, docID string) error {
	res := r.getDB(ctx).Where("doc_id = ?", docID).Delete(&models.Favorite{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete favorite %s: %w", docID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllByUser deletes one chunk per transaction until a short chunk is seen.
func (r *FavoriteRepositoryImpl) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	total := 0
	for {
		var keys []string
		err := r.getDB(ctx).Model(&models.Favorite{}).
			Where("user_id = ?", userID).
			Order("doc_id").
			Limit(utils.WriteBatchSize).
			Pluck("doc_id", &keys).Error
		if err != nil {
			return total, fmt.Errorf("failed to load favorites of %s: %w", userID, err)
		}
		if len(keys) == 0 {
			return total, nil
		}

		err = WithTransaction(ctx, r.DB, func(ctx context.Context) error {
			return r.getDB(ctx).Where("doc_id IN ?", keys).Delete(&models.Favorite{}).Error
		})
		if err != nil {
			return total, fmt.Errorf("failed to delete favorites of %s: %w", userID, err)
		}
		total += len(keys)

		if len(keys) < utils.WriteBatchSize {
			return total, nil
		}
	}
}
