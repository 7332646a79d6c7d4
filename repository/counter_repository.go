package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/models"
)

// CounterRepositoryImpl implements CounterRepository on PostgreSQL
type CounterRepositoryImpl struct {
	*BaseRepository[models.Counter]
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &CounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Counter](db),
	}
}

func (r *CounterRepositoryImpl) ByName(ctx context.Context, name string) (*models.Counter, error) {
	counter, err := r.first(ctx, "name = ?", name)
	if err != nil {
		return nil, fmt.Errorf("failed to find counter %q: %w", name, err)
	}
	return counter, nil
}

func (r *CounterRepositoryImpl) Insert(ctx context.Context, counter *models.Counter) error {
	res := r.getDB(ctx).Exec(
		`INSERT INTO counters (name, seq, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		counter.Name, counter.Seq, counter.CreatedAt, counter.UpdatedAt,
	)
	if res.Error != nil {
		return fmt.Errorf("failed to insert counter %q: %w", counter.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *CounterRepositoryImpl) CompareAndSwap(ctx context.Context, name string, expected, next int64, at time.Time) error {
	res := r.getDB(ctx).Exec(
		`UPDATE counters SET seq = ?, updated_at = ? WHERE name = ? AND seq = ?`,
		next, at, name, expected,
	)
	if res.Error != nil {
		return fmt.Errorf("failed to advance counter %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
