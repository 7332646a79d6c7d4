package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcoalfans/manud-be/utils"
)

// BaseRepository provides common repository functionality with transaction support
type BaseRepository[T any] struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{
		DB: db,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB.WithContext(ctx)
}

// inTransaction reports whether ctx already carries a transaction.
func inTransaction(ctx context.Context) bool {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	return ok && tx != nil
}

// first loads one row matching query, returning nil, nil when there is none.
func (r *BaseRepository[T]) first(ctx context.Context, query string, args ...any) (*T, error) {
	var entity T
	err := r.getDB(ctx).Where(query, args...).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// insert creates a row, mapping duplicate keys to ErrConflict.
func (r *BaseRepository[T]) insert(ctx context.Context, entity *T) error {
	if err := r.getDB(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// upsertBatch writes entities in sequential chunks of utils.WriteBatchSize, one
// transaction per chunk unless the caller already opened one.
func (r *BaseRepository[T]) upsertBatch(ctx context.Context, entities []*T, keyColumn string) error {
	for start := 0; start < len(entities); start += utils.WriteBatchSize {
		end := min(start+utils.WriteBatchSize, len(entities))
		chunk := entities[start:end]

		write := func(ctx context.Context) error {
			return r.getDB(ctx).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: keyColumn}}, UpdateAll: true}).
				Create(&chunk).Error
		}

		var err error
		if inTransaction(ctx) {
			err = write(ctx)
		} else {
			err = WithTransaction(ctx, r.DB, write)
		}
		if err != nil {
			return fmt.Errorf("failed to write batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// WithTransaction executes a function within a database transaction
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	if inTransaction(ctx) {
		return fn(ctx)
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	ctx = context.WithValue(ctx, TxContextKey, tx)

	if err := fn(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GormTransactionManager runs units of work in PostgreSQL transactions.
type GormTransactionManager struct {
	db *gorm.DB
}

func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

func (m *GormTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, m.db, fn)
}

// Ping checks the underlying connection pool.
func (m *GormTransactionManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
