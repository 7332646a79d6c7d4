package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/models"
)

// UserRepositoryImpl implements UserRepository on PostgreSQL
type UserRepositoryImpl struct {
	*BaseRepository[models.User]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User](db),
	}
}

func (r *UserRepositoryImpl) ByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.first(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return user, nil
}

// ByEmail expects an already lowercased address
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.first(ctx, "email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepositoryImpl) Save(ctx context.Context, user *models.User) error {
	if err := r.insert(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": passwordHash, "updated_at": at})
}

func (r *UserRepositoryImpl) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"email_verified":    true,
		"email_verified_at": at,
		"updated_at":        at,
	})
}

func (r *UserRepositoryImpl) updateColumns(ctx context.Context, id string, columns map[string]any) error {
	res := r.getDB(ctx).Model(&models.User{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
