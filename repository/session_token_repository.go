package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/models"
)

// SessionTokenRepositoryImpl implements SessionTokenRepository on PostgreSQL
type SessionTokenRepositoryImpl struct {
	*BaseRepository[models.SessionToken]
}

// NewSessionTokenRepository creates a new session token repository
func NewSessionTokenRepository(db *gorm.DB) SessionTokenRepository {
	return &SessionTokenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SessionToken](db),
	}
}

func (r *SessionTokenRepositoryImpl) Save(ctx context.Context, session *models.SessionToken) error {
	if err := r.insert(ctx, session); err != nil {
		return fmt.Errorf("failed to create session token: %w", err)
	}
	return nil
}

func (r *SessionTokenRepositoryImpl) IsValid(ctx context.Context, userID, token string, now time.Time) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.SessionToken{}).
		Where("user_id = ? AND token = ? AND expires_at > ?", userID, token, now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check session token: %w", err)
	}
	return count > 0, nil
}

func (r *SessionTokenRepositoryImpl) Delete(ctx context.Context, userID, token string) error {
	res := r.getDB(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&models.SessionToken{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete session token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionTokenRepositoryImpl) DeleteAllByUser(ctx context.Context, userID string) error {
	if err := r.getDB(ctx).Where("user_id = ?", userID).Delete(&models.SessionToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete sessions of %s: %w", userID, err)
	}
	return nil
}

func (r *SessionTokenRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.getDB(ctx).Where("expires_at <= ?", now).Delete(&models.SessionToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
