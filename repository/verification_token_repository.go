package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/models"
)

// VerificationTokenRepositoryImpl implements VerificationTokenRepository on PostgreSQL
type VerificationTokenRepositoryImpl struct {
	*BaseRepository[models.VerificationToken]
}

// NewVerificationTokenRepository creates a new verification token repository
func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &VerificationTokenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VerificationToken](db),
	}
}

func (r *VerificationTokenRepositoryImpl) Save(ctx context.Context, token *models.VerificationToken) error {
	if err := r.insert(ctx, token); err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

func (r *VerificationTokenRepositoryImpl) ActiveByToken(ctx context.Context, token, tokenType string, now time.Time) (*models.VerificationToken, error) {
	vt, err := r.first(ctx, "token = ? AND type = ? AND used = ? AND expires_at > ?", token, tokenType, false, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find verification token: %w", err)
	}
	return vt, nil
}

// MarkUsed only flips rows that are still unused, so a token is consumed once.
func (r *VerificationTokenRepositoryImpl) MarkUsed(ctx context.Context, id uint) error {
	res := r.getDB(ctx).Model(&models.VerificationToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark verification token used: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *VerificationTokenRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.getDB(ctx).Where("expires_at <= ? OR used = ?", now, true).Delete(&models.VerificationToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
