package testing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/normalizer"
	"github.com/marcoalfans/manud-be/repository"
)

// TestPassword is the plain password of every fixture user.
const TestPassword = "TestPass123!"

// FixedNow is the clock used by fixtures.
var FixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

// FixedClock returns FixedNow.
func FixedClock() time.Time { return FixedNow }

// CreateTestUser stores a user with a bcrypt hash of TestPassword.
func CreateTestUser(ctx context.Context, repo repository.UserRepository, email string, verified bool) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:            uuid.NewString(),
		Name:          strings.Split(email, "@")[0],
		Email:         strings.ToLower(email),
		PasswordHash:  string(hash),
		EmailVerified: verified,
		CreatedAt:     FixedNow,
		UpdatedAt:     FixedNow,
	}
	if verified {
		at := FixedNow
		user.EmailVerifiedAt = &at
	}
	if err := repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// NewTestUmkm normalizes a UMKM record the way the write path does.
func NewTestUmkm(id int64, name, category string) *models.Umkm {
	return normalizer.NewUmkm(id, normalizer.UmkmInput{
		Name:     normalizer.Of(name),
		Category: normalizer.Of(category),
		Whatsapp: normalizer.Of("0812-0000-0000"),
	}, FixedNow.Add(time.Duration(id)*time.Minute))
}

// NewTestDestination normalizes a destination record the way the write path does.
func NewTestDestination(id int64, name, category string, rating float64) *models.Destination {
	return normalizer.NewDestination(id, normalizer.DestinationInput{
		Name:        normalizer.Of(name),
		Regency:     normalizer.Of("Sleman"),
		Category:    normalizer.Of(category),
		Rating:      normalizer.Of(rating),
		ChildEntry:  normalizer.Of("10000"),
		AdultsEntry: normalizer.Of("15000"),
		Information: normalizer.Of(map[string]any{"hours": "08:00-17:00"}),
	}, FixedNow.Add(time.Duration(id)*time.Minute))
}
