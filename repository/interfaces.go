// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

var (
	// ErrNotFound is returned by writes that target a missing row or document.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a key already exists or a compare-and-swap lost a race.
	ErrConflict = errors.New("write conflict")
)

// TransactionManager runs fn inside a store transaction carried by the context.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pinger reports store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CounterRepository is the persistence of named id sequences.
type CounterRepository interface {
	// ByName returns nil, nil when the counter does not exist yet.
	ByName(ctx context.Context, name string) (*models.Counter, error)
	// Insert creates a counter; ErrConflict when it already exists.
	Insert(ctx context.Context, counter *models.Counter) error
	// CompareAndSwap moves seq from expected to next; ErrConflict when seq has changed.
	CompareAndSwap(ctx context.Context, name string, expected, next int64, at time.Time) error
}

// CatalogRepository is the storage contract shared by listable records.
type CatalogRepository[T any] interface {
	// ByID returns nil, nil when no record has the id.
	ByID(ctx context.Context, id int64) (*T, error)
	// Create inserts a new record; ErrConflict when its key is taken.
	Create(ctx context.Context, entity *T) error
	// Update replaces a stored record; ErrNotFound when it does not exist.
	Update(ctx context.Context, entity *T) error
	// Delete removes a record; ErrNotFound when it does not exist.
	Delete(ctx context.Context, id int64) error
	// SaveBatch upserts records in sequential chunks of utils.WriteBatchSize.
	SaveBatch(ctx context.Context, entities []*T) error
	// List executes a listing plan, returning at most q.FetchLimit() rows in order.
	List(ctx context.Context, q listing.Query) ([]*T, error)
}

// UmkmRepository stores small-business records.
type UmkmRepository interface {
	CatalogRepository[models.Umkm]
}

// DestinationRepository stores the destination dataset.
type DestinationRepository interface {
	CatalogRepository[models.Destination]
	// Browse returns up to limit records ordered by id, optionally by name_lower prefix.
	Browse(ctx context.Context, namePrefix string, limit int) ([]*models.Destination, error)
}

// FavoriteRepository stores per-user favorite copies of destinations.
type FavoriteRepository interface {
	ByKey(ctx context.Context, docID string) (*models.Favorite, error)
	// Save upserts by DocID.
	Save(ctx context.Context, favorite *models.Favorite) error
	SaveBatch(ctx context.Context, favorites []*models.Favorite) error
	ListByUser(ctx context.Context, userID, namePrefix string) ([]*models.Favorite, error)
	Delete(ctx context.Context, docID string) error
	// DeleteAllByUser removes in sequential chunks and returns the number removed.
	DeleteAllByUser(ctx context.Context, userID string) (int, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	ByID(ctx context.Context, id string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	// Save inserts a user; ErrConflict when the email is taken.
	Save(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
}

// VerificationTokenRepository stores emailed single-use tokens.
type VerificationTokenRepository interface {
	Save(ctx context.Context, token *models.VerificationToken) error
	// ActiveByToken returns an unused, unexpired token of the given type, or nil.
	ActiveByToken(ctx context.Context, token, tokenType string, now time.Time) (*models.VerificationToken, error)
	// MarkUsed flips used once; ErrConflict when it was already used.
	MarkUsed(ctx context.Context, id uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionTokenRepository stores issued access tokens.
type SessionTokenRepository interface {
	Save(ctx context.Context, session *models.SessionToken) error
	IsValid(ctx context.Context, userID, token string, now time.Time) (bool, error)
	// Delete removes one token; ErrNotFound when it is unknown.
	Delete(ctx context.Context, userID, token string) error
	DeleteAllByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
