package businessflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/normalizer"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// DestinationFlow handles the destination dataset and per-user favorites
type DestinationFlow interface {
	Browse(ctx context.Context, q dto.BrowseQuery) ([]*models.Destination, error)
	List(ctx context.Context, q dto.ListQuery) (listing.Page[*models.Destination], error)
	Get(ctx context.Context, id string) (*models.Destination, error)
	Create(ctx context.Context, in normalizer.DestinationInput) (*models.Destination, error)
	Update(ctx context.Context, id string, in normalizer.DestinationInput) (*models.Destination, error)
	Delete(ctx context.Context, id string) (int64, error)

	Favorites(ctx context.Context, userID, namePrefix string) ([]*models.Favorite, error)
	SaveFavorite(ctx context.Context, userID string, destinationID int64) (*models.Favorite, error)
	DeleteFavorite(ctx context.Context, userID string, destinationID int64) error
	DeleteAllFavorites(ctx context.Context, userID string) (int, error)
}

// DestinationFlowImpl implements the destination business flow
type DestinationFlowImpl struct {
	catalog   *catalogFlow[models.Destination, *models.Destination, normalizer.DestinationInput]
	dataset   repository.DestinationRepository
	favorites repository.FavoriteRepository
	now       utils.Clock
}

func NewDestinationFlow(
	dataset repository.DestinationRepository,
	favorites repository.FavoriteRepository,
	tx repository.TransactionManager,
	allocator SequenceAllocator,
	now utils.Clock,
) DestinationFlow {
	if now == nil {
		now = utils.SystemClock
	}
	return &DestinationFlowImpl{
		catalog: &catalogFlow[models.Destination, *models.Destination, normalizer.DestinationInput]{
			repo:         dataset,
			tx:           tx,
			allocator:    allocator,
			counter:      utils.DestinationCounter,
			now:          now,
			build:        normalizer.NewDestination,
			patch:        normalizer.PatchDestination,
			notFound:     ErrDestinationNotFound,
			notFoundCode: "DESTINATION_NOT_FOUND",
			notFoundMsg:  "Destination not found",
		},
		dataset:   dataset,
		favorites: favorites,
		now:       now,
	}
}

// Browse prefix-matches the name in the store, caps the result at utils.BrowseLimit and
// then narrows by case-insensitive regency and category substrings.
func (f *DestinationFlowImpl) Browse(ctx context.Context, q dto.BrowseQuery) ([]*models.Destination, error) {
	prefix := strings.ToLower(strings.TrimSpace(q.Name))
	rows, err := f.dataset.Browse(ctx, prefix, utils.BrowseLimit)
	if err != nil {
		return nil, NewBusinessError("BROWSE_FAILED", "Failed to browse destinations", err)
	}

	regency := strings.ToLower(strings.TrimSpace(q.Regency))
	category := strings.ToLower(strings.TrimSpace(q.Category))
	out := make([]*models.Destination, 0, len(rows))
	for _, d := range rows {
		if regency != "" && !containsFold(d.Regency, regency) {
			continue
		}
		if category != "" && !containsFold(d.Category, category) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func containsFold(field *string, needle string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), needle)
}

func (f *DestinationFlowImpl) List(ctx context.Context, q dto.ListQuery) (listing.Page[*models.Destination], error) {
	return f.catalog.list(ctx, q)
}

func (f *DestinationFlowImpl) Get(ctx context.Context, id string) (*models.Destination, error) {
	return f.catalog.get(ctx, id)
}

func (f *DestinationFlowImpl) Create(ctx context.Context, in normalizer.DestinationInput) (*models.Destination, error) {
	return f.catalog.create(ctx, in)
}

func (f *DestinationFlowImpl) Update(ctx context.Context, id string, in normalizer.DestinationInput) (*models.Destination, error) {
	return f.catalog.update(ctx, id, in)
}

func (f *DestinationFlowImpl) Delete(ctx context.Context, id string) (int64, error) {
	return f.catalog.delete(ctx, id)
}

func (f *DestinationFlowImpl) Favorites(ctx context.Context, userID, namePrefix string) ([]*models.Favorite, error) {
	rows, err := f.favorites.ListByUser(ctx, userID, strings.ToLower(strings.TrimSpace(namePrefix)))
	if err != nil {
		return nil, NewBusinessError("FAVORITES_FAILED", "Failed to load favorites", err)
	}
	if rows == nil {
		rows = []*models.Favorite{}
	}
	return rows, nil
}

// SaveFavorite copies the current dataset record into the user's favorite; saving again
// refreshes the copy.
func (f *DestinationFlowImpl) SaveFavorite(ctx context.Context, userID string, destinationID int64) (*models.Favorite, error) {
	if destinationID <= 0 {
		return nil, NewBusinessErrorf("INVALID_ID", "Invalid id %d", ErrInvalidID, destinationID)
	}
	base, err := f.dataset.ByID(ctx, destinationID)
	if err != nil {
		return nil, NewBusinessError("FAVORITE_SAVE_FAILED", "An error occurred while saving the destination", err)
	}
	if base == nil {
		return nil, NewBusinessError("DESTINATION_NOT_FOUND", "Destination not found", ErrDestinationNotFound)
	}

	now := f.now().UTC()
	fav := NewFavorite(userID, base, now)
	if existing, err := f.favorites.ByKey(ctx, fav.DocID); err == nil && existing != nil {
		fav.CreatedAt = existing.CreatedAt
	}
	if err := f.favorites.Save(ctx, fav); err != nil {
		return nil, NewBusinessError("FAVORITE_SAVE_FAILED", "An error occurred while saving the destination", err)
	}
	return fav, nil
}

// NewFavorite snapshots a dataset record for userID.
func NewFavorite(userID string, d *models.Destination, now time.Time) *models.Favorite {
	copied := *d
	return &models.Favorite{
		DocID:         models.FavoriteKey(userID, d.ID),
		UserID:        userID,
		DestinationID: d.ID,
		NameLower:     d.NameLower,
		Destination:   copied,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (f *DestinationFlowImpl) DeleteFavorite(ctx context.Context, userID string, destinationID int64) error {
	err := f.favorites.Delete(ctx, models.FavoriteKey(userID, destinationID))
	if errors.Is(err, repository.ErrNotFound) {
		return NewBusinessError("FAVORITE_NOT_FOUND", "Favorite not found", ErrFavoriteNotFound)
	}
	if err != nil {
		return NewBusinessError("FAVORITE_DELETE_FAILED", "Failed to delete favorite", err)
	}
	return nil
}

func (f *DestinationFlowImpl) DeleteAllFavorites(ctx context.Context, userID string) (int, error) {
	n, err := f.favorites.DeleteAllByUser(ctx, userID)
	if err != nil {
		return n, NewBusinessError("FAVORITE_DELETE_FAILED", "Failed to delete favorites", err)
	}
	return n, nil
}
