package businessflow

import (
	"context"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/normalizer"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// UmkmFlow handles the small-business catalog
type UmkmFlow interface {
	Create(ctx context.Context, in normalizer.UmkmInput) (*models.Umkm, error)
	Get(ctx context.Context, id string) (*models.Umkm, error)
	Update(ctx context.Context, id string, in normalizer.UmkmInput) (*models.Umkm, error)
	Delete(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, q dto.ListQuery) (listing.Page[*models.Umkm], error)
}

// UmkmFlowImpl implements the UMKM business flow
type UmkmFlowImpl struct {
	catalog *catalogFlow[models.Umkm, *models.Umkm, normalizer.UmkmInput]
}

func NewUmkmFlow(
	repo repository.UmkmRepository,
	tx repository.TransactionManager,
	allocator SequenceAllocator,
	now utils.Clock,
) UmkmFlow {
	if now == nil {
		now = utils.SystemClock
	}
	return &UmkmFlowImpl{catalog: &catalogFlow[models.Umkm, *models.Umkm, normalizer.UmkmInput]{
		repo:         repo,
		tx:           tx,
		allocator:    allocator,
		counter:      utils.UmkmCounter,
		now:          now,
		build:        normalizer.NewUmkm,
		patch:        normalizer.PatchUmkm,
		notFound:     ErrUmkmNotFound,
		notFoundCode: "UMKM_NOT_FOUND",
		notFoundMsg:  "UMKM not found",
	}}
}

func (f *UmkmFlowImpl) Create(ctx context.Context, in normalizer.UmkmInput) (*models.Umkm, error) {
	return f.catalog.create(ctx, in)
}

func (f *UmkmFlowImpl) Get(ctx context.Context, id string) (*models.Umkm, error) {
	return f.catalog.get(ctx, id)
}

func (f *UmkmFlowImpl) Update(ctx context.Context, id string, in normalizer.UmkmInput) (*models.Umkm, error) {
	return f.catalog.update(ctx, id, in)
}

func (f *UmkmFlowImpl) Delete(ctx context.Context, id string) (int64, error) {
	return f.catalog.delete(ctx, id)
}

func (f *UmkmFlowImpl) List(ctx context.Context, q dto.ListQuery) (listing.Page[*models.Umkm], error) {
	return f.catalog.list(ctx, q)
}
