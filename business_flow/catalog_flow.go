package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

type listable[T any] interface {
	*T
	listing.Keyed
}

// catalogFlow holds the create/read/update/delete/list logic shared by UMKM and the
// destination dataset. I is the raw input type handed to the normalizer.
type catalogFlow[T any, PT listable[T], I any] struct {
	repo      repository.CatalogRepository[T]
	tx        repository.TransactionManager
	allocator SequenceAllocator
	counter   string
	now       utils.Clock

	build func(id int64, in I, now time.Time) *T
	patch func(record *T, in I, now time.Time)

	notFound     error
	notFoundCode string
	notFoundMsg  string
}

// create allocates the id and inserts the record in one unit of work, so an exhausted
// allocator leaves nothing behind.
func (f *catalogFlow[T, PT, I]) create(ctx context.Context, in I) (*T, error) {
	var record *T
	err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := f.allocator.Allocate(txCtx, f.counter)
		if err != nil {
			return errors.Join(ErrAllocationFailed, err)
		}
		record = f.build(id, in, f.now().UTC())
		return f.repo.Create(txCtx, record)
	})
	if err != nil {
		return nil, NewBusinessError("CREATE_FAILED", fmt.Sprintf("Failed to create %s", f.counter), err)
	}
	catalogWrites.WithLabelValues(f.counter, "create").Inc()
	return record, nil
}

func (f *catalogFlow[T, PT, I]) get(ctx context.Context, rawID string) (*T, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	record, err := f.repo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOOKUP_FAILED", fmt.Sprintf("Failed to load %s", f.counter), err)
	}
	if record == nil {
		return nil, NewBusinessError(f.notFoundCode, f.notFoundMsg, f.notFound)
	}
	return record, nil
}

func (f *catalogFlow[T, PT, I]) update(ctx context.Context, rawID string, in I) (*T, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	var record *T
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		record, err = f.repo.ByID(txCtx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return f.notFound
		}
		f.patch(record, in, f.now().UTC())
		return f.repo.Update(txCtx, record)
	})
	if err != nil {
		return nil, f.writeError("UPDATE_FAILED", "update", err)
	}
	catalogWrites.WithLabelValues(f.counter, "update").Inc()
	return record, nil
}

func (f *catalogFlow[T, PT, I]) delete(ctx context.Context, rawID string) (int64, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return 0, err
	}
	if err := f.repo.Delete(ctx, id); err != nil {
		return 0, f.writeError("DELETE_FAILED", "delete", err)
	}
	catalogWrites.WithLabelValues(f.counter, "delete").Inc()
	return id, nil
}

func (f *catalogFlow[T, PT, I]) list(ctx context.Context, raw dto.ListQuery) (listing.Page[PT], error) {
	q := listing.Build(listing.Options{
		Limit:    raw.Limit,
		Cursor:   raw.Cursor,
		SortBy:   raw.SortBy,
		Order:    raw.Order,
		Q:        raw.Q,
		Category: raw.Category,
	})

	rows, err := f.repo.List(ctx, q)
	if err != nil {
		return listing.Page[PT]{}, NewBusinessError("LIST_FAILED", fmt.Sprintf("Failed to list %s", f.counter), err)
	}
	keyed := make([]PT, len(rows))
	for i, r := range rows {
		keyed[i] = PT(r)
	}
	return listing.NewPage(keyed, q), nil
}

func (f *catalogFlow[T, PT, I]) writeError(code, op string, err error) error {
	if errors.Is(err, f.notFound) || errors.Is(err, repository.ErrNotFound) {
		return NewBusinessError(f.notFoundCode, f.notFoundMsg, f.notFound)
	}
	return NewBusinessError(code, fmt.Sprintf("Failed to %s %s", op, f.counter), err)
}
