package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
)

func errNotFound() error { return repository.ErrNotFound }

// UmkmRepository stores UMKM documents keyed by decimal id.
type UmkmRepository struct {
	*catalogCollection[models.Umkm, umkmDoc]
}

func NewUmkmRepository(adapter *Adapter) repository.UmkmRepository {
	return &UmkmRepository{&catalogCollection[models.Umkm, umkmDoc]{
		adapter: adapter,
		name:    UmkmCollection,
		toDoc:   fromUmkm,
		toModel: (*umkmDoc).model,
		docID:   func(u *models.Umkm) string { return u.DocID },
		id:      func(u *models.Umkm) int64 { return u.ID },
	}}
}

// DestinationRepository stores the destination dataset.
type DestinationRepository struct {
	*catalogCollection[models.Destination, destinationDoc]
}

func NewDestinationRepository(adapter *Adapter) repository.DestinationRepository {
	return &DestinationRepository{&catalogCollection[models.Destination, destinationDoc]{
		adapter: adapter,
		name:    DestinationsCollection,
		toDoc:   fromDestination,
		toModel: (*destinationDoc).model,
		docID:   func(d *models.Destination) string { return d.DocID },
		id:      func(d *models.Destination) int64 { return d.ID },
	}}
}

func (r *DestinationRepository) Browse(ctx context.Context, namePrefix string, limit int) ([]*models.Destination, error) {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	filter := bson.D{}
	if namePrefix != "" {
		filter = bson.D{{Key: "name_lower", Value: bson.D{
			{Key: "$gte", Value: namePrefix},
			{Key: "$lt", Value: namePrefix + listing.HighSentinel},
		}}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}}).SetLimit(int64(limit))

	rows, err := r.find(opCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to browse destinations: %w", err)
	}
	return rows, nil
}

var (
	_ repository.UmkmRepository        = (*UmkmRepository)(nil)
	_ repository.DestinationRepository = (*DestinationRepository)(nil)
)
