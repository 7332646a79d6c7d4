package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
)

// CounterRepository keeps one document per sequence, keyed by name.
type CounterRepository struct {
	adapter *Adapter
}

func NewCounterRepository(adapter *Adapter) repository.CounterRepository {
	return &CounterRepository{adapter: adapter}
}

func (r *CounterRepository) coll() *mongo.Collection {
	return r.adapter.Collection(CountersCollection)
}

func (r *CounterRepository) ByName(ctx context.Context, name string) (*models.Counter, error) {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	var doc counterDoc
	err := r.coll().FindOne(opCtx, bson.D{{Key: "_id", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find counter %q: %w", name, err)
	}
	return &models.Counter{Name: doc.Name, Seq: doc.Seq, CreatedAt: doc.CreatedAt.UTC(), UpdatedAt: doc.UpdatedAt.UTC()}, nil
}

func (r *CounterRepository) Insert(ctx context.Context, counter *models.Counter) error {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	_, err := r.coll().InsertOne(opCtx, counterDoc{
		Name:      counter.Name,
		Seq:       counter.Seq,
		CreatedAt: counter.CreatedAt,
		UpdatedAt: counter.UpdatedAt,
	})
	if err = translate(err); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to insert counter %q: %w", counter.Name, err)
	}
	return nil
}

func (r *CounterRepository) CompareAndSwap(ctx context.Context, name string, expected, next int64, at time.Time) error {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	res, err := r.coll().UpdateOne(opCtx,
		bson.D{{Key: "_id", Value: name}, {Key: "seq", Value: expected}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "seq", Value: next}, {Key: "updated_at", Value: at}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to advance counter %q: %w", name, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}
