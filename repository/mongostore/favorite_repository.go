package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// FavoriteRepository stores per-user destination copies keyed "<uid>_<id>".
type FavoriteRepository struct {
	adapter *Adapter
}

func NewFavoriteRepository(adapter *Adapter) repository.FavoriteRepository {
	return &FavoriteRepository{adapter: adapter}
}

func (r *FavoriteRepository) coll() *mongo.Collection {
	return r.adapter.Collection(FavoritesCollection)
}

func (r *FavoriteRepository) ByKey(ctx context.Context, docID string) (*models.Favorite, error) {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	var doc favoriteDoc
	err := r.coll().FindOne(opCtx, bson.D{{Key: "_id", Value: docID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find favorite %s: %w", docID, err)
	}
	return doc.model(), nil
}

func (r *FavoriteRepository) Save(ctx context.Context, favorite *models.Favorite) error {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	_, err := r.coll().ReplaceOne(opCtx,
		bson.D{{Key: "_id", Value: favorite.DocID}},
		fromFavorite(favorite),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save favorite %s: %w", favorite.DocID, err)
	}
	return nil
}

func (r *FavoriteRepository) SaveBatch(ctx context.Context, favorites []*models.Favorite) error {
	docs := make([]any, len(favorites))
	keys := make([]string, len(favorites))
	for i, f := range favorites {
		docs[i] = fromFavorite(f)
		keys[i] = f.DocID
	}
	if err := bulkReplace(ctx, r.adapter, FavoritesCollection, keys, docs); err != nil {
		return fmt.Errorf("failed to save favorite batch: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID, namePrefix string) ([]*models.Favorite, error) {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	filter := bson.D{{Key: "user_id", Value: userID}}
	if namePrefix != "" {
		filter = append(filter, bson.E{Key: "name_lower", Value: bson.D{
			{Key: "$gte", Value: namePrefix},
			{Key: "$lt", Value: namePrefix + listing.HighSentinel},
		}})
	}

	cur, err := r.coll().Find(opCtx, filter, options.Find().SetSort(bson.D{{Key: "destination_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites of %s: %w", userID, err)
	}
	var docs []*favoriteDoc
	if err := cur.All(opCtx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode favorites of %s: %w", userID, err)
	}

	favorites := make([]*models.Favorite, len(docs))
	for i, d := range docs {
		favorites[i] = d.model()
	}
	return favorites, nil
}

func (r *FavoriteRepository) Delete(ctx context.Context, docID string) error {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	res, err := r.coll().DeleteOne(opCtx, bson.D{{Key: "_id", Value: docID}})
	if err != nil {
		return fmt.Errorf("failed to delete favorite %s: %w", docID, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAllByUser removes favorites one chunk of keys at a time.
func (r *FavoriteRepository) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	total := 0
	for {
		keys, err := r.keysOf(ctx, userID)
		if err != nil {
			return total, err
		}
		if len(keys) == 0 {
			return total, nil
		}

		err = r.adapter.WithTransaction(ctx, func(ctx context.Context) error {
			opCtx, cancel := r.adapter.withOperationTimeout(ctx)
			defer cancel()
			_, err := r.coll().DeleteMany(opCtx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: keys}}}})
			return err
		})
		if err != nil {
			return total, fmt.Errorf("failed to delete favorites of %s: %w", userID, err)
		}
		total += len(keys)

		if len(keys) < utils.WriteBatchSize {
			return total, nil
		}
	}
}

func (r *FavoriteRepository) keysOf(ctx context.Context, userID string) ([]string, error) {
	opCtx, cancel := r.adapter.withOperationTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(utils.WriteBatchSize)
	cur, err := r.coll().Find(opCtx, bson.D{{Key: "user_id", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites of %s: %w", userID, err)
	}

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(opCtx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode favorite keys of %s: %w", userID, err)
	}
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = row.ID
	}
	return keys, nil
}
