package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/utils"
)

// catalogCollection is the shared implementation behind the UMKM and
// destination repositories; D is the stored document shape of model M.
type catalogCollection[M any, D any] struct {
	adapter *Adapter
	name    string
	toDoc   func(*M) *D
	toModel func(*D) *M
	docID   func(*M) string
	id      func(*M) int64
}

func (c *catalogCollection[M, D]) coll() *mongo.Collection {
	return c.adapter.Collection(c.name)
}

func (c *catalogCollection[M, D]) ByID(ctx context.Context, id int64) (*M, error) {
	opCtx, cancel := c.adapter.withOperationTimeout(ctx)
	defer cancel()

	var doc D
	err := c.coll().FindOne(opCtx, bson.D{{Key: "id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %d: %w", c.name, id, err)
	}
	return c.toModel(&doc), nil
}

func (c *catalogCollection[M, D]) Create(ctx context.Context, entity *M) error {
	opCtx, cancel := c.adapter.withOperationTimeout(ctx)
	defer cancel()

	_, err := c.coll().InsertOne(opCtx, c.toDoc(entity))
	if err = translate(err); err != nil {
		return fmt.Errorf("failed to create %s %d: %w", c.name, c.id(entity), err)
	}
	return nil
}

func (c *catalogCollection[M, D]) Update(ctx context.Context, entity *M) error {
	opCtx, cancel := c.adapter.withOperationTimeout(ctx)
	defer cancel()

	res, err := c.coll().ReplaceOne(opCtx, bson.D{{Key: "_id", Value: c.docID(entity)}}, c.toDoc(entity))
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", c.name, c.id(entity), err)
	}
	if res.MatchedCount == 0 {
		return errNotFound()
	}
	return nil
}

func (c *catalogCollection[M, D]) Delete(ctx context.Context, id int64) error {
	opCtx, cancel := c.adapter.withOperationTimeout(ctx)
	defer cancel()

	res, err := c.coll().DeleteOne(opCtx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", c.name, id, err)
	}
	if res.DeletedCount == 0 {
		return errNotFound()
	}
	return nil
}

// SaveBatch upserts with one ordered BulkWrite per chunk.
func (c *catalogCollection[M, D]) SaveBatch(ctx context.Context, entities []*M) error {
	docs := make([]any, len(entities))
	keys := make([]string, len(entities))
	for i, e := range entities {
		docs[i] = c.toDoc(e)
		keys[i] = c.docID(e)
	}
	if err := bulkReplace(ctx, c.adapter, c.name, keys, docs); err != nil {
		return fmt.Errorf("failed to save %s batch: %w", c.name, err)
	}
	return nil
}

func (c *catalogCollection[M, D]) List(ctx context.Context, q listing.Query) ([]*M, error) {
	opCtx, cancel := c.adapter.withOperationTimeout(ctx)
	defer cancel()

	filter, opts := compileListing(q)
	return c.find(opCtx, filter, opts)
}

func (c *catalogCollection[M, D]) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*M, error) {
	cur, err := c.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	var docs []*D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.name, err)
	}

	rows := make([]*M, len(docs))
	for i, d := range docs {
		rows[i] = c.toModel(d)
	}
	return rows, nil
}

// bulkReplace upserts docs by _id in sequential chunks of utils.WriteBatchSize.
func bulkReplace(ctx context.Context, adapter *Adapter, collection string, keys []string, docs []any) error {
	for start := 0; start < len(docs); start += utils.WriteBatchSize {
		end := min(start+utils.WriteBatchSize, len(docs))

		writes := make([]mongo.WriteModel, 0, end-start)
		for i := start; i < end; i++ {
			writes = append(writes, mongo.NewReplaceOneModel().
				SetFilter(bson.D{{Key: "_id", Value: keys[i]}}).
				SetReplacement(docs[i]).
				SetUpsert(true))
		}

		err := adapter.WithTransaction(ctx, func(ctx context.Context) error {
			opCtx, cancel := adapter.withOperationTimeout(ctx)
			defer cancel()
			_, err := adapter.Collection(collection).BulkWrite(opCtx, writes, options.BulkWrite().SetOrdered(true))
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to write batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}
