package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marcoalfans/manud-be/listing"
)

// compileListing turns a listing plan into a filter and find options. MongoDB
// orders null and missing values below strings and dates, so nulls come first
// ascending and last descending.
func compileListing(q listing.Query) (bson.D, *options.FindOptions) {
	var and bson.A
	if q.Category != "" {
		and = append(and, bson.D{{Key: "category_lower", Value: q.Category}})
	}
	if q.Prefix != "" {
		and = append(and, bson.D{{Key: "name_lower", Value: bson.D{
			{Key: "$gte", Value: q.Prefix},
			{Key: "$lt", Value: q.UpperBound()},
		}}})
	}
	if q.After != nil {
		and = append(and, resumeFilter(q))
	}

	filter := bson.D{}
	if len(and) > 0 {
		filter = bson.D{{Key: "$and", Value: and}}
	}

	col := string(q.Field)
	dir := 1
	if q.Order == listing.Desc {
		dir = -1
	}

	var sort bson.D
	if q.Field == listing.FieldID {
		sort = bson.D{{Key: "id", Value: dir}}
	} else {
		sort = bson.D{{Key: col, Value: dir}, {Key: "id", Value: 1}}
	}

	return filter, options.Find().SetSort(sort).SetLimit(int64(q.FetchLimit()))
}

func resumeFilter(q listing.Query) bson.D {
	after := q.After
	col := string(q.Field)

	if q.Field == listing.FieldID {
		op := "$gt"
		if q.Order == listing.Desc {
			op = "$lt"
		}
		return bson.D{{Key: "id", Value: bson.D{{Key: op, Value: after.ID}}}}
	}

	if after.Value == nil {
		if q.Order == listing.Desc {
			return bson.D{{Key: col, Value: nil}, {Key: "id", Value: bson.D{{Key: "$gt", Value: after.ID}}}}
		}
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: col, Value: bson.D{{Key: "$ne", Value: nil}}}},
			bson.D{{Key: col, Value: nil}, {Key: "id", Value: bson.D{{Key: "$gt", Value: after.ID}}}},
		}}}
	}

	tie := bson.D{{Key: col, Value: after.Value}, {Key: "id", Value: bson.D{{Key: "$gt", Value: after.ID}}}}
	if q.Order == listing.Desc {
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: col, Value: bson.D{{Key: "$lt", Value: after.Value}}}},
			tie,
			bson.D{{Key: col, Value: nil}},
		}}}
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: col, Value: bson.D{{Key: "$gt", Value: after.Value}}}},
		tie,
	}}}
}
