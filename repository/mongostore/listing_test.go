package mongostore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
)

func TestCompileListingDefaults(t *testing.T) {
	filter, opts := compileListing(listing.Build(listing.Options{}))

	assert.Empty(t, filter)
	assert.Equal(t, bson.D{{Key: "id", Value: 1}}, opts.Sort)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(listing.DefaultLimit+1), *opts.Limit)
}

func TestCompileListingPrefixAndCategory(t *testing.T) {
	filter, opts := compileListing(listing.Build(listing.Options{Q: "Ay", Category: "Kuliner"}))

	require.Len(t, filter, 1)
	and, ok := filter[0].Value.(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, bson.D{{Key: "category_lower", Value: "kuliner"}}, and[0])
	assert.Equal(t, bson.D{{Key: "name_lower", Value: bson.D{
		{Key: "$gte", Value: "ay"},
		{Key: "$lt", Value: "ay" + listing.HighSentinel},
	}}}, and[1])
	assert.Equal(t, bson.D{{Key: "name_lower", Value: 1}, {Key: "id", Value: 1}}, opts.Sort)
}

func TestResumeFilterDescendingKeepsNullsLast(t *testing.T) {
	cursor := listing.EncodeCursor(listing.FieldNameLower, "bakso", 9)
	q := listing.Build(listing.Options{SortBy: "name", Order: "desc", Cursor: cursor})
	require.NotNil(t, q.After)

	got := resumeFilter(q)
	assert.Equal(t, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "name_lower", Value: bson.D{{Key: "$lt", Value: "bakso"}}}},
		bson.D{{Key: "name_lower", Value: "bakso"}, {Key: "id", Value: bson.D{{Key: "$gt", Value: int64(9)}}}},
		bson.D{{Key: "name_lower", Value: nil}},
	}}}, got)

	_, opts := compileListing(q)
	assert.Equal(t, bson.D{{Key: "name_lower", Value: -1}, {Key: "id", Value: 1}}, opts.Sort)
}

func TestResumeFilterByID(t *testing.T) {
	q := listing.Build(listing.Options{Cursor: "15"})
	assert.Equal(t, bson.D{{Key: "id", Value: bson.D{{Key: "$gt", Value: int64(15)}}}}, resumeFilter(q))
}

func TestDestinationDocumentKeepsInformation(t *testing.T) {
	name := "Pantai"
	doc := fromDestination(&models.Destination{
		DocID:       "4",
		ID:          4,
		Name:        &name,
		Information: json.RawMessage(`{"hours":"08-17","tags":["beach"]}`),
	})
	back := doc.model()

	assert.JSONEq(t, `{"hours":"08-17","tags":["beach"]}`, string(back.Information))
	assert.Equal(t, &name, back.Name)
	assert.Nil(t, back.Attributes)
}
