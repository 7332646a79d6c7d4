package businessflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/normalizer"
	testingutil "github.com/marcoalfans/manud-be/testing"
)

func decodeUmkmInput(t *testing.T, body string) normalizer.UmkmInput {
	t.Helper()
	var in normalizer.UmkmInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func newTestUmkmFlow(t *testing.T) (UmkmFlow, *testingutil.MemoryUmkmRepository, *testingutil.MemoryCounterRepository) {
	t.Helper()
	repo := testingutil.NewMemoryUmkmRepository()
	counters := testingutil.NewMemoryCounterRepository()
	flow := NewUmkmFlow(repo, testingutil.PassthroughTx{}, newTestAllocator(counters, 3), testingutil.FixedClock)
	return flow, repo, counters
}

func TestUmkmFlow_CreateNormalizesAndAllocates(t *testing.T) {
	ctx := context.Background()
	flow, _, counters := newTestUmkmFlow(t)
	counters.Set("umkm", 5)

	created, err := flow.Create(ctx, decodeUmkmInput(t, `{"name":"  Bakso Pak Min ","category":"Kuliner","whatsapp":"+62 812-3456","image":""}`))
	require.NoError(t, err)

	assert.Equal(t, int64(6), created.ID)
	assert.Equal(t, "6", created.DocID)
	assert.Equal(t, "Bakso Pak Min", *created.Name)
	assert.Equal(t, "bakso pak min", *created.NameLower)
	assert.Equal(t, "kuliner", *created.CategoryLower)
	assert.Equal(t, "628123456", *created.Whatsapp)
	assert.Nil(t, created.Image)
	assert.Nil(t, created.Description)
	assert.Equal(t, testingutil.FixedNow, created.CreatedAt)
	assert.Equal(t, testingutil.FixedNow, created.UpdatedAt)
}

func TestUmkmFlow_UpdateTouchesOnlyPresentFields(t *testing.T) {
	ctx := context.Background()
	flow, _, _ := newTestUmkmFlow(t)

	created, err := flow.Create(ctx, decodeUmkmInput(t, `{"name":"Bakso","category":"Kuliner","location":"Sleman"}`))
	require.NoError(t, err)

	updated, err := flow.Update(ctx, "1", decodeUmkmInput(t, `{"category":null,"name":"Ayam Geprek"}`))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "ayam geprek", *updated.NameLower)
	assert.Nil(t, updated.Category)
	assert.Nil(t, updated.CategoryLower)
	assert.Equal(t, "Sleman", *updated.Location)

	stored, err := flow.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Ayam Geprek", *stored.Name)
}

func TestUmkmFlow_Errors(t *testing.T) {
	ctx := context.Background()
	flow, _, _ := newTestUmkmFlow(t)

	_, err := flow.Get(ctx, "abc")
	assert.True(t, IsInvalidID(err))

	_, err = flow.Get(ctx, "99")
	assert.True(t, IsUmkmNotFound(err))

	_, err = flow.Update(ctx, "99", normalizer.UmkmInput{})
	assert.True(t, IsUmkmNotFound(err))

	_, err = flow.Delete(ctx, "99")
	assert.True(t, IsUmkmNotFound(err))
	be, ok := AsBusinessError(err)
	require.True(t, ok)
	assert.Equal(t, "UMKM not found", be.Message)
}

func TestUmkmFlow_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	flow, repo, _ := newTestUmkmFlow(t)

	for _, name := range []string{"Bakso", "Ayam", "Ayam"} {
		_, err := flow.Create(ctx, normalizer.UmkmInput{Name: normalizer.Of(name)})
		require.NoError(t, err)
	}

	page, err := flow.List(ctx, dto.ListQuery{SortBy: "name", Limit: "2"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, int64(3), page.Items[1].ID)
	assert.True(t, page.PageInfo.HasNextPage)
	require.NotNil(t, page.PageInfo.NextCursor)

	next, err := flow.List(ctx, dto.ListQuery{SortBy: "name", Limit: "2", Cursor: *page.PageInfo.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, int64(1), next.Items[0].ID)
	assert.Nil(t, next.PageInfo.NextCursor)

	id, err := flow.Delete(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, 2, repo.Len())
}

func TestUmkmFlow_AllocationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := testingutil.NewMemoryUmkmRepository()
	counters := testingutil.NewMemoryCounterRepository()
	counters.Set("umkm", 1)
	seq := int64(1)
	counters.BeforeCompareAndSwap = func(name string) {
		seq++
		counters.Set(name, seq)
	}
	flow := NewUmkmFlow(repo, testingutil.PassthroughTx{}, newTestAllocator(counters, 1), testingutil.FixedClock)

	_, err := flow.Create(ctx, normalizer.UmkmInput{Name: normalizer.Of("Bakso")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.Equal(t, 0, repo.Len())
}

func newTestDestinationFlow(t *testing.T) (DestinationFlow, *testingutil.MemoryDestinationRepository, *testingutil.MemoryFavoriteRepository) {
	t.Helper()
	dataset := testingutil.NewMemoryDestinationRepository()
	favorites := testingutil.NewMemoryFavoriteRepository()
	counters := testingutil.NewMemoryCounterRepository()
	flow := NewDestinationFlow(dataset, favorites, testingutil.PassthroughTx{}, newTestAllocator(counters, 3), testingutil.FixedClock)
	return flow, dataset, favorites
}

func TestDestinationFlow_CreateNormalizesMoneyAndRating(t *testing.T) {
	flow, _, _ := newTestDestinationFlow(t)

	var in normalizer.DestinationInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Pantai Parangtritis","rating":"4.5","childEntry":"NaN","adultsEntry":" Rp10.000 ","information":{"open":"24h"}}`), &in))

	d, err := flow.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
	require.NotNil(t, d.Rating)
	assert.Equal(t, 4.5, *d.Rating)
	assert.Nil(t, d.ChildEntry)
	assert.Equal(t, "Rp10.000", *d.AdultsEntry)
	assert.JSONEq(t, `{"open":"24h"}`, string(d.Information))
}

func TestDestinationFlow_Browse(t *testing.T) {
	ctx := context.Background()
	flow, dataset, _ := newTestDestinationFlow(t)
	require.NoError(t, dataset.SaveBatch(ctx, []*models.Destination{
		testingutil.NewTestDestination(1, "Pantai Baron", "Alam", 4.4),
		testingutil.NewTestDestination(2, "Pantai Indrayanti", "Alam Pantai", 4.6),
		testingutil.NewTestDestination(3, "Candi Prambanan", "Budaya", 4.8),
	}))

	rows, err := flow.Browse(ctx, dto.BrowseQuery{Name: " PANTAI "})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = flow.Browse(ctx, dto.BrowseQuery{Category: "pantai"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)

	rows, err = flow.Browse(ctx, dto.BrowseQuery{Regency: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDestinationFlow_Favorites(t *testing.T) {
	ctx := context.Background()
	flow, dataset, favorites := newTestDestinationFlow(t)
	require.NoError(t, dataset.SaveBatch(ctx, []*models.Destination{
		testingutil.NewTestDestination(7, "Pantai Baron", "Alam", 4.4),
		testingutil.NewTestDestination(8, "Candi Prambanan", "Budaya", 4.8),
	}))

	fav, err := flow.SaveFavorite(ctx, "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "user-1_7", fav.DocID)
	assert.Equal(t, "Pantai Baron", *fav.Destination.Name)

	_, err = flow.SaveFavorite(ctx, "user-1", 8)
	require.NoError(t, err)
	_, err = flow.SaveFavorite(ctx, "user-2", 8)
	require.NoError(t, err)

	_, err = flow.SaveFavorite(ctx, "user-1", 99)
	assert.True(t, IsDestinationNotFound(err))

	list, err := flow.Favorites(ctx, "user-1", "candi")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(8), list[0].DestinationID)

	require.NoError(t, flow.DeleteFavorite(ctx, "user-1", 7))
	assert.True(t, IsFavoriteNotFound(flow.DeleteFavorite(ctx, "user-1", 7)))

	n, err := flow.DeleteAllFavorites(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other, err := favorites.ListByUser(ctx, "user-2", "")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
