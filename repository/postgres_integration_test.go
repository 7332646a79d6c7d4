package repository_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
	testingutil "github.com/marcoalfans/manud-be/testing"
	"github.com/marcoalfans/manud-be/utils"
)

func TestPostgres_ConcurrentAllocation(t *testing.T) {
	tdb := testingutil.RequireDB(t)
	ctx := testingutil.CreateTestContext()

	allocator := businessflow.NewSequenceAllocator(repository.NewCounterRepository(tdb.DB), businessflow.AllocatorOptions{
		MaxRetries:      200,
		InitialInterval: time.Millisecond,
	}, nil)

	const workers = 8
	ids := make(chan int64, workers*5)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				id, err := allocator.Allocate(ctx, utils.UmkmCounter)
				if assert.NoError(t, err) {
					ids <- id
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*5)
	for id := int64(1); id <= workers*5; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
}

func TestPostgres_UmkmListingPagesWithoutGaps(t *testing.T) {
	tdb := testingutil.RequireDB(t)
	ctx := testingutil.CreateTestContext()
	repo := repository.NewUmkmRepository(tdb.DB)

	names := []string{"Bakso", "Ayam", "Ayam", "Cilok", "ayam goreng"}
	for i, name := range names {
		require.NoError(t, repo.Create(ctx, testingutil.NewTestUmkm(int64(i+1), name, "Kuliner")))
	}

	var got []int64
	cursor := ""
	for {
		q := listing.Build(listing.Options{Limit: "2", SortBy: "name", Order: "asc", Cursor: cursor})
		rows, err := repo.List(ctx, q)
		require.NoError(t, err)

		page := listing.NewPage(rows, q)
		for _, u := range page.Items {
			got = append(got, u.ID)
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		cursor = *page.PageInfo.NextCursor
	}
	// ties on name_lower fall back to ascending id
	assert.Equal(t, []int64{2, 3, 5, 1, 4}, got)
}

func TestPostgres_FavoritesDeleteAll(t *testing.T) {
	tdb := testingutil.RequireDB(t)
	ctx := testingutil.CreateTestContext()
	favorites := repository.NewFavoriteRepository(tdb.DB)

	batch := make([]*models.Favorite, 0, 450)
	for i := int64(1); i <= 450; i++ {
		batch = append(batch, businessflow.NewFavorite("user-1", testingutil.NewTestDestination(i, "Pantai", "Alam", 4.5), testingutil.FixedNow))
	}
	require.NoError(t, favorites.SaveBatch(ctx, batch))
	require.NoError(t, favorites.Save(ctx, businessflow.NewFavorite("user-2", testingutil.NewTestDestination(1, "Pantai", "Alam", 4.5), testingutil.FixedNow)))

	deleted, err := favorites.DeleteAllByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 450, deleted)

	rest, err := favorites.ListByUser(ctx, "user-2", "")
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
