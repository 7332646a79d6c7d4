package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/marcoalfans/manud-be/logging"
	testingutil "github.com/marcoalfans/manud-be/testing"
)

type seedFixture struct {
	flow         SeedFlow
	umkm         *testingutil.MemoryUmkmRepository
	destinations *testingutil.MemoryDestinationRepository
	favorites    *testingutil.MemoryFavoriteRepository
	counters     *testingutil.MemoryCounterRepository
}

func newSeedFixture() *seedFixture {
	fx := &seedFixture{
		umkm:         testingutil.NewMemoryUmkmRepository(),
		destinations: testingutil.NewMemoryDestinationRepository(),
		favorites:    testingutil.NewMemoryFavoriteRepository(),
		counters:     testingutil.NewMemoryCounterRepository(),
	}
	fx.flow = NewSeedFlow(fx.umkm, fx.destinations, fx.favorites, newTestAllocator(fx.counters, 3), logging.Nop(), testingutil.FixedClock)
	return fx
}

func TestEmbeddedID(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{json.Number("12"), 12, true},
		{float64(3), 3, true},
		{"u-12", 12, true},
		{"42", 42, true},
		{"no digits", 0, false},
		{nil, 0, false},
		{json.Number("1.5"), 0, false},
	}
	for _, tt := range tests {
		got, ok := EmbeddedID(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestSeedUmkm_KeepsAndAllocatesIDs(t *testing.T) {
	ctx := context.Background()
	fx := newSeedFixture()
	records, err := DecodeSeedFile("umkm.json", strings.NewReader(`[
		{"id":"u-3","name":"Bakso","whatsapp":"+62 812"},
		{"name":"Tanpa Id"},
		{"id":1,"name":"Ayam"}
	]`))
	require.NoError(t, err)

	report, err := fx.flow.SeedUmkm(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{Read: 3, Written: 3, MaxID: 4}, report)

	allocated, err := fx.umkm.ByID(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, allocated)
	assert.Equal(t, "tanpa id", *allocated.NameLower)

	bakso, err := fx.umkm.ByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "62812", *bakso.Whatsapp)

	c, err := fx.counters.ByName(ctx, "umkm")
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.Seq)
}

func TestSeedDestinations_Dataset(t *testing.T) {
	ctx := context.Background()
	fx := newSeedFixture()
	records, err := DecodeSeedFile("destinations.json", strings.NewReader(`[
		{"id":10,"name":"Pantai Baron","rating":"4.4","childEntry":"nan","adultsEntry":"Rp10.000","ticketNote":"weekend only"},
		{"id":"abc","name":"Broken"},
		{"id":"11","name":"Candi Sewu","rating":"n/a"}
	]`))
	require.NoError(t, err)

	report, err := fx.flow.SeedDestinations(ctx, records, "", "")
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{Read: 3, Written: 2, Rejected: 1, MaxID: 11}, report)

	baron, err := fx.destinations.ByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, baron)
	assert.Equal(t, 4.4, *baron.Rating)
	assert.Nil(t, baron.ChildEntry)
	assert.JSONEq(t, `{"ticketNote":"weekend only"}`, string(baron.Attributes))

	sewu, err := fx.destinations.ByID(ctx, 11)
	require.NoError(t, err)
	assert.Nil(t, sewu.Rating)
	assert.Nil(t, sewu.Attributes)

	c, err := fx.counters.ByName(ctx, "destinations")
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.Seq)
}

func TestSeedDestinations_Favorites(t *testing.T) {
	ctx := context.Background()
	fx := newSeedFixture()
	records := []SeedRecord{{"id": json.Number("5"), "name": "Goa Pindul"}}

	_, err := fx.flow.SeedDestinations(ctx, records, SeedModeFavorites, "")
	assert.True(t, IsInvalidRecord(err))

	report, err := fx.flow.SeedDestinations(ctx, records, SeedModeFavorites, "user-9")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	fav, err := fx.favorites.ByKey(ctx, "user-9_5")
	require.NoError(t, err)
	require.NotNil(t, fav)
	assert.Equal(t, 0, fx.destinations.Len())
}

func TestDecodeSeedFile_XLSX(t *testing.T) {
	xl := excelize.NewFile()
	sheet := xl.GetSheetName(0)
	require.NoError(t, xl.SetSheetRow(sheet, "A1", &[]string{"id", "name", "category"}))
	require.NoError(t, xl.SetSheetRow(sheet, "A2", &[]string{"7", "Sate Klathak", ""}))
	require.NoError(t, xl.SetSheetRow(sheet, "A3", &[]string{"8", "Gudeg Yu Djum", "Kuliner"}))
	buf, err := xl.WriteToBuffer()
	require.NoError(t, err)

	records, err := DecodeSeedFile("UMKM.XLSX", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, SeedRecord{"id": "7", "name": "Sate Klathak"}, records[0])
	assert.Equal(t, "Kuliner", records[1]["category"])

	_, err = DecodeSeedFile("data.csv", strings.NewReader(""))
	assert.Error(t, err)
}
