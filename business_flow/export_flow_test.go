package businessflow

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	testingutil "github.com/marcoalfans/manud-be/testing"
)

func readSheet(t *testing.T, data []byte) (string, [][]string) {
	t.Helper()
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()
	sheet := xl.GetSheetName(0)
	rows, err := xl.GetRows(sheet)
	require.NoError(t, err)
	return sheet, rows
}

func TestExportUmkm_WalksEveryPage(t *testing.T) {
	ctx := context.Background()
	umkm := testingutil.NewMemoryUmkmRepository()
	for id := int64(1); id <= 250; id++ {
		require.NoError(t, umkm.Create(ctx, testingutil.NewTestUmkm(id, "Warung", "Kuliner")))
	}
	flow := NewExportFlow(umkm, testingutil.NewMemoryDestinationRepository())

	name, data, err := flow.ExportUmkm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "umkm.xlsx", name)

	sheet, rows := readSheet(t, data)
	assert.Equal(t, "UMKM", sheet)
	require.Len(t, rows, 251)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "250", rows[250][0])
}

func TestExportDestinations(t *testing.T) {
	ctx := context.Background()
	destinations := testingutil.NewMemoryDestinationRepository()
	require.NoError(t, destinations.Create(ctx, testingutil.NewTestDestination(3, "Pantai Indrayanti", "Bahari", 4.6)))
	flow := NewExportFlow(testingutil.NewMemoryUmkmRepository(), destinations)

	name, data, err := flow.ExportDestinations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "destinations.xlsx", name)

	sheet, rows := readSheet(t, data)
	assert.Equal(t, "Destinations", sheet)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"3", "Pantai Indrayanti"}, rows[1][:2])
	assert.Equal(t, "4.6", rows[1][4])
}
