package businessflow

import (
	"context"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/marcoalfans/manud-be/listing"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
)

const exportPageSize = "100"

// ExportFlow renders catalog collections as XLSX workbooks
type ExportFlow interface {
	ExportUmkm(ctx context.Context) (string, []byte, error)
	ExportDestinations(ctx context.Context) (string, []byte, error)
}

type ExportFlowImpl struct {
	umkm         repository.UmkmRepository
	destinations repository.DestinationRepository
}

func NewExportFlow(umkm repository.UmkmRepository, destinations repository.DestinationRepository) ExportFlow {
	return &ExportFlowImpl{umkm: umkm, destinations: destinations}
}

func (f *ExportFlowImpl) ExportUmkm(ctx context.Context) (string, []byte, error) {
	header := []string{"id", "name", "category", "description", "image", "marketplaceUrl", "whatsapp", "location", "createdAt", "updatedAt"}
	rows, err := collectAll[models.Umkm, *models.Umkm](ctx, f.umkm)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to read umkm", err)
	}

	records := make([][]string, len(rows))
	for i, u := range rows {
		records[i] = []string{
			strconv.FormatInt(u.ID, 10), str(u.Name), str(u.Category), str(u.Description), str(u.Image),
			str(u.MarketplaceURL), str(u.Whatsapp), str(u.Location),
			u.CreatedAt.UTC().Format(time.RFC3339), u.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	return writeWorkbook("umkm.xlsx", "UMKM", header, records)
}

func (f *ExportFlowImpl) ExportDestinations(ctx context.Context) (string, []byte, error) {
	header := []string{"id", "name", "regency", "category", "rating", "location", "childEntry", "adultsEntry", "imageLink", "information", "createdAt", "updatedAt"}
	rows, err := collectAll[models.Destination, *models.Destination](ctx, f.destinations)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to read destinations", err)
	}

	records := make([][]string, len(rows))
	for i, d := range rows {
		rating := ""
		if d.Rating != nil {
			rating = strconv.FormatFloat(*d.Rating, 'f', -1, 64)
		}
		records[i] = []string{
			strconv.FormatInt(d.ID, 10), str(d.Name), str(d.Regency), str(d.Category), rating, str(d.Location),
			str(d.ChildEntry), str(d.AdultsEntry), str(d.ImageLink), string(d.Information),
			d.CreatedAt.UTC().Format(time.RFC3339), d.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	return writeWorkbook("destinations.xlsx", "Destinations", header, records)
}

// collectAll walks the id-ordered listing until the last page.
func collectAll[T any, PT listable[T]](ctx context.Context, repo repository.CatalogRepository[T]) ([]PT, error) {
	var out []PT
	cursor := ""
	for {
		q := listing.Build(listing.Options{Limit: exportPageSize, Cursor: cursor})
		rows, err := repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		keyed := make([]PT, len(rows))
		for i, r := range rows {
			keyed[i] = PT(r)
		}
		page := listing.NewPage(keyed, q)
		out = append(out, page.Items...)
		if page.PageInfo.NextCursor == nil {
			return out, nil
		}
		cursor = *page.PageInfo.NextCursor
	}
}

func writeWorkbook(filename, sheet string, header []string, records [][]string) (string, []byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	_ = xl.SetSheetRow(sheet, "A1", &header)
	for i, record := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cell, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return filename, buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
