package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/normalizer"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// Seed modes for destinations
const (
	SeedModeDataset   = "dataset"
	SeedModeFavorites = "favorites"
)

// SeedRecord is one raw input row keyed by column name.
type SeedRecord map[string]any

// SeedReport summarizes an import
type SeedReport struct {
	Read     int   `json:"read"`
	Written  int   `json:"written"`
	Rejected int   `json:"rejected"`
	MaxID    int64 `json:"maxId"`
}

// SeedFlow bulk-imports catalog records
type SeedFlow interface {
	SeedUmkm(ctx context.Context, records []SeedRecord) (*SeedReport, error)
	SeedDestinations(ctx context.Context, records []SeedRecord, mode, userID string) (*SeedReport, error)
}

type SeedFlowImpl struct {
	umkm         repository.UmkmRepository
	destinations repository.DestinationRepository
	favorites    repository.FavoriteRepository
	allocator    SequenceAllocator
	logger       logging.Logger
	now          utils.Clock
}

func NewSeedFlow(
	umkm repository.UmkmRepository,
	destinations repository.DestinationRepository,
	favorites repository.FavoriteRepository,
	allocator SequenceAllocator,
	log logging.Logger,
	now utils.Clock,
) SeedFlow {
	if now == nil {
		now = utils.SystemClock
	}
	return &SeedFlowImpl{
		umkm:         umkm,
		destinations: destinations,
		favorites:    favorites,
		allocator:    allocator,
		logger:       log,
		now:          now,
	}
}

var umkmColumns = []string{"id", "name", "image", "description", "category", "marketplaceUrl", "whatsapp", "location"}

var destinationColumns = []string{
	"id", "name", "regency", "category", "rating", "location", "childEntry", "adultsEntry", "imageLink", "information",
	// derived or managed columns are recomputed, never copied into attributes
	"name_lower", "regency_lower", "category_lower", "createdAt", "updatedAt", "userId",
}

// SeedUmkm keeps ids found in the input and allocates the rest. The counter is raised
// past every explicit id before allocating, so allocated ids never collide with seeded ones.
func (f *SeedFlowImpl) SeedUmkm(ctx context.Context, records []SeedRecord) (*SeedReport, error) {
	report := &SeedReport{Read: len(records)}

	ids := make([]int64, len(records))
	for i, raw := range records {
		if id, ok := EmbeddedID(raw["id"]); ok {
			ids[i] = id
			report.MaxID = max(report.MaxID, id)
		}
	}
	if report.MaxID > 0 {
		if err := f.allocator.EnsureAtLeast(ctx, utils.UmkmCounter, report.MaxID); err != nil {
			return report, NewBusinessError("SEED_FAILED", "Failed to raise the umkm counter", err)
		}
	}

	now := f.now().UTC()
	rows := make([]*models.Umkm, 0, len(records))
	for i, raw := range records {
		id := ids[i]
		if id == 0 {
			allocated, err := f.allocator.Allocate(ctx, utils.UmkmCounter)
			if err != nil {
				return report, NewBusinessError("SEED_FAILED", "Failed to allocate an umkm id", err)
			}
			id = allocated
			report.MaxID = max(report.MaxID, id)
		}
		rows = append(rows, normalizer.NewUmkm(id, normalizer.UmkmInput{
			Name:           raw.field("name"),
			Image:          raw.field("image"),
			Description:    raw.field("description"),
			Category:       raw.field("category"),
			MarketplaceURL: raw.field("marketplaceUrl"),
			Whatsapp:       raw.field("whatsapp"),
			Location:       raw.field("location"),
		}, now))
	}

	if err := f.umkm.SaveBatch(ctx, rows); err != nil {
		return report, NewBusinessError("SEED_FAILED", "Failed to write umkm records", err)
	}
	report.Written = len(rows)
	f.logger.Info("Seeded umkm", "read", report.Read, "written", report.Written, "max_id", report.MaxID)
	return report, nil
}

// SeedDestinations rejects rows without a numeric id. In favorites mode every row is
// stored as a favorite of userID instead of a dataset record.
func (f *SeedFlowImpl) SeedDestinations(ctx context.Context, records []SeedRecord, mode, userID string) (*SeedReport, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = SeedModeDataset
	}
	if mode != SeedModeDataset && mode != SeedModeFavorites {
		return nil, NewBusinessErrorf("INVALID_SEED_MODE", "Unknown seed mode %q", ErrInvalidRecord, mode)
	}
	if mode == SeedModeFavorites && strings.TrimSpace(userID) == "" {
		return nil, NewBusinessError("INVALID_SEED_MODE", "Favorites mode needs a user id", ErrInvalidRecord)
	}

	report := &SeedReport{Read: len(records)}
	now := f.now().UTC()
	rows := make([]*models.Destination, 0, len(records))
	for i, raw := range records {
		id, ok := numericID(raw["id"])
		if !ok {
			report.Rejected++
			f.logger.Warn("Skipping destination without a numeric id", "row", i+1)
			continue
		}
		d := normalizer.NewDestination(id, normalizer.DestinationInput{
			Name:        raw.field("name"),
			Regency:     raw.field("regency"),
			Category:    raw.field("category"),
			Rating:      raw.field("rating"),
			Location:    raw.field("location"),
			ChildEntry:  raw.field("childEntry"),
			AdultsEntry: raw.field("adultsEntry"),
			ImageLink:   raw.field("imageLink"),
			Information: raw.field("information"),
		}, now)
		d.Attributes = raw.extras(destinationColumns)
		rows = append(rows, d)
		report.MaxID = max(report.MaxID, id)
	}

	if mode == SeedModeFavorites {
		favs := make([]*models.Favorite, len(rows))
		for i, d := range rows {
			favs[i] = NewFavorite(userID, d, now)
		}
		if err := f.favorites.SaveBatch(ctx, favs); err != nil {
			return report, NewBusinessError("SEED_FAILED", "Failed to write favorites", err)
		}
		report.Written = len(favs)
		f.logger.Info("Seeded favorites", "user_id", userID, "written", report.Written, "rejected", report.Rejected)
		return report, nil
	}

	if err := f.destinations.SaveBatch(ctx, rows); err != nil {
		return report, NewBusinessError("SEED_FAILED", "Failed to write destinations", err)
	}
	report.Written = len(rows)
	if report.MaxID > 0 {
		if err := f.allocator.EnsureAtLeast(ctx, utils.DestinationCounter, report.MaxID); err != nil {
			return report, NewBusinessError("SEED_FAILED", "Failed to raise the destinations counter", err)
		}
	}
	f.logger.Info("Seeded destinations", "written", report.Written, "rejected", report.Rejected, "max_id", report.MaxID)
	return report, nil
}

func (r SeedRecord) field(key string) normalizer.Field {
	v, ok := r[key]
	if !ok {
		return normalizer.Field{}
	}
	return normalizer.Of(v)
}

// extras collects unrecognised columns; nil when there are none.
func (r SeedRecord) extras(known []string) json.RawMessage {
	out := make(map[string]any)
	for k, v := range r {
		if !slices.Contains(known, k) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return raw
}

var digitRun = regexp.MustCompile(`\d+`)

// EmbeddedID reads an id from a number or from the first digit run of a string ("u-12" is 12).
func EmbeddedID(v any) (int64, bool) {
	if id, ok := numericID(v); ok {
		return id, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// numericID accepts positive whole numbers and numeric strings.
func numericID(v any) (int64, bool) {
	n := normalizer.Number(v)
	if n == nil || *n <= 0 || *n != math.Trunc(*n) || *n > math.MaxInt64/2 {
		return 0, false
	}
	return int64(*n), true
}

// DecodeSeedFile reads a JSON array of objects or the first sheet of an XLSX workbook
// whose first row holds the column names. Empty cells are treated as absent columns.
func DecodeSeedFile(name string, r io.Reader) ([]SeedRecord, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return decodeSeedJSON(r)
	case ".xlsx":
		return decodeSeedXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported seed file %q: expected .json or .xlsx", name)
	}
}

func decodeSeedJSON(r io.Reader) ([]SeedRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []SeedRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode seed JSON: %w", err)
	}
	return records, nil
}

func decodeSeedXLSX(r io.Reader) ([]SeedRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(xl.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read first sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	records := make([]SeedRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(SeedRecord)
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			rec[header[i]] = cell
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records, nil
}
