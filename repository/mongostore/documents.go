package mongostore

import (
	"encoding/json"
	"time"

	"github.com/marcoalfans/manud-be/models"
)

type counterDoc struct {
	Name      string    `bson:"_id"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type umkmDoc struct {
	DocID          string    `bson:"_id"`
	ID             int64     `bson:"id"`
	Name           *string   `bson:"name"`
	NameLower      *string   `bson:"name_lower"`
	Image          *string   `bson:"image"`
	Description    *string   `bson:"description"`
	Category       *string   `bson:"category"`
	CategoryLower  *string   `bson:"category_lower"`
	MarketplaceURL *string   `bson:"marketplace_url"`
	Whatsapp       *string   `bson:"whatsapp"`
	Location       *string   `bson:"location"`
	LocationLower  *string   `bson:"location_lower"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func fromUmkm(u *models.Umkm) *umkmDoc {
	return &umkmDoc{
		DocID:          u.DocID,
		ID:             u.ID,
		Name:           u.Name,
		NameLower:      u.NameLower,
		Image:          u.Image,
		Description:    u.Description,
		Category:       u.Category,
		CategoryLower:  u.CategoryLower,
		MarketplaceURL: u.MarketplaceURL,
		Whatsapp:       u.Whatsapp,
		Location:       u.Location,
		LocationLower:  u.LocationLower,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d *umkmDoc) model() *models.Umkm {
	return &models.Umkm{
		DocID:          d.DocID,
		ID:             d.ID,
		Name:           d.Name,
		NameLower:      d.NameLower,
		Image:          d.Image,
		Description:    d.Description,
		Category:       d.Category,
		CategoryLower:  d.CategoryLower,
		MarketplaceURL: d.MarketplaceURL,
		Whatsapp:       d.Whatsapp,
		Location:       d.Location,
		LocationLower:  d.LocationLower,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

type destinationDoc struct {
	DocID         string    `bson:"_id,omitempty"`
	ID            int64     `bson:"id"`
	Name          *string   `bson:"name"`
	NameLower     *string   `bson:"name_lower"`
	Regency       *string   `bson:"regency"`
	RegencyLower  *string   `bson:"regency_lower"`
	Category      *string   `bson:"category"`
	CategoryLower *string   `bson:"category_lower"`
	Rating        *float64  `bson:"rating"`
	Location      *string   `bson:"location"`
	ChildEntry    *string   `bson:"child_entry"`
	AdultsEntry   *string   `bson:"adults_entry"`
	ImageLink     *string   `bson:"image_link"`
	Information   any       `bson:"information"`
	Attributes    any       `bson:"attributes,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func fromDestination(d *models.Destination) *destinationDoc {
	return &destinationDoc{
		DocID:         d.DocID,
		ID:            d.ID,
		Name:          d.Name,
		NameLower:     d.NameLower,
		Regency:       d.Regency,
		RegencyLower:  d.RegencyLower,
		Category:      d.Category,
		CategoryLower: d.CategoryLower,
		Rating:        d.Rating,
		Location:      d.Location,
		ChildEntry:    d.ChildEntry,
		AdultsEntry:   d.AdultsEntry,
		ImageLink:     d.ImageLink,
		Information:   decodeJSON(d.Information),
		Attributes:    decodeJSON(d.Attributes),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (d *destinationDoc) model() *models.Destination {
	return &models.Destination{
		DocID:         d.DocID,
		ID:            d.ID,
		Name:          d.Name,
		NameLower:     d.NameLower,
		Regency:       d.Regency,
		RegencyLower:  d.RegencyLower,
		Category:      d.Category,
		CategoryLower: d.CategoryLower,
		Rating:        d.Rating,
		Location:      d.Location,
		ChildEntry:    d.ChildEntry,
		AdultsEntry:   d.AdultsEntry,
		ImageLink:     d.ImageLink,
		Information:   encodeJSON(d.Information),
		Attributes:    encodeJSON(d.Attributes),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type favoriteDoc struct {
	DocID         string          `bson:"_id"`
	UserID        string          `bson:"user_id"`
	DestinationID int64           `bson:"destination_id"`
	NameLower     *string         `bson:"name_lower"`
	Destination   *destinationDoc `bson:"destination"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`
}

func fromFavorite(f *models.Favorite) *favoriteDoc {
	dest := fromDestination(&f.Destination)
	dest.DocID = ""
	return &favoriteDoc{
		DocID:         f.DocID,
		UserID:        f.UserID,
		DestinationID: f.DestinationID,
		NameLower:     f.NameLower,
		Destination:   dest,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func (d *favoriteDoc) model() *models.Favorite {
	fav := &models.Favorite{
		DocID:         d.DocID,
		UserID:        d.UserID,
		DestinationID: d.DestinationID,
		NameLower:     d.NameLower,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
	if d.Destination != nil {
		fav.Destination = *d.Destination.model()
		fav.Destination.DocID = models.DocKey(d.DestinationID)
	}
	return fav
}

// decodeJSON turns stored JSON into maps and slices so it is kept as a nested document.
func decodeJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func encodeJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
