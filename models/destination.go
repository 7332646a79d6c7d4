package models

import (
	"encoding/json"
	"time"

	"github.com/marcoalfans/manud-be/listing"
)

// Destination is a tourist attraction in the shared dataset.
type Destination struct {
	DocID         string          `gorm:"column:doc_id;primaryKey;size:32" json:"-"`
	ID            int64           `gorm:"column:id;not null;uniqueIndex:idx_destinations_id" json:"id"`
	Name          *string         `gorm:"column:name" json:"name"`
	NameLower     *string         `gorm:"column:name_lower" json:"name_lower"`
	Regency       *string         `gorm:"column:regency" json:"regency"`
	RegencyLower  *string         `gorm:"column:regency_lower" json:"regency_lower"`
	Category      *string         `gorm:"column:category" json:"category"`
	CategoryLower *string         `gorm:"column:category_lower" json:"category_lower"`
	Rating        *float64        `gorm:"column:rating" json:"rating"`
	Location      *string         `gorm:"column:location" json:"location"`
	ChildEntry    *string         `gorm:"column:child_entry" json:"childEntry"`
	AdultsEntry   *string         `gorm:"column:adults_entry" json:"adultsEntry"`
	ImageLink     *string         `gorm:"column:image_link" json:"imageLink"`
	Information   json.RawMessage `gorm:"column:information;type:jsonb" json:"information" swaggertype:"object"`
	Attributes    json.RawMessage `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty" swaggertype:"object"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Destination) TableName() string { return "destinations" }

func (d *Destination) ListingID() int64 { return d.ID }

func (d *Destination) ListingValue(field listing.Field) any {
	switch field {
	case listing.FieldNameLower:
		return optional(d.NameLower)
	case listing.FieldCategoryLower:
		return optional(d.CategoryLower)
	case listing.FieldCreatedAt:
		return d.CreatedAt
	default:
		return d.ID
	}
}

// Favorite is a user's saved copy of a dataset destination, keyed "<userID>_<destinationID>".
type Favorite struct {
	DocID         string      `gorm:"column:doc_id;primaryKey;size:96" json:"docId"`
	UserID        string      `gorm:"column:user_id;size:64;not null;index:idx_favorites_user" json:"userId"`
	DestinationID int64       `gorm:"column:destination_id;not null" json:"destinationId"`
	NameLower     *string     `gorm:"column:name_lower" json:"-"`
	Destination   Destination `gorm:"column:destination;type:jsonb;serializer:json" json:"destination"`
	CreatedAt     time.Time   `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Favorite) TableName() string { return "favorites" }

// FavoriteKey builds the storage key of a favorite.
func FavoriteKey(userID string, destinationID int64) string {
	return userID + "_" + DocKey(destinationID)
}
