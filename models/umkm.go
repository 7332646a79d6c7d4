// Package models contains domain entities for the catalog and account stores
package models

import (
	"strconv"
	"time"

	"github.com/marcoalfans/manud-be/listing"
)

// Umkm is a small-business listing. DocID is the decimal form of ID and is the
// storage key.
type Umkm struct {
	DocID          string    `gorm:"column:doc_id;primaryKey;size:32" json:"-"`
	ID             int64     `gorm:"column:id;not null;uniqueIndex:idx_umkm_id" json:"id"`
	Name           *string   `gorm:"column:name" json:"name"`
	NameLower      *string   `gorm:"column:name_lower" json:"name_lower"`
	Image          *string   `gorm:"column:image" json:"image"`
	Description    *string   `gorm:"column:description" json:"description"`
	Category       *string   `gorm:"column:category" json:"category"`
	CategoryLower  *string   `gorm:"column:category_lower" json:"category_lower"`
	MarketplaceURL *string   `gorm:"column:marketplace_url" json:"marketplaceUrl"`
	Whatsapp       *string   `gorm:"column:whatsapp" json:"whatsapp"`
	Location       *string   `gorm:"column:location" json:"location"`
	LocationLower  *string   `gorm:"column:location_lower" json:"location_lower"`
	CreatedAt      time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Umkm) TableName() string { return "umkm" }

func (u *Umkm) ListingID() int64 { return u.ID }

func (u *Umkm) ListingValue(field listing.Field) any {
	switch field {
	case listing.FieldNameLower:
		return optional(u.NameLower)
	case listing.FieldCategoryLower:
		return optional(u.CategoryLower)
	case listing.FieldCreatedAt:
		return u.CreatedAt
	default:
		return u.ID
	}
}

// DocKey is the storage key for a record id.
func DocKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
