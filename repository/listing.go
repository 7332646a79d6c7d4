package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/marcoalfans/manud-be/listing"
)

// applyListing compiles a listing plan into WHERE / ORDER BY / LIMIT clauses.
// Text columns use the "C" collation so ordering and prefix ranges compare bytes,
// which keeps the HighSentinel bound valid.
func applyListing(db *gorm.DB, q listing.Query) *gorm.DB {
	if q.Category != "" {
		db = db.Where("category_lower = ?", q.Category)
	}
	if q.Prefix != "" {
		db = db.Where("name_lower >= ? AND name_lower < ?", q.Prefix, q.UpperBound())
	}

	col := string(q.Field)
	if q.After != nil {
		db = applyResume(db, q, col)
	}

	if q.Field == listing.FieldID {
		if q.Order == listing.Desc {
			db = db.Order("id DESC")
		} else {
			db = db.Order("id ASC")
		}
	} else {
		if q.Order == listing.Desc {
			db = db.Order(col + " DESC NULLS LAST")
		} else {
			db = db.Order(col + " ASC NULLS FIRST")
		}
		db = db.Order("id ASC")
	}

	return db.Limit(q.FetchLimit())
}

// applyResume keeps rows strictly after q.After in query order.
func applyResume(db *gorm.DB, q listing.Query, col string) *gorm.DB {
	after := q.After
	if q.Field == listing.FieldID {
		if q.Order == listing.Desc {
			return db.Where("id < ?", after.ID)
		}
		return db.Where("id > ?", after.ID)
	}

	if after.Value == nil {
		if q.Order == listing.Desc {
			// nulls come last: only the remaining null rows
			return db.Where(fmt.Sprintf("(%s IS NULL AND id > ?)", col), after.ID)
		}
		return db.Where(fmt.Sprintf("(%s IS NOT NULL OR id > ?)", col), after.ID)
	}

	if q.Order == listing.Desc {
		return db.Where(fmt.Sprintf("(%s < ? OR (%s = ? AND id > ?) OR %s IS NULL)", col, col, col),
			after.Value, after.Value, after.ID)
	}
	return db.Where(fmt.Sprintf("(%s > ? OR (%s = ? AND id > ?))", col, col), after.Value, after.Value, after.ID)
}
