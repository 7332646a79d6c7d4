// Package listing turns raw list parameters into a keyset query plan and builds
// cursor-paginated pages from the rows a store returns for that plan.
package listing

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// HighSentinel closes the prefix range: every realistic string starting with the
	// prefix sorts below prefix+HighSentinel.
	HighSentinel = "\uf8ff"
)

// SortBy is the public name of a sortable attribute.
type SortBy string

const (
	SortByID        SortBy = "id"
	SortByName      SortBy = "name"
	SortByCategory  SortBy = "category"
	SortByCreatedAt SortBy = "createdAt"
)

// Field is the storage column/attribute a SortBy maps to. The same names are used by
// the SQL and document stores.
type Field string

const (
	FieldID            Field = "id"
	FieldNameLower     Field = "name_lower"
	FieldCategoryLower Field = "category_lower"
	FieldCreatedAt     Field = "created_at"
)

// Order is the primary sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Options are the raw, unvalidated list parameters as received from a caller.
type Options struct {
	Limit    string
	Cursor   string
	SortBy   string
	Order    string
	Q        string
	Category string
}

// Query is the normalized plan a store executes.
type Query struct {
	Limit    int
	SortBy   SortBy
	Field    Field
	Order    Order
	Category string // lowercased; empty means no filter
	Prefix   string // lowercased; empty means no prefix range
	After    *Position
}

// Position is a resume point: strictly after (Value, ID) in query order. Value is nil,
// a string or a time.Time depending on Field, and is ignored for FieldID.
type Position struct {
	Value any
	ID    int64
}

// Build coerces raw options into a Query. It never fails: anything unparseable falls
// back to its default.
func Build(opts Options) Query {
	q := Query{
		Limit:    parseLimit(opts.Limit),
		Order:    parseOrder(opts.Order),
		Category: strings.ToLower(strings.TrimSpace(opts.Category)),
		Prefix:   strings.ToLower(strings.TrimSpace(opts.Q)),
	}

	q.SortBy = parseSortBy(opts.SortBy)
	if q.Prefix != "" {
		// a range filter must be the first ordering key
		q.SortBy = SortByName
	}
	q.Field = fieldFor(q.SortBy)
	q.After = q.resumeFrom(DecodeCursor(opts.Cursor))
	return q
}

// UpperBound is the exclusive end of the prefix range.
func (q Query) UpperBound() string {
	return q.Prefix + HighSentinel
}

// HasTieBreaker reports whether id is appended as a secondary ascending order.
func (q Query) HasTieBreaker() bool {
	return q.Field != FieldID
}

// FetchLimit is the number of rows to request: one extra row detects a next page.
func (q Query) FetchLimit() int {
	return q.Limit + 1
}

func (q Query) resumeFrom(c *Cursor) *Position {
	if c == nil {
		return nil
	}
	if q.Field == FieldID {
		return &Position{ID: c.ID}
	}
	if !c.Compound {
		// an id-only cursor has no sort value to resume from
		return nil
	}

	switch q.Field {
	case FieldCreatedAt:
		s, ok := c.Sort.(string)
		if !ok {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
		return &Position{Value: t.UTC(), ID: c.ID}
	default:
		switch v := c.Sort.(type) {
		case nil:
			return &Position{Value: nil, ID: c.ID}
		case string:
			return &Position{Value: v, ID: c.ID}
		case float64:
			return &Position{Value: strconv.FormatFloat(v, 'f', -1, 64), ID: c.ID}
		default:
			return nil
		}
	}
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n == 0 {
		return DefaultLimit
	}
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func parseOrder(raw string) Order {
	if strings.EqualFold(strings.TrimSpace(raw), string(Desc)) {
		return Desc
	}
	return Asc
}

func parseSortBy(raw string) SortBy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "name":
		return SortByName
	case "category":
		return SortByCategory
	case "createdat":
		return SortByCreatedAt
	default:
		return SortByID
	}
}

func fieldFor(s SortBy) Field {
	switch s {
	case SortByName:
		return FieldNameLower
	case SortByCategory:
		return FieldCategoryLower
	case SortByCreatedAt:
		return FieldCreatedAt
	default:
		return FieldID
	}
}
