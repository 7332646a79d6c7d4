package listing

// Keyed is implemented by listable records so pages and cursors can be built without
// knowing the concrete type. ListingValue returns nil, a string or a time.Time.
type Keyed interface {
	ListingID() int64
	ListingValue(field Field) any
}

// PageInfo describes the effective parameters of a page and how to fetch the next one.
type PageInfo struct {
	Limit       int     `json:"limit"`
	HasNextPage bool    `json:"hasNextPage"`
	NextCursor  *string `json:"nextCursor"`
	SortBy      SortBy  `json:"sortBy"`
	Order       Order   `json:"order"`
}

// Page is one slice of a listing.
type Page[T Keyed] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pageInfo"`
}

// NewPage trims the probe row fetched by FetchLimit and derives the next cursor from
// the last retained row.
func NewPage[T Keyed](rows []T, q Query) Page[T] {
	hasNext := len(rows) > q.Limit
	if hasNext {
		rows = rows[:q.Limit]
	}
	if rows == nil {
		rows = []T{}
	}

	info := PageInfo{
		Limit:       q.Limit,
		HasNextPage: hasNext,
		SortBy:      q.SortBy,
		Order:       q.Order,
	}
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1]
		next := EncodeCursor(q.Field, last.ListingValue(q.Field), last.ListingID())
		info.NextCursor = &next
	}
	return Page[T]{Items: rows, PageInfo: info}
}
