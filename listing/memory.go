package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Evaluate runs q over an in-memory slice with the same semantics the stores
// implement: filters, primary order (nulls first ascending, last descending), id
// tie-breaker, resume position and the FetchLimit probe row.
func Evaluate[T Keyed](rows []T, q Query) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if !Matches(q, r) {
			continue
		}
		if q.After != nil && Compare(q, r.ListingValue(q.Field), r.ListingID(), q.After.Value, q.After.ID) <= 0 {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b T) int {
		return Compare(q, a.ListingValue(q.Field), a.ListingID(), b.ListingValue(q.Field), b.ListingID())
	})
	if len(out) > q.FetchLimit() {
		out = out[:q.FetchLimit()]
	}
	return out
}

// Matches applies the category and prefix filters.
func Matches(q Query, r Keyed) bool {
	if q.Category != "" {
		v, ok := r.ListingValue(FieldCategoryLower).(string)
		if !ok || v != q.Category {
			return false
		}
	}
	if q.Prefix != "" {
		v, ok := r.ListingValue(FieldNameLower).(string)
		if !ok || v < q.Prefix || v >= q.UpperBound() {
			return false
		}
	}
	return true
}

// Compare orders two (value, id) keys in query order.
func Compare(q Query, av any, aid int64, bv any, bid int64) int {
	if q.Field == FieldID {
		c := cmp.Compare(aid, bid)
		if q.Order == Desc {
			return -c
		}
		return c
	}

	c := compareValues(av, bv)
	if q.Order == Desc {
		c = -c
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(aid, bid)
}

// compareValues sorts nil before every value.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return 0
}
