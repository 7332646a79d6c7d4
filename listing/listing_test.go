package listing

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	id        int64
	name      *string
	category  *string
	createdAt time.Time
}

func (r record) ListingID() int64 { return r.id }

func (r record) ListingValue(field Field) any {
	switch field {
	case FieldNameLower:
		return lowerPtr(r.name)
	case FieldCategoryLower:
		return lowerPtr(r.category)
	case FieldCreatedAt:
		return r.createdAt
	default:
		return r.id
	}
}

func lowerPtr(s *string) any {
	if s == nil {
		return nil
	}
	return toLower(*s)
}

func toLower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + 32
		}
	}
	return string(out)
}

func str(s string) *string { return &s }

func ids(rows []record) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.id)
	}
	return out
}

func TestBuildDefaultsAndCoercion(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantLimit int
		wantSort  SortBy
		wantField Field
		wantOrder Order
	}{
		{"empty", Options{}, 20, SortByID, FieldID, Asc},
		{"non numeric limit", Options{Limit: "abc"}, 20, SortByID, FieldID, Asc},
		{"zero limit", Options{Limit: "0"}, 20, SortByID, FieldID, Asc},
		{"negative limit", Options{Limit: "-5"}, 1, SortByID, FieldID, Asc},
		{"limit above max", Options{Limit: "500"}, 100, SortByID, FieldID, Asc},
		{"sort name desc", Options{SortBy: "NAME", Order: "DESC"}, 20, SortByName, FieldNameLower, Desc},
		{"sort category", Options{SortBy: "category"}, 20, SortByCategory, FieldCategoryLower, Asc},
		{"sort createdAt", Options{SortBy: "createdat"}, 20, SortByCreatedAt, FieldCreatedAt, Asc},
		{"unknown sort", Options{SortBy: "rating", Order: "sideways"}, 20, SortByID, FieldID, Asc},
		{"prefix forces name", Options{SortBy: "createdAt", Q: " Ay "}, 20, SortByName, FieldNameLower, Asc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Build(tt.opts)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantSort, q.SortBy)
			assert.Equal(t, tt.wantField, q.Field)
			assert.Equal(t, tt.wantOrder, q.Order)
		})
	}
}

func TestBuildLowercasesFilters(t *testing.T) {
	q := Build(Options{Q: "AyAm", Category: " Kuliner "})
	assert.Equal(t, "ayam", q.Prefix)
	assert.Equal(t, "kuliner", q.Category)
	assert.Equal(t, "ayam\uf8ff", q.UpperBound())
	assert.True(t, q.HasTieBreaker())
	assert.Equal(t, 21, q.FetchLimit())
}

func TestDecodeCursor(t *testing.T) {
	compound := base64.StdEncoding.EncodeToString([]byte(`{"s":"ayam","id":2}`))
	urlSafe := base64.RawURLEncoding.EncodeToString([]byte(`{"s":"a?>b","id":9}`))

	tests := []struct {
		name string
		raw  string
		want *Cursor
	}{
		{"empty", "", nil},
		{"digits", "42", &Cursor{ID: 42}},
		{"compound", compound, &Cursor{Compound: true, Sort: "ayam", ID: 2}},
		{"url safe unpadded", urlSafe, &Cursor{Compound: true, Sort: "a?>b", ID: 9}},
		{"null sort value", base64.StdEncoding.EncodeToString([]byte(`{"s":null,"id":3}`)), &Cursor{Compound: true, Sort: nil, ID: 3}},
		{"invalid", "!!!notbase64!!!", nil},
		{"base64 but not json", base64.StdEncoding.EncodeToString([]byte("hello")), nil},
		{"missing id", base64.StdEncoding.EncodeToString([]byte(`{"s":"x"}`)), nil},
		{"fractional id", base64.StdEncoding.EncodeToString([]byte(`{"s":"x","id":1.5}`)), nil},
		{"overflowing digits", "99999999999999999999999", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeCursor(tt.raw))
		})
	}
}

func TestDecodeCursorTreatsSpacesAsPlus(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"s":"~~~","id":7}`))
	require.Contains(t, token, "+")

	c := DecodeCursor(strings.ReplaceAll(token, "+", " "))
	require.NotNil(t, c)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "~~~", c.Sort)
}

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 891011000, time.UTC)

	q := Build(Options{SortBy: "createdAt", Cursor: EncodeCursor(FieldCreatedAt, created, 11)})
	require.NotNil(t, q.After)
	assert.Equal(t, int64(11), q.After.ID)
	assert.True(t, created.Equal(q.After.Value.(time.Time)))

	q = Build(Options{SortBy: "name", Cursor: EncodeCursor(FieldNameLower, "ayam", 2)})
	require.NotNil(t, q.After)
	assert.Equal(t, &Position{Value: "ayam", ID: 2}, q.After)

	q = Build(Options{Cursor: EncodeCursor(FieldID, nil, 15)})
	assert.Equal(t, "15", EncodeCursor(FieldID, nil, 15))
	assert.Equal(t, &Position{ID: 15}, q.After)
}

func TestIDOnlyCursorIgnoredForCompoundSort(t *testing.T) {
	q := Build(Options{SortBy: "name", Cursor: "5"})
	assert.Nil(t, q.After)
}

func TestCompoundCursorResumesByIDForIDSort(t *testing.T) {
	q := Build(Options{Cursor: EncodeCursor(FieldNameLower, "bakso", 3)})
	assert.Equal(t, &Position{ID: 3}, q.After)
}

func TestInvalidCursorStartsFromBeginning(t *testing.T) {
	rows := []record{{id: 1, name: str("Ayam")}, {id: 2, name: str("Bakso")}}
	q := Build(Options{Cursor: "!!!notbase64!!!"})
	assert.Nil(t, q.After)
	page := NewPage(Evaluate(rows, q), q)
	assert.Equal(t, []int64{1, 2}, ids(page.Items))
}

func sampleRows() []record {
	return []record{
		{id: 3, name: str("Bakso")},
		{id: 1, name: str("Ayam")},
		{id: 2, name: str("Ayam")},
	}
}

func TestNameSortBreaksTiesByID(t *testing.T) {
	q := Build(Options{SortBy: "name", Order: "asc", Limit: "2"})
	page := NewPage(Evaluate(sampleRows(), q), q)

	assert.Equal(t, []int64{1, 2}, ids(page.Items))
	require.True(t, page.PageInfo.HasNextPage)
	require.NotNil(t, page.PageInfo.NextCursor)

	c := DecodeCursor(*page.PageInfo.NextCursor)
	assert.Equal(t, &Cursor{Compound: true, Sort: "ayam", ID: 2}, c)

	next := Build(Options{SortBy: "name", Order: "asc", Limit: "2", Cursor: *page.PageInfo.NextCursor})
	page = NewPage(Evaluate(sampleRows(), next), next)
	assert.Equal(t, []int64{3}, ids(page.Items))
	assert.False(t, page.PageInfo.HasNextPage)
	assert.Nil(t, page.PageInfo.NextCursor)
}

func TestPrefixSearchForcesNameSort(t *testing.T) {
	q := Build(Options{Q: "ay", SortBy: "id", Order: "asc"})
	page := NewPage(Evaluate(sampleRows(), q), q)

	assert.Equal(t, []int64{1, 2}, ids(page.Items))
	assert.Equal(t, SortByName, page.PageInfo.SortBy)
}

func TestDescendingOrderKeepsIDTieBreakAscending(t *testing.T) {
	rows := append(sampleRows(), record{id: 4, name: nil})
	q := Build(Options{SortBy: "name", Order: "desc"})
	page := NewPage(Evaluate(rows, q), q)
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(page.Items))

	q = Build(Options{SortBy: "name"})
	page = NewPage(Evaluate(rows, q), q)
	assert.Equal(t, []int64{4, 1, 2, 3}, ids(page.Items))
}

func TestCategoryFilter(t *testing.T) {
	rows := []record{
		{id: 1, name: str("Ayam"), category: str("Kuliner")},
		{id: 2, name: str("Batik"), category: str("Fashion")},
		{id: 3, name: str("Cendol"), category: str("kuliner")},
	}
	q := Build(Options{Category: "KULINER"})
	page := NewPage(Evaluate(rows, q), q)
	assert.Equal(t, []int64{1, 3}, ids(page.Items))
}

func TestEmptyPage(t *testing.T) {
	q := Build(Options{})
	page := NewPage[record](nil, q)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.False(t, page.PageInfo.HasNextPage)
	assert.Equal(t, 20, page.PageInfo.Limit)
	assert.Equal(t, Asc, page.PageInfo.Order)
}
