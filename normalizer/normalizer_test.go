package normalizer

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoalfans/manud-be/models"
)

func strp(s string) *string { return &s }

func TestText(t *testing.T) {
	assert.Equal(t, strp("Bakso Pak Kumis"), Text("  Bakso Pak Kumis \n"))
	assert.Nil(t, Text("   "))
	assert.Nil(t, Text(nil))
	assert.Nil(t, Text(map[string]any{"a": 1}))
	assert.Equal(t, strp("12"), Text(json.Number("12")))
	assert.Equal(t, strp("4.5"), Text(4.5))
}

func TestLower(t *testing.T) {
	assert.Equal(t, strp("kuliner khas"), Lower("  Kuliner KHAS "))
	assert.Nil(t, Lower(""))
	assert.Nil(t, Lower(nil))
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"float", 4.5, ptrF(4.5)},
		{"json number", json.Number("4.7"), ptrF(4.7)},
		{"numeric string", " 3 ", ptrF(3)},
		{"empty string", "", nil},
		{"garbage", "abc", nil},
		{"nan string", "NaN", nil},
		{"nan float", math.NaN(), nil},
		{"infinity", "Inf", nil},
		{"nil", nil, nil},
		{"bool", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.in))
		})
	}
}

func ptrF(f float64) *float64 { return &f }

func TestDigits(t *testing.T) {
	assert.Equal(t, strp("6281234567890"), Digits("+62 812-3456-7890"))
	assert.Equal(t, strp("628123"), Digits(json.Number("628123")))
	assert.Nil(t, Digits("n/a"))
	assert.Nil(t, Digits(nil))
}

func TestMoney(t *testing.T) {
	for _, sentinel := range []string{"nan", "NaN", "", "null", "NULL", "undefined", "  Undefined "} {
		assert.Nil(t, Money(sentinel), sentinel)
	}
	assert.Equal(t, strp("Rp 10.000"), Money(" Rp 10.000 "))
	assert.Equal(t, strp("15000"), Money(json.Number("15000")))
	assert.Nil(t, Money(nil))
}

func TestFieldUnmarshalDistinguishesAbsentAndNull(t *testing.T) {
	var in UmkmInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":"  Kopi Kenangan ","category":null,"whatsapp":62812}`), &in))

	assert.True(t, in.Name.Set)
	assert.Equal(t, "  Kopi Kenangan ", in.Name.Value)
	assert.True(t, in.Category.Set)
	assert.Nil(t, in.Category.Value)
	assert.True(t, in.Whatsapp.Set)
	assert.Equal(t, json.Number("62812"), in.Whatsapp.Value)
	assert.False(t, in.Location.Set)
}

func TestNewUmkm(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	u := NewUmkm(7, UmkmInput{
		Name:     Of("  Keripik Tempe "),
		Category: Of("Kuliner"),
		Whatsapp: Of("0812-3456"),
		Image:    Of(""),
	}, now)

	assert.Equal(t, "7", u.DocID)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, strp("Keripik Tempe"), u.Name)
	assert.Equal(t, strp("keripik tempe"), u.NameLower)
	assert.Equal(t, strp("kuliner"), u.CategoryLower)
	assert.Equal(t, strp("08123456"), u.Whatsapp)
	assert.Nil(t, u.Image)
	assert.Nil(t, u.Location)
	assert.Nil(t, u.LocationLower)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)
}

func TestPatchUmkmTouchesOnlyPresentFields(t *testing.T) {
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	u := NewUmkm(3, UmkmInput{Name: Of("Batik Tulis"), Category: Of("Fashion"), Location: Of("Solo")}, created)

	later := created.Add(time.Hour)
	PatchUmkm(u, UmkmInput{Name: Of("Batik Cap"), Location: Of(nil)}, later)

	assert.Equal(t, strp("Batik Cap"), u.Name)
	assert.Equal(t, strp("batik cap"), u.NameLower)
	assert.Equal(t, strp("Fashion"), u.Category)
	assert.Nil(t, u.Location)
	assert.Nil(t, u.LocationLower)
	assert.Equal(t, created, u.CreatedAt)
	assert.Equal(t, later, u.UpdatedAt)
}

func TestNewDestination(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	d := NewDestination(12, DestinationInput{
		Name:        Of("Pantai Kuta"),
		Regency:     Of(" Badung "),
		Category:    Of("Bahari"),
		Rating:      Of("4.6"),
		ChildEntry:  Of("nan"),
		AdultsEntry: Of("Rp 15.000"),
		Information: Of(map[string]any{"open": "24h"}),
	}, now)

	assert.Equal(t, "12", d.DocID)
	assert.Equal(t, strp("badung"), d.RegencyLower)
	assert.Equal(t, ptrF(4.6), d.Rating)
	assert.Nil(t, d.ChildEntry)
	assert.Equal(t, strp("Rp 15.000"), d.AdultsEntry)
	assert.JSONEq(t, `{"open":"24h"}`, string(d.Information))
	assert.Nil(t, d.ImageLink)
}

func TestPatchDestinationRatingGarbageBecomesNull(t *testing.T) {
	d := &models.Destination{ID: 1, Rating: ptrF(4.2)}
	PatchDestination(d, DestinationInput{Rating: Of("not-a-number")}, time.Now())
	assert.Nil(t, d.Rating)
}
