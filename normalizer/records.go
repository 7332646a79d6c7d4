package normalizer

import (
	"time"

	"github.com/marcoalfans/manud-be/models"
)

// UmkmInput is the writable surface of a UMKM record.
type UmkmInput struct {
	Name           Field `json:"name"`
	Image          Field `json:"image"`
	Description    Field `json:"description"`
	Category       Field `json:"category"`
	MarketplaceURL Field `json:"marketplaceUrl"`
	Whatsapp       Field `json:"whatsapp"`
	Location       Field `json:"location"`
}

// DestinationInput is the writable surface of a destination record.
type DestinationInput struct {
	Name        Field `json:"name"`
	Regency     Field `json:"regency"`
	Category    Field `json:"category"`
	Rating      Field `json:"rating"`
	Location    Field `json:"location"`
	ChildEntry  Field `json:"childEntry"`
	AdultsEntry Field `json:"adultsEntry"`
	ImageLink   Field `json:"imageLink"`
	Information Field `json:"information"`
}

// NewUmkm builds a record from every recognised field; absent fields become null.
func NewUmkm(id int64, in UmkmInput, now time.Time) *models.Umkm {
	u := &models.Umkm{DocID: models.DocKey(id), ID: id, CreatedAt: now}
	applyUmkm(u, in, true)
	u.UpdatedAt = now
	return u
}

// PatchUmkm touches only the fields present in the input and stamps UpdatedAt.
func PatchUmkm(u *models.Umkm, in UmkmInput, now time.Time) {
	applyUmkm(u, in, false)
	u.UpdatedAt = now
}

func applyUmkm(u *models.Umkm, in UmkmInput, all bool) {
	if all || in.Name.Set {
		u.Name, u.NameLower = Text(in.Name.Value), Lower(in.Name.Value)
	}
	if all || in.Image.Set {
		u.Image = Text(in.Image.Value)
	}
	if all || in.Description.Set {
		u.Description = Text(in.Description.Value)
	}
	if all || in.Category.Set {
		u.Category, u.CategoryLower = Text(in.Category.Value), Lower(in.Category.Value)
	}
	if all || in.MarketplaceURL.Set {
		u.MarketplaceURL = Text(in.MarketplaceURL.Value)
	}
	if all || in.Whatsapp.Set {
		u.Whatsapp = Digits(in.Whatsapp.Value)
	}
	if all || in.Location.Set {
		u.Location, u.LocationLower = Text(in.Location.Value), Lower(in.Location.Value)
	}
}

// NewDestination builds a dataset record from every recognised field.
func NewDestination(id int64, in DestinationInput, now time.Time) *models.Destination {
	d := &models.Destination{DocID: models.DocKey(id), ID: id, CreatedAt: now}
	applyDestination(d, in, true)
	d.UpdatedAt = now
	return d
}

// PatchDestination touches only the fields present in the input and stamps UpdatedAt.
func PatchDestination(d *models.Destination, in DestinationInput, now time.Time) {
	applyDestination(d, in, false)
	d.UpdatedAt = now
}

func applyDestination(d *models.Destination, in DestinationInput, all bool) {
	if all || in.Name.Set {
		d.Name, d.NameLower = Text(in.Name.Value), Lower(in.Name.Value)
	}
	if all || in.Regency.Set {
		d.Regency, d.RegencyLower = Text(in.Regency.Value), Lower(in.Regency.Value)
	}
	if all || in.Category.Set {
		d.Category, d.CategoryLower = Text(in.Category.Value), Lower(in.Category.Value)
	}
	if all || in.Rating.Set {
		d.Rating = Number(in.Rating.Value)
	}
	if all || in.Location.Set {
		d.Location = Text(in.Location.Value)
	}
	if all || in.ChildEntry.Set {
		d.ChildEntry = Money(in.ChildEntry.Value)
	}
	if all || in.AdultsEntry.Set {
		d.AdultsEntry = Money(in.AdultsEntry.Value)
	}
	if all || in.ImageLink.Set {
		d.ImageLink = Text(in.ImageLink.Value)
	}
	if all || in.Information.Set {
		d.Information = JSON(in.Information.Value)
	}
}

// UmkmInputFrom turns a stored record back into a full input, so a normalized record
// can be normalized again.
func UmkmInputFrom(u *models.Umkm) UmkmInput {
	return UmkmInput{
		Name:           Of(u.Name),
		Image:          Of(u.Image),
		Description:    Of(u.Description),
		Category:       Of(u.Category),
		MarketplaceURL: Of(u.MarketplaceURL),
		Whatsapp:       Of(u.Whatsapp),
		Location:       Of(u.Location),
	}
}

// DestinationInputFrom turns a stored record back into a full input.
func DestinationInputFrom(d *models.Destination) DestinationInput {
	in := DestinationInput{
		Name:        Of(d.Name),
		Regency:     Of(d.Regency),
		Category:    Of(d.Category),
		Location:    Of(d.Location),
		ChildEntry:  Of(d.ChildEntry),
		AdultsEntry: Of(d.AdultsEntry),
		ImageLink:   Of(d.ImageLink),
		Rating:      Of(nil),
		Information: Of(nil),
	}
	if d.Rating != nil {
		in.Rating = Of(*d.Rating)
	}
	if d.Information != nil {
		in.Information = Of(d.Information)
	}
	return in
}
