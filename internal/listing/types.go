package listing

import (
	"strings"
	"time"

	"github.com/Salmanazari/keylybot/internal/flow"
)

// PendingListing is a finalized snapshot of a collected draft. It is
// immutable once persisted except for image URLs appended during the image
// collection phase.
type PendingListing struct {
	ID        string
	Address   string
	Zip       string
	Bedrooms  int
	Bathrooms int
	SizeSqm   int
	Price     int
	Amenities string
	ImageURLs []string
	CreatedAt time.Time
}

// FromDraft snapshots a draft under a freshly generated listing ID.
func FromDraft(id string, d flow.Draft, now time.Time) PendingListing {
	return PendingListing{
		ID:        id,
		Address:   d.Address,
		Zip:       d.Zip,
		Bedrooms:  d.Bedrooms,
		Bathrooms: d.Bathrooms,
		SizeSqm:   d.SizeSqm,
		Price:     d.Price,
		Amenities: d.Amenities,
		ImageURLs: append([]string(nil), d.ImageURLs...),
		CreatedAt: now.UTC(),
	}
}

// Row flattens the listing into one spreadsheet row.
func (l PendingListing) Row() []any {
	return []any{
		l.ID,
		l.CreatedAt.Format(time.RFC3339),
		l.Address,
		l.Zip,
		l.Bedrooms,
		l.Bathrooms,
		l.SizeSqm,
		l.Price,
		l.Amenities,
		strings.Join(l.ImageURLs, "\n"),
	}
}
