package listing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Salmanazari/keylybot/internal/flow"
	"github.com/Salmanazari/keylybot/internal/listing"
)

type fakeAppender struct {
	calls int
	errs  []error
	rows  [][]any
}

func (a *fakeAppender) Append(ctx context.Context, values []any) (string, error) {
	call := a.calls
	a.calls++
	if call < len(a.errs) && a.errs[call] != nil {
		return "", a.errs[call]
	}
	a.rows = append(a.rows, values)
	return "Listings!A7:J7", nil
}

func TestFromDraft_SnapshotsAllFields(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	draft := flow.Draft{
		Address:   "123 Main St",
		Zip:       "10001",
		Bedrooms:  3,
		Bathrooms: 2,
		SizeSqm:   120,
		Price:     500000,
		Amenities: "pool",
		ImageURLs: []string{"https://cdn/a.jpg"},
	}
	l := listing.FromDraft("lst-1", draft, now)
	assert.Equal(t, "lst-1", l.ID)
	assert.Equal(t, "123 Main St", l.Address)
	assert.Equal(t, now, l.CreatedAt)

	// The snapshot must not alias the draft's slice.
	draft.ImageURLs[0] = "mutated"
	assert.Equal(t, []string{"https://cdn/a.jpg"}, l.ImageURLs)
}

func TestAppend_WritesOneRow(t *testing.T) {
	t.Parallel()
	appender := &fakeAppender{}
	svc := listing.NewService(nil, appender)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l := listing.FromDraft("lst-1", flow.Draft{
		Address: "123 Main St", Zip: "10001",
		Bedrooms: 3, Bathrooms: 2, SizeSqm: 120, Price: 500000,
		Amenities: "pool",
	}, now)

	ref, err := svc.Append(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, "Listings!A7:J7", ref)
	require.Len(t, appender.rows, 1)
	assert.Equal(t, []any{
		"lst-1", "2026-08-31T12:00:00Z", "123 Main St", "10001",
		3, 2, 120, 500000, "pool", "",
	}, appender.rows[0])
}

func TestAppend_RetriesThenSurfacesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("quota exceeded")
	appender := &fakeAppender{errs: []error{boom, boom, boom}}
	svc := listing.NewService(nil, appender)

	_, err := svc.Append(context.Background(), listing.PendingListing{ID: "lst-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, appender.calls)
}

func TestAppend_RecoversOnSecondAttempt(t *testing.T) {
	t.Parallel()
	appender := &fakeAppender{errs: []error{errors.New("transient")}}
	svc := listing.NewService(nil, appender)

	ref, err := svc.Append(context.Background(), listing.PendingListing{ID: "lst-1"})
	require.NoError(t, err)
	assert.Equal(t, "Listings!A7:J7", ref)
	assert.Equal(t, 2, appender.calls)
}
