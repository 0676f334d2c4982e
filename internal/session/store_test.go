package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Salmanazari/keylybot/internal/flow"
	"github.com/Salmanazari/keylybot/internal/session"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeDB is a scripted session.DB: each QueryRow/Exec call pops the next
// response.
type fakeDB struct {
	queryCalls int
	execCalls  int
	queryErrs  []error
	execErrs   []error
	row        session.Session
	hasRow     bool
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	call := db.queryCalls
	db.queryCalls++
	return fakeRow{scan: func(dest ...any) error {
		if call < len(db.queryErrs) && db.queryErrs[call] != nil {
			return db.queryErrs[call]
		}
		if !db.hasRow {
			return pgx.ErrNoRows
		}
		draftJSON, err := json.Marshal(db.row.Draft)
		if err != nil {
			return err
		}
		*dest[0].(*string) = string(db.row.State)
		*dest[1].(*[]byte) = draftJSON
		*dest[2].(*string) = db.row.LastText
		*dest[3].(*time.Time) = db.row.UpdatedAt
		return nil
	}}
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	call := db.execCalls
	db.execCalls++
	if call < len(db.execErrs) && db.execErrs[call] != nil {
		return pgconn.CommandTag{}, db.execErrs[call]
	}
	return pgconn.NewCommandTag("DELETE 2"), nil
}

func TestGet_MissingRowIsNotFound(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	store := session.NewStore(nil, db, 30*time.Minute)
	_, err := store.Get(context.Background(), "chat-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 1, db.queryCalls, "absence must not be retried")
}

func TestGet_ExpiredRowIsNotFound(t *testing.T) {
	t.Parallel()
	db := &fakeDB{
		hasRow: true,
		row: session.Session{
			State:     flow.StateAwaitingPrice,
			Draft:     flow.Draft{Address: "addr"},
			UpdatedAt: time.Now().Add(-31 * time.Minute),
		},
	}
	store := session.NewStore(nil, db, 30*time.Minute)
	_, err := store.Get(context.Background(), "chat-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestGet_FreshRowRoundTrips(t *testing.T) {
	t.Parallel()
	db := &fakeDB{
		hasRow: true,
		row: session.Session{
			State:     flow.StateAwaitingConfirmation,
			Draft:     flow.Draft{Address: "123 Main St", Bedrooms: 3, ImageURLs: []string{"https://cdn/a.jpg"}},
			LastText:  "pool",
			UpdatedAt: time.Now().Add(-time.Minute),
		},
	}
	store := session.NewStore(nil, db, 30*time.Minute)
	got, err := store.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", got.ChatID)
	assert.Equal(t, flow.StateAwaitingConfirmation, got.State)
	assert.Equal(t, "123 Main St", got.Draft.Address)
	assert.Equal(t, []string{"https://cdn/a.jpg"}, got.Draft.ImageURLs)
	assert.Equal(t, "pool", got.LastText)
}

func TestGet_UnknownStateNormalizesToInitial(t *testing.T) {
	t.Parallel()
	db := &fakeDB{
		hasRow: true,
		row: session.Session{
			State:     flow.State("legacy_state"),
			UpdatedAt: time.Now(),
		},
	}
	store := session.NewStore(nil, db, 30*time.Minute)
	got, err := store.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, flow.StateInitial, got.State)
}

func TestGet_RetriesTransientErrors(t *testing.T) {
	t.Parallel()
	db := &fakeDB{
		hasRow:    true,
		row:       session.Session{State: flow.StateAwaitingZip, UpdatedAt: time.Now()},
		queryErrs: []error{errors.New("conn reset"), errors.New("conn reset")},
	}
	store := session.NewStore(nil, db, 30*time.Minute)
	got, err := store.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, flow.StateAwaitingZip, got.State)
	assert.Equal(t, 3, db.queryCalls)
}

func TestPut_SurfacesErrorAfterRetriesExhausted(t *testing.T) {
	t.Parallel()
	boom := errors.New("backend down")
	db := &fakeDB{execErrs: []error{boom, boom, boom}}
	store := session.NewStore(nil, db, 30*time.Minute)
	err := store.Put(context.Background(), "chat-1", flow.StateAwaitingZip, flow.Draft{}, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, db.execCalls)
}

func TestDeleteExpired_ReturnsRowCount(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	store := session.NewStore(nil, db, 30*time.Minute)
	removed, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestExpired(t *testing.T) {
	t.Parallel()
	now := time.Now()
	fresh := session.Session{UpdatedAt: now.Add(-10 * time.Minute)}
	stale := session.Session{UpdatedAt: now.Add(-40 * time.Minute)}
	assert.False(t, fresh.Expired(30*time.Minute, now))
	assert.True(t, stale.Expired(30*time.Minute, now))
	assert.False(t, stale.Expired(0, now), "zero timeout disables expiry")
}
