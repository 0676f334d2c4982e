// Package session persists per-conversation state in Postgres.
//
// The store does no row locking: a concurrent Get/Put pair for the same chat
// can lose an update. Callers that need exclusion (the webhook orchestrator)
// hold a per-chat mutex across the whole read-modify-write.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Salmanazari/keylybot/internal/flow"
	"github.com/Salmanazari/keylybot/internal/retry"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and writes sessions with a bounded retry policy.
type Store struct {
	db        DB
	timeout   time.Duration
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// NewStore creates a session store. timeout is the inactivity window after
// which a stored session is treated as absent.
func NewStore(log *slog.Logger, db DB, timeout time.Duration) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:        db,
		timeout:   timeout,
		attempts:  retry.DefaultAttempts,
		baseDelay: retry.DefaultBaseDelay,
		logger:    log.With(slog.String("service", "session")),
	}
}

// Get loads the session for chatID. A missing row and an expired row both
// return ErrNotFound; expired rows are left in place for the sweeper.
func (s *Store) Get(ctx context.Context, chatID string) (Session, error) {
	var (
		sess  Session
		found bool
	)
	err := retry.Do(ctx, s.attempts, s.baseDelay, func(ctx context.Context) error {
		var (
			state     string
			draftJSON []byte
		)
		row := s.db.QueryRow(ctx,
			`SELECT state, draft, last_text, updated_at FROM sessions WHERE chat_id = $1`,
			chatID,
		)
		if err := row.Scan(&state, &draftJSON, &sess.LastText, &sess.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Absence is a result, not a transient failure.
				found = false
				return nil
			}
			return fmt.Errorf("select session: %w", err)
		}
		found = true
		sess.ChatID = chatID
		sess.State = flow.Normalize(flow.State(state))
		if len(draftJSON) > 0 {
			if err := json.Unmarshal(draftJSON, &sess.Draft); err != nil {
				return fmt.Errorf("decode draft: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if !found {
		return Session{}, ErrNotFound
	}
	if sess.Expired(s.timeout, time.Now()) {
		s.logger.Info("session expired", slog.String("chat_id", chatID), slog.Time("updated_at", sess.UpdatedAt))
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Put upserts the full session row. The draft column is overwritten, not
// merged; callers build the complete next value.
func (s *Store) Put(ctx context.Context, chatID string, state flow.State, draft flow.Draft, lastText string) error {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return retry.Do(ctx, s.attempts, s.baseDelay, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx,
			`INSERT INTO sessions (chat_id, state, draft, last_text, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (chat_id) DO UPDATE
			 SET state = EXCLUDED.state,
			     draft = EXCLUDED.draft,
			     last_text = EXCLUDED.last_text,
			     updated_at = now()`,
			chatID, string(state), draftJSON, lastText,
		)
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
}

// DeleteExpired physically removes rows whose last activity is older than
// the session timeout. Get never deletes; this runs on a schedule.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	if s.timeout <= 0 {
		return 0, nil
	}
	var removed int64
	err := retry.Do(ctx, s.attempts, s.baseDelay, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx,
			`DELETE FROM sessions WHERE updated_at < now() - $1::interval`,
			fmt.Sprintf("%d seconds", int(s.timeout.Seconds())),
		)
		if err != nil {
			return fmt.Errorf("delete expired sessions: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}
