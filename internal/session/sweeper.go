package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

// Sweeper deletes expired session rows on a cron schedule. Expired sessions
// are already invisible to Get; the sweep only reclaims storage.
type Sweeper struct {
	store  *Store
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper validates the schedule up front so a bad config fails at boot
// instead of silently never sweeping.
func NewSweeper(log *slog.Logger, store *Store, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		store:  store,
		cron:   cron.New(),
		logger: log.With(slog.String("service", "session_sweeper")),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	deleted, err := s.store.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		s.logger.Info("expired sessions removed", slog.Int64("count", deleted))
	}
}
