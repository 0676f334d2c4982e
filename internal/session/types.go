package session

import (
	"errors"
	"time"

	"github.com/Salmanazari/keylybot/internal/flow"
)

// ErrNotFound is returned by Get when no usable session exists for a chat:
// either no row is stored or the stored row has expired.
var ErrNotFound = errors.New("session not found")

// Session is the durable per-conversation state.
type Session struct {
	ChatID    string
	State     flow.State
	Draft     flow.Draft
	LastText  string
	UpdatedAt time.Time
}

// Expired reports whether the session's last activity is older than timeout
// as of now.
func (s Session) Expired(timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > timeout
}
