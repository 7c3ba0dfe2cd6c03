package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Event names a controller transition recorded in the trail.
type Event string

const (
	EventDraft         Event = "draft"
	EventLimitExceeded Event = "limit_exceeded"
	EventApproved      Event = "approved"
	EventRejected      Event = "rejected"
	EventReset         Event = "reset"
)

type Entry struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	SessionID  string          `json:"session_id"`
	Event      Event           `json:"event"`
	Status     string          `json:"status"`
	RetryCount int             `json:"retry_count"`
	Score      int             `json:"score"`
	Detail     json.RawMessage `json:"detail"`
}

// Store is an append-only journal. Entries are never read back into session
// state.
type Store interface {
	Log(ctx context.Context, entry Entry) error
	GetAll(ctx context.Context) ([]Entry, error)
	GetBySession(ctx context.Context, sessionID string) ([]Entry, error)
	Close() error
}
