package session

import (
	"time"

	"github.com/google/uuid"
)

func New() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset restores the initial state and starts a new session id. It is the
// only way to clear the history or the retry counter.
func (s *Session) Reset() {
	now := time.Now().UTC()
	*s = Session{
		ID:        uuid.New().String(),
		Status:    StatusIdle,
		History:   []Record{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) BeginDraft(code, language string) {
	s.CurrentCode = code
	s.Language = language
	s.setStatus(StatusAuditing)
}

// Append stores a verdict. The issues slice is copied so later changes by the
// caller cannot reach the history.
func (s *Session) Append(passed bool, issues []string, score int) Record {
	rec := Record{
		Passed:           passed,
		Issues:           append([]string(nil), issues...),
		Score:            score,
		RetryCountAtTime: s.RetryCount,
	}
	if rec.Issues == nil {
		rec.Issues = []string{}
	}
	s.History = append(s.History, rec)
	s.touch()
	return rec
}

func (s *Session) Approve() {
	s.setStatus(StatusApproved)
}

// Reject counts a failed audit and returns the session to IDLE for another
// draft.
func (s *Session) Reject() int {
	s.RetryCount++
	s.setStatus(StatusIdle)
	return s.RetryCount
}

func (s *Session) ExhaustRetries() {
	s.setStatus(StatusLimitExceeded)
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (s *Session) Snapshot() Session {
	out := *s
	out.History = make([]Record, len(s.History))
	for i, rec := range s.History {
		rec.Issues = append([]string(nil), rec.Issues...)
		out.History[i] = rec
	}
	return out
}

func (s *Session) setStatus(status Status) {
	s.Status = status
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
