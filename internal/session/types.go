package session

import "time"

type Status string

const (
	StatusIdle          Status = "IDLE"
	StatusAuditing      Status = "AUDITING"
	StatusApproved      Status = "APPROVED"
	StatusLimitExceeded Status = "LIMIT_EXCEEDED"
)

// Terminal reports whether only a reset can leave this status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusLimitExceeded
}

// Record is one audit verdict. It is never modified after being appended.
type Record struct {
	Passed           bool     `json:"passed"`
	Issues           []string `json:"issues"`
	Score            int      `json:"score"`
	RetryCountAtTime int      `json:"retry_count_at_time"`
}

// Session is the state of one audit lifecycle. It is not safe for concurrent
// use; the controller serializes access.
type Session struct {
	ID          string    `json:"id"`
	CurrentCode string    `json:"current_code"`
	Language    string    `json:"language,omitempty"`
	Status      Status    `json:"status"`
	RetryCount  int       `json:"retry_count"`
	History     []Record  `json:"audit_history"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
