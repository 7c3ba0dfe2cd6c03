package audit

import (
	"encoding/json"
	"fmt"
)

func validateEntry(e Entry) error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	if !isValidEvent(e.Event) {
		return fmt.Errorf("invalid event: %s", e.Event)
	}

	if e.Status == "" {
		return fmt.Errorf("status cannot be empty")
	}

	if len(e.Detail) > 0 && !json.Valid(e.Detail) {
		return fmt.Errorf("detail must be valid JSON")
	}

	return nil
}

func isValidEvent(ev Event) bool {
	switch ev {
	case EventDraft, EventLimitExceeded, EventApproved, EventRejected, EventReset:
		return true
	}
	return false
}
