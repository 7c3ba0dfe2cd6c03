package rules

import "fmt"

// ConfigLoadError means the rules document exists but could not be read or
// parsed. Callers may keep running on stale or default configuration.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("load rules from %s: %v", e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// PersistenceError means the in-memory change was applied but writing the
// document failed.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save rules to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type ValidationKind string

const (
	ValidationDuplicateID  ValidationKind = "duplicate_id"
	ValidationBadSeverity  ValidationKind = "bad_severity"
	ValidationBadWeight    ValidationKind = "bad_weight"
	ValidationMissingField ValidationKind = "missing_field"
)

// ValidationError rejects caller input; no mutation has been applied.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError means no rule carries the referenced id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Rule with ID '%s' not found.", e.ID)
}
