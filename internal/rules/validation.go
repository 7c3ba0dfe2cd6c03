package rules

import (
	"fmt"
	"strings"
)

func validateID(id string) error {
	if id == "" {
		return &ValidationError{
			Kind:    ValidationMissingField,
			Message: "rule_id is required",
		}
	}
	return nil
}

func validateSeverity(s Severity) error {
	if isValidSeverity(s) {
		return nil
	}
	return &ValidationError{
		Kind:    ValidationBadSeverity,
		Message: fmt.Sprintf("Invalid severity '%s'. Must be one of: %s", s, severityList()),
	}
}

func validateWeight(w int) error {
	if w < MinWeight || w > MaxWeight {
		return &ValidationError{
			Kind:    ValidationBadWeight,
			Message: fmt.Sprintf("Weight must be an integer between %d and %d, got %d", MinWeight, MaxWeight, w),
		}
	}
	return nil
}

func validateUpdate(u RuleUpdate) error {
	if u.Severity != nil {
		if err := validateSeverity(*u.Severity); err != nil {
			return err
		}
	}
	if u.Weight != nil {
		if err := validateWeight(*u.Weight); err != nil {
			return err
		}
	}
	return nil
}

func isValidSeverity(s Severity) bool {
	for _, v := range ValidSeverities {
		if s == v {
			return true
		}
	}
	return false
}

func severityList() string {
	names := make([]string, len(ValidSeverities))
	for i, s := range ValidSeverities {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
