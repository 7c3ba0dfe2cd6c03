package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/dagbolade/blind-auditor/internal/rules"
)

const (
	ToolSubmitDraft       = "submit_draft"
	ToolSubmitAuditResult = "submit_audit_result"
	ToolResetSession      = "reset_session"
	ToolUpdateRules       = "update_rules"
)

// Names lists the exposed tools in registration order.
var Names = []string{ToolSubmitDraft, ToolSubmitAuditResult, ToolResetSession, ToolUpdateRules}

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionUpdate = "update"
	ActionList   = "list"
)

type ToolCallRequest struct {
	ToolName string          `json:"tool_name"`
	Args     json.RawMessage `json:"args"`
}

type ToolCallResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SubmitDraftArgs struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type AuditResultArgs struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues"`
	Score  int      `json:"score"`
}

// UpdateRulesArgs carries an update_rules call. Weight is nil when the caller
// did not supply it, which lets "update" set a weight of 0.
type UpdateRulesArgs struct {
	Action      string `json:"action"`
	RuleID      string `json:"rule_id"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Weight      *int   `json:"weight"`

	// weightErr is set when a weight was supplied but is not an integer.
	weightErr error
}

// UnmarshalJSON accepts any JSON value for weight so that a non-integer is
// reported as a rule validation error rather than a decode failure.
func (a *UpdateRulesArgs) UnmarshalJSON(data []byte) error {
	type plain UpdateRulesArgs
	var aux struct {
		plain
		Weight json.RawMessage `json:"weight"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = UpdateRulesArgs(aux.plain)
	a.Weight = nil

	raw := bytes.TrimSpace(aux.Weight)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	a.setWeight(v)
	return nil
}

func (a *UpdateRulesArgs) setWeight(v any) {
	w, err := parseWeight(v)
	if err != nil {
		a.weightErr = err
		return
	}
	a.Weight = &w
}

// parseWeight converts a decoded JSON value to an integer weight.
func parseWeight(v any) (int, error) {
	w, ok := integerValue(v)
	if !ok {
		return 0, badWeight(v)
	}
	return w, nil
}

// integerValue accepts integral numbers in any decoded form, including floats
// such as 40.0. Fractions, strings and booleans are rejected.
func integerValue(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func badWeight(v any) error {
	return &rules.ValidationError{
		Kind: rules.ValidationBadWeight,
		Message: fmt.Sprintf("Weight must be an integer between %d and %d, got %v",
			rules.MinWeight, rules.MaxWeight, v),
	}
}
