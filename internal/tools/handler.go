// Package tools exposes the audit controller and the rule store as the four
// agent-facing tools. Every response is a human-readable string; failures are
// rendered with an error prefix instead of being returned as faults.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/dagbolade/blind-auditor/internal/metrics"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/rs/zerolog/log"
)

// ErrUnknownTool is returned by Call for a tool name that is not exposed.
var ErrUnknownTool = errors.New("unknown tool")

type Handler struct {
	mu         sync.Mutex
	controller *controller.Controller
	rules      rules.Manager
	metrics    *metrics.Recorder
}

func NewHandler(ctrl *controller.Controller, store rules.Manager, m *metrics.Recorder) *Handler {
	return &Handler{
		controller: ctrl,
		rules:      store,
		metrics:    m,
	}
}

func (h *Handler) SubmitDraft(ctx context.Context, args SubmitDraftArgs) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.controller.SubmitDraft(ctx, args.Code, args.Language)
}

func (h *Handler) SubmitAuditResult(ctx context.Context, args AuditResultArgs) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.controller.SubmitAuditResult(ctx, args.Passed, args.Issues, args.Score)
}

func (h *Handler) ResetSession(ctx context.Context) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.controller.ResetSession(ctx)
}

// UpdateRules reloads the rules document, so edits made on disk win over the
// cached state, and then dispatches the action.
func (h *Handler) UpdateRules(_ context.Context, args UpdateRulesArgs) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.rules.Load(); err != nil {
		log.Warn().Err(err).Msg("rules reload failed, using cached rules")
	}

	switch args.Action {
	case ActionList:
		return h.rules.ListRules()
	case ActionAdd, ActionRemove, ActionUpdate:
	default:
		return errorText(fmt.Errorf("Unknown action '%s'. Valid actions: add, remove, update, list", args.Action))
	}

	msg, err := h.mutate(args)
	h.metrics.RuleMutation(args.Action, err)
	if err != nil {
		log.Warn().Err(err).Str("action", args.Action).Str("rule", args.RuleID).Msg("rule mutation failed")
		return errorText(err)
	}
	return "✅ " + msg
}

func (h *Handler) mutate(args UpdateRulesArgs) (string, error) {
	if args.RuleID == "" {
		return "", &rules.ValidationError{
			Kind:    rules.ValidationMissingField,
			Message: fmt.Sprintf("rule_id is required for action '%s'", args.Action),
		}
	}

	switch args.Action {
	case ActionAdd:
		if args.Severity == "" || args.Description == "" {
			return "", &rules.ValidationError{
				Kind:    rules.ValidationMissingField,
				Message: "severity and description are required for action 'add'",
			}
		}
		if args.weightErr != nil {
			return "", args.weightErr
		}
		weight := 0
		if args.Weight != nil {
			weight = *args.Weight
		}
		if err := h.rules.AddRule(args.RuleID, rules.Severity(args.Severity), args.Description, weight); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rule '%s' added successfully.", args.RuleID), nil

	case ActionRemove:
		if err := h.rules.RemoveRule(args.RuleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rule '%s' removed successfully.", args.RuleID), nil

	default:
		if args.weightErr != nil {
			return "", args.weightErr
		}
		update := args.toRuleUpdate()
		if update.Empty() {
			return "", &rules.ValidationError{
				Kind:    rules.ValidationMissingField,
				Message: "at least one of severity, description or weight is required for action 'update'",
			}
		}
		if err := h.rules.UpdateRule(args.RuleID, update); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rule '%s' updated successfully.", args.RuleID), nil
	}
}

// Call dispatches a tool by name with JSON arguments. The error is only set
// for an unknown tool or undecodable arguments; tool failures are part of the
// returned text.
func (h *Handler) Call(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	switch name {
	case ToolSubmitDraft:
		var args SubmitDraftArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return h.SubmitDraft(ctx, args), nil

	case ToolSubmitAuditResult:
		var args AuditResultArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return h.SubmitAuditResult(ctx, args), nil

	case ToolResetSession:
		return h.ResetSession(ctx), nil

	case ToolUpdateRules:
		var args UpdateRulesArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return h.UpdateRules(ctx, args), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func (a UpdateRulesArgs) toRuleUpdate() rules.RuleUpdate {
	var u rules.RuleUpdate
	if a.Severity != "" {
		sev := rules.Severity(a.Severity)
		u.Severity = &sev
	}
	if a.Description != "" {
		desc := a.Description
		u.Description = &desc
	}
	if a.Weight != nil {
		w := *a.Weight
		u.Weight = &w
	}
	return u
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

func errorText(err error) string {
	return "❌ Error: " + err.Error()
}
