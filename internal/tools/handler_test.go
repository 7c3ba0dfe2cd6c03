package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/dagbolade/blind-auditor/internal/session"
	"github.com/labstack/echo/v4"
)

const testDocument = `{
  "project_name": "Shaders",
  "strict_mode": true,
  "max_retries": 2,
  "rules": [
    {"id": "GLSL-001", "severity": "CRITICAL", "description": "Use float literals", "weight": 50}
  ]
}`

func setupHandler(t *testing.T) (*Handler, *rules.FileStore) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(testDocument), 0o644); err != nil {
		t.Fatalf("failed to write rules: %v", err)
	}

	store := rules.NewFileStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	return NewHandler(controller.New(store), store, nil), store
}

func intPtr(v int) *int { return &v }

func decodeUpdate(raw string) UpdateRulesArgs {
	var args UpdateRulesArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		panic(err)
	}
	return args
}

func TestUpdateRulesActions(t *testing.T) {
	tests := []struct {
		name string
		args UpdateRulesArgs
		want string
	}{
		{
			name: "add",
			args: UpdateRulesArgs{Action: ActionAdd, RuleID: "GLSL-002", Severity: "WARNING", Description: "Name uniforms u_*", Weight: intPtr(15)},
			want: "✅ Rule 'GLSL-002' added successfully.",
		},
		{
			name: "add duplicate",
			args: UpdateRulesArgs{Action: ActionAdd, RuleID: "GLSL-001", Severity: "WARNING", Description: "dup"},
			want: "❌ Error: Rule with ID 'GLSL-001' already exists.",
		},
		{
			name: "add without description",
			args: UpdateRulesArgs{Action: ActionAdd, RuleID: "X", Severity: "WARNING"},
			want: "❌ Error: severity and description are required",
		},
		{
			name: "add bad severity",
			args: UpdateRulesArgs{Action: ActionAdd, RuleID: "X", Severity: "critical", Description: "d"},
			want: "❌ Error:",
		},
		{
			name: "remove",
			args: UpdateRulesArgs{Action: ActionRemove, RuleID: "GLSL-001"},
			want: "✅ Rule 'GLSL-001' removed successfully.",
		},
		{
			name: "remove missing",
			args: UpdateRulesArgs{Action: ActionRemove, RuleID: "NOPE"},
			want: "❌ Error: Rule with ID 'NOPE' not found.",
		},
		{
			name: "missing rule id",
			args: UpdateRulesArgs{Action: ActionRemove},
			want: "❌ Error: rule_id is required for action 'remove'",
		},
		{
			name: "update description",
			args: UpdateRulesArgs{Action: ActionUpdate, RuleID: "GLSL-001", Description: "Always use float literals"},
			want: "✅ Rule 'GLSL-001' updated successfully.",
		},
		{
			name: "update without fields",
			args: UpdateRulesArgs{Action: ActionUpdate, RuleID: "GLSL-001"},
			want: "❌ Error: at least one of severity, description or weight is required",
		},
		{
			name: "update bad weight",
			args: UpdateRulesArgs{Action: ActionUpdate, RuleID: "GLSL-001", Weight: intPtr(101)},
			want: "❌ Error:",
		},
		{
			name: "add fractional weight",
			args: decodeUpdate(`{"action":"add","rule_id":"FRAC","severity":"WARNING","description":"d","weight":50.7}`),
			want: "❌ Error: Weight must be an integer between 0 and 100, got 50.7",
		},
		{
			name: "update fractional weight",
			args: decodeUpdate(`{"action":"update","rule_id":"GLSL-001","weight":12.5}`),
			want: "❌ Error: Weight must be an integer between 0 and 100, got 12.5",
		},
		{
			name: "update string weight",
			args: decodeUpdate(`{"action":"update","rule_id":"GLSL-001","weight":"heavy"}`),
			want: "❌ Error: Weight must be an integer",
		},
		{
			name: "add integral float weight",
			args: decodeUpdate(`{"action":"add","rule_id":"GLSL-003","severity":"PREFERENCE","description":"d","weight":40.0}`),
			want: "✅ Rule 'GLSL-003' added successfully.",
		},
		{
			name: "unknown action",
			args: UpdateRulesArgs{Action: "drop"},
			want: "❌ Error: Unknown action 'drop'. Valid actions: add, remove, update, list",
		},
		{
			name: "list",
			args: UpdateRulesArgs{Action: ActionList},
			want: "Current Audit Rules:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupHandler(t)
			got := h.UpdateRules(context.Background(), tt.args)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("got %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestFractionalWeightLeavesRulesUntouched(t *testing.T) {
	h, store := setupHandler(t)
	ctx := context.Background()

	out, err := h.Call(ctx, ToolUpdateRules, json.RawMessage(`{"action":"add","rule_id":"FRAC","severity":"WARNING","description":"d","weight":50.7}`))
	if err != nil {
		t.Fatalf("expected a rendered error, got call error %v", err)
	}
	if !strings.HasPrefix(out, "❌ Error: Weight must be an integer") {
		t.Errorf("unexpected result %q", out)
	}

	out, _ = h.Call(ctx, ToolUpdateRules, json.RawMessage(`{"action":"update","rule_id":"GLSL-001","severity":"WARNING","weight":0.5}`))
	if !strings.HasPrefix(out, "❌ Error:") {
		t.Errorf("unexpected result %q", out)
	}

	cfg := store.Snapshot()
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(cfg.Rules))
	}
	if r := cfg.Rules[0]; r.Weight != 50 || r.Severity != rules.SeverityCritical {
		t.Errorf("rule changed: %+v", r)
	}
}

func TestUpdateRulesCanSetZeroWeight(t *testing.T) {
	h, store := setupHandler(t)

	got := h.UpdateRules(context.Background(), UpdateRulesArgs{Action: ActionUpdate, RuleID: "GLSL-001", Weight: intPtr(0)})
	if !strings.HasPrefix(got, "✅") {
		t.Fatalf("update failed: %s", got)
	}

	if w := store.Snapshot().Rules[0].Weight; w != 0 {
		t.Errorf("expected weight 0, got %d", w)
	}
}

func TestUpdateRulesReloadsFromDisk(t *testing.T) {
	h, store := setupHandler(t)

	edited := strings.Replace(testDocument, "GLSL-001", "GLSL-100", 1)
	if err := os.WriteFile(store.Path(), []byte(edited), 0o644); err != nil {
		t.Fatalf("failed to edit rules: %v", err)
	}

	got := h.UpdateRules(context.Background(), UpdateRulesArgs{Action: ActionRemove, RuleID: "GLSL-100"})
	if !strings.HasPrefix(got, "✅") {
		t.Errorf("expected on-disk rule to be removable, got %s", got)
	}
}

func TestUpdateRulesReportsSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write blocker: %v", err)
	}

	store := rules.NewFileStore(filepath.Join(blocker, "rules.json"))
	h := NewHandler(controller.New(store), store, nil)

	got := h.UpdateRules(context.Background(), UpdateRulesArgs{Action: ActionAdd, RuleID: "A", Severity: "WARNING", Description: "d"})
	if !strings.HasPrefix(got, "❌ Error: save rules to") {
		t.Errorf("expected save failure, got %s", got)
	}

	if len(store.Snapshot().Rules) != 1 {
		t.Error("in-memory change must survive a failed save")
	}
}

func TestCallDispatchesEveryTool(t *testing.T) {
	h, _ := setupHandler(t)
	ctx := context.Background()

	out, err := h.Call(ctx, ToolSubmitDraft, json.RawMessage(`{"code":"float x = 5;","language":"glsl"}`))
	if err != nil || !strings.Contains(out, "CONTEXT ISOLATION MODE") {
		t.Fatalf("submit_draft: %v %q", err, out)
	}
	if !strings.Contains(out, "[CRITICAL] GLSL-001: Use float literals") {
		t.Error("audit prompt must include the rulebook")
	}

	out, err = h.Call(ctx, ToolSubmitAuditResult, json.RawMessage(`{"passed":false,"issues":["[CRITICAL] cast"],"score":30}`))
	if err != nil || !strings.HasSuffix(out, "Retry count: 1/2") {
		t.Fatalf("submit_audit_result: %v %q", err, out)
	}

	out, err = h.Call(ctx, ToolUpdateRules, json.RawMessage(`{"action":"list"}`))
	if err != nil || !strings.Contains(out, "1. [CRITICAL] GLSL-001") {
		t.Fatalf("update_rules: %v %q", err, out)
	}

	out, err = h.Call(ctx, ToolResetSession, nil)
	if err != nil || out != "✅ Session reset successfully." {
		t.Fatalf("reset_session: %v %q", err, out)
	}

	if _, err := h.Call(ctx, "delete_everything", nil); err == nil {
		t.Error("expected unknown tool error")
	}
	if _, err := h.Call(ctx, ToolSubmitDraft, json.RawMessage(`{"code":`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestHandleToolCall(t *testing.T) {
	h, _ := setupHandler(t)
	e := echo.New()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectSuccess  bool
		expectResult   string
	}{
		{
			name:           "submit draft",
			body:           `{"tool_name":"submit_draft","args":{"code":"x = 1"}}`,
			expectedStatus: http.StatusOK,
			expectSuccess:  true,
			expectResult:   "```python\nx = 1\n```",
		},
		{
			name:           "score floor",
			body:           `{"tool_name":"submit_audit_result","args":{"passed":true,"issues":[],"score":79}}`,
			expectedStatus: http.StatusOK,
			expectSuccess:  true,
			expectResult:   "[SYSTEM ENFORCEMENT] Score (79)",
		},
		{
			name:           "fractional weight",
			body:           `{"tool_name":"update_rules","args":{"action":"add","rule_id":"FRAC","severity":"WARNING","description":"d","weight":50.7}}`,
			expectedStatus: http.StatusOK,
			expectSuccess:  true,
			expectResult:   "❌ Error: Weight must be an integer between 0 and 100, got 50.7",
		},
		{
			name:           "missing tool name",
			body:           `{"args":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown tool",
			body:           `{"tool_name":"nope"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad args",
			body:           `{"tool_name":"submit_audit_result","args":{"score":"high"}}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/tool/call", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			if err := h.HandleToolCall(e.NewContext(req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var resp ToolCallResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Success != tt.expectSuccess {
				t.Errorf("expected success=%v, got %+v", tt.expectSuccess, resp)
			}
			if tt.expectResult != "" && !strings.Contains(resp.Result, tt.expectResult) {
				t.Errorf("result %q does not contain %q", resp.Result, tt.expectResult)
			}
		})
	}
}

func TestConcurrentToolCalls(t *testing.T) {
	h, _ := setupHandler(t)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			h.UpdateRules(ctx, UpdateRulesArgs{Action: ActionList})
			h.SubmitDraft(ctx, SubmitDraftArgs{Code: "x"})
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if h.controller.Session().Status != session.StatusAuditing {
		t.Errorf("unexpected status %s", h.controller.Session().Status)
	}
}
