package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dagbolade/blind-auditor/internal/audit"
	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/dagbolade/blind-auditor/internal/metrics"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/dagbolade/blind-auditor/internal/server"
	"github.com/dagbolade/blind-auditor/internal/session"
	"github.com/dagbolade/blind-auditor/internal/tools"
	"github.com/stretchr/testify/require"
)

const shaderRules = `{
  "project_name": "Shaders",
  "strict_mode": true,
  "max_retries": 2,
  "rules": [
    {"id": "GLSL-001", "severity": "CRITICAL", "description": "Use float literals in float context", "weight": 50},
    {"id": "GLSL-002", "severity": "WARNING", "description": "Name uniforms with the u_ prefix", "weight": 15}
  ]
}`

// TestEnvironment wires every component the way the serve command does and
// exposes the HTTP surface through httptest.
type TestEnvironment struct {
	Server     *server.Server
	Controller *controller.Controller
	RuleStore  *rules.FileStore
	AuditStore *audit.SQLiteStore
	Metrics    *metrics.Recorder
	Tools      *tools.Handler
	RulesPath  string
	DBPath     string
	HTTPServer *httptest.Server
	t          *testing.T
}

func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	tmpDir := t.TempDir()
	rulesPath := filepath.Join(tmpDir, "rules.json")
	dbPath := filepath.Join(tmpDir, "trail.db")

	require.NoError(t, os.WriteFile(rulesPath, []byte(shaderRules), 0644))

	store := rules.NewFileStore(rulesPath)
	require.NoError(t, store.Load())

	auditStore, err := audit.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	recorder := metrics.New()
	ctrl := controller.New(store, controller.WithTrail(auditStore), controller.WithMetrics(recorder))
	handler := tools.NewHandler(ctrl, store, recorder)

	srv := server.New(server.Config{ShutdownTimeout: 5}, server.Deps{
		Tools:      handler,
		Controller: ctrl,
		Rules:      store,
		Trail:      auditStore,
		Metrics:    recorder,
	})

	env := &TestEnvironment{
		Server:     srv,
		Controller: ctrl,
		RuleStore:  store,
		AuditStore: auditStore,
		Metrics:    recorder,
		Tools:      handler,
		RulesPath:  rulesPath,
		DBPath:     dbPath,
		HTTPServer: httptest.NewServer(srv.Handler()),
		t:          t,
	}

	t.Cleanup(func() {
		env.HTTPServer.Close()
		_ = env.Server.Shutdown(context.Background())
		_ = env.Controller.Close()
		_ = env.AuditStore.Close()
	})

	return env
}

func (e *TestEnvironment) BaseURL() string {
	return e.HTTPServer.URL
}

func (e *TestEnvironment) HTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// CallTool posts a tool call and returns the decoded response.
func (e *TestEnvironment) CallTool(name string, args any) (tools.ToolCallResponse, int) {
	e.t.Helper()

	raw, err := json.Marshal(args)
	require.NoError(e.t, err)
	body, err := json.Marshal(tools.ToolCallRequest{ToolName: name, Args: raw})
	require.NoError(e.t, err)

	resp, err := e.HTTPClient().Post(e.BaseURL()+"/tool/call", "application/json", bytes.NewReader(body))
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var out tools.ToolCallResponse
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return out, resp.StatusCode
}

// MustCallTool fails the test unless the call succeeds and returns the text.
func (e *TestEnvironment) MustCallTool(name string, args any) string {
	e.t.Helper()

	resp, status := e.CallTool(name, args)
	require.Equal(e.t, http.StatusOK, status, "tool %s failed: %s", name, resp.Error)
	require.True(e.t, resp.Success)
	return resp.Result
}

func (e *TestEnvironment) GetSession() session.Session {
	e.t.Helper()

	resp, err := e.HTTPClient().Get(e.BaseURL() + "/session")
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var s session.Session
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

// WaitForAuditEntries waits until the trail holds at least minCount entries.
func (e *TestEnvironment) WaitForAuditEntries(minCount int, timeout time.Duration) ([]audit.Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		entries, err := e.AuditStore.GetAll(context.Background())
		if err != nil {
			return nil, err
		}
		if len(entries) >= minCount {
			return entries, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for audit entries: have %d, want %d", len(entries), minCount)
		case <-ticker.C:
		}
	}
}

// AssertAuditEvents checks the trail holds exactly the given events, oldest
// first.
func AssertAuditEvents(t *testing.T, entries []audit.Entry, expected ...audit.Event) {
	t.Helper()

	got := make([]audit.Event, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		got = append(got, entries[i].Event)
	}
	require.Equal(t, expected, got)
}
