package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRulesCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	t.Setenv("RULES_PATH", path)

	out, err := execute(t, "rules", "list")
	if err != nil || !strings.Contains(out, "No rules configured.") {
		t.Fatalf("list on empty store: %v %q", err, out)
	}

	out, err = execute(t, "rules", "add", "GLSL-001", "-s", "CRITICAL", "-d", "Use float literals", "-w", "50")
	if err != nil || !strings.Contains(out, "Rule 'GLSL-001' added successfully.") {
		t.Fatalf("add: %v %q", err, out)
	}

	if _, err := execute(t, "rules", "add", "GLSL-001", "-s", "CRITICAL", "-d", "dup"); err == nil {
		t.Error("expected duplicate id error")
	}

	if _, err := execute(t, "rules", "update", "GLSL-001", "-w", "0"); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err = execute(t, "rules", "list")
	if err != nil || !strings.Contains(out, "1. [CRITICAL] GLSL-001") || !strings.Contains(out, "Weight: 0 points") {
		t.Fatalf("list: %v %q", err, out)
	}

	if _, err := execute(t, "rules", "update", "GLSL-001"); err == nil {
		t.Error("expected error for update without fields")
	}

	if _, err := execute(t, "rules", "remove", "GLSL-001"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := execute(t, "rules", "remove", "GLSL-001"); err == nil {
		t.Error("expected not found error")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rules: %v", err)
	}
	if !strings.Contains(string(data), `"rules": []`) {
		t.Errorf("unexpected document: %s", data)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.HasPrefix(out, "blind-auditor ") {
		t.Errorf("version: %v %q", err, out)
	}
}

func TestServeRejectsBadTransport(t *testing.T) {
	if _, err := execute(t, "serve", "--transport", "grpc"); err == nil {
		t.Error("expected invalid transport error")
	}
}
