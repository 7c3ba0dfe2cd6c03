package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// document mirrors the on-disk layout; MaxRetries is a pointer so an absent
// field can fall back to DefaultMaxRetries.
type document struct {
	ProjectName string `json:"project_name"`
	StrictMode  bool   `json:"strict_mode"`
	MaxRetries  *int   `json:"max_retries"`
	Rules       []Rule `json:"rules"`
}

func readDocument(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	if err != nil {
		return Config{}, &ConfigLoadError{Path: path, Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, &ConfigLoadError{Path: path, Err: fmt.Errorf("parse document: %w", err)}
	}

	cfg := Config{
		ProjectName: doc.ProjectName,
		StrictMode:  doc.StrictMode,
		MaxRetries:  DefaultMaxRetries,
		Rules:       doc.Rules,
	}
	if doc.MaxRetries != nil {
		cfg.MaxRetries = *doc.MaxRetries
	}
	if cfg.Rules == nil {
		cfg.Rules = []Rule{}
	}

	return cfg, nil
}

func encodeDocument(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	rules := cfg.Rules
	if rules == nil {
		rules = []Rule{}
	}
	maxRetries := cfg.MaxRetries
	doc := document{
		ProjectName: cfg.ProjectName,
		StrictMode:  cfg.StrictMode,
		MaxRetries:  &maxRetries,
		Rules:       rules,
	}

	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// writeDocument replaces the document atomically: write a sibling temp file,
// fsync, then rename over the target.
func writeDocument(path string, cfg Config) error {
	data, err := encodeDocument(cfg)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Path: path, Err: fmt.Errorf("create rules directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: fmt.Errorf("rename temp file: %w", err)}
	}

	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return nil
}
