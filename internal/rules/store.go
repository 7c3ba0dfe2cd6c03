package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const noRulesText = "No rules configured."

// FileStore keeps the rule set in memory and mirrors every mutation to a
// single JSON document.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	config Config
}

// NewFileStore returns a store holding the default configuration. Call Load
// to read the document.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		config: defaultConfig(),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load replaces the in-memory state with the document's contents, or with the
// default structure when the document does not exist. Nothing is written.
func (s *FileStore) Load() error {
	cfg, err := readDocument(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	log.Debug().Str("path", s.path).Int("rules", len(cfg.Rules)).Msg("rules loaded")
	return nil
}

func (s *FileStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *FileStore) AddRule(id string, severity Severity, description string, weight int) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) >= 0 {
		return &ValidationError{
			Kind:    ValidationDuplicateID,
			Message: fmt.Sprintf("Rule with ID '%s' already exists. Use update to modify it.", id),
		}
	}
	if err := validateSeverity(severity); err != nil {
		return err
	}
	if err := validateWeight(weight); err != nil {
		return err
	}

	s.config.Rules = append(s.config.Rules, Rule{
		ID:          id,
		Severity:    severity,
		Description: description,
		Weight:      weight,
	})
	log.Info().Str("rule", id).Str("severity", string(severity)).Msg("rule added")

	return s.saveLocked()
}

func (s *FileStore) RemoveRule(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return &NotFoundError{ID: id}
	}

	kept := s.config.Rules[:0]
	for _, r := range s.config.Rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.config.Rules = kept
	log.Info().Str("rule", id).Msg("rule removed")

	return s.saveLocked()
}

// UpdateRule validates every provided field before touching the rule, so a
// rejected update leaves it unchanged.
func (s *FileStore) UpdateRule(id string, update RuleUpdate) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return &NotFoundError{ID: id}
	}
	if err := validateUpdate(update); err != nil {
		return err
	}

	rule := &s.config.Rules[idx]
	if update.Severity != nil {
		rule.Severity = *update.Severity
	}
	if update.Description != nil {
		rule.Description = *update.Description
	}
	if update.Weight != nil {
		rule.Weight = *update.Weight
	}
	log.Info().Str("rule", id).Msg("rule updated")

	return s.saveLocked()
}

func (s *FileStore) ListRules() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.config.Rules) == 0 {
		return noRulesText
	}

	lines := []string{"Current Audit Rules:", ""}
	for i, r := range s.config.Rules {
		lines = append(lines,
			fmt.Sprintf("%d. [%s] %s", i+1, r.Severity, r.ID),
			fmt.Sprintf("   Description: %s", r.Description),
			fmt.Sprintf("   Weight: %d points", r.Weight),
			"",
		)
	}
	return strings.Join(lines, "\n")
}

func (s *FileStore) FormatRulesForPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.config.Rules) == 0 {
		return noRulesText
	}

	lines := make([]string, len(s.config.Rules))
	for i, r := range s.config.Rules {
		lines[i] = fmt.Sprintf("[%s] %s: %s", r.Severity, r.ID, r.Description)
	}
	return strings.Join(lines, "\n")
}

func (s *FileStore) MaxRetries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.MaxRetries
}

// Snapshot returns a deep copy of the current configuration.
func (s *FileStore) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.clone()
}

func (s *FileStore) indexLocked(id string) int {
	for i, r := range s.config.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) saveLocked() error {
	if err := writeDocument(s.path, s.config); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to persist rules")
		return err
	}
	return nil
}
