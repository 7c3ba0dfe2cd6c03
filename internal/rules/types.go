package rules

type Severity string

const (
	SeverityCritical   Severity = "CRITICAL"
	SeverityWarning    Severity = "WARNING"
	SeverityPreference Severity = "PREFERENCE"
)

// ValidSeverities lists the accepted severities in display order.
var ValidSeverities = []Severity{SeverityCritical, SeverityWarning, SeverityPreference}

const (
	DefaultProjectName = "Unknown"
	DefaultMaxRetries  = 3
	MinWeight          = 0
	MaxWeight          = 100
)

// Rule is a named, weighted criterion used to justify score deductions.
type Rule struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Weight      int      `json:"weight"`
}

// Config is the full contents of the rules document.
type Config struct {
	ProjectName string `json:"project_name"`
	StrictMode  bool   `json:"strict_mode"`
	MaxRetries  int    `json:"max_retries"`
	Rules       []Rule `json:"rules"`
}

// RuleUpdate carries the fields of a partial update. Nil means "not provided".
type RuleUpdate struct {
	Severity    *Severity
	Description *string
	Weight      *int
}

// Empty reports whether no field was provided.
func (u RuleUpdate) Empty() bool {
	return u.Severity == nil && u.Description == nil && u.Weight == nil
}

// Source is the read side of the rule store used while auditing.
type Source interface {
	FormatRulesForPrompt() string
	MaxRetries() int
}

// Manager is the full rule store surface used by the tool layer.
type Manager interface {
	Source
	Load() error
	AddRule(id string, severity Severity, description string, weight int) error
	RemoveRule(id string) error
	UpdateRule(id string, update RuleUpdate) error
	ListRules() string
	Snapshot() Config
}

func defaultConfig() Config {
	return Config{
		ProjectName: DefaultProjectName,
		StrictMode:  true,
		MaxRetries:  DefaultMaxRetries,
		Rules:       []Rule{},
	}
}

func (c Config) clone() Config {
	out := c
	out.Rules = make([]Rule, len(c.Rules))
	copy(out.Rules, c.Rules)
	return out
}
