package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the single typed configuration structure for a briefcheck project.
// Every field has a documented default; nothing is read from loose maps.
type Config struct {
	Project       ProjectConfig       `yaml:"project"`
	CourtListener CourtListenerConfig `yaml:"courtlistener"`
	Converter     ConverterConfig     `yaml:"converter"`
	LLM           LLMConfig           `yaml:"llm"`
	Verify        VerifyConfig        `yaml:"verify"`
	Cache         CacheConfig         `yaml:"cache"`
	Output        OutputConfig        `yaml:"output"`
}

// ProjectConfig identifies the case and the working directory
type ProjectConfig struct {
	Dir        string `yaml:"dir"`         // Project directory (default ".")
	CaseNumber string `yaml:"case_number"` // Appellate case number (e.g., "01-23-00456-CR"); empty skips the fetch step
	Court      string `yaml:"court"`       // Court identifier for docket lookup (e.g., "texapp1")
}

// CourtListenerConfig holds CourtListener API access settings
type CourtListenerConfig struct {
	APIToken string `yaml:"api_token"` // Token from env COURTLISTENER_TOKEN if empty here
	BaseURL  string `yaml:"base_url"`  // Default https://www.courtlistener.com
	RPS      float64 `yaml:"rps"`      // Requests per second (default 2)
}

// ConverterConfig describes the external document-to-text collaborator
type ConverterConfig struct {
	Command string   `yaml:"command"` // Default "pdftotext"
	Args    []string `yaml:"args"`    // Extra args inserted before input/output paths
}

// LLMConfig configures the external reasoning service
type LLMConfig struct {
	Provider        string `yaml:"provider"`         // "openai", "anthropic", "cli"
	Model           string `yaml:"model"`            // Verification model
	ExtractionModel string `yaml:"extraction_model"` // Cheaper model for assertion extraction; falls back to Model
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Timeout         int    `yaml:"timeout"`    // Seconds per call (default 300)
	MaxTokens       int    `yaml:"max_tokens"` // Default 4096
}

// VerifyConfig tunes the verification engine
type VerifyConfig struct {
	Workers    int     `yaml:"workers"`     // Concurrent source workers (default 4)
	MaxRetries int     `yaml:"max_retries"` // Per-call retry bound (default 3)
	RPS        float64 `yaml:"rps"`         // Reasoning-service calls per second (default 1)
	TieBreak   string  `yaml:"tie_break"`   // Disambiguation tie-break: "newest" (default) or "oldest"
}

// CacheConfig controls response caching
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // Default <project>/.briefcheck_cache
	TTL     time.Duration `yaml:"ttl"` // Default 30 days
}

// OutputConfig controls report rendering and logging detail
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Dir: ".",
		},
		CourtListener: CourtListenerConfig{
			BaseURL: "https://www.courtlistener.com",
			RPS:     2,
		},
		Converter: ConverterConfig{
			Command: "pdftotext",
			Args:    []string{"-layout"},
		},
		LLM: LLMConfig{
			Provider:  "cli",
			Model:     "opus",
			Timeout:   300,
			MaxTokens: 4096,
		},
		Verify: VerifyConfig{
			Workers:    4,
			MaxRetries: 3,
			RPS:        1,
			TieBreak:   "newest",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     30 * 24 * time.Hour,
		},
	}
}

// Paths derived from the project directory.

func (c *Config) BriefsDir() string      { return filepath.Join(c.Project.Dir, "briefs") }
func (c *Config) AuthoritiesDir() string { return filepath.Join(c.Project.Dir, "authorities") }
func (c *Config) FilingsDir() string     { return filepath.Join(c.Project.Dir, "filings") }
func (c *Config) StateFile() string {
	return filepath.Join(c.Project.Dir, ".briefcheck_state.json")
}
func (c *Config) AuthoritiesFile() string { return filepath.Join(c.Project.Dir, "AUTHORITIES.md") }
func (c *Config) CitationsDB() string     { return filepath.Join(c.Project.Dir, "citations.db") }
func (c *Config) ReportFile() string      { return filepath.Join(c.Project.Dir, "CITECHECK.md") }
func (c *Config) ReportJSONFile() string  { return filepath.Join(c.Project.Dir, "citecheck.json") }
func (c *Config) AnalysisFile() string    { return filepath.Join(c.Project.Dir, "ISSUE_ANALYSIS.md") }
func (c *Config) MootQAFile() string      { return filepath.Join(c.Project.Dir, "MOOT_QA.md") }
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.Project.Dir, ".briefcheck_cache")
}

// ConfigurationError is fatal: bad paths or missing credentials, never retried
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Validate checks the parts of the configuration every invocation depends on
func (c *Config) Validate() error {
	if c.Project.Dir == "" {
		return &ConfigurationError{Field: "project.dir", Reason: "must not be empty"}
	}
	if c.Verify.Workers <= 0 {
		return &ConfigurationError{Field: "verify.workers", Reason: "must be positive"}
	}
	switch c.Verify.TieBreak {
	case "", "newest", "oldest":
	default:
		return &ConfigurationError{Field: "verify.tie_break", Reason: `must be "newest" or "oldest"`}
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "claude", "cli", "":
	default:
		return &ConfigurationError{Field: "llm.provider", Reason: "unknown provider " + c.LLM.Provider}
	}
	return nil
}
