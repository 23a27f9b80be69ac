// Package config loads and validates the publication configuration: the
// sources to harvest, per-source filter policies, editorial settings, and
// the recipient list. Configuration errors are fatal at load time, before
// any item is processed.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/cparmet/finite-news/internal/models"
)

// Config holds all publication configuration.
type Config struct {
	Editorial  EditorialConfig `toml:"editorial"`
	AI         AIConfig        `toml:"ai"`
	Server     ServerConfig    `toml:"server"`
	Sources    []Source        `toml:"sources"`
	Recipients []Recipient     `toml:"recipients"`
}

// EditorialConfig holds issue-wide filtering settings.
type EditorialConfig struct {
	// OneHeadlineKeywords caps each listed keyword to at most one
	// surviving headline per issue.
	OneHeadlineKeywords []string `toml:"one_headline_keywords"`

	// SimilarityThreshold flags a pair as duplicates when their semantic
	// similarity score is >= this value. Lower is more aggressive.
	SimilarityThreshold float64 `toml:"similarity_threshold"`

	// AdvisoryEnabled turns on the model-assisted filter pass.
	AdvisoryEnabled bool `toml:"advisory_enabled"`

	// AdvisoryInstruction is the task description sent along with the
	// headline list, e.g. "Remove headlines that are opinion or clickbait."
	AdvisoryInstruction string `toml:"advisory_instruction"`

	// RequestTimeoutSeconds bounds each external call (harvest, scoring).
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// AIConfig holds the scoring-provider settings.
type AIConfig struct {
	Provider       string `toml:"provider"` // "openai" or "anthropic"
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
}

// ServerConfig holds optional preview-server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Source describes one content source: where its items come from and the
// filter policy applied to them.
type Source struct {
	Name     string `toml:"name"`
	Category string `toml:"category"`
	Kind     string `toml:"kind"`   // headline | alert | image | event | static
	Method   string `toml:"method"` // feed | scrape | api | static

	URL           string `toml:"url"`
	Selector      string `toml:"selector"`       // CSS selector for scrape sources
	Extract       string `toml:"extract"`        // "" or "readability" for scrape sources
	HeadlineField string `toml:"headline_field"` // JSON field for api sources
	StaticMessage string `toml:"static_message"` // body for static sources
	Preface       string `toml:"preface"`

	// Filter policy.
	MinWords      int      `toml:"min_words"`
	MustContain   []string `toml:"must_contain"`
	CantContain   []string `toml:"cant_contain"`
	CantBeginWith []string `toml:"cant_begin_with"`
	CantEndWith   []string `toml:"cant_end_with"`
	RemoveText    string   `toml:"remove_text"`
	MaxItems      int      `toml:"max_items"`
	AllowedValues []string `toml:"allowed_values"`

	// SkipCrossDay opts the source out of cross-day suppression.
	SkipCrossDay bool `toml:"skip_cross_day"`
	// DailyUnique appends the calendar date to fingerprints so a
	// persistently-true condition is surfaced every day.
	DailyUnique bool `toml:"daily_unique"`
	// SuppressZeroWarning silences the "retrieved 0 items" warning for
	// sources that legitimately come up empty most days.
	SuppressZeroWarning bool `toml:"suppress_zero_warning"`
}

// Recipient describes one subscriber of the publication.
type Recipient struct {
	Name        string   `toml:"name"`
	Email       string   `toml:"email"`
	Categories  []string `toml:"categories"`
	Diagnostics bool     `toml:"diagnostics"`
}

const defaultConfigContent = `[editorial]
one_headline_keywords = []
similarity_threshold = 0.75      # pairs scoring >= this are duplicates; lower is more aggressive
advisory_enabled = false
advisory_instruction = "List the headlines above that are opinion pieces, clickbait, or redundant with an earlier headline. Return one headline per line, verbatim, and nothing else."
request_timeout_seconds = 30

[ai]
provider = "openai"              # "openai" or "anthropic"
api_key = ""                     # or set AI_API_KEY env var
model = "gpt-4o-mini"
embedding_model = "text-embedding-3-small"

[server]
port = 8080

[[sources]]
name = "Example Gazette"
category = "news"
kind = "headline"
method = "feed"
url = "https://example.com/feed.xml"
min_words = 4
max_items = 10

[[recipients]]
name = "example"
categories = ["news"]
diagnostics = true
`

// Load reads and parses the TOML config from the given path. If the file
// does not exist, it creates a default config file at that path.
// Environment variables override API keys with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Editorial.SimilarityThreshold == 0 {
		cfg.Editorial.SimilarityThreshold = 0.75
	}
	if cfg.Editorial.RequestTimeoutSeconds == 0 {
		cfg.Editorial.RequestTimeoutSeconds = 30
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// applyEnvOverrides applies environment variable overrides for the API
// key. AI_API_KEY takes priority over the provider-specific variables.
func applyEnvOverrides(cfg *Config) {
	switch cfg.AI.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	}

	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
}

// validate checks that the configuration is internally consistent. Any
// error here is fatal: a malformed policy must never surface mid-run as a
// per-item failure.
func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case "openai", "anthropic":
		// valid
	default:
		return fmt.Errorf("invalid ai.provider %q: must be \"openai\" or \"anthropic\"", cfg.AI.Provider)
	}

	if t := cfg.Editorial.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("invalid editorial.similarity_threshold %v: must be in (0, 1]", t)
	}
	if cfg.Editorial.AdvisoryEnabled && cfg.Editorial.AdvisoryInstruction == "" {
		return errors.New("editorial.advisory_instruction is required when advisory_enabled is true")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, src.Name)
		}
		seen[src.Name] = true

		if !models.Kind(src.Kind).Valid() {
			return fmt.Errorf("source %q: invalid kind %q", src.Name, src.Kind)
		}
		if src.MinWords < 0 {
			return fmt.Errorf("source %q: min_words must be >= 0", src.Name)
		}
		if src.MaxItems < 0 {
			return fmt.Errorf("source %q: max_items must be >= 0", src.Name)
		}

		switch src.Method {
		case "feed", "api":
			if src.URL == "" {
				return fmt.Errorf("source %q: url is required for method %q", src.Name, src.Method)
			}
		case "scrape":
			if src.URL == "" {
				return fmt.Errorf("source %q: url is required for method \"scrape\"", src.Name)
			}
			if src.Selector == "" && src.Extract != "readability" {
				return fmt.Errorf("source %q: scrape sources need a selector or extract = \"readability\"", src.Name)
			}
		case "static":
			if src.StaticMessage == "" {
				return fmt.Errorf("source %q: static_message is required for method \"static\"", src.Name)
			}
		default:
			return fmt.Errorf("source %q: invalid method %q", src.Name, src.Method)
		}
	}

	seenRecipients := make(map[string]bool, len(cfg.Recipients))
	for i, r := range cfg.Recipients {
		if r.Name == "" {
			return fmt.Errorf("recipients[%d]: name is required", i)
		}
		if seenRecipients[r.Name] {
			return fmt.Errorf("recipients[%d]: duplicate recipient name %q", i, r.Name)
		}
		seenRecipients[r.Name] = true
	}

	if cfg.Editorial.AdvisoryEnabled && cfg.AI.APIKey == "" {
		slog.Warn("advisory filter enabled but ai.api_key is empty: the advisory stage will degrade with a warning")
	}

	return nil
}

// SourcesFor returns the sources matching the recipient's selections,
// preserving the order of the selections and then the declared source
// order. Alert-kind sources are matched by name; all others by category.
func (c *Config) SourcesFor(r Recipient) []Source {
	var out []Source
	for _, want := range r.Categories {
		for _, src := range c.Sources {
			if src.Kind == string(models.KindAlert) {
				if src.Name == want {
					out = append(out, src)
				}
				continue
			}
			if src.Category == want {
				out = append(out, src)
			}
		}
	}
	return out
}
