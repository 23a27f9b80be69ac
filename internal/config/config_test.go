package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig is a helper that writes a TOML config file to a temp
// directory and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

const validConfig = `
[editorial]
one_headline_keywords = ["eagles"]
similarity_threshold = 0.8
advisory_enabled = true
advisory_instruction = "Remove clickbait."

[ai]
provider = "openai"
api_key = "sk-test-key-123"
model = "gpt-4o-mini"

[server]
port = 9090

[[sources]]
name = "Example Gazette"
category = "news"
kind = "headline"
method = "feed"
url = "https://example.com/feed.xml"
min_words = 4
cant_contain = ["sponsored"]

[[sources]]
name = "Beach Status"
category = "beaches"
kind = "alert"
method = "api"
url = "https://example.com/api"
headline_field = "status"
daily_unique = true

[[recipients]]
name = "chris"
categories = ["news", "Beach Status"]
diagnostics = true
`

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	path := writeTestConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) unexpected error: %v", path, err)
	}

	if cfg.Editorial.SimilarityThreshold != 0.8 {
		t.Errorf("Editorial.SimilarityThreshold = %v, want 0.8", cfg.Editorial.SimilarityThreshold)
	}
	if len(cfg.Editorial.OneHeadlineKeywords) != 1 || cfg.Editorial.OneHeadlineKeywords[0] != "eagles" {
		t.Errorf("Editorial.OneHeadlineKeywords = %v", cfg.Editorial.OneHeadlineKeywords)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.APIKey != "sk-test-key-123" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(cfg.Sources))
	}
	gazette := cfg.Sources[0]
	if gazette.MinWords != 4 || len(gazette.CantContain) != 1 {
		t.Errorf("gazette policy = %+v", gazette)
	}
	beach := cfg.Sources[1]
	if beach.Kind != "alert" || !beach.DailyUnique {
		t.Errorf("beach source = %+v", beach)
	}

	if len(cfg.Recipients) != 1 || !cfg.Recipients[0].Diagnostics {
		t.Errorf("recipients = %+v", cfg.Recipients)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTestConfig(t, `
[[sources]]
name = "Example Gazette"
category = "news"
kind = "headline"
method = "feed"
url = "https://example.com/feed.xml"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Editorial.SimilarityThreshold != 0.75 {
		t.Errorf("SimilarityThreshold = %v, want default 0.75", cfg.Editorial.SimilarityThreshold)
	}
	if cfg.Editorial.RequestTimeoutSeconds != 30 {
		t.Errorf("RequestTimeoutSeconds = %d, want default 30", cfg.Editorial.RequestTimeoutSeconds)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("AI defaults = %+v", cfg.AI)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("default config not written: %v", statErr)
	}
	if len(cfg.Sources) == 0 {
		t.Error("default config has no sources")
	}
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("AI_API_KEY", "env-key")
	path := writeTestConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.AI.APIKey != "env-key" {
		t.Errorf("AI.APIKey = %q, want env override", cfg.AI.APIKey)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name: "bad provider",
			content: `
[ai]
provider = "llamacpp"
`,
			wantMsg: "ai.provider",
		},
		{
			name: "threshold out of range",
			content: `
[editorial]
similarity_threshold = 1.5
`,
			wantMsg: "similarity_threshold",
		},
		{
			name: "source missing name",
			content: `
[[sources]]
category = "news"
kind = "headline"
method = "feed"
url = "https://example.com/feed.xml"
`,
			wantMsg: "name is required",
		},
		{
			name: "invalid kind",
			content: `
[[sources]]
name = "x"
kind = "banner"
method = "feed"
url = "https://example.com/feed.xml"
`,
			wantMsg: "invalid kind",
		},
		{
			name: "feed without url",
			content: `
[[sources]]
name = "x"
kind = "headline"
method = "feed"
`,
			wantMsg: "url is required",
		},
		{
			name: "scrape without selector",
			content: `
[[sources]]
name = "x"
kind = "headline"
method = "scrape"
url = "https://example.com"
`,
			wantMsg: "selector",
		},
		{
			name: "static without message",
			content: `
[[sources]]
name = "x"
kind = "static"
method = "static"
`,
			wantMsg: "static_message",
		},
		{
			name: "duplicate source name",
			content: `
[[sources]]
name = "x"
kind = "headline"
method = "feed"
url = "https://example.com/a"

[[sources]]
name = "x"
kind = "headline"
method = "feed"
url = "https://example.com/b"
`,
			wantMsg: "duplicate source name",
		},
		{
			name: "advisory without instruction",
			content: `
[editorial]
advisory_enabled = true
advisory_instruction = ""
`,
			wantMsg: "advisory_instruction",
		},
		{
			name: "duplicate recipient",
			content: `
[[recipients]]
name = "chris"

[[recipients]]
name = "chris"
`,
			wantMsg: "duplicate recipient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSourcesFor(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	got := cfg.SourcesFor(cfg.Recipients[0])
	if len(got) != 2 {
		t.Fatalf("got %d sources, want 2: %+v", len(got), got)
	}
	if got[0].Name != "Example Gazette" || got[1].Name != "Beach Status" {
		t.Errorf("order = %q, %q", got[0].Name, got[1].Name)
	}

	// An alert source is selected by name, not category.
	other := Recipient{Name: "dana", Categories: []string{"beaches"}}
	if got := cfg.SourcesFor(other); len(got) != 0 {
		t.Errorf("alert matched by category: %+v", got)
	}
}
