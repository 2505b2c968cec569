package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(orig) })
	_ = os.Chdir(tmp)
	return tmp
}

func TestLoadFromYAML(t *testing.T) {
	tmp := chdirTemp(t)

	yaml := `
server:
  addr: ":9090"
  rate_limit: 0.5
  cors_origins: ["https://example.com"]
relay:
  multi_provider: true
  enabled: [groq, claude]
providers:
  groq:
    model: test-model
  claude:
    base_url: http://localhost:9999
client:
  saved_notice_duration: 3s
storage:
  backend: sqlite
  path: ./history.db
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit != 0.5 {
		t.Errorf("Server.RateLimit = %v, want 0.5", cfg.Server.RateLimit)
	}
	if !cfg.Relay.MultiProvider {
		t.Error("Relay.MultiProvider = false, want true")
	}
	if cfg.Relay.DefaultProvider != "groq" {
		t.Errorf("Relay.DefaultProvider = %q, want groq", cfg.Relay.DefaultProvider)
	}
	if cfg.Providers.Groq.Model != "test-model" {
		t.Errorf("Groq.Model = %q, want test-model", cfg.Providers.Groq.Model)
	}
	if cfg.Providers.Claude.BaseURL != "http://localhost:9999" {
		t.Errorf("Claude.BaseURL = %q", cfg.Providers.Claude.BaseURL)
	}
	if cfg.Client.SavedNoticeDuration != 3*time.Second {
		t.Errorf("SavedNoticeDuration = %v, want 3s", cfg.Client.SavedNoticeDuration)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "./history.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "")
	t.Setenv("CLIPPROMPT_RELAY_URL", "")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr != defaultServerAddr {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Relay.MultiProvider {
		t.Error("Relay.MultiProvider should default to false")
	}
	if cfg.Relay.DefaultProvider != "gemini" {
		t.Errorf("Relay.DefaultProvider = %q, want gemini", cfg.Relay.DefaultProvider)
	}
	if cfg.Relay.ClipSeconds != 8 || cfg.Relay.MinWords != 150 || cfg.Relay.MaxWords != 250 {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if cfg.Providers.Gemini.CredentialKey != "GEMINI_API_KEY" {
		t.Errorf("Gemini.CredentialKey = %q", cfg.Providers.Gemini.CredentialKey)
	}
	if cfg.Providers.Claude.MaxTokens != defaultClaudeMaxTokens {
		t.Errorf("Claude.MaxTokens = %d", cfg.Providers.Claude.MaxTokens)
	}
	if cfg.Client.SavedNoticeDuration != 2*time.Second {
		t.Errorf("SavedNoticeDuration = %v", cfg.Client.SavedNoticeDuration)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Path == "" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
}

func TestLoadFromEnv(t *testing.T) {
	tmp := chdirTemp(t)

	_ = os.WriteFile(filepath.Join(tmp, ".env"), []byte("RELAY_API_KEY=from-dotenv\n"), 0644)
	t.Setenv("RELAY_API_KEY", "")
	_ = os.Unsetenv("RELAY_API_KEY")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("CLIPPROMPT_RELAY_URL", "https://relay.example.com")
	t.Setenv("PORT", "3000")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.RelayAPIKey != "from-dotenv" {
		t.Errorf("RelayAPIKey = %q, want from-dotenv", cfg.RelayAPIKey)
	}
	if cfg.GCPProject != "test-project" || cfg.Secrets.Project != "test-project" {
		t.Errorf("GCPProject = %q, Secrets.Project = %q", cfg.GCPProject, cfg.Secrets.Project)
	}
	if cfg.Client.RelayURL != "https://relay.example.com" {
		t.Errorf("Client.RelayURL = %q", cfg.Client.RelayURL)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Server.Addr = %q, want :3000", cfg.Server.Addr)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "badYAML", yaml: "server: [unclosed"},
		{name: "unknownSecretsSource", yaml: "secrets:\n  source: vault\n"},
		{name: "secretManagerWithoutProject", yaml: "secrets:\n  source: secretmanager\n"},
		{name: "unknownStorage", yaml: "storage:\n  backend: redis\n"},
		{name: "gcsWithoutBucket", yaml: "storage:\n  backend: gcs\n"},
		{name: "wordRange", yaml: "relay:\n  min_words: 300\n  max_words: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := chdirTemp(t)
			t.Setenv("GOOGLE_CLOUD_PROJECT", "")
			_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(tt.yaml), 0644)

			if _, err := Load(context.Background()); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestConfigProvider(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, id := range []string{"gemini", "openai-gpt", "groq", "deepseek", "claude"} {
		p, ok := cfg.Provider(id)
		if !ok || p.Model == "" || p.CredentialKey == "" {
			t.Errorf("Provider(%q) = %+v, %v", id, p, ok)
		}
	}
	if _, ok := cfg.Provider("mistral"); ok {
		t.Error("Provider(mistral) should not exist")
	}
}
