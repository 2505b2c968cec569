package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath          = "config.yaml"
	defaultServerAddr          = ":8080"
	defaultMaxBodyBytes        = 64 << 10
	defaultRateLimit           = 2.0
	defaultRateBurst           = 5
	defaultShutdownTimeout     = 10 * time.Second
	defaultClipSeconds         = 8
	defaultMinWords            = 150
	defaultMaxWords            = 250
	defaultSecretsSource       = "env"
	defaultRelayURL            = "http://localhost:8080"
	defaultClientTimeout       = 90 * time.Second
	defaultSavedNoticeDuration = 2 * time.Second
	defaultStorageBackend      = "file"
	defaultStoragePrefix       = "clipprompt"
	defaultProviderTimeout     = 60 * time.Second
	defaultGeminiModel         = "gemini-2.5-flash"
	defaultOpenAIModel         = "gpt-4o-mini"
	defaultGroqModel           = "llama-3.3-70b-versatile"
	defaultDeepSeekModel       = "deepseek-chat"
	defaultClaudeModel         = "claude-sonnet-4-5-20250929"
	defaultClaudeMaxTokens     = 1024
)

type Config struct {
	RelayAPIKey string
	GCPProject  string

	Server    ServerConfig    `yaml:"server"`
	Relay     RelayConfig     `yaml:"relay"`
	Providers ProvidersConfig `yaml:"providers"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Client    ClientConfig    `yaml:"client"`
	Storage   StorageConfig   `yaml:"storage"`
	Prompts   PromptsConfig   `yaml:"prompts"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RelayConfig struct {
	// MultiProvider lets requests choose a backend with selectedModel.
	MultiProvider   bool     `yaml:"multi_provider"`
	DefaultProvider string   `yaml:"default_provider"`
	Enabled         []string `yaml:"enabled"`
	ClipSeconds     int      `yaml:"clip_seconds"`
	MinWords        int      `yaml:"min_words"`
	MaxWords        int      `yaml:"max_words"`
}

type ProviderConfig struct {
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	CredentialKey string        `yaml:"credential_key"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxTokens     int           `yaml:"max_tokens"`
}

type ProvidersConfig struct {
	Gemini   ProviderConfig `yaml:"gemini"`
	OpenAI   ProviderConfig `yaml:"openai"`
	Groq     ProviderConfig `yaml:"groq"`
	DeepSeek ProviderConfig `yaml:"deepseek"`
	Claude   ProviderConfig `yaml:"claude"`
}

type SecretsConfig struct {
	Source          string `yaml:"source"` // "env", "secretmanager" or "both"
	Project         string `yaml:"project"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ClientConfig struct {
	RelayURL            string        `yaml:"relay_url"`
	Timeout             time.Duration `yaml:"timeout"`
	SavedNoticeDuration time.Duration `yaml:"saved_notice_duration"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // "file", "sqlite" or "gcs"
	Path    string `yaml:"path"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

type PromptsConfig struct {
	Path string `yaml:"path"`
}

// Load reads .env into the environment, overlays config.yaml and fills
// defaults. A missing config.yaml is not an error.
func Load(_ context.Context) (*Config, error) {
	return LoadFrom(defaultConfigPath)
}

func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		RelayAPIKey: os.Getenv("RELAY_API_KEY"),
		GCPProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(path, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLIPPROMPT_RELAY_URL"); v != "" {
		cfg.Client.RelayURL = v
	}
	if v := os.Getenv("PORT"); v != "" && cfg.Server.Addr == "" {
		cfg.Server.Addr = ":" + v
	}
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyRelayDefaults(cfg)
	applyProviderDefaults(cfg)
	applySecretsDefaults(cfg)
	applyClientDefaults(cfg)
	applyStorageDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = defaultRateLimit
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = defaultRateBurst
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

func applyRelayDefaults(cfg *Config) {
	if len(cfg.Relay.Enabled) == 0 {
		cfg.Relay.Enabled = []string{"gemini", "openai-gpt"}
	}
	if cfg.Relay.DefaultProvider == "" {
		cfg.Relay.DefaultProvider = cfg.Relay.Enabled[0]
	}
	if cfg.Relay.ClipSeconds == 0 {
		cfg.Relay.ClipSeconds = defaultClipSeconds
	}
	if cfg.Relay.MinWords == 0 {
		cfg.Relay.MinWords = defaultMinWords
	}
	if cfg.Relay.MaxWords == 0 {
		cfg.Relay.MaxWords = defaultMaxWords
	}
}

func applyProviderDefaults(cfg *Config) {
	p := &cfg.Providers
	setProvider(&p.Gemini, defaultGeminiModel, "GEMINI_API_KEY")
	setProvider(&p.OpenAI, defaultOpenAIModel, "OPENAI_API_KEY")
	setProvider(&p.Groq, defaultGroqModel, "GROQ_API_KEY")
	setProvider(&p.DeepSeek, defaultDeepSeekModel, "DEEPSEEK_API_KEY")
	setProvider(&p.Claude, defaultClaudeModel, "ANTHROPIC_API_KEY")
	if p.Claude.MaxTokens == 0 {
		p.Claude.MaxTokens = defaultClaudeMaxTokens
	}
}

func setProvider(p *ProviderConfig, model, credentialKey string) {
	if p.Model == "" {
		p.Model = model
	}
	if p.CredentialKey == "" {
		p.CredentialKey = credentialKey
	}
	if p.Timeout == 0 {
		p.Timeout = defaultProviderTimeout
	}
}

func applySecretsDefaults(cfg *Config) {
	if cfg.Secrets.Source == "" {
		cfg.Secrets.Source = defaultSecretsSource
	}
	if cfg.Secrets.Project == "" {
		cfg.Secrets.Project = cfg.GCPProject
	}
}

func applyClientDefaults(cfg *Config) {
	if cfg.Client.RelayURL == "" {
		cfg.Client.RelayURL = defaultRelayURL
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = defaultClientTimeout
	}
	if cfg.Client.SavedNoticeDuration == 0 {
		cfg.Client.SavedNoticeDuration = defaultSavedNoticeDuration
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaultStorageBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath(cfg.Storage.Backend)
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = defaultStoragePrefix
	}
}

func defaultStoragePath(backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "state.json"
	if backend == "sqlite" {
		name = "history.db"
	}
	return dir + string(os.PathSeparator) + "clipprompt" + string(os.PathSeparator) + name
}

func (c *Config) validate() error {
	switch c.Secrets.Source {
	case "env", "secretmanager", "both":
	default:
		return fmt.Errorf("unknown secrets source: %q", c.Secrets.Source)
	}
	if c.Secrets.Source != "env" && c.Secrets.Project == "" {
		return errors.New("secrets.project or GOOGLE_CLOUD_PROJECT is required for secret manager")
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
	case "gcs":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Relay.MinWords > c.Relay.MaxWords {
		return fmt.Errorf("relay.min_words (%d) exceeds relay.max_words (%d)", c.Relay.MinWords, c.Relay.MaxWords)
	}
	return nil
}

// Provider returns the settings block for a provider id.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	switch id {
	case "gemini":
		return c.Providers.Gemini, true
	case "openai-gpt":
		return c.Providers.OpenAI, true
	case "groq":
		return c.Providers.Groq, true
	case "deepseek":
		return c.Providers.DeepSeek, true
	case "claude":
		return c.Providers.Claude, true
	}
	return ProviderConfig{}, false
}
