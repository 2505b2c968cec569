package app

import (
	"context"
	"fmt"
	"log/slog"

	"clipprompt/internal/enhance"
	"clipprompt/internal/llm"
	"clipprompt/internal/llm/claude"
	"clipprompt/internal/llm/gemini"
	"clipprompt/internal/llm/groq"
	"clipprompt/internal/llm/openai"
	"clipprompt/internal/secrets"
	"clipprompt/pkg/config"
	"clipprompt/pkg/prompts"
)

// BuildResult holds the relay and whatever must be released on shutdown.
type BuildResult struct {
	Relay   *enhance.Relay
	closers []func() error
}

func (r *BuildResult) Close() {
	for _, c := range r.closers {
		if err := c(); err != nil {
			slog.Warn("Failed to release resource", "error", err)
		}
	}
}

func BuildRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*BuildResult, error) {
	p, err := loadPrompts(cfg)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{}
	creds, err := buildCredentials(ctx, cfg, result)
	if err != nil {
		return nil, err
	}

	relay, err := newRelay(cfg, creds, p, logger)
	if err != nil {
		result.Close()
		return nil, err
	}

	result.Relay = relay
	return result, nil
}

func newRelay(cfg *config.Config, creds secrets.Source, p *prompts.Prompts, logger *slog.Logger) (*enhance.Relay, error) {
	backends, err := BuildBackends(cfg)
	if err != nil {
		return nil, err
	}

	defaultProvider, err := enhance.ParseProvider(cfg.Relay.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("relay.default_provider: %w", err)
	}

	return enhance.NewRelay(enhance.Options{
		Backends:        backends,
		Credentials:     creds,
		Prompts:         p,
		MultiProvider:   cfg.Relay.MultiProvider,
		DefaultProvider: defaultProvider,
		ClipSeconds:     cfg.Relay.ClipSeconds,
		MinWords:        cfg.Relay.MinWords,
		MaxWords:        cfg.Relay.MaxWords,
		Logger:          logger,
	})
}

func loadPrompts(cfg *config.Config) (*prompts.Prompts, error) {
	if cfg.Prompts.Path != "" {
		return prompts.LoadFrom(cfg.Prompts.Path)
	}
	return prompts.Load()
}

// credentialFallbacks keeps the older single-key variable working for Gemini.
var credentialFallbacks = map[string][]string{
	"GEMINI_API_KEY": {"API_KEY"},
}

func buildCredentials(ctx context.Context, cfg *config.Config, result *BuildResult) (secrets.Source, error) {
	env := secrets.NewEnvSource(credentialFallbacks)
	if cfg.Secrets.Source == "env" {
		return env, nil
	}

	sm, err := secrets.NewSecretManagerSource(ctx, cfg.Secrets.Project, cfg.Secrets.CredentialsFile)
	if err != nil {
		return nil, err
	}
	result.closers = append(result.closers, sm.Close)

	if cfg.Secrets.Source == "secretmanager" {
		return sm, nil
	}
	return secrets.Chain{env, sm}, nil
}

// BuildBackends maps every enabled provider onto a client factory. The key is
// handed over per request so a rotated credential is picked up without a
// restart.
func BuildBackends(cfg *config.Config) ([]enhance.Backend, error) {
	backends := make([]enhance.Backend, 0, len(cfg.Relay.Enabled))
	for _, id := range cfg.Relay.Enabled {
		provider, err := enhance.ParseProvider(id)
		if err != nil {
			return nil, fmt.Errorf("relay.enabled: %w", err)
		}
		pc, _ := cfg.Provider(string(provider))

		backends = append(backends, enhance.Backend{
			Provider:      provider,
			CredentialKey: pc.CredentialKey,
			NewClient:     clientFactory(provider, pc),
		})
	}
	return backends, nil
}

func clientFactory(provider enhance.Provider, pc config.ProviderConfig) enhance.ClientFactory {
	switch provider {
	case enhance.ProviderGemini:
		return func(ctx context.Context, apiKey string) (llm.Client, error) {
			return gemini.NewClient(ctx, apiKey, gemini.Options{Model: pc.Model, BaseURL: pc.BaseURL})
		}
	case enhance.ProviderGroq:
		return func(_ context.Context, apiKey string) (llm.Client, error) {
			return groq.NewClient(apiKey, groq.Options{Model: pc.Model, BaseURL: pc.BaseURL})
		}
	case enhance.ProviderClaude:
		return func(_ context.Context, apiKey string) (llm.Client, error) {
			return claude.NewClient(apiKey, claude.Options{
				Model:     pc.Model,
				BaseURL:   pc.BaseURL,
				MaxTokens: pc.MaxTokens,
				Timeout:   pc.Timeout,
			}), nil
		}
	case enhance.ProviderDeepSeek:
		if pc.BaseURL == "" {
			pc.BaseURL = openai.DeepSeekBaseURL
		}
	}
	return func(_ context.Context, apiKey string) (llm.Client, error) {
		return openai.NewClient(apiKey, openai.Options{
			Model:   pc.Model,
			BaseURL: pc.BaseURL,
			Timeout: pc.Timeout,
		}), nil
	}
}
