package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipprompt/internal/llm"
	"clipprompt/pkg/prompts"
)

const (
	DefaultClipSeconds = 8
	DefaultMinWords    = 150
	DefaultMaxWords    = 250
)

// Credentials resolves a provider credential by name at request time.
type Credentials interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// ClientFactory builds an upstream client for a single request.
type ClientFactory func(ctx context.Context, apiKey string) (llm.Client, error)

// Backend binds a provider to its credential and client constructor.
type Backend struct {
	Provider      Provider
	CredentialKey string
	NewClient     ClientFactory
}

type Options struct {
	Backends    []Backend
	Credentials Credentials
	Prompts     *prompts.Prompts

	// MultiProvider makes selectedModel mandatory and lets it pick the
	// backend. When false every request goes to DefaultProvider.
	MultiProvider   bool
	DefaultProvider Provider

	ClipSeconds int
	MinWords    int
	MaxWords    int

	Logger *slog.Logger
}

// Relay turns enhancement requests into exactly one upstream generation call.
// It holds no per-request state and is safe for concurrent use.
type Relay struct {
	backends    map[Provider]Backend
	order       []Provider
	credentials Credentials
	prompts     *prompts.Prompts
	multi       bool
	fixed       Provider
	clipSeconds int
	minWords    int
	maxWords    int
	logger      *slog.Logger
}

func NewRelay(opts Options) (*Relay, error) {
	if len(opts.Backends) == 0 {
		return nil, errors.New("no backends configured")
	}
	if opts.Credentials == nil {
		return nil, errors.New("credentials source is required")
	}
	if opts.Prompts == nil {
		return nil, errors.New("prompts are required")
	}

	backends := make(map[Provider]Backend, len(opts.Backends))
	for _, b := range opts.Backends {
		if _, ok := providerInfos[b.Provider]; !ok {
			return nil, fmt.Errorf("unsupported backend provider: %q", b.Provider)
		}
		if b.NewClient == nil {
			return nil, fmt.Errorf("backend %s has no client factory", b.Provider)
		}
		if _, dup := backends[b.Provider]; dup {
			return nil, fmt.Errorf("duplicate backend: %s", b.Provider)
		}
		backends[b.Provider] = b
	}

	var order []Provider
	for _, p := range Providers {
		if _, ok := backends[p]; ok {
			order = append(order, p)
		}
	}

	fixed := opts.DefaultProvider
	if fixed == "" {
		fixed = order[0]
	}
	if _, ok := backends[fixed]; !ok {
		return nil, fmt.Errorf("default provider %s is not enabled", fixed)
	}

	r := &Relay{
		backends:    backends,
		order:       order,
		credentials: opts.Credentials,
		prompts:     opts.Prompts,
		multi:       opts.MultiProvider,
		fixed:       fixed,
		clipSeconds: opts.ClipSeconds,
		minWords:    opts.MinWords,
		maxWords:    opts.MaxWords,
		logger:      opts.Logger,
	}
	applyRelayDefaults(r)
	return r, nil
}

func applyRelayDefaults(r *Relay) {
	if r.clipSeconds <= 0 {
		r.clipSeconds = DefaultClipSeconds
	}
	if r.minWords <= 0 {
		r.minWords = DefaultMinWords
	}
	if r.maxWords < r.minWords {
		r.maxWords = DefaultMaxWords
		if r.maxWords < r.minWords {
			r.maxWords = r.minWords
		}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
}

func (r *Relay) MultiProvider() bool { return r.multi }

func (r *Relay) DefaultProvider() Provider { return r.fixed }

// Enabled returns the providers this relay can serve, in menu order.
func (r *Relay) Enabled() []Provider {
	return append([]Provider(nil), r.order...)
}

type ProviderStatus struct {
	Provider  Provider
	Name      string
	Available bool
}

// Status reports which enabled providers currently have a credential.
// Missing credentials are not errors here.
func (r *Relay) Status(ctx context.Context) []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.order))
	for _, p := range r.order {
		b := r.backends[p]
		_, err := r.credentials.Lookup(ctx, b.CredentialKey)
		out = append(out, ProviderStatus{
			Provider:  p,
			Name:      p.Name(),
			Available: err == nil,
		})
	}
	return out
}

// Enhance validates raw, picks a backend, checks its credential, renders the
// family template and performs a single upstream call. Every failure is
// returned as *Error.
func (r *Relay) Enhance(ctx context.Context, raw RawRequest) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic during enhancement", "panic", rec)
			res = nil
			err = &Error{Category: CategoryUnknown, Message: msgUnknown, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	req, err := r.validate(raw)
	if err != nil {
		return nil, err
	}

	backend := r.backends[req.Provider]

	apiKey, err := r.credentials.Lookup(ctx, backend.CredentialKey)
	if err != nil || apiKey == "" {
		r.logger.Error("credential lookup failed", "provider", req.Provider, "credential", backend.CredentialKey, "error", err)
		return nil, configurationError(err)
	}

	family := string(req.Provider.Family())
	prompt, err := r.prompts.RenderEnhance(family, prompts.EnhanceParams{
		Idea:        req.Idea,
		Tone:        req.Tone.Label(),
		PointOfView: req.PointOfView.Label(),
		ClipSeconds: r.clipSeconds,
		MinWords:    r.minWords,
		MaxWords:    r.maxWords,
	})
	if err != nil {
		return nil, &Error{Category: CategoryUnknown, Message: msgUnknown, Err: fmt.Errorf("render prompt: %w", err)}
	}

	client, err := backend.NewClient(ctx, apiKey)
	if err != nil {
		return nil, upstreamError("Failed to get response from AI: "+err.Error(), err)
	}

	start := time.Now()
	text, err := client.Generate(ctx, r.prompts.SystemFor(family), prompt)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, upstreamError(msgEmptyResponse, err)
		}
		r.logger.Warn("upstream call failed", "provider", req.Provider, "error", err)
		return nil, upstreamError("Failed to get response from AI: "+err.Error(), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, upstreamError(msgEmptyResponse, llm.ErrEmptyResponse)
	}

	r.logger.Debug("enhancement complete", "provider", req.Provider, "model", client.Model(), "elapsed", elapsed)

	return &Result{
		Text:     text,
		Provider: req.Provider,
		Model:    client.Model(),
		Elapsed:  elapsed,
	}, nil
}

func (r *Relay) validate(raw RawRequest) (Request, error) {
	var missing []string
	if strings.TrimSpace(raw.UserPrompt) == "" {
		missing = append(missing, "userPrompt")
	}
	if strings.TrimSpace(raw.ContentTone) == "" {
		missing = append(missing, "contentTone")
	}
	if strings.TrimSpace(raw.POV) == "" {
		missing = append(missing, "pov")
	}
	if r.multi && strings.TrimSpace(raw.SelectedModel) == "" {
		missing = append(missing, "selectedModel")
	}
	if len(missing) > 0 {
		return Request{}, validationError("Missing required parameters: "+strings.Join(missing, ", "), nil)
	}

	tone, err := ParseTone(raw.ContentTone)
	if err != nil {
		return Request{}, validationError(capitalize(err.Error()), err)
	}
	pov, err := ParsePointOfView(raw.POV)
	if err != nil {
		return Request{}, validationError(capitalize(err.Error()), err)
	}

	provider := r.fixed
	if r.multi {
		provider, err = ParseProvider(raw.SelectedModel)
		if err != nil {
			return Request{}, validationError(capitalize(err.Error()), err)
		}
		if _, ok := r.backends[provider]; !ok {
			return Request{}, validationError(fmt.Sprintf("Unsupported model: %q", raw.SelectedModel), nil)
		}
	}

	return Request{
		Idea:        strings.TrimSpace(raw.UserPrompt),
		Tone:        tone,
		PointOfView: pov,
		Provider:    provider,
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
