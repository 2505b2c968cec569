package enhance

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"clipprompt/internal/llm"
	"clipprompt/pkg/prompts"
)

type stubClient struct {
	text   string
	err    error
	panics bool
	calls  *atomic.Int32

	gotSystem string
	gotPrompt string
}

func (s *stubClient) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls.Add(1)
	s.gotSystem = systemPrompt
	s.gotPrompt = userPrompt
	if s.panics {
		panic("boom")
	}
	return s.text, s.err
}

func (s *stubClient) Model() string { return "stub-model" }

type mapCredentials map[string]string

func (m mapCredentials) Lookup(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok || v == "" {
		return "", errors.New("not set")
	}
	return v, nil
}

type fixture struct {
	relay   *Relay
	calls   map[Provider]*atomic.Int32
	clients map[Provider]*stubClient
	keys    map[Provider]string
}

func newFixture(t *testing.T, multi bool, creds mapCredentials, stubs map[Provider]*stubClient) *fixture {
	t.Helper()

	p, err := prompts.Default()
	if err != nil {
		t.Fatalf("prompts.Default() error = %v", err)
	}

	f := &fixture{
		calls:   make(map[Provider]*atomic.Int32),
		clients: stubs,
		keys:    make(map[Provider]string),
	}

	var backends []Backend
	for _, provider := range Providers {
		stub, ok := stubs[provider]
		if !ok {
			continue
		}
		counter := &atomic.Int32{}
		stub.calls = counter
		f.calls[provider] = counter
		key := strings.ToUpper(strings.ReplaceAll(string(provider), "-", "_")) + "_API_KEY"
		f.keys[provider] = key
		backends = append(backends, Backend{
			Provider:      provider,
			CredentialKey: key,
			NewClient: func(_ context.Context, apiKey string) (llm.Client, error) {
				if apiKey == "" {
					t.Fatalf("client for %s built without a credential", provider)
				}
				return stub, nil
			},
		})
	}

	relay, err := NewRelay(Options{
		Backends:      backends,
		Credentials:   creds,
		Prompts:       p,
		MultiProvider: multi,
	})
	if err != nil {
		t.Fatalf("NewRelay() error = %v", err)
	}
	f.relay = relay
	return f
}

func (f *fixture) totalCalls() int32 {
	var n int32
	for _, c := range f.calls {
		n += c.Load()
	}
	return n
}

func TestRelayEnhanceSuccess(t *testing.T) {
	f := newFixture(t, false,
		mapCredentials{"GEMINI_API_KEY": "key"},
		map[Provider]*stubClient{ProviderGemini: {text: "  A golden retriever bounds across a sunlit park.  "}},
	)

	res, err := f.relay.Enhance(context.Background(), RawRequest{
		UserPrompt:  "A dog in a park",
		ContentTone: "Dramatic",
		POV:         "ThirdPerson",
	})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if res.Text != "A golden retriever bounds across a sunlit park." {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Provider != ProviderGemini {
		t.Errorf("Provider = %s, want gemini", res.Provider)
	}
	if res.Model != "stub-model" {
		t.Errorf("Model = %s", res.Model)
	}
	if got := f.calls[ProviderGemini].Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	prompt := f.clients[ProviderGemini].gotPrompt
	for _, want := range []string{"A dog in a park", "dramatic", "third-person", "8-second", "150-250"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRelayEnhanceChatFamilyUsesSystemPrompt(t *testing.T) {
	f := newFixture(t, true,
		mapCredentials{"GROQ_API_KEY": "key"},
		map[Provider]*stubClient{
			ProviderGemini: {text: "unused"},
			ProviderGroq:   {text: "groq output"},
		},
	)

	res, err := f.relay.Enhance(context.Background(), RawRequest{
		UserPrompt:    "A storm over the sea",
		ContentTone:   "Suspenseful",
		POV:           "aerial",
		SelectedModel: "groq",
	})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if res.Text != "groq output" {
		t.Errorf("Text = %q", res.Text)
	}
	stub := f.clients[ProviderGroq]
	if stub.gotSystem == "" {
		t.Error("chat family should send a system prompt")
	}
	if !strings.Contains(stub.gotPrompt, "Output only the expanded prompt") {
		t.Errorf("chat prompt missing output instruction: %q", stub.gotPrompt)
	}
	if f.calls[ProviderGemini].Load() != 0 {
		t.Error("gemini backend should not be called")
	}
}

func TestRelayEnhanceErrors(t *testing.T) {
	valid := RawRequest{UserPrompt: "A dog in a park", ContentTone: "Dramatic", POV: "ThirdPerson", SelectedModel: "gemini"}

	tests := []struct {
		name      string
		multi     bool
		creds     mapCredentials
		stub      *stubClient
		req       RawRequest
		wantCat   Category
		wantMsg   string
		wantCalls int32
	}{
		{
			name:    "missingCredential",
			creds:   mapCredentials{},
			stub:    &stubClient{text: "ok"},
			req:     valid,
			wantCat: CategoryConfiguration,
			wantMsg: "Server configuration error: API key not found.",
		},
		{
			name:      "emptyUpstreamText",
			creds:     mapCredentials{"GEMINI_API_KEY": "key"},
			stub:      &stubClient{text: "   "},
			req:       valid,
			wantCat:   CategoryUpstream,
			wantMsg:   "The AI returned an empty response.",
			wantCalls: 1,
		},
		{
			name:      "clientReportsEmpty",
			creds:     mapCredentials{"GEMINI_API_KEY": "key"},
			stub:      &stubClient{err: llm.ErrEmptyResponse},
			req:       valid,
			wantCat:   CategoryUpstream,
			wantMsg:   "The AI returned an empty response.",
			wantCalls: 1,
		},
		{
			name:      "upstreamFailure",
			creds:     mapCredentials{"GEMINI_API_KEY": "key"},
			stub:      &stubClient{err: errors.New("rate limit exceeded")},
			req:       valid,
			wantCat:   CategoryUpstream,
			wantMsg:   "Failed to get response from AI: rate limit exceeded",
			wantCalls: 1,
		},
		{
			name:    "blankIdea",
			creds:   mapCredentials{"GEMINI_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "   ", ContentTone: "Dramatic", POV: "ThirdPerson"},
			wantCat: CategoryValidation,
			wantMsg: "Missing required parameters: userPrompt",
		},
		{
			name:    "missingToneAndPOV",
			creds:   mapCredentials{"GEMINI_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "idea"},
			wantCat: CategoryValidation,
			wantMsg: "Missing required parameters: contentTone, pov",
		},
		{
			name:    "unknownTone",
			creds:   mapCredentials{"GEMINI_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "idea", ContentTone: "Angry", POV: "ThirdPerson"},
			wantCat: CategoryValidation,
		},
		{
			name:    "unknownPOV",
			creds:   mapCredentials{"GEMINI_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "idea", ContentTone: "Neutral", POV: "Underwater"},
			wantCat: CategoryValidation,
		},
		{
			name:    "unsupportedSelectedModel",
			multi:   true,
			creds:   mapCredentials{"GEMINI_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "idea", ContentTone: "Neutral", POV: "ThirdPerson", SelectedModel: "llama-local"},
			wantCat: CategoryValidation,
		},
		{
			name:    "knownButDisabledModel",
			multi:   true,
			creds:   mapCredentials{"GEMINI_API_KEY": "key", "CLAUDE_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "idea", ContentTone: "Neutral", POV: "ThirdPerson", SelectedModel: "claude"},
			wantCat: CategoryValidation,
		},
		{
			name:    "missingSelectedModelInMultiMode",
			multi:   true,
			creds:   mapCredentials{"GEMINI_API_KEY": "key"},
			stub:    &stubClient{text: "ok"},
			req:     RawRequest{UserPrompt: "idea", ContentTone: "Neutral", POV: "ThirdPerson"},
			wantCat: CategoryValidation,
			wantMsg: "Missing required parameters: selectedModel",
		},
		{
			name:      "panicIsUnknown",
			creds:     mapCredentials{"GEMINI_API_KEY": "key"},
			stub:      &stubClient{panics: true},
			req:       valid,
			wantCat:   CategoryUnknown,
			wantMsg:   "An unknown error occurred.",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.multi, tt.creds, map[Provider]*stubClient{ProviderGemini: tt.stub})

			res, err := f.relay.Enhance(context.Background(), tt.req)
			if err == nil {
				t.Fatalf("Enhance() = %+v, want error", res)
			}
			if res != nil {
				t.Errorf("Enhance() result = %+v, want nil", res)
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error %T is not *Error", err)
			}
			if e.Category != tt.wantCat {
				t.Errorf("Category = %s, want %s", e.Category, tt.wantCat)
			}
			if tt.wantMsg != "" && e.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", e.Message, tt.wantMsg)
			}
			if got := f.totalCalls(); got != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRelaySingleProviderIgnoresSelectedModel(t *testing.T) {
	f := newFixture(t, false,
		mapCredentials{"GEMINI_API_KEY": "key", "OPENAI_GPT_API_KEY": "key"},
		map[Provider]*stubClient{
			ProviderGemini: {text: "from gemini"},
			ProviderOpenAI: {text: "from openai"},
		},
	)

	res, err := f.relay.Enhance(context.Background(), RawRequest{
		UserPrompt:    "idea",
		ContentTone:   "Neutral",
		POV:           "ThirdPerson",
		SelectedModel: "does-not-exist",
	})
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if res.Provider != ProviderGemini || res.Text != "from gemini" {
		t.Errorf("Enhance() = %+v, want gemini result", res)
	}
	if f.calls[ProviderOpenAI].Load() != 0 {
		t.Error("openai backend should not be called in single-provider mode")
	}
}

func TestRelayFactoryErrorIsUpstream(t *testing.T) {
	p, _ := prompts.Default()
	relay, err := NewRelay(Options{
		Backends: []Backend{{
			Provider:      ProviderClaude,
			CredentialKey: "ANTHROPIC_API_KEY",
			NewClient: func(context.Context, string) (llm.Client, error) {
				return nil, errors.New("dial failed")
			},
		}},
		Credentials: mapCredentials{"ANTHROPIC_API_KEY": "key"},
		Prompts:     p,
	})
	if err != nil {
		t.Fatalf("NewRelay() error = %v", err)
	}

	_, err = relay.Enhance(context.Background(), RawRequest{UserPrompt: "idea", ContentTone: "Neutral", POV: "Dolly"})
	if CategoryOf(err) != CategoryUpstream {
		t.Errorf("CategoryOf() = %s, want upstream", CategoryOf(err))
	}
	if AsError(err).Status() != 500 {
		t.Errorf("Status() = %d, want 500", AsError(err).Status())
	}
}

func TestNewRelayValidation(t *testing.T) {
	p, _ := prompts.Default()
	factory := func(context.Context, string) (llm.Client, error) { return nil, nil }

	tests := []struct {
		name string
		opts Options
	}{
		{name: "noBackends", opts: Options{Credentials: mapCredentials{}, Prompts: p}},
		{name: "noCredentials", opts: Options{Backends: []Backend{{Provider: ProviderGemini, NewClient: factory}}, Prompts: p}},
		{name: "noPrompts", opts: Options{Backends: []Backend{{Provider: ProviderGemini, NewClient: factory}}, Credentials: mapCredentials{}}},
		{name: "unknownProvider", opts: Options{Backends: []Backend{{Provider: "mistral", NewClient: factory}}, Credentials: mapCredentials{}, Prompts: p}},
		{name: "noFactory", opts: Options{Backends: []Backend{{Provider: ProviderGemini}}, Credentials: mapCredentials{}, Prompts: p}},
		{name: "duplicate", opts: Options{Backends: []Backend{{Provider: ProviderGemini, NewClient: factory}, {Provider: ProviderGemini, NewClient: factory}}, Credentials: mapCredentials{}, Prompts: p}},
		{name: "defaultNotEnabled", opts: Options{Backends: []Backend{{Provider: ProviderGemini, NewClient: factory}}, Credentials: mapCredentials{}, Prompts: p, DefaultProvider: ProviderGroq}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRelay(tt.opts); err == nil {
				t.Error("NewRelay() expected error")
			}
		})
	}
}

func TestRelayStatusAndEnabled(t *testing.T) {
	f := newFixture(t, true,
		mapCredentials{"GROQ_API_KEY": "key"},
		map[Provider]*stubClient{
			ProviderGroq:   {text: "x"},
			ProviderGemini: {text: "x"},
		},
	)

	enabled := f.relay.Enabled()
	if len(enabled) != 2 || enabled[0] != ProviderGemini || enabled[1] != ProviderGroq {
		t.Errorf("Enabled() = %v, want [gemini groq]", enabled)
	}
	if f.relay.DefaultProvider() != ProviderGemini {
		t.Errorf("DefaultProvider() = %s", f.relay.DefaultProvider())
	}

	status := f.relay.Status(context.Background())
	if len(status) != 2 {
		t.Fatalf("Status() len = %d", len(status))
	}
	if status[0].Available {
		t.Error("gemini has no credential and should be unavailable")
	}
	if !status[1].Available || status[1].Name != "Groq" {
		t.Errorf("groq status = %+v", status[1])
	}
	if f.totalCalls() != 0 {
		t.Error("Status() must not call upstream")
	}
}
