package claude

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipprompt/internal/llm"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected /v1/messages, got %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-test" {
			t.Errorf("x-api-key: got %q, want %q", got, "sk-test")
		}
		if got := r.Header.Get("anthropic-version"); got != apiVersion {
			t.Errorf("anthropic-version: got %q, want %q", got, apiVersion)
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != "Be vivid." {
			t.Errorf("system: got %q, want %q", req.System, "Be vivid.")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("messages: got %+v", req.Messages)
		}
		if req.MaxTokens != defaultMaxTokens {
			t.Errorf("max_tokens: got %d, want %d", req.MaxTokens, defaultMaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{
				{Type: "text", Text: "Low-angle tracking shot "},
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: "of a dog."},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("sk-test", Options{BaseURL: srv.URL})

	got, err := client.Generate(context.Background(), "Be vivid.", "a dog")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Low-angle tracking shot of a dog." {
		t.Errorf("got %q", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantContain string
		wantEmpty   bool
	}{
		{
			name:        "apiErrorMessage",
			status:      http.StatusBadRequest,
			body:        `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`,
			wantContain: "API error: max_tokens too large",
		},
		{
			name:        "statusWithoutMessage",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantContain: "unexpected status 502",
		},
		{
			name:      "noTextBlocks",
			status:    http.StatusOK,
			body:      `{"content":[]}`,
			wantEmpty: true,
		},
		{
			name:        "malformedJSON",
			status:      http.StatusOK,
			body:        `{"content":`,
			wantContain: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("sk-test", Options{BaseURL: srv.URL})
			_, err := client.Generate(context.Background(), "", "a dog")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantEmpty && !errors.Is(err, llm.ErrEmptyResponse) {
				t.Errorf("error = %v, want ErrEmptyResponse", err)
			}
			if tt.wantContain != "" && !strings.Contains(err.Error(), tt.wantContain) {
				t.Errorf("error = %v, want containing %q", err, tt.wantContain)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	c := NewClient("k", Options{})
	if c.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", c.Model(), DefaultModel)
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}
