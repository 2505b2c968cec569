package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipprompt/internal/enhance"
	"clipprompt/pkg/httputil"
)

const defaultRelayTimeout = 90 * time.Second

// RelayError is a non-2xx answer from the relay. Message is the relay's
// error text.
type RelayError struct {
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	return e.Message
}

// RelayClient talks to the enhancement relay over HTTP. Enhancement calls are
// sent exactly once; listing calls go through a retrying transport.
type RelayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	reads      *httputil.RetryClient
	sendModel  bool
}

type RelayOptions struct {
	APIKey  string
	Timeout time.Duration
	// SendProvider includes selectedModel in requests, for relays running in
	// multi-provider mode.
	SendProvider bool
	Retry        httputil.RetryConfig
}

func NewRelayClient(baseURL string, opts RelayOptions) *RelayClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultRelayTimeout
	}
	hc := &http.Client{Timeout: timeout}

	return &RelayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: hc,
		reads:      httputil.NewRetryClient(hc, opts.Retry),
		sendModel:  opts.SendProvider,
	}
}

type enhanceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (c *RelayClient) Enhance(ctx context.Context, req enhance.Request) (string, error) {
	raw := enhance.RawRequest{
		UserPrompt:  req.Idea,
		ContentTone: string(req.Tone),
		POV:         string(req.PointOfView),
	}
	if c.sendModel {
		raw.SelectedModel = string(req.Provider)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/enhance", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach relay: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out enhanceResponse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		return "", &RelayError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to parse response: %w", decodeErr)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", ErrEmptyText
	}
	return out.Text, nil
}

type ProviderInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type ProviderList struct {
	MultiProvider bool           `json:"multiProvider"`
	Default       string         `json:"default"`
	Providers     []ProviderInfo `json:"providers"`
}

func (c *RelayClient) Providers(ctx context.Context) (*ProviderList, error) {
	var out ProviderList
	if err := c.getJSON(ctx, "/api/providers", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Choice is one entry of a relay-provided choice list.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type OptionList struct {
	Tones        []Choice          `json:"tones"`
	PointsOfView []Choice          `json:"pointsOfView"`
	Defaults     map[string]string `json:"defaults"`
}

func (c *RelayClient) Options(ctx context.Context) (*OptionList, error) {
	var out OptionList
	if err := c.getJSON(ctx, "/api/options", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RelayClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.reads.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var e enhanceResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		}
		return &RelayError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *RelayClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
