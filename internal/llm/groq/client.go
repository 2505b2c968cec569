package groq

import (
	"context"
	"fmt"
	"strings"

	"github.com/conneroisu/groq-go"

	"clipprompt/internal/llm"
)

const DefaultModel = "llama-3.3-70b-versatile"

var _ llm.Client = (*Client)(nil)

type Client struct {
	client *groq.Client
	model  groq.ChatModel
}

type Options struct {
	Model   string
	BaseURL string
}

func NewClient(apiKey string, opts Options) (*Client, error) {
	var (
		client *groq.Client
		err    error
	)
	if opts.BaseURL != "" {
		client, err = groq.NewClient(apiKey, groq.WithBaseURL(opts.BaseURL))
	} else {
		client, err = groq.NewClient(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: client,
		model:  groq.ChatModel(model),
	}, nil
}

func (c *Client) Model() string {
	return string(c.model)
}

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]groq.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, groq.ChatCompletionMessage{Role: groq.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, groq.ChatCompletionMessage{Role: groq.RoleUser, Content: userPrompt})

	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response: %w", llm.ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}

	return content, nil
}
