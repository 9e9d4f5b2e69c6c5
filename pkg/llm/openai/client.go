// Package openai implements the llm.Provider interface using the OpenAI
// chat completion API.
package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studyloop/recall/pkg/llm"
)

// Client is an OpenAI LLM client. It implements the llm.Provider interface.
type Client struct {
	client *openai.Client
	model  string
}

// Config is the configuration for the OpenAI LLM client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the model name to use. Defaults to "gpt-4o-mini".
	Model string

	// BaseURL overrides the API base URL for OpenAI-compatible endpoints.
	BaseURL string
}

// NewClient creates a new OpenAI LLM client.
//
// Parameters:
//   - cfg: configuration containing APIKey, Model, and BaseURL
//
// Returns the client and an error if the configuration is invalid.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai llm: api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate generates text from a single prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text from a conversation history.
//
// Parameters:
//   - ctx: Context for controlling the request lifecycle
//   - messages: Message history including system, user, and assistant roles
//   - opts: Optional generation parameters
//
// Returns the generated text and an error if the call fails.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai llm: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close closes the client. The OpenAI SDK holds no persistent connection, so
// this is a no-op kept for interface compatibility.
func (c *Client) Close() error {
	return nil
}
