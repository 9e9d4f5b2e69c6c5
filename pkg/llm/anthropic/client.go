// Package anthropic implements the llm.Provider interface using the
// Anthropic Messages API.
//
// The API takes system messages as a separate request field, so they are
// split out of the conversation history before sending.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studyloop/recall/pkg/llm"
)

// Client is an Anthropic LLM client. It implements the llm.Provider
// interface.
type Client struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// Config is the configuration for the Anthropic LLM client.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// Model is the model name to use. Defaults to "claude-3-5-haiku-latest".
	Model string

	// BaseURL overrides the API base URL.
	BaseURL string

	// HTTPClient is a custom HTTP client (uses a 120s-timeout default if nil).
	HTTPClient *http.Client
}

type messagesRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   float64       `json:"temperature"`
	System        string        `json:"system,omitempty"`
	Messages      []chatMessage `json:"messages"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewClient creates a new Anthropic LLM client.
//
// Parameters:
//   - cfg: configuration containing APIKey, Model, and BaseURL
//
// Returns the client and an error if the configuration is invalid.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic llm: api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Generate generates text from a single prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text from a conversation history. System
// messages are lifted into the request's system field per the Messages API.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	reqBody := messagesRequest{
		Model:         c.model,
		MaxTokens:     options.MaxTokens,
		Temperature:   options.Temperature,
		StopSequences: options.Stop,
	}
	for _, msg := range messages {
		if msg.Role == "system" {
			reqBody.System = msg.Content
			continue
		}
		reqBody.Messages = append(reqBody.Messages, chatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("anthropic llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic llm: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic llm: status %d: %s", resp.StatusCode, string(body))
	}

	var response messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("anthropic llm: decode response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", errors.New("anthropic llm: no content returned")
	}

	return response.Content[0].Text, nil
}

// Close closes the client. The HTTP client needs no explicit teardown; this
// is a no-op kept for interface compatibility.
func (c *Client) Close() error {
	return nil
}
