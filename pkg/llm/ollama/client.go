// Package ollama implements the llm.Provider interface against a local or
// remote Ollama service.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studyloop/recall/pkg/llm"
)

// Client is an Ollama LLM client. It implements the llm.Provider interface.
type Client struct {
	client  *http.Client
	model   string
	baseURL string
}

// Config is the configuration for the Ollama LLM client.
type Config struct {
	// Model is the model name to use. Defaults to "llama3.1:8b".
	Model string

	// BaseURL is the Ollama service address. Defaults to
	// "http://localhost:11434".
	BaseURL string

	// HTTPClient is a custom HTTP client. Local models can be slow to warm
	// up, so the default allows 300 seconds.
	HTTPClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64  `json:"temperature"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// NewClient creates a new Ollama LLM client. No API key is required; access
// control is the deployment's concern.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.1:8b"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 300 * time.Second}
	}

	return &Client{
		client:  client,
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

// GenerateWithMessages generates text from a conversation history using the
// non-streaming chat endpoint.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	reqBody := chatRequest{
		Model:  c.model,
		Stream: false,
		Options: chatOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
			Stop:        options.Stop,
		},
	}
	for _, msg := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ollama llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("ollama llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama llm: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama llm: status %d: %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("ollama llm: decode response: %w", err)
	}

	return response.Message.Content, nil
}

// Close closes the client. The HTTP client needs no explicit teardown; this
// is a no-op kept for interface compatibility.
func (c *Client) Close() error {
	return nil
}
