// Package mistral provides a Mistral embedding provider using the Mistral
// Embeddings API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client implements embedder.Provider using the Mistral Embeddings API.
type Client struct {
	client     *http.Client
	apiKey     string
	model      string
	baseURL    string
	dimensions int
}

// Config contains configuration for creating a Mistral embedding client.
type Config struct {
	// APIKey is the Mistral API key (required).
	APIKey string

	// Model is the model name to use (default: "mistral-embed").
	Model string

	// BaseURL is the API base URL (default: Mistral official address).
	BaseURL string

	// Dimensions is the vector dimension (default: 1024 for mistral-embed).
	Dimensions int

	// HTTPClient is a custom HTTP client (uses default if nil).
	HTTPClient *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewClient creates a new Mistral embedding client.
//
// Parameters:
//   - cfg: configuration containing APIKey, Model, BaseURL, and Dimensions
//
// Returns:
//   - *Client: Mistral embedding client instance
//   - error: an error if the configuration is invalid (e.g., missing APIKey)
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mistral embedder: api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "mistral-embed"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1024 // mistral-embed default dimension
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		client:     client,
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "mistral"
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Embed converts a single text string into a vector embedding.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts multiple text strings into vector embeddings in a
// single batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	reqBody := embedRequest{
		Model: c.model,
		Input: texts,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mistral API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("mistral embedder: unexpected number of results (got %d, expected %d)", len(response.Data), len(texts))
	}

	// Responses carry an index field; order by it rather than trusting
	// array position.
	embeddings := make([][]float64, len(texts))
	for _, data := range response.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("mistral embedder: result index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}

	return embeddings, nil
}

// Dimensions returns the dimension of embedding vectors produced by this
// provider.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close closes the client connection. HTTP clients do not need explicit
// closing; this method is retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}
