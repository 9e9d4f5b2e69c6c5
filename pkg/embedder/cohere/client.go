// Package cohere provides a Cohere embedding provider using the Cohere
// Embed API.
package cohere

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

// Client implements embedder.Provider using the Cohere Embed API.
type Client struct {
	client     *http.Client
	apiKey     string
	model      string
	baseURL    string
	dimensions int
}

// Config contains configuration for creating a Cohere embedding client.
type Config struct {
	// APIKey is the Cohere API key (required).
	APIKey string

	// Model is the model name to use (default: "embed-english-v3.0").
	Model string

	// BaseURL is the API base URL (default: Cohere official address).
	BaseURL string

	// Dimensions is the vector dimension (default: 1024 for embed-english-v3.0).
	Dimensions int

	// HTTPClient is a custom HTTP client (uses default if nil).
	HTTPClient *http.Client
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewClient creates a new Cohere embedding client.
//
// Parameters:
//   - cfg: configuration containing APIKey, Model, BaseURL, and Dimensions
//
// Returns:
//   - *Client: Cohere embedding client instance
//   - error: an error if the configuration is invalid (e.g., missing APIKey)
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cohere embedder: api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.ai/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "embed-english-v3.0"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1024 // embed-english-v3.0 default dimension
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
	return "cohere"
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
//
// Parameters:
//   - ctx: Context for controlling request lifecycle
//   - texts: List of texts to embed
//
// Returns:
//   - [][]float64: Vector representations for each text (order matches input)
//   - error: an error if embedding fails or the result count mismatches
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	reqBody := embedRequest{
		Texts:     texts,
		Model:     c.model,
		InputType: "search_document",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embed", bytes.NewBuffer(jsonData))
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
		return nil, fmt.Errorf("cohere API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("cohere embedder: unexpected number of results (got %d, expected %d)", len(response.Embeddings), len(texts))
	}

	return response.Embeddings, nil
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
