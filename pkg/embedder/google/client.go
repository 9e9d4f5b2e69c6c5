// Package google provides a Google Vertex AI embedding provider.
package google

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

// Client implements embedder.Provider using the Vertex AI text embedding
// predict endpoint.
type Client struct {
	client     *http.Client
	projectID  string
	location   string
	apiKey     string
	model      string
	baseURL    string
	dimensions int
}

// Config contains configuration for creating a Google embedding client.
type Config struct {
	// ProjectID is the Google Cloud project ID (required).
	ProjectID string

	// Location is the Vertex AI region (default: "us-central1").
	Location string

	// APIKey is the bearer token used for authentication (required).
	APIKey string

	// Model is the model name to use (default: "text-embedding-004").
	Model string

	// BaseURL overrides the computed regional endpoint, mainly for tests.
	BaseURL string

	// Dimensions is the vector dimension (default: 768 for text-embedding-004).
	Dimensions int

	// HTTPClient is a custom HTTP client (uses default if nil).
	HTTPClient *http.Client
}

type embedRequest struct {
	Instances []instance `json:"instances"`
}

type instance struct {
	Content string `json:"content"`
}

type embedResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// NewClient creates a new Google embedding client.
//
// Parameters:
//   - cfg: configuration containing ProjectID, Location, APIKey, and Model
//
// Returns:
//   - *Client: Google embedding client instance
//   - error: an error if the configuration is invalid
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google embedder: api key is required")
	}
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, errors.New("google embedder: project id is required")
	}

	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 768 // text-embedding-004 default dimension
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", location)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		client:     client,
		projectID:  cfg.ProjectID,
		location:   location,
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "google"
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

// EmbedBatch converts multiple text strings into vector embeddings.
// The predict endpoint accepts multiple instances per call, so a batch is a
// single request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	instances := make([]instance, len(texts))
	for i, text := range texts {
		instances[i] = instance{Content: text}
	}

	jsonData, err := json.Marshal(embedRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.baseURL, c.projectID, c.location, c.model)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(response.Predictions) != len(texts) {
		return nil, fmt.Errorf("google embedder: unexpected number of results (got %d, expected %d)", len(response.Predictions), len(texts))
	}

	embeddings := make([][]float64, len(texts))
	for i, pred := range response.Predictions {
		embeddings[i] = pred.Embeddings.Values
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
