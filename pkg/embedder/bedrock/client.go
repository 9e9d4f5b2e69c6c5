// Package bedrock provides an Amazon Bedrock embedding provider.
//
// Titan models embed one text per InvokeModel call; Cohere models on
// Bedrock accept a batch. The client picks the request shape from the
// configured model ID.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// invoker is the subset of the Bedrock runtime client used here, extracted
// so tests can substitute a fake.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client implements embedder.Provider using the Amazon Bedrock runtime.
type Client struct {
	client     invoker
	model      string
	dimensions int
}

// Config contains configuration for creating a Bedrock embedding client.
type Config struct {
	// Region is the AWS region (required). Credentials come from the
	// default AWS credential chain.
	Region string

	// Model is the Bedrock model ID (default: "amazon.titan-embed-text-v2:0").
	Model string

	// Dimensions is the vector dimension (default: 1024).
	Dimensions int
}

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding []float64 `json:"embedding"`
}

type cohereRequest struct {
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type,omitempty"`
}

type cohereResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewClient creates a new Bedrock embedding client using the default AWS
// credential chain.
//
// Parameters:
//   - ctx: Context for AWS config resolution
//   - cfg: configuration containing Region, Model, and Dimensions
//
// Returns:
//   - *Client: Bedrock embedding client instance
//   - error: an error if AWS configuration cannot be loaded
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.Region == "" {
		return nil, errors.New("bedrock embedder: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return newWithInvoker(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newWithInvoker(inv invoker, cfg *Config) *Client {
	model := cfg.Model
	if model == "" {
		model = "amazon.titan-embed-text-v2:0"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1024
	}

	return &Client{
		client:     inv,
		model:      model,
		dimensions: dimensions,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "bedrock"
}

// Model returns the configured model ID.
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
//
// Cohere models are invoked once with the full batch; Titan models are
// invoked once per text since the API takes a single inputText.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if strings.HasPrefix(c.model, "cohere.") {
		return c.embedCohere(ctx, texts)
	}
	return c.embedTitan(ctx, texts)
}

func (c *Client) embedTitan(ctx context.Context, texts []string) ([][]float64, error) {
	embeddings := make([][]float64, len(texts))
	for i, text := range texts {
		body, err := json.Marshal(titanRequest{InputText: text})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		output, err := c.invoke(ctx, body)
		if err != nil {
			return nil, err
		}

		var resp titanResponse
		if err := json.Unmarshal(output, &resp); err != nil {
			return nil, fmt.Errorf("parse titan response: %w", err)
		}
		if len(resp.Embedding) == 0 {
			return nil, errors.New("bedrock embedder: empty embedding in titan response")
		}
		embeddings[i] = resp.Embedding
	}
	return embeddings, nil
}

func (c *Client) embedCohere(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(cohereRequest{
		Texts:     texts,
		InputType: "search_document",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	output, err := c.invoke(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp cohereResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return nil, fmt.Errorf("parse cohere response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("bedrock embedder: unexpected number of results (got %d, expected %d)", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

func (c *Client) invoke(ctx context.Context, body []byte) ([]byte, error) {
	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}
	return output.Body, nil
}

// Dimensions returns the dimension of embedding vectors produced by this
// provider.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close closes the client. The Bedrock runtime client holds no persistent
// connection, so this is a no-op kept for interface compatibility.
func (c *Client) Close() error {
	return nil
}
