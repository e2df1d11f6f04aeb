package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docintel/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// retryBaseDelay is the first backoff step; later steps double it up to 5s.
var retryBaseDelay = 200 * time.Millisecond

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// It works against OpenAI, Ollama's /v1 endpoint and similar servers.
type Client struct {
	client     *openai.Client
	httpClient *http.Client
	model      openai.EmbeddingModel
	dimensions int
	maxRetries int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// NewClient creates a new embeddings client using the provided configuration.
// The API key may only be omitted for a non-default base URL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" && cfg.BaseURL == defaultBaseURL {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	clientCfg := openai.DefaultConfig(key)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	httpClient := &http.Client{Timeout: t}
	clientCfg.HTTPClient = httpClient

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		maxRetries: 5,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding.
func (c *Client) Prepare(corpus []string) error { return nil }

// Close drops idle keep-alive connections to the embeddings server.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Embed returns an embedding vector for the given text, retrying rate limits
// and server errors with exponential backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("openai embeddings: empty input: %w", domain.ErrEmbeddingFailed)
	}
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		resp, err := c.client.CreateEmbeddings(ctx, req)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			break
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			lastErr = errors.New("no embedding returned")
			break
		}
		return toFloat64(resp.Data[0].Embedding), nil
	}
	return nil, fmt.Errorf("openai embeddings: %v: %w", lastErr, domain.ErrEmbeddingFailed)
}

func toFloat64(raw []float32) []float64 {
	v := make([]float64, len(raw))
	for i, f := range raw {
		v[i] = float64(f)
	}
	return v
}

// retryable reports whether a failed request may succeed when repeated:
// transport errors, 429 and 5xx responses.
func retryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := retryBaseDelay << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
