package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPConfig points at an OpenAI-compatible /embeddings endpoint, such as a
// text-embeddings-inference or sentence-transformers server.
type HTTPConfig struct {
	Endpoint string
	Model    string
	APIKey   string // optional bearer token
	Timeout  time.Duration
	Retry    RetryConfig
}

// HTTPEncoder calls a remote embedding server.
type HTTPEncoder struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
}

// NewHTTPEncoder creates an encoder for the given endpoint.
func NewHTTPEncoder(cfg HTTPConfig) (*HTTPEncoder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &HTTPEncoder{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry: cfg.Retry,
	}, nil
}

// Encode returns the raw embedding of text.
func (h *HTTPEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := retryWithBackoff(ctx, h.retry, func() ([][]float32, error) {
		return h.callAPI(ctx, []string{text})
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, h.retry.MaxRetries, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return vectors[0], nil
}

func (h *HTTPEncoder) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
	}
	if h.model != "" {
		reqBody["model"] = h.model
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(err)
		}
		return nil, err
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range apiResp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Close releases idle connections.
func (h *HTTPEncoder) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}
