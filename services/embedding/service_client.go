// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultServiceTimeout is the default timeout for embedding requests.
const DefaultServiceTimeout = 30 * time.Second

// ServiceClient wraps calls to a sidecar embedding service.
//
// # Description
//
// ServiceClient provides a Go interface to a Python embedding service,
// which runs transformer models (like BGE, Qwen) to generate vector
// embeddings for text. Self-hosted deployments point EMBEDDING_SERVICE_URL
// at it instead of configuring an OpenAI key.
//
// # Thread Safety
//
// ServiceClient is safe for concurrent use.
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewServiceClient creates a client for the embedding service at baseURL
// (e.g., "http://localhost:8000"). The service should be running and
// accessible at the given URL.
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultServiceTimeout,
		},
		timeout: DefaultServiceTimeout,
	}
}

// WithTimeout sets a custom timeout for embedding requests.
func (c *ServiceClient) WithTimeout(timeout time.Duration) *ServiceClient {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// embeddingRequest is the request body for the /batch_embed endpoint.
type embeddingRequest struct {
	Texts []string `json:"texts"`
}

// embeddingResponse is the response from the /batch_embed endpoint.
type embeddingResponse struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Model     string      `json:"model"`
	Vectors   [][]float32 `json:"vectors"`
	Dim       int         `json:"dim"`
}

// healthResponse is the response from the /health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Embed computes a vector embedding for the given text.
func (c *ServiceClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	vectors, err := c.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}

	return vectors[0], nil
}

// BatchEmbed computes embeddings for multiple texts efficiently.
//
// # Description
//
// Batches multiple texts into a single request. The service processes them
// together, which matters at startup when the whole key vocabulary is
// embedded in one call.
//
// # Outputs
//
//   - [][]float32: The embedding vectors, one per input text.
//   - error: Non-nil if embedding fails or the response count does not
//     match the input count.
func (c *ServiceClient) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts is empty", ErrInvalidInput)
	}

	reqBody := embeddingRequest{Texts: texts}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/batch_embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// A short response would silently misalign phrases with vectors
	// downstream, so reject it here.
	if len(embResp.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts",
			len(embResp.Vectors), len(texts))
	}

	return embResp.Vectors, nil
}

// Health checks if the embedding service is available and its model loaded.
func (c *ServiceClient) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrInvalidInput
	}

	url := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embedding service unhealthy: status %d: %s", resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	if health.Status != "ok" {
		return fmt.Errorf("embedding service not ready: %s", health.Status)
	}

	return nil
}
