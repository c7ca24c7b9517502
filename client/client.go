// Package client calls a sonido-embed server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-embed/embedding"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("audio processor returned status %d: %s", e.StatusCode, e.Detail)
}

// Info describes the server's embedding convention
type Info struct {
	Message            string `json:"message"`
	EmbeddingDimension int    `json:"embedding_dimension"`
	EmbeddingVersion   string `json:"embedding_version"`
}

// Client talks to the HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL, e.g. "http://localhost:8000".
// httpClient may be nil.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Embed uploads audio and returns its embedding
func (c *Client) Embed(ctx context.Context, filename string, audio io.Reader) (embedding.Vector, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-audio/", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result struct {
		Embedding embedding.Vector `json:"embedding"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Embedding, nil
}

// Info fetches GET /
func (c *Client) Info(ctx context.Context) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var info Info
	if err := c.do(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to audio processor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var detail struct {
			Detail string `json:"detail"`
		}
		msg := strings.TrimSpace(string(bodyBytes))
		if json.Unmarshal(bodyBytes, &detail) == nil && detail.Detail != "" {
			msg = detail.Detail
		}
		return &StatusError{StatusCode: resp.StatusCode, Detail: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
