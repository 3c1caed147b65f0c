// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/loom-tui/internal/settings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the generation backend.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeRateLimited
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "backend is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrRateLimited   = &ClientError{Type: ErrTypeRateLimited, Message: "request rate limit exceeded"}
)

// IsNotRunning checks if an error indicates the backend is unreachable.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotRunning
	}
	return false
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the generation client.
type ClientConfig struct {
	// Endpoint is the completions URL (default: local Ollama generate API).
	// Uses an explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows.
	Endpoint string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the backend model identifier.
	Model string

	// ConnectTimeout bounds connection establishment. An open stream is
	// never timed out internally; the interrupt flag is the cancellation
	// mechanism.
	ConnectTimeout time.Duration

	// RequestsPerSecond caps request admission (default: 2, burst 4).
	RequestsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint:          "http://127.0.0.1:11434/api/generate",
		Model:             "llama3",
		ConnectTimeout:    30 * time.Second,
		RequestsPerSecond: 2,
	}
}

// ConfigFromConnection builds a client configuration from a connection
// preset, filling defaults for zero values.
func ConfigFromConnection(conn settings.ConnectionSettings) *ClientConfig {
	cfg := DefaultConfig()
	if conn.Endpoint != "" {
		cfg.Endpoint = conn.Endpoint
	}
	if conn.Model != "" {
		cfg.Model = conn.Model
	}
	if conn.APIKey != "" {
		cfg.APIKey = conn.APIKey
	}
	if conn.TimeoutSecs > 0 {
		cfg.ConnectTimeout = time.Duration(conn.TimeoutSecs) * time.Second
	}
	return cfg
}

// =============================================================================
// CLIENT
// =============================================================================

// Client posts generation requests and streams responses. It is safe for
// concurrent use; a rate limiter gates request admission so a retry loop
// cannot hammer the backend.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a generation client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = "http://127.0.0.1:11434/api/generate"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 2
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.ConnectTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 4),
	}
}

// CheckRunning verifies the backend is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(c.config.Endpoint), nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from backend: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// StreamCallback is called for each chunk received during streaming.
// Chunks arrive synchronously in stream order; the terminal chunk has
// Done set.
type StreamCallback func(chunk StreamChunk)

// Generate posts a streaming generation request and calls the callback for
// each chunk. The interrupt flag is polled between chunks; when it trips
// the stream stops and the callback receives a final chunk with Done and
// Interrupted set. Returns when streaming is complete or an error occurs.
func (c *Client) Generate(ctx context.Context, prompt string, opts *Options, interrupt *Interrupt, callback StreamCallback) error {
	if !c.limiter.Allow() {
		return ErrRateLimited
	}

	reqBody := GenerateRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		Stream:  true,
		Options: opts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	// A dedicated client with no timeout: the overall stream must be able
	// to run indefinitely, bounded only by ctx and the interrupt flag.
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}

	if resp.StatusCode != http.StatusOK {
		var backendErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&backendErr); err == nil && backendErr.Error != "" {
			return &ClientError{
				Type:    ErrTypeInvalidResponse,
				Message: backendErr.Error,
			}
		}
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "generate request failed: " + resp.Status,
		}
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, interrupt, callback)
}

// baseURL strips the API path so health checks hit the server root.
func baseURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}
