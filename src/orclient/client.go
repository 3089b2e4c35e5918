package orclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 30 * time.Second
)

var (
	_ aisdk.Provider    = (*Client)(nil)
	_ aisdk.ModelLister = (*Client)(nil)
)

// Client is a chat completions client for OpenRouter and other
// OpenAI-compatible HTTP APIs.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	errors     *ErrorHandler
	modelCache *ModelCache
}

// NewClient creates a new OpenRouter API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RetryCount < 0 {
		config.RetryCount = 0
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.ModelTTL == 0 {
		config.ModelTTL = time.Hour
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "openrouter_client")

	client := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		errors:     NewErrorHandler(logger),
	}
	client.modelCache = NewModelCache(client, config.ModelTTL)

	return client
}

// CreateChatCompletion sends a non-streaming chat completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if req.Model == "" {
		return nil, ErrInvalidModel
	}

	logger := c.logger.With("method", "CreateChatCompletion", "model", req.Model)
	logger.Debug("sending chat completion request", "messages", len(req.Messages))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequestWithRetry(httpReq, body)
	if err != nil {
		return nil, c.errors.Handle(err, "chat completion")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errors.Handle(c.handleError(resp), "chat completion")
	}

	var result aisdk.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Error("failed to decode response", "error", err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	logger.Info("chat completion successful",
		"usage_prompt", result.Usage.PromptTokens,
		"usage_total", result.Usage.TotalTokens)
	return &result, nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	// Optional headers for ranking
	if c.config.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.config.SiteURL)
	}
	if c.config.SiteName != "" {
		req.Header.Set("X-Title", c.config.SiteName)
	}

	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying transport failures
// and 5xx responses up to RetryCount extra times.
func (c *Client) doRequestWithRetry(req *http.Request, body []byte) (*http.Response, error) {
	ctx := req.Context()
	attempts := c.config.RetryCount + 1
	logger := c.logger.With("method", "doRequestWithRetry", "url", req.URL.String())

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		reqCopy := req.Clone(ctx)
		if body != nil {
			reqCopy.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := c.httpClient.Do(reqCopy)
		switch {
		case err != nil:
			lastErr = c.transportError(err)
			logger.Debug("request attempt failed", "attempt", attempt, "error", err)
		case resp.StatusCode >= 500:
			lastErr = c.handleError(resp)
			resp.Body.Close()
			logger.Debug("server error", "attempt", attempt, "status_code", resp.StatusCode)
		default:
			// Success or client error, the caller inspects the status.
			return resp, nil
		}

		if attempt == attempts || !IsRetryable(lastErr) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(GetRetryDelay(lastErr, attempt, c.config.RetryDelay)):
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	logger.Error("request failed after all retries", "attempts", attempts, "error", lastErr)
	return nil, &RetryableError{Err: lastErr, AttemptNum: attempts, MaxAttempts: attempts}
}

// transportError classifies errors returned by the http client.
func (c *Client) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Operation: "request", Duration: c.config.Timeout, Cause: err}
	}
	return fmt.Errorf("connection error: %w", err)
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Type = errResp.Error.Type
		apiErr.Message = errResp.Error.Message
		apiErr.Code = errResp.Error.Code.String()
		apiErr.Param = errResp.Error.Param
	}

	// Add retry-after information for rate limits
	if resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil {
			apiErr.Details = map[string]interface{}{"retry_after": retryAfter}
		}
	}

	return apiErr
}
