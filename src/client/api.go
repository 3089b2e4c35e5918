// Package client is the terminal frontend for a running chatrelay server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elee1766/chatrelay/src/server"
	"github.com/elee1766/chatrelay/src/storage"
)

const DefaultBaseURL = "http://localhost:5000"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
	// Messages holds the unsaved user message on provider failures
	Messages []storage.Message
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// API talks to the chatrelay HTTP endpoints.
type API struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewAPI(baseURL string, timeout time.Duration, logger *slog.Logger) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "api_client"),
	}
}

// Status returns the server's readiness message.
func (a *API) Status(ctx context.Context) (string, error) {
	var resp server.StatusResponse
	if err := a.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Conversations returns the server's recent conversations.
func (a *API) Conversations(ctx context.Context) ([]*storage.Conversation, error) {
	var convs []*storage.Conversation
	if err := a.do(ctx, http.MethodGet, "/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Chat submits a message. An empty conversationID starts a new conversation.
func (a *API) Chat(ctx context.Context, message, conversationID string) (*server.ChatResponse, error) {
	var resp server.ChatResponse
	req := server.ChatRequest{Message: message, ConversationID: conversationID}
	if err := a.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	a.logger.Debug("request complete", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.handleError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (a *API) handleError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return statusErr
	}

	var body server.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		statusErr.Message = body.Error
		statusErr.Messages = body.Messages
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}
