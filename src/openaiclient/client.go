// Package openaiclient adapts github.com/sashabaranov/go-openai to the
// aisdk.Provider interface.
package openaiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/orclient"
	go_openai "github.com/sashabaranov/go-openai"
)

var (
	_ aisdk.Provider    = (*Client)(nil)
	_ aisdk.ModelLister = (*Client)(nil)
)

// ErrNoAPIKey is returned when the client is used without credentials.
var ErrNoAPIKey = errors.New("openai API key is required")

// Config holds the settings needed to reach the OpenAI API.
type Config struct {
	APIKey       string
	BaseURL      string // empty means https://api.openai.com/v1
	Organization string
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Client talks to the OpenAI chat completions API.
type Client struct {
	client *go_openai.Client
	apiKey string
	logger *slog.Logger
	errors *orclient.ErrorHandler
}

// NewClient creates an OpenAI provider.
func NewClient(config Config) *Client {
	cfg := go_openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	if config.Organization != "" {
		cfg.OrgID = config.Organization
	}
	if config.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "openai_client")

	return &Client{
		client: go_openai.NewClientWithConfig(cfg),
		apiKey: config.APIKey,
		logger: logger,
		errors: orclient.NewErrorHandler(logger),
	}
}

// CreateChatCompletion sends a single non-streaming completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	logger := c.logger.With("method", "CreateChatCompletion", "model", req.Model)
	logger.Debug("sending chat completion request", "messages", len(req.Messages))

	resp, err := c.client.CreateChatCompletion(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, c.errors.Handle(convertError(err), "chat completion")
	}

	logger.Info("chat completion successful",
		"usage_prompt", resp.Usage.PromptTokens,
		"usage_total", resp.Usage.TotalTokens)
	return fromOpenAIResponse(resp), nil
}

// ListModels lists the models visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, convertError(err)
	}

	models := make([]*aisdk.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, &aisdk.ModelInfo{
			ID:          m.ID,
			Name:        m.ID,
			Created:     m.CreatedAt,
			Description: "owned by " + m.OwnedBy,
		})
	}
	return models, nil
}

func toOpenAIRequest(req *aisdk.ChatCompletionRequest) go_openai.ChatCompletionRequest {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m == nil {
			continue
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	out := go_openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
		User:     req.User,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
		// go-openai omits a zero float; the smallest non-zero value still
		// means "no randomness" to the API.
		if out.Temperature == 0 {
			out.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	return out
}

func fromOpenAIResponse(resp go_openai.ChatCompletionResponse) *aisdk.ChatCompletionResponse {
	out := &aisdk.ChatCompletionResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Usage: aisdk.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		out.Choices = append(out.Choices, aisdk.Choice{
			Index: choice.Index,
			Message: aisdk.Message{
				Role:    aisdk.Role(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		})
	}
	return out
}

// convertError maps go-openai error types onto orclient.APIError so both
// providers are classified the same way.
func convertError(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		converted := &orclient.APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
		}
		if apiErr.Code != nil {
			converted.Code = fmt.Sprint(apiErr.Code)
		}
		if apiErr.Param != nil {
			converted.Param = *apiErr.Param
		}
		return converted
	}

	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return &orclient.APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}

	return fmt.Errorf("openai request failed: %w", err)
}
