package aisdk

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse indicates the provider answered without usable content.
var ErrEmptyResponse = errors.New("empty response from provider")

// Provider is a chat completion backend.
type Provider interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]*ModelInfo, error)
}

// FirstContent returns the text of the best (first) choice of resp.
// A response without choices or with blank content is treated as malformed.
func FirstContent(resp *ChatCompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
