package server

import "github.com/elee1766/chatrelay/src/storage"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string `json:"message" validate:"notblank"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ChatResponse is returned by POST /chat on success.
type ChatResponse struct {
	ConversationID string                  `json:"conversationId"`
	Messages       []storage.Message       `json:"messages"`
	Conversations  []*storage.Conversation `json:"conversations"`
}

// ErrorResponse carries an error message and, for provider failures, the
// user message that was not stored.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Messages []storage.Message `json:"messages,omitempty"`
}

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Message string `json:"message"`
}
