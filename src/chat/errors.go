package chat

import (
	"errors"
	"fmt"

	"github.com/elee1766/chatrelay/src/storage"
)

// ErrEmptyMessage is returned when the submitted text is empty or only whitespace.
var ErrEmptyMessage = errors.New("message is required")

// ProviderError reports a failed provider call. Message is the user message
// that was submitted; it was not stored.
type ProviderError struct {
	ConversationID string
	Message        storage.Message
	Err            error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider call failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
