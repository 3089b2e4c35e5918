package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/server"
	"github.com/elee1766/chatrelay/src/storage"
)

// ApologyMessage is shown locally when a chat request fails.
const ApologyMessage = "Sorry, something went wrong. Please try again!"

// Backend is the subset of API a Session needs.
type Backend interface {
	Conversations(ctx context.Context) ([]*storage.Conversation, error)
	Chat(ctx context.Context, message, conversationID string) (*server.ChatResponse, error)
}

// Session mirrors what the server last returned. It keeps no history of its
// own beyond the optimistic user message and local apologies.
type Session struct {
	backend Backend
	now     func() time.Time

	ConversationID string
	Messages       []storage.Message
	Conversations  []*storage.Conversation
}

func NewSession(backend Backend) *Session {
	return &Session{backend: backend, now: time.Now}
}

// Load fetches the conversation list and opens the most recent one.
func (s *Session) Load(ctx context.Context) error {
	convs, err := s.backend.Conversations(ctx)
	if err != nil {
		return err
	}
	s.Conversations = convs
	if len(convs) > 0 {
		s.open(convs[0])
	}
	return nil
}

// Send submits text in the current conversation. A failed request leaves
// the typed message in the transcript followed by a local apology and
// returns the error.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.Messages = append(s.Messages, storage.Message{Role: aisdk.RoleUser, Content: text, Timestamp: s.now()})

	resp, err := s.backend.Chat(ctx, text, s.ConversationID)
	if err != nil {
		s.Messages = append(s.Messages, storage.Message{Role: aisdk.RoleAssistant, Content: ApologyMessage, Timestamp: s.now()})
		return err
	}

	s.ConversationID = resp.ConversationID
	s.Messages = resp.Messages
	if resp.Conversations != nil {
		s.Conversations = resp.Conversations
	}
	return nil
}

// NewChat clears the transcript; the next Send starts a new conversation.
func (s *Session) NewChat() {
	s.ConversationID = ""
	s.Messages = nil
}

// Open switches to the n-th (1-based) conversation in the list.
func (s *Session) Open(n int) error {
	if n < 1 || n > len(s.Conversations) {
		return fmt.Errorf("no conversation %d (have %d)", n, len(s.Conversations))
	}
	s.open(s.Conversations[n-1])
	return nil
}

func (s *Session) open(conv *storage.Conversation) {
	s.ConversationID = conv.ID
	s.Messages = append([]storage.Message(nil), conv.Messages...)
}
