package storage

import (
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
)

// Message is one turn of a conversation. Messages are never edited after
// they are appended.
type Message struct {
	Role      aisdk.Role `json:"role" db:"role"`
	Content   string     `json:"content" db:"content"`
	Timestamp time.Time  `json:"timestamp" db:"created_at"`
}

// Conversation is an ordered, append-only list of messages under one id.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Messages  []Message `json:"messages" db:"-"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// Clone returns a deep copy of c. Stores hand out clones so callers never
// share memory with the stored record.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(role aisdk.Role, content string, at time.Time) Message {
	msg := Message{Role: role, Content: content, Timestamp: at}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = at
	return msg
}
