package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// GetConversationByID loads a conversation and its messages.
func GetConversationByID(ctx context.Context, db sqlscan.Querier, id string) (*Conversation, error) {
	var conv Conversation
	err := sqlscan.Get(ctx, db, &conv, `
		SELECT id, title, created_at, updated_at
		FROM conversations
		WHERE id = ?`, id)
	if err != nil {
		if sqlscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv.Messages, err = GetMessagesByConversationID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetMessagesByConversationID returns messages in append order.
func GetMessagesByConversationID(ctx context.Context, db sqlscan.Querier, conversationID string) ([]Message, error) {
	messages := []Message{}
	err := sqlscan.Select(ctx, db, &messages, `
		SELECT role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY position ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// ListRecentConversations returns up to limit conversations, most recently
// touched first.
func ListRecentConversations(ctx context.Context, db sqlscan.Querier, limit int) ([]*Conversation, error) {
	convs := []*Conversation{}
	if limit <= 0 {
		return convs, nil
	}

	err := sqlscan.Select(ctx, db, &convs, `
		SELECT id, title, created_at, updated_at
		FROM conversations
		ORDER BY touched DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	for _, conv := range convs {
		conv.Messages, err = GetMessagesByConversationID(ctx, db, conv.ID)
		if err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// CountConversations returns the number of stored conversations.
func CountConversations(ctx context.Context, db sqlscan.Querier) (int, error) {
	var n int
	if err := sqlscan.Get(ctx, db, &n, "SELECT COUNT(*) FROM conversations"); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return n, nil
}

// UpsertConversation writes the conversation header, appends any messages
// not yet stored, and bumps the conversation to the front of the order.
func UpsertConversation(ctx context.Context, db ExecQuerier, conv *Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("conversation id is required")
	}

	now := time.Now().UTC()
	created := conv.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, touched, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(touched), 0) + 1 FROM conversations), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			touched = excluded.touched,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Title, created.UTC(), updated.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	var stored int
	if err := sqlscan.Get(ctx, db, &stored, "SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}
	if stored > len(conv.Messages) {
		return fmt.Errorf("conversation %s has %d stored messages but only %d given", conv.ID, stored, len(conv.Messages))
	}

	for i := stored; i < len(conv.Messages); i++ {
		msg := conv.Messages[i]
		at := msg.Timestamp
		if at.IsZero() {
			at = now
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, position, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			conv.ID, i, string(msg.Role), msg.Content, at.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	return nil
}

// EvictConversations deletes every conversation beyond the newest keep.
func EvictConversations(ctx context.Context, db Execer, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	res, err := db.ExecContext(ctx, `
		DELETE FROM conversations
		WHERE id IN (
			SELECT id FROM conversations
			ORDER BY touched DESC
			LIMIT -1 OFFSET ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to evict conversations: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		DELETE FROM messages
		WHERE conversation_id NOT IN (SELECT id FROM conversations)`); err != nil {
		return 0, fmt.Errorf("failed to delete orphaned messages: %w", err)
	}
	return res.RowsAffected()
}
