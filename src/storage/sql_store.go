package storage

import (
	"context"
	"fmt"
	"log/slog"
)

var _ Store = (*SQLStore)(nil)

// SQLStore keeps conversations in sqlite so they survive restarts.
type SQLStore struct {
	db               *DB
	maxConversations int
	logger           *slog.Logger
}

// NewSQLStore wraps an open, migrated database. maxConversations <= 0
// disables eviction.
func NewSQLStore(db *DB, maxConversations int, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:               db,
		maxConversations: maxConversations,
		logger:           logger.With("component", "sql_store"),
	}
}

func (s *SQLStore) FindByID(ctx context.Context, id string) (*Conversation, error) {
	return GetConversationByID(ctx, s.db.DB(), id)
}

func (s *SQLStore) Upsert(ctx context.Context, conv *Conversation) error {
	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := UpsertConversation(ctx, tx, conv); err != nil {
		return err
	}

	evicted, err := EvictConversations(ctx, tx, s.maxConversations)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}

	if evicted > 0 {
		s.logger.Debug("evicted conversations", "count", evicted, "max", s.maxConversations)
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]*Conversation, error) {
	return ListRecentConversations(ctx, s.db.DB(), limit)
}

func (s *SQLStore) Len(ctx context.Context) (int, error) {
	return CountConversations(ctx, s.db.DB())
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
