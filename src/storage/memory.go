package storage

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps conversations in process memory. Contents are lost when
// the process exits.
type MemoryStore struct {
	mu    sync.RWMutex
	order *list.List // front is most recently touched; values are *Conversation
	byID  map[string]*list.Element

	maxConversations int
	logger           *slog.Logger
}

// NewMemoryStore returns an empty store. When maxConversations is positive
// the least recently touched conversations are dropped past that count.
func NewMemoryStore(maxConversations int, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		order:            list.New(),
		byID:             make(map[string]*list.Element),
		maxConversations: maxConversations,
		logger:           logger.With("component", "memory_store"),
	}
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return el.Value.(*Conversation).Clone(), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("conversation id is required")
	}
	stored := conv.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byID[conv.ID]; ok {
		el.Value = stored
		s.order.MoveToFront(el)
		return nil
	}

	s.byID[conv.ID] = s.order.PushFront(stored)

	for s.maxConversations > 0 && s.order.Len() > s.maxConversations {
		oldest := s.order.Back()
		evicted := s.order.Remove(oldest).(*Conversation)
		delete(s.byID, evicted.ID)
		s.logger.Debug("evicted conversation", "conversation_id", evicted.ID, "max", s.maxConversations)
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*Conversation{}
	for el := s.order.Front(); el != nil && len(out) < limit; el = el.Next() {
		out = append(out, el.Value.(*Conversation).Clone())
	}
	return out, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
