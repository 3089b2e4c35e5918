// Package chat turns a submitted message into a provider round trip and
// records the result in a conversation store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/storage"
	"github.com/google/uuid"
)

// Options tune how conversations are sent to the provider.
type Options struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string

	// HistoryWindow is the number of trailing messages sent to the
	// provider, counting the message being answered. Values below 1 are
	// treated as 1.
	HistoryWindow int
	RecentLimit   int
	TitleLength   int

	Now   func() time.Time
	NewID func() string
}

// DefaultOptions returns the stock relay settings.
func DefaultOptions() Options {
	return Options{
		Model:         "gpt-4o-mini",
		Temperature:   0.7,
		HistoryWindow: 10,
		RecentLimit:   10,
		TitleLength:   50,
	}
}

// Result is the state after a successful exchange.
type Result struct {
	ConversationID string
	Messages       []storage.Message
	Conversations  []*storage.Conversation
}

type Orchestrator struct {
	store    storage.Store
	provider aisdk.Provider
	opts     Options
	locks    *keyedMutex
	logger   *slog.Logger
}

func NewOrchestrator(store storage.Store, provider aisdk.Provider, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.HistoryWindow < 1 {
		opts.HistoryWindow = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		provider: provider,
		opts:     opts,
		locks:    newKeyedMutex(),
		logger:   logger.With("component", "chat"),
	}
}

// HandleMessage appends text to the conversation with conversationID, or to
// a new conversation when the id is empty or unknown, and asks the provider
// for a reply. If the provider fails nothing is written and the returned
// error is a *ProviderError.
func (o *Orchestrator) HandleMessage(ctx context.Context, text, conversationID string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	// Held until the upsert so concurrent messages to one conversation
	// cannot overwrite each other.
	if conversationID != "" {
		unlock := o.locks.Lock(conversationID)
		defer unlock()
	}

	conv, existed, err := o.resolve(ctx, text, conversationID)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("conversation_id", conv.ID)

	userMsg := conv.Append(aisdk.RoleUser, text, o.opts.Now())

	req := &aisdk.ChatCompletionRequest{
		Model:       o.opts.Model,
		Messages:    BuildContextWindow(o.opts.SystemPrompt, conv.Messages, o.opts.HistoryWindow),
		Temperature: aisdk.Float64(o.opts.Temperature),
	}
	if o.opts.MaxTokens > 0 {
		maxTokens := o.opts.MaxTokens
		req.MaxTokens = &maxTokens
	}

	logger.Debug("sending context window", "window", len(req.Messages), "history", len(conv.Messages))

	reply, err := o.complete(ctx, req)
	if err != nil {
		logger.Error("provider call failed", "error", err)
		perr := &ProviderError{Message: userMsg, Err: err}
		if existed {
			perr.ConversationID = conv.ID
		}
		return nil, perr
	}

	conv.Append(aisdk.RoleAssistant, reply, o.opts.Now())

	if err := o.store.Upsert(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	recent, err := o.store.Recent(ctx, o.opts.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	logger.Info("replied to conversation", "conversation", shortID(conv.ID), "messages", len(conv.Messages), "new", !existed)

	return &Result{
		ConversationID: conv.ID,
		Messages:       conv.Messages,
		Conversations:  recent,
	}, nil
}

// Recent returns the conversation summaries shown to clients.
func (o *Orchestrator) Recent(ctx context.Context) ([]*storage.Conversation, error) {
	return o.store.Recent(ctx, o.opts.RecentLimit)
}

// resolve returns a copy of the stored conversation, or a fresh unsaved one.
func (o *Orchestrator) resolve(ctx context.Context, text, conversationID string) (*storage.Conversation, bool, error) {
	if conversationID != "" {
		conv, err := o.store.FindByID(ctx, conversationID)
		if err == nil {
			return conv, true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to load conversation: %w", err)
		}
		o.logger.Debug("unknown conversation, starting a new one", "requested_id", conversationID)
	}

	now := o.opts.Now()
	return &storage.Conversation{
		ID:        o.opts.NewID(),
		Title:     TruncateTitle(text, o.opts.TitleLength),
		Messages:  []storage.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}, false, nil
}

func (o *Orchestrator) complete(ctx context.Context, req *aisdk.ChatCompletionRequest) (string, error) {
	resp, err := o.provider.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return aisdk.FirstContent(resp)
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
