package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []*aisdk.ChatCompletionRequest
	reply    func(req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error)
}

func (f *fakeProvider) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(req)
	}
	last := req.Messages[len(req.Messages)-1]
	return textResponse("echo: " + last.Content), nil
}

func (f *fakeProvider) lastRequest() *aisdk.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func textResponse(content string) *aisdk.ChatCompletionResponse {
	return &aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{Message: aisdk.Message{Role: aisdk.RoleAssistant, Content: content}}},
	}
}

func failingProvider(err error) *fakeProvider {
	return &fakeProvider{reply: func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
		return nil, err
	}}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.SystemPrompt = "You are a test assistant."
	var n int
	var mu sync.Mutex
	opts.NewID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("conv-%d", n)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	opts.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return opts
}

func newTestOrchestrator(provider aisdk.Provider) (*Orchestrator, *storage.MemoryStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore(0, logger)
	return NewOrchestrator(store, provider, testOptions(), logger), store
}

func seedConversation(t *testing.T, store storage.Store, id string, n int) {
	t.Helper()
	conv := &storage.Conversation{ID: id, Title: "seed " + id}
	for i := 0; i < n; i++ {
		role := aisdk.RoleUser
		if i%2 == 1 {
			role = aisdk.RoleAssistant
		}
		conv.Append(role, fmt.Sprintf("%s-%d", id, i), time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC))
	}
	require.NoError(t, store.Upsert(context.Background(), conv))
}

func TestHandleMessageCreatesConversation(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	o, store := newTestOrchestrator(provider)

	res, err := o.HandleMessage(ctx, "Hello", "")
	require.NoError(t, err)

	assert.Equal(t, "conv-1", res.ConversationID)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, aisdk.RoleUser, res.Messages[0].Role)
	assert.Equal(t, "Hello", res.Messages[0].Content)
	assert.Equal(t, aisdk.RoleAssistant, res.Messages[1].Role)
	assert.Equal(t, "echo: Hello", res.Messages[1].Content)
	assert.True(t, res.Messages[0].Timestamp.Before(res.Messages[1].Timestamp))

	require.Len(t, res.Conversations, 1)
	assert.Equal(t, "Hello", res.Conversations[0].Title)

	stored, err := store.FindByID(ctx, res.ConversationID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)

	req := provider.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.7, *req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, aisdk.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are a test assistant.", req.Messages[0].Content)
}

func TestHandleMessageUsesDefaultIDs(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewOrchestrator(storage.NewMemoryStore(0, logger), &fakeProvider{}, DefaultOptions(), logger)

	first, err := o.HandleMessage(context.Background(), "one", "")
	require.NoError(t, err)
	second, err := o.HandleMessage(context.Background(), "two", "")
	require.NoError(t, err)

	assert.Len(t, first.ConversationID, 36)
	assert.NotEqual(t, first.ConversationID, second.ConversationID)
}

func TestHandleMessageResolvesByID(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(&fakeProvider{})
	seedConversation(t, store, "C1", 3)

	res, err := o.HandleMessage(ctx, "next", "C1")
	require.NoError(t, err)

	assert.Equal(t, "C1", res.ConversationID)
	require.Len(t, res.Messages, 5)
	assert.Equal(t, "next", res.Messages[3].Content)
	assert.Equal(t, "seed C1", res.Conversations[0].Title)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandleMessageUnknownIDStartsNewConversation(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(&fakeProvider{})
	seedConversation(t, store, "C1", 2)

	res, err := o.HandleMessage(ctx, "hi", "does-not-exist")
	require.NoError(t, err)

	assert.NotEqual(t, "does-not-exist", res.ConversationID)
	assert.NotEqual(t, "C1", res.ConversationID)
	assert.Len(t, res.Messages, 2)

	_, err = store.FindByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHandleMessageCapsContextWindow(t *testing.T) {
	provider := &fakeProvider{}
	o, store := newTestOrchestrator(provider)
	seedConversation(t, store, "long", 15)

	_, err := o.HandleMessage(context.Background(), "latest", "long")
	require.NoError(t, err)

	req := provider.lastRequest()
	require.NotNil(t, req)
	require.Equal(t, aisdk.RoleSystem, req.Messages[0].Role)

	history := req.Messages[1:]
	require.Len(t, history, 10)
	assert.Equal(t, aisdk.RoleUser, history[9].Role)
	assert.Equal(t, "latest", history[9].Content)
	assert.Equal(t, "long-6", history[0].Content)
}

func TestHandleMessageTruncatesTitle(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeProvider{})
	text := strings.Repeat("abcdefghij", 8)

	res, err := o.HandleMessage(context.Background(), text, "")
	require.NoError(t, err)

	assert.Equal(t, text[:50], res.Conversations[0].Title)
	assert.Equal(t, text, res.Messages[0].Content)
}

func TestHandleMessageRecencyOrdering(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&fakeProvider{})

	a, err := o.HandleMessage(ctx, "A", "")
	require.NoError(t, err)
	_, err = o.HandleMessage(ctx, "B", "")
	require.NoError(t, err)
	_, err = o.HandleMessage(ctx, "C", "")
	require.NoError(t, err)

	res, err := o.HandleMessage(ctx, "again", a.ConversationID)
	require.NoError(t, err)

	var titles []string
	for _, c := range res.Conversations {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"A", "C", "B"}, titles)

	first, err := o.Recent(ctx)
	require.NoError(t, err)
	second, err := o.Recent(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHandleMessageRecentLimit(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&fakeProvider{})

	var last *Result
	for i := 0; i < 12; i++ {
		res, err := o.HandleMessage(ctx, fmt.Sprintf("msg %d", i), "")
		require.NoError(t, err)
		last = res
	}

	require.Len(t, last.Conversations, 10)
	assert.Equal(t, "msg 11", last.Conversations[0].Title)
}

func TestHandleMessageProviderFailureNewConversation(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("upstream exploded")
	o, store := newTestOrchestrator(failingProvider(cause))

	res, err := o.HandleMessage(ctx, "Hello", "")
	assert.Nil(t, res)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, perr.ConversationID)
	assert.Equal(t, aisdk.RoleUser, perr.Message.Role)
	assert.Equal(t, "Hello", perr.Message.Content)
	assert.False(t, perr.Message.Timestamp.IsZero())

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHandleMessageProviderFailureExistingConversation(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(failingProvider(errors.New("boom")))
	seedConversation(t, store, "A", 2)
	seedConversation(t, store, "B", 2)

	before, err := store.Recent(ctx, 10)
	require.NoError(t, err)

	_, err = o.HandleMessage(ctx, "next", "A")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "A", perr.ConversationID)

	after, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	conv, err := store.FindByID(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestHandleMessageEmptyReplyIsProviderFailure(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{reply: func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
		return &aisdk.ChatCompletionResponse{}, nil
	}}
	o, store := newTestOrchestrator(provider)

	_, err := o.HandleMessage(ctx, "Hello", "")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, aisdk.ErrEmptyResponse)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleMessageRejectsBlankText(t *testing.T) {
	provider := &fakeProvider{}
	o, _ := newTestOrchestrator(provider)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := o.HandleMessage(context.Background(), text, "")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Nil(t, provider.lastRequest())
}

func TestHandleMessageConcurrentSameConversation(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{reply: func(req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
		time.Sleep(time.Millisecond)
		return textResponse("ok"), nil
	}}
	o, store := newTestOrchestrator(provider)
	seedConversation(t, store, "shared", 2)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.HandleMessage(ctx, fmt.Sprintf("worker %d", i), "shared")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	conv, err := store.FindByID(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2+2*workers)

	for i := 2; i < len(conv.Messages); i += 2 {
		assert.Equal(t, aisdk.RoleUser, conv.Messages[i].Role)
		assert.Equal(t, aisdk.RoleAssistant, conv.Messages[i+1].Role)
	}
	assert.Zero(t, o.locks.size())
}

func TestHandleMessageConcurrentDistinctConversations(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(&fakeProvider{})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.HandleMessage(ctx, fmt.Sprintf("hello %d", i), "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Err: errors.New("timeout")}
	assert.Equal(t, "provider call failed: timeout", err.Error())
}
