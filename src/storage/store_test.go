package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type storeFactory func(t *testing.T, max int) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, max int) Store {
			return NewMemoryStore(max, discardLogger)
		},
		"sqlite": func(t *testing.T, max int) Store {
			db, err := Open(filepath.Join(t.TempDir(), "chatrelay.db"))
			require.NoError(t, err)
			store := NewSQLStore(db, max, discardLogger)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func conversation(id, title string, contents ...string) *Conversation {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	conv := &Conversation{ID: id, Title: title, CreatedAt: base}
	for i, content := range contents {
		role := aisdk.RoleUser
		if i%2 == 1 {
			role = aisdk.RoleAssistant
		}
		conv.Append(role, content, base.Add(time.Duration(i)*time.Second))
	}
	return conv
}

func ids(convs []*Conversation) []string {
	out := make([]string, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ID)
	}
	return out
}

func TestStore(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("find missing", func(t *testing.T) {
				store := newStore(t, 0)
				_, err := store.FindByID(context.Background(), "nope")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("upsert then find", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t, 0)
				require.NoError(t, store.Upsert(ctx, conversation("a", "Hello", "Hello", "Hi!")))

				got, err := store.FindByID(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, "Hello", got.Title)
				require.Len(t, got.Messages, 2)
				assert.Equal(t, aisdk.RoleUser, got.Messages[0].Role)
				assert.Equal(t, "Hi!", got.Messages[1].Content)
				assert.True(t, got.Messages[1].Timestamp.Equal(time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)))
			})

			t.Run("upsert appends to existing", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t, 0)
				conv := conversation("a", "Hello", "Hello", "Hi!")
				require.NoError(t, store.Upsert(ctx, conv))

				conv.Append(aisdk.RoleUser, "More", time.Now())
				conv.Append(aisdk.RoleAssistant, "Sure", time.Now())
				require.NoError(t, store.Upsert(ctx, conv))

				got, err := store.FindByID(ctx, "a")
				require.NoError(t, err)
				require.Len(t, got.Messages, 4)
				assert.Equal(t, "Sure", got.Messages[3].Content)

				n, err := store.Len(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("recent is most recently touched first", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t, 0)
				require.NoError(t, store.Upsert(ctx, conversation("a", "A", "1", "2")))
				require.NoError(t, store.Upsert(ctx, conversation("b", "B", "1", "2")))
				require.NoError(t, store.Upsert(ctx, conversation("c", "C", "1", "2")))

				recent, err := store.Recent(ctx, 10)
				require.NoError(t, err)
				assert.Equal(t, []string{"c", "b", "a"}, ids(recent))

				require.NoError(t, store.Upsert(ctx, conversation("a", "A", "1", "2", "3", "4")))
				recent, err = store.Recent(ctx, 2)
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "c"}, ids(recent))
				assert.Len(t, recent[0].Messages, 4)
			})

			t.Run("recent with non-positive limit", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t, 0)
				require.NoError(t, store.Upsert(ctx, conversation("a", "A", "1", "2")))

				recent, err := store.Recent(ctx, 0)
				require.NoError(t, err)
				assert.NotNil(t, recent)
				assert.Empty(t, recent)
			})

			t.Run("returned conversations are copies", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t, 0)
				require.NoError(t, store.Upsert(ctx, conversation("a", "A", "1", "2")))

				got, err := store.FindByID(ctx, "a")
				require.NoError(t, err)
				got.Messages[0].Content = "changed"
				got.Append(aisdk.RoleUser, "extra", time.Now())

				again, err := store.FindByID(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, "1", again.Messages[0].Content)
				assert.Len(t, again.Messages, 2)
			})

			t.Run("evicts least recently touched", func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t, 2)
				require.NoError(t, store.Upsert(ctx, conversation("a", "A", "1", "2")))
				require.NoError(t, store.Upsert(ctx, conversation("b", "B", "1", "2")))
				require.NoError(t, store.Upsert(ctx, conversation("a", "A", "1", "2", "3", "4")))
				require.NoError(t, store.Upsert(ctx, conversation("c", "C", "1", "2")))

				_, err := store.FindByID(ctx, "b")
				assert.ErrorIs(t, err, ErrNotFound)

				recent, err := store.Recent(ctx, 10)
				require.NoError(t, err)
				assert.Equal(t, []string{"c", "a"}, ids(recent))
			})
		})
	}
}

func TestMemoryStoreConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, discardLogger)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", i)
			assert.NoError(t, store.Upsert(ctx, conversation(id, id, "q", "a")))
			_, err := store.FindByID(ctx, id)
			assert.NoError(t, err)
			_, err = store.Recent(ctx, 10)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestMemoryStoreRejectsMissingID(t *testing.T) {
	store := NewMemoryStore(0, discardLogger)
	assert.Error(t, store.Upsert(context.Background(), &Conversation{}))
}

func TestMigrationStatus(t *testing.T) {
	ctx := context.Background()
	db, err := OpenWithoutMigrations(filepath.Join(t.TempDir(), "status.db"))
	require.NoError(t, err)
	defer db.Close()

	status, err := db.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	assert.False(t, status[0].Applied)

	ran, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ran)

	ran, err = db.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran)

	status, err = db.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status[0].Applied)
	assert.Equal(t, "001_initial_schema", status[0].Name)
}

func TestExtractUpMigration(t *testing.T) {
	content := `-- +goose Up
-- +goose StatementBegin
CREATE TABLE t (id INTEGER);
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
DROP TABLE t;
-- +goose StatementEnd
`
	assert.Equal(t, "CREATE TABLE t (id INTEGER);", extractUpMigration(content))
}
