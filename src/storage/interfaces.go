package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// ErrNotFound is returned by FindByID when no conversation has the id.
var ErrNotFound = errors.New("conversation not found")

// Store holds conversations ordered most-recently-touched first.
// Implementations must be safe for concurrent use and must return copies,
// never references to their own records.
type Store interface {
	// FindByID returns the conversation with the exact id or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Conversation, error)
	// Upsert replaces the conversation with the same id, or inserts it,
	// and moves it to the front of the order.
	Upsert(ctx context.Context, conv *Conversation) error
	// Recent returns up to limit conversations from the front of the order.
	Recent(ctx context.Context, limit int) ([]*Conversation, error)
	// Len returns the number of stored conversations.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Execer is an interface for executing SQL statements
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExecQuerier combines both Execer and sqlscan.Querier interfaces
// for operations that need both SELECT and INSERT/UPDATE/DELETE capabilities
type ExecQuerier interface {
	Execer
	sqlscan.Querier
}
