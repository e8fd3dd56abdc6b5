package session

import (
	"context"

	"github.com/mediexplain/llm-server-go/internal/llm"
)

// Storage is the session store interface, so tests can inject a fake
// implementation.
type Storage interface {
	// IsEnabled reports whether the store is usable.
	IsEnabled() bool

	// CreateSession stores new session metadata.
	CreateSession(ctx context.Context, meta Meta) error

	// GetSession loads session metadata.
	GetSession(ctx context.Context, sessionID string) (*Meta, error)

	// UpdateSession rewrites session metadata.
	UpdateSession(ctx context.Context, meta Meta) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// GetHistory loads the conversation history.
	GetHistory(ctx context.Context, sessionID string) ([]llm.HistoryEntry, error)

	// AppendHistory appends history entries.
	AppendHistory(ctx context.Context, sessionID string, entries ...llm.HistoryEntry) error

	// SessionCount returns the session count.
	SessionCount(ctx context.Context) (int, error)

	// Ping checks the backing connection.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close()
}

// Compile-time check that Store implements Storage.
var _ Storage = (*Store)(nil)
