package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/llm"
)

var (
	// ErrSessionNotFound is returned when no session exists for an ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreDisabled is returned when the store is disabled.
	ErrStoreDisabled = errors.New("session store disabled")
)

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Meta is the session metadata.
type Meta struct {
	ID           string    `json:"id"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store is the Valkey-backed session store with an in-process fallback.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	enabled bool
	backend storeBackend

	mu              sync.RWMutex
	meta            map[string]Meta
	history         map[string][]llm.HistoryEntry
	metaExpiresAt   map[string]time.Time
	historyExpireAt map[string]time.Time
}

// NewStore builds the session store.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.SessionStore.Enabled {
		if cfg.SessionStore.Required {
			return nil, errors.New("session store required but disabled")
		}
		return newMemoryStore(cfg), nil
	}

	conn, err := parseStoreURL(cfg.SessionStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse session store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse session store addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		TLSConfig:    tlsConfig,
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.SessionStore.DisableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		enabled: true,
		backend: storeBackendValkey,
	}, nil
}

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:             cfg,
		enabled:         true,
		backend:         storeBackendMemory,
		meta:            make(map[string]Meta),
		history:         make(map[string][]llm.HistoryEntry),
		metaExpiresAt:   make(map[string]time.Time),
		historyExpireAt: make(map[string]time.Time),
	}
}

// IsEnabled reports whether the store is usable.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// Close releases the Valkey connection.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.backend == storeBackendValkey && s.client != nil {
		s.client.Close()
	}
}

// metaKey is the session metadata key.
func (s *Store) metaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

// historyKey is the session history key.
func (s *Store) historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

// ttl is the configured session TTL.
func (s *Store) ttl() time.Duration {
	return time.Duration(s.cfg.Session.SessionTTLMinutes) * time.Minute
}

// CreateSession stores new session metadata.
func (s *Store) CreateSession(ctx context.Context, meta Meta) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.createSessionMemory(meta)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	cmd := s.client.B().Set().Key(s.metaKey(meta.ID)).Value(string(data)).Ex(s.ttl()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetSession loads session metadata.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Meta, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getSessionMemory(sessionID)
	}

	cmd := s.client.B().Get().Key(s.metaKey(sessionID)).Build()
	result, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var m Meta
	if err := json.Unmarshal([]byte(result), &m); err != nil {
		return nil, fmt.Errorf("unmarshal session meta: %w", err)
	}

	return &m, nil
}

// UpdateSession rewrites session metadata.
func (s *Store) UpdateSession(ctx context.Context, meta Meta) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.updateSessionMemory(meta)
	}

	meta.UpdatedAt = time.Now()
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	cmd := s.client.B().Set().Key(s.metaKey(meta.ID)).Value(string(data)).Ex(s.ttl()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return nil
}

// DeleteSession removes metadata and history in a single DoMulti batch.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.deleteSessionMemory(sessionID)
	}

	metaCmd := s.client.B().Del().Key(s.metaKey(sessionID)).Build()
	historyCmd := s.client.B().Del().Key(s.historyKey(sessionID)).Build()

	results := s.client.DoMulti(ctx, metaCmd, historyCmd)
	for i, result := range results {
		if err := result.Error(); err != nil && !valkey.IsValkeyNil(err) {
			if i == 0 {
				return fmt.Errorf("delete session meta: %w", err)
			}
			return fmt.Errorf("delete session history: %w", err)
		}
	}
	return nil
}

// GetHistory loads the conversation history.
func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]llm.HistoryEntry, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getHistoryMemory(sessionID), nil
	}

	cmd := s.client.B().Lrange().Key(s.historyKey(sessionID)).Start(0).Stop(-1).Build()
	results, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	history := make([]llm.HistoryEntry, 0, len(results))
	for _, item := range results {
		var entry llm.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue // skip invalid entries
		}
		history = append(history, entry)
	}

	return history, nil
}

// AppendHistory appends entries, refreshes the TTL and trims the list
// in a single DoMulti batch.
func (s *Store) AppendHistory(ctx context.Context, sessionID string, entries ...llm.HistoryEntry) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if len(entries) == 0 {
		return nil
	}
	if s.backend == storeBackendMemory {
		return s.appendHistoryMemory(sessionID, entries...)
	}

	historyKey := s.historyKey(sessionID)

	elements := make([]string, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		elements = append(elements, string(data))
	}

	cmds := make([]valkey.Completed, 0, 3)

	rpushCmd := s.client.B().Rpush().Key(historyKey).Element(elements...).Build()
	cmds = append(cmds, rpushCmd)

	expireCmd := s.client.B().Expire().Key(historyKey).Seconds(int64(s.ttl().Seconds())).Build()
	cmds = append(cmds, expireCmd)

	maxPairs := s.cfg.Session.HistoryMaxPairs
	if maxPairs > 0 {
		trimCmd := s.client.B().Ltrim().Key(historyKey).Start(int64(-maxPairs * 2)).Stop(-1).Build()
		cmds = append(cmds, trimCmd)
	}

	results := s.client.DoMulti(ctx, cmds...)
	if err := results[0].Error(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return nil
}

// SessionCount returns the approximate session count via SCAN.
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	if !s.enabled {
		return 0, nil
	}
	if s.backend == storeBackendMemory {
		return s.sessionCountMemory(), nil
	}

	var count int
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match("session:*:meta").Count(100).Build()
		result, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		count += len(result.Elements)
		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// Ping checks the Valkey connection.
func (s *Store) Ping(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return nil
	}

	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}
