// Package memory keeps per-user conversation memory: short snippets
// with embedding vectors, stored in Valkey lists and ranked by cosine
// similarity at retrieval time.
package memory

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
)

// Entry is one stored memory snippet.
type Entry struct {
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Store holds memory entries per user.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	backend storeBackend

	mu        sync.Mutex
	entries   map[string][]Entry
	expiresAt map[string]time.Time
}

// NewStore builds the memory store on the shared Valkey connection
// settings, falling back to an in-process map when the store is
// disabled.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.SessionStore.Enabled {
		return &Store{
			cfg:       cfg,
			backend:   storeBackendMemory,
			entries:   make(map[string][]Entry),
			expiresAt: make(map[string]time.Time),
		}, nil
	}

	conn, err := parseMemoryURL(cfg.SessionStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse memory store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse memory store addr: %w", splitErr)
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
		backend: storeBackendValkey,
	}, nil
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

func (s *Store) memoryKey(userID string) string {
	return fmt.Sprintf("memory:%s", userID)
}

func (s *Store) ttl() time.Duration {
	return time.Duration(s.cfg.Memory.TTLMinutes) * time.Minute
}

func (s *Store) maxEntries() int {
	if s.cfg.Memory.MaxEntries > 0 {
		return s.cfg.Memory.MaxEntries
	}
	return 50
}

// Append adds an entry to a user's memory, trimming to the configured
// maximum and refreshing the TTL.
func (s *Store) Append(ctx context.Context, userID string, entry Entry) error {
	if userID == "" {
		return errors.New("user id is empty")
	}

	if s.backend == storeBackendMemory {
		s.appendMemory(userID, entry)
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal memory entry: %w", err)
	}

	key := s.memoryKey(userID)
	if err := s.client.Do(ctx, s.client.B().Rpush().Key(key).Element(valkey.BinaryString(data)).Build()).Error(); err != nil {
		return fmt.Errorf("append memory entry: %w", err)
	}
	// keep only the newest maxEntries items
	if err := s.client.Do(ctx, s.client.B().Ltrim().Key(key).Start(int64(-s.maxEntries())).Stop(-1).Build()).Error(); err != nil {
		return fmt.Errorf("trim memory list: %w", err)
	}
	if ttl := s.ttl(); ttl > 0 {
		if err := s.client.Do(ctx, s.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()).Error(); err != nil {
			return fmt.Errorf("expire memory list: %w", err)
		}
	}
	return nil
}

// List returns every stored entry for a user, oldest first.
func (s *Store) List(ctx context.Context, userID string) ([]Entry, error) {
	if userID == "" {
		return nil, errors.New("user id is empty")
	}

	if s.backend == storeBackendMemory {
		return s.listMemory(userID), nil
	}

	cmd := s.client.B().Lrange().Key(s.memoryKey(userID)).Start(0).Stop(-1).Build()
	raw, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list memory entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear removes a user's memory.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is empty")
	}

	if s.backend == storeBackendMemory {
		s.mu.Lock()
		delete(s.entries, userID)
		delete(s.expiresAt, userID)
		s.mu.Unlock()
		return nil
	}

	cmd := s.client.B().Del().Key(s.memoryKey(userID)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	return nil
}

// Ping checks the Valkey connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend == storeBackendMemory {
		return nil
	}
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

func (s *Store) appendMemory(userID string, entry Entry) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneExpiredLocked(now)

	entries := append(s.entries[userID], entry)
	if max := s.maxEntries(); len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	s.entries[userID] = entries
	if ttl := s.ttl(); ttl > 0 {
		s.expiresAt[userID] = now.Add(ttl)
	} else {
		delete(s.expiresAt, userID)
	}
}

func (s *Store) listMemory(userID string) []Entry {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneExpiredLocked(now)

	entries := s.entries[userID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func (s *Store) pruneExpiredLocked(now time.Time) {
	for userID, expiry := range s.expiresAt {
		if expiry.IsZero() || now.Before(expiry) {
			continue
		}
		delete(s.expiresAt, userID)
		delete(s.entries, userID)
	}
}
