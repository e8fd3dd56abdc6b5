// Package archive persists generated synthetic patient records.
//
// Records are serialized to JSON, zstd-compressed and written to Valkey
// with a TTL. When the store is disabled the archive degrades to an
// in-process map, matching the session store's fallback behavior.
package archive

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

var (
	// ErrRecordNotFound is returned when no record exists for an ID.
	ErrRecordNotFound = errors.New("record not found")
)

// Record is an archived synthetic patient record.
type Record struct {
	ID          string         `json:"id"`
	Condition   string         `json:"condition"`
	Patient     map[string]any `json:"patient_record"`
	Safety      map[string]any `json:"safety_flags,omitempty"`
	Consistency map[string]any `json:"consistency_report,omitempty"`
	Markdown    string         `json:"markdown,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Store is the record archive.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	backend storeBackend

	mu        sync.Mutex
	records   map[string][]byte
	expiresAt map[string]time.Time
}

// NewStore builds the archive on the shared Valkey connection settings.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.SessionStore.Enabled {
		return newMemoryStore(cfg), nil
	}

	conn, err := parseArchiveURL(cfg.SessionStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse archive store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse archive store addr: %w", splitErr)
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

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:       cfg,
		backend:   storeBackendMemory,
		records:   make(map[string][]byte),
		expiresAt: make(map[string]time.Time),
	}
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

func (s *Store) recordKey(recordID string) string {
	return fmt.Sprintf("record:%s", recordID)
}

func (s *Store) ttl() time.Duration {
	return time.Duration(s.cfg.Synth.ArchiveTTLMinutes) * time.Minute
}

// Save compresses and stores a record under its ID.
func (s *Store) Save(ctx context.Context, record Record) error {
	if record.ID == "" {
		return errors.New("record id is empty")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	compressed, err := compressZstd(data)
	if err != nil {
		return err
	}

	if s.backend == storeBackendMemory {
		s.saveMemory(record.ID, compressed)
		return nil
	}

	builder := s.client.B().Set().Key(s.recordKey(record.ID)).Value(valkey.BinaryString(compressed))
	var cmd valkey.Completed
	if ttl := s.ttl(); ttl > 0 {
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Get loads a record by ID.
func (s *Store) Get(ctx context.Context, recordID string) (*Record, error) {
	var compressed []byte
	if s.backend == storeBackendMemory {
		data, ok := s.getMemory(recordID)
		if !ok {
			return nil, ErrRecordNotFound
		}
		compressed = data
	} else {
		cmd := s.client.B().Get().Key(s.recordKey(recordID)).Build()
		data, err := s.client.Do(ctx, cmd).AsBytes()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				return nil, ErrRecordNotFound
			}
			return nil, fmt.Errorf("get record: %w", err)
		}
		compressed = data
	}

	data, err := decompressZstd(compressed)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &record, nil
}

// Count returns the approximate number of archived records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.backend == storeBackendMemory {
		s.mu.Lock()
		s.pruneExpiredLocked(time.Now())
		count := len(s.records)
		s.mu.Unlock()
		return count, nil
	}

	var count int
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match("record:*").Count(100).Build()
		result, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return 0, fmt.Errorf("scan records: %w", err)
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
	if s.backend == storeBackendMemory {
		return nil
	}
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

func (s *Store) saveMemory(recordID string, data []byte) {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	s.records[recordID] = data
	if ttl := s.ttl(); ttl > 0 {
		s.expiresAt[recordID] = now.Add(ttl)
	} else {
		delete(s.expiresAt, recordID)
	}
	s.mu.Unlock()
}

func (s *Store) getMemory(recordID string) ([]byte, bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneExpiredLocked(now)

	data, ok := s.records[recordID]
	if !ok {
		return nil, false
	}
	return data, true
}

func (s *Store) pruneExpiredLocked(now time.Time) {
	for recordID, expiry := range s.expiresAt {
		if expiry.IsZero() || now.Before(expiry) {
			continue
		}
		delete(s.expiresAt, recordID)
		delete(s.records, recordID)
	}
}
