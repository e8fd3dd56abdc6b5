package session

import (
	"strings"
	"time"

	"github.com/mediexplain/llm-server-go/internal/llm"
)

// createSessionMemory stores metadata in the memory backend.
func (s *Store) createSessionMemory(meta Meta) error {
	now := time.Now()
	expiresAt := s.computeExpiry(now)

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	s.meta[meta.ID] = meta
	if !expiresAt.IsZero() {
		s.metaExpiresAt[meta.ID] = expiresAt
	} else {
		delete(s.metaExpiresAt, meta.ID)
	}
	s.mu.Unlock()
	return nil
}

// getSessionMemory loads metadata from the memory backend.
func (s *Store) getSessionMemory(sessionID string) (*Meta, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	expiresAt, ok := s.metaExpiresAt[sessionID]
	if ok && !expiresAt.IsZero() && now.After(expiresAt) {
		delete(s.metaExpiresAt, sessionID)
		delete(s.meta, sessionID)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	meta, ok := s.meta[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	s.mu.Unlock()

	copied := meta
	return &copied, nil
}

// updateSessionMemory rewrites metadata in the memory backend.
func (s *Store) updateSessionMemory(meta Meta) error {
	now := time.Now()
	meta.UpdatedAt = now
	expiresAt := s.computeExpiry(now)

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	s.meta[meta.ID] = meta
	if !expiresAt.IsZero() {
		s.metaExpiresAt[meta.ID] = expiresAt
	} else {
		delete(s.metaExpiresAt, meta.ID)
	}
	s.mu.Unlock()
	return nil
}

// deleteSessionMemory removes a session from the memory backend.
func (s *Store) deleteSessionMemory(sessionID string) error {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	delete(s.meta, sessionID)
	delete(s.history, sessionID)
	delete(s.metaExpiresAt, sessionID)
	delete(s.historyExpireAt, sessionID)
	s.mu.Unlock()
	return nil
}

// getHistoryMemory loads history from the memory backend.
func (s *Store) getHistoryMemory(sessionID string) []llm.HistoryEntry {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	expiresAt, ok := s.historyExpireAt[sessionID]
	if ok && !expiresAt.IsZero() && now.After(expiresAt) {
		delete(s.historyExpireAt, sessionID)
		delete(s.history, sessionID)
		s.mu.Unlock()
		return nil
	}

	history := s.history[sessionID]
	if len(history) == 0 {
		s.mu.Unlock()
		return nil
	}
	copied := append([]llm.HistoryEntry(nil), history...)
	s.mu.Unlock()
	return copied
}

// appendHistoryMemory appends history in the memory backend.
func (s *Store) appendHistoryMemory(sessionID string, entries ...llm.HistoryEntry) error {
	now := time.Now()
	expiresAt := s.computeExpiry(now)

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	existing := s.history[sessionID]
	existing = append(existing, entries...)

	maxPairs := 0
	if s.cfg != nil {
		maxPairs = s.cfg.Session.HistoryMaxPairs
	}
	if maxPairs > 0 {
		maxEntries := maxPairs * 2
		if len(existing) > maxEntries {
			existing = existing[len(existing)-maxEntries:]
		}
	}

	s.history[sessionID] = existing
	if !expiresAt.IsZero() {
		s.historyExpireAt[sessionID] = expiresAt
	} else {
		delete(s.historyExpireAt, sessionID)
	}
	s.mu.Unlock()
	return nil
}

// sessionCountMemory counts live sessions in the memory backend.
func (s *Store) sessionCountMemory() int {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	count := len(s.meta)
	s.mu.Unlock()
	return count
}

// computeExpiry derives the expiry time from the configured TTL.
func (s *Store) computeExpiry(now time.Time) time.Time {
	ttl := time.Duration(0)
	if s != nil {
		ttl = s.ttl()
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// pruneExpiredLocked drops expired sessions. Caller holds the lock.
func (s *Store) pruneExpiredLocked(now time.Time) {
	for sessionID, expiresAt := range s.metaExpiresAt {
		if expiresAt.IsZero() || now.Before(expiresAt) {
			continue
		}
		delete(s.metaExpiresAt, sessionID)
		delete(s.meta, sessionID)
	}

	for sessionID, expiresAt := range s.historyExpireAt {
		if expiresAt.IsZero() || now.Before(expiresAt) {
			continue
		}
		delete(s.historyExpireAt, sessionID)
		delete(s.history, sessionID)
	}
}
