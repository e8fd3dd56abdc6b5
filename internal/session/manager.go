package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/gemini"
	"github.com/mediexplain/llm-server-go/internal/llm"
)

// Manager owns session lifecycle and session-scoped chat.
type Manager struct {
	store  *Store
	gemini *gemini.Client
	cfg    *config.Config
	logger *slog.Logger
}

// NewManager builds a session manager.
func NewManager(
	store *Store,
	geminiClient *gemini.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:  store,
		gemini: geminiClient,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSessionRequest is the session creation payload.
type CreateSessionRequest struct {
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Info is the session info response.
type Info struct {
	ID           string             `json:"id"`
	SystemPrompt string             `json:"system_prompt,omitempty"`
	Model        string             `json:"model,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	MessageCount int                `json:"message_count"`
	History      []llm.HistoryEntry `json:"history,omitempty"`
}

// ChatRequest is the session chat payload.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the session chat response.
type ChatResponse struct {
	Response     string    `json:"response"`
	Model        string    `json:"model"`
	Usage        llm.Usage `json:"usage"`
	MessageCount int       `json:"message_count"`
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context, req CreateSessionRequest) (*Info, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	meta := Meta{
		ID:           sessionID,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: 0,
	}

	if err := m.store.CreateSession(ctx, meta); err != nil {
		return nil, err
	}

	m.logger.Debug("session_created", "session_id", sessionID)

	return &Info{
		ID:           meta.ID,
		SystemPrompt: meta.SystemPrompt,
		Model:        meta.Model,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
		MessageCount: meta.MessageCount,
	}, nil
}

// Get returns session info with history.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Info, error) {
	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := m.store.GetHistory(ctx, sessionID)
	if err != nil {
		history = nil // meta is still returned when history lookup fails
	}

	return &Info{
		ID:           meta.ID,
		SystemPrompt: meta.SystemPrompt,
		Model:        meta.Model,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
		MessageCount: meta.MessageCount,
		History:      history,
	}, nil
}

// Chat sends a message within a session.
func (m *Manager) Chat(ctx context.Context, sessionID string, req ChatRequest) (*ChatResponse, error) {
	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := m.store.GetHistory(ctx, sessionID)
	if err != nil {
		history = make([]llm.HistoryEntry, 0)
	}

	geminiReq := gemini.Request{
		Prompt:       req.Message,
		SystemPrompt: meta.SystemPrompt,
		History:      history,
		Model:        meta.Model,
	}

	result, model, err := m.gemini.ChatWithUsage(ctx, geminiReq)
	if err != nil {
		return nil, fmt.Errorf("chat with usage: %w", err)
	}

	userEntry := llm.HistoryEntry{Role: "user", Content: req.Message}
	assistantEntry := llm.HistoryEntry{Role: "assistant", Content: result.Text}

	if err := m.store.AppendHistory(ctx, sessionID, userEntry, assistantEntry); err != nil {
		m.logger.Warn("history_append_failed", "err", err)
	}

	meta.MessageCount += 2
	meta.UpdatedAt = time.Now()
	if err := m.store.UpdateSession(ctx, *meta); err != nil {
		m.logger.Warn("session_update_failed", "err", err)
	}

	return &ChatResponse{
		Response:     result.Text,
		Model:        model,
		Usage:        result.Usage,
		MessageCount: meta.MessageCount,
	}, nil
}

// Delete removes a session.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	m.logger.Debug("session_deleted", "session_id", sessionID)
	return nil
}

// Count returns the current session count.
func (m *Manager) Count(ctx context.Context) int {
	count, err := m.store.SessionCount(ctx)
	if err != nil {
		return 0
	}
	return count
}

// generateSessionID returns a random 32-char hex ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
