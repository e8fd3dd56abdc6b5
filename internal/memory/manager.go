package memory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/gemini"
)

// Manager embeds snippets on write and cosine-ranks them on read.
type Manager struct {
	cfg      *config.Config
	store    *Store
	embedder gemini.Embedder
	logger   *slog.Logger
}

// NewManager builds the memory manager.
func NewManager(cfg *config.Config, store *Store, embedder gemini.Embedder, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Enabled reports whether conversation memory is active.
func (m *Manager) Enabled() bool {
	return m != nil && m.cfg != nil && m.cfg.Memory.Enabled
}

// Add embeds a snippet and appends it to the user's memory. Blank
// snippets are dropped.
func (m *Manager) Add(ctx context.Context, userID string, text string) error {
	if !m.Enabled() {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	return m.store.Append(ctx, userID, Entry{
		Text:      text,
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	})
}

// Retrieve returns the k stored snippets most similar to the query,
// most similar first. Entries below the similarity floor are skipped.
func (m *Manager) Retrieve(ctx context.Context, userID string, query string, k int) ([]string, error) {
	if !m.Enabled() {
		return nil, nil
	}
	if k <= 0 {
		k = m.cfg.Memory.RetrieveTopK
	}
	if k <= 0 {
		k = 5
	}

	entries, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	queryVector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(entries))
	floor := m.cfg.Memory.MinSimilarity
	for _, entry := range entries {
		score := cosineSimilarity(queryVector, entry.Vector)
		if score < floor {
			continue
		}
		ranked = append(ranked, scored{text: entry.Text, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	texts := make([]string, 0, len(ranked))
	for _, item := range ranked {
		texts = append(texts, item.text)
	}
	return texts, nil
}

// Clear drops a user's memory.
func (m *Manager) Clear(ctx context.Context, userID string) error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Clear(ctx, userID)
}

func cosineSimilarity(a []float32, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
