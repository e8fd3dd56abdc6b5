package memory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/mediexplain/llm-server-go/internal/config"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func testConfig(url string, enabled bool) *config.Config {
	return &config.Config{
		SessionStore: config.SessionStoreConfig{
			URL:     url,
			Enabled: enabled,
			// miniredis has no client-side caching support
			DisableCache: true,
		},
		Memory: config.MemoryConfig{
			Enabled:      true,
			MaxEntries:   10,
			TTLMinutes:   60,
			RetrieveTopK: 5,
		},
	}
}

func newTestManager(t *testing.T, cfg *config.Config, embedder *fakeEmbedder) *Manager {
	t.Helper()
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(store.Close)
	return NewManager(cfg, store, embedder, nil)
}

func TestManagerAddAndRetrieve(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"patient takes metformin":   {1, 0, 0},
		"patient is allergic to penicillin": {0, 1, 0},
		"which diabetes medication": {0.9, 0.1, 0},
	}}
	manager := newTestManager(t, testConfig("", false), embedder)

	ctx := context.Background()
	if err := manager.Add(ctx, "u1", "patient takes metformin"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := manager.Add(ctx, "u1", "patient is allergic to penicillin"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := manager.Retrieve(ctx, "u1", "which diabetes medication", 1)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 1 || got[0] != "patient takes metformin" {
		t.Fatalf("unexpected retrieval: %v", got)
	}
}

func TestManagerRetrieveValkeyBacked(t *testing.T) {
	mini := miniredis.RunT(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"snippet one": {1, 0, 0},
		"snippet two": {0, 1, 0},
		"query":       {0, 1, 0},
	}}
	manager := newTestManager(t, testConfig("redis://"+mini.Addr(), true), embedder)

	ctx := context.Background()
	if err := manager.Add(ctx, "u2", "snippet one"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := manager.Add(ctx, "u2", "snippet two"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := manager.Retrieve(ctx, "u2", "query", 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 2 || got[0] != "snippet two" {
		t.Fatalf("unexpected ranking: %v", got)
	}
}

func TestManagerBlankSnippetDropped(t *testing.T) {
	manager := newTestManager(t, testConfig("", false), &fakeEmbedder{})
	if err := manager.Add(context.Background(), "u3", "   "); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	entries, err := manager.store.List(context.Background(), "u3")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestManagerDisabled(t *testing.T) {
	cfg := testConfig("", false)
	cfg.Memory.Enabled = false
	manager := newTestManager(t, cfg, &fakeEmbedder{})

	if err := manager.Add(context.Background(), "u4", "anything"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got, err := manager.Retrieve(context.Background(), "u4", "anything", 3)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil retrieval when disabled")
	}
}

func TestStoreTrimToMaxEntries(t *testing.T) {
	cfg := testConfig("", false)
	cfg.Memory.MaxEntries = 2
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, "u5", Entry{Text: text}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.List(ctx, "u5")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Text != "b" || entries[1].Text != "c" {
		t.Fatalf("unexpected entries after trim: %v", entries)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
