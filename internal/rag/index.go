// Package rag indexes reference documents and retrieves the passages
// most relevant to a question. Documents are ingested as HTML, reduced
// to text, chunked with overlap and embedded; retrieval cosine-ranks
// the chunks against the query embedding.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/gemini"
)

// ErrDocumentNotFound is returned when a document ID has no index.
var ErrDocumentNotFound = errors.New("document not found")

type chunkEntry struct {
	text   string
	vector []float32
}

// Index holds embedded document chunks per document ID.
type Index struct {
	cfg      *config.Config
	embedder gemini.Embedder
	logger   *slog.Logger

	mu        sync.RWMutex
	documents map[string][]chunkEntry
}

// NewIndex builds an empty index.
func NewIndex(cfg *config.Config, embedder gemini.Embedder, logger *slog.Logger) *Index {
	return &Index{
		cfg:       cfg,
		embedder:  embedder,
		logger:    logger,
		documents: make(map[string][]chunkEntry),
	}
}

func (i *Index) chunkSize() int {
	if i.cfg.RAG.ChunkSize > 0 {
		return i.cfg.RAG.ChunkSize
	}
	return 1000
}

func (i *Index) chunkOverlap() int {
	if i.cfg.RAG.ChunkOverlap >= 0 {
		return i.cfg.RAG.ChunkOverlap
	}
	return 200
}

// Ingest extracts text from an HTML document, chunks and embeds it,
// replacing any previous index for the same ID. Returns the chunk
// count.
func (i *Index) Ingest(ctx context.Context, docID string, html string) (int, error) {
	if strings.TrimSpace(docID) == "" {
		return 0, errors.New("document id is empty")
	}

	text, err := ExtractText(html)
	if err != nil {
		return 0, err
	}
	chunks := ChunkText(text, i.chunkSize(), i.chunkOverlap())
	if len(chunks) == 0 {
		return 0, errors.New("document has no extractable text")
	}

	entries := make([]chunkEntry, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := i.embedder.Embed(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("embed chunk: %w", err)
		}
		entries = append(entries, chunkEntry{text: chunk, vector: vector})
	}

	i.mu.Lock()
	i.documents[docID] = entries
	i.mu.Unlock()

	if i.logger != nil {
		i.logger.Info("rag_document_indexed", "doc_id", docID, "chunks", len(entries))
	}
	return len(entries), nil
}

// Query returns the k chunks of a document most similar to the query.
func (i *Index) Query(ctx context.Context, docID string, query string, k int) ([]string, error) {
	i.mu.RLock()
	entries, ok := i.documents[docID]
	i.mu.RUnlock()
	if !ok {
		return nil, ErrDocumentNotFound
	}

	if k <= 0 {
		k = i.cfg.RAG.RetrieveTopK
	}
	if k <= 0 {
		k = 3
	}

	queryVector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(entries))
	for _, entry := range entries {
		ranked = append(ranked, scored{text: entry.text, score: cosine(queryVector, entry.vector)})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
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

// Delete removes a document from the index.
func (i *Index) Delete(docID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.documents[docID]; !ok {
		return false
	}
	delete(i.documents, docID)
	return true
}

// Documents lists indexed document IDs with chunk counts.
func (i *Index) Documents() map[string]int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]int, len(i.documents))
	for docID, entries := range i.documents {
		out[docID] = len(entries)
	}
	return out
}

// BuildContext renders retrieved passages as a prompt block.
func BuildContext(passages []string) string {
	if len(passages) == 0 {
		return ""
	}

	var builder strings.Builder
	builder.WriteString("[Reference passages]\n")
	builder.WriteString("This is not medical advice.\n")
	for n, passage := range passages {
		builder.WriteString(fmt.Sprintf("%d. %s\n", n+1, passage))
	}
	return builder.String()
}

func cosine(a []float32, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for idx := range a {
		dot += float64(a[idx]) * float64(b[idx])
		normA += float64(a[idx]) * float64(a[idx])
		normB += float64(b[idx]) * float64(b[idx])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
