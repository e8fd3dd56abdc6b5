package gemini

import (
	"context"

	"github.com/mediexplain/llm-server-go/internal/llm"
)

// LLM is the client interface used by the use cases, so tests can inject
// a fake implementation.
type LLM interface {
	// Chat performs a plain text request.
	Chat(ctx context.Context, req Request) (string, string, error)

	// ChatWithUsage returns the response together with token usage.
	ChatWithUsage(ctx context.Context, req Request) (llm.ChatResult, string, error)

	// Structured requests a schema-constrained JSON response.
	Structured(ctx context.Context, req Request, schema map[string]any) (map[string]any, string, error)
}

// Embedder produces embedding vectors for memory and retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var (
	_ LLM      = (*Client)(nil)
	_ Embedder = (*Client)(nil)
)
