package usage

import (
	"context"
	"time"
)

// Store is the usage persistence interface. Handlers depend on this so
// tests can inject a stub.
type Store interface {
	// RecordUsage stores token usage for one day.
	RecordUsage(
		ctx context.Context,
		inputTokens int64,
		outputTokens int64,
		reasoningTokens int64,
		requestCount int64,
		usageDate time.Time,
	) error

	// GetDailyUsage returns usage for one day.
	GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error)

	// GetRecentUsage returns usage for the last N days.
	GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error)

	// GetTotalUsage returns the N-day total.
	GetTotalUsage(ctx context.Context, days int) (DailyUsage, error)

	// Close releases resources.
	Close()
}

var _ Store = (*Repository)(nil)
