package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/logging"
	"github.com/mediexplain/llm-server-go/internal/randx"
	"github.com/mediexplain/llm-server-go/internal/telemetry"
)

// ProvideLogger configures and returns the logger. When OTel is
// enabled the log records carry trace_id/span_id automatically.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLoggerWithOTel(cfg.Logging, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideTelemetry initializes the tracer provider. Returns a no-op
// provider when tracing is disabled.
func ProvideTelemetry(cfg *config.Config) (*telemetry.Provider, error) {
	provider, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return provider, nil
}

// ProvideRand returns the shared seeded random source.
func ProvideRand() *randx.LockedRand {
	return randx.New(nil)
}
