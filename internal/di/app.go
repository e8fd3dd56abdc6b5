package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mediexplain/llm-server-go/internal/archive"
	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/memory"
	"github.com/mediexplain/llm-server-go/internal/session"
	"github.com/mediexplain/llm-server-go/internal/telemetry"
	"github.com/mediexplain/llm-server-go/internal/usage"
)

// App bundles the application components.
type App struct {
	Server          *http.Server
	Logger          *slog.Logger
	Config          *config.Config
	Telemetry       *telemetry.Provider
	SessionStore    *session.Store
	ArchiveStore    *archive.Store
	MemoryStore     *memory.Store
	UsageRepository *usage.Repository
	UsageRecorder   *usage.Recorder
}

// NewApp creates an App instance.
func NewApp(
	server *http.Server,
	logger *slog.Logger,
	cfg *config.Config,
	telemetryProvider *telemetry.Provider,
	sessionStore *session.Store,
	archiveStore *archive.Store,
	memoryStore *memory.Store,
	usageRepository *usage.Repository,
	usageRecorder *usage.Recorder,
) *App {
	return &App{
		Server:          server,
		Logger:          logger,
		Config:          cfg,
		Telemetry:       telemetryProvider,
		SessionStore:    sessionStore,
		ArchiveStore:    archiveStore,
		MemoryStore:     memoryStore,
		UsageRepository: usageRepository,
		UsageRecorder:   usageRecorder,
	}
}

// Close releases app resources.
func (a *App) Close() {
	if a.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.Telemetry.Shutdown(ctx)
		cancel()
	}
	if a.SessionStore != nil {
		a.SessionStore.Close()
	}
	if a.ArchiveStore != nil {
		a.ArchiveStore.Close()
	}
	if a.MemoryStore != nil {
		a.MemoryStore.Close()
	}
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
	if a.UsageRepository != nil {
		a.UsageRepository.Close()
	}
}
