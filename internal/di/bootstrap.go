package di

import (
	"fmt"

	"github.com/mediexplain/llm-server-go/internal/archive"
	"github.com/mediexplain/llm-server-go/internal/config"
	assistdomain "github.com/mediexplain/llm-server-go/internal/domain/assist"
	synthdomain "github.com/mediexplain/llm-server-go/internal/domain/synth"
	"github.com/mediexplain/llm-server-go/internal/gemini"
	"github.com/mediexplain/llm-server-go/internal/guard"
	"github.com/mediexplain/llm-server-go/internal/handler"
	"github.com/mediexplain/llm-server-go/internal/memory"
	"github.com/mediexplain/llm-server-go/internal/metrics"
	"github.com/mediexplain/llm-server-go/internal/rag"
	"github.com/mediexplain/llm-server-go/internal/server"
	"github.com/mediexplain/llm-server-go/internal/session"
	"github.com/mediexplain/llm-server-go/internal/usage"
	assistusecase "github.com/mediexplain/llm-server-go/internal/usecase/assist"
	synthusecase "github.com/mediexplain/llm-server-go/internal/usecase/synth"
)

// InitializeApp initializes the application dependencies and returns
// an App instance.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	metricsStore := metrics.NewStore()

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	telemetryProvider, err := ProvideTelemetry(cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	usageRepository := usage.NewRepository(cfg, logger)
	usageRecorder := usage.NewRecorder(cfg, usageRepository, logger)

	geminiClient, err := gemini.NewClient(cfg, metricsStore, usageRecorder)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	injectionGuard, err := guard.NewGuard(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	llmHandler := handler.NewLLMHandler(cfg, geminiClient, injectionGuard, metricsStore, usageRepository, logger)

	sessionStore, err := session.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	sessionManager := session.NewManager(sessionStore, geminiClient, cfg, logger)
	sessionHandler := handler.NewSessionHandler(sessionManager, injectionGuard, logger)
	guardHandler := handler.NewGuardHandler(injectionGuard)
	usageHandler := handler.NewUsageHandler(cfg, usageRepository, logger)

	archiveStore, err := archive.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("archive store: %w", err)
	}

	memoryStore, err := memory.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	memoryManager := memory.NewManager(cfg, memoryStore, geminiClient, logger)
	ragIndex := rag.NewIndex(cfg, geminiClient, logger)

	assistPrompts, err := assistdomain.NewPrompts()
	if err != nil {
		return nil, fmt.Errorf("assist prompts: %w", err)
	}

	assistService := assistusecase.New(cfg, geminiClient, injectionGuard, sessionStore, memoryManager, ragIndex, assistPrompts, logger)
	assistHandler := handler.NewAssistHandler(assistService, logger)

	synthPrompts, err := synthdomain.NewPrompts()
	if err != nil {
		return nil, fmt.Errorf("synth prompts: %w", err)
	}

	synthService := synthusecase.New(cfg, geminiClient, synthPrompts, archiveStore, ProvideRand(), logger)
	synthHandler := handler.NewSynthHandler(synthService, logger)

	memoryHandler := handler.NewMemoryHandler(memoryManager, logger)
	ragHandler := handler.NewRAGHandler(ragIndex, logger)
	extractHandler := handler.NewExtractHandler()

	router := handler.NewRouter(cfg, logger, llmHandler, sessionHandler, guardHandler, usageHandler, assistHandler, synthHandler, memoryHandler, ragHandler, extractHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, telemetryProvider, sessionStore, archiveStore, memoryStore, usageRepository, usageRecorder), nil
}
