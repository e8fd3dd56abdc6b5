//go:build wireinject

package di

import (
	"github.com/google/wire"

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

func InitializeApp() (*App, error) {
	wire.Build(
		config.ProvideConfig,
		ProvideLogger,
		ProvideTelemetry,
		ProvideRand,
		metrics.NewStore,
		usage.NewRepository,
		usage.NewRecorder,
		guard.NewGuard,
		wire.Bind(new(guard.Guard), new(*guard.InjectionGuard)),
		gemini.NewClient,
		wire.Bind(new(handler.LLMClient), new(*gemini.Client)),
		wire.Bind(new(gemini.LLM), new(*gemini.Client)),
		wire.Bind(new(gemini.Embedder), new(*gemini.Client)),
		session.NewStore,
		session.NewManager,
		archive.NewStore,
		memory.NewStore,
		memory.NewManager,
		rag.NewIndex,
		assistdomain.NewPrompts,
		synthdomain.NewPrompts,
		assistusecase.New,
		synthusecase.New,
		handler.NewLLMHandler,
		handler.NewSessionHandler,
		handler.NewGuardHandler,
		handler.NewUsageHandler,
		handler.NewAssistHandler,
		handler.NewSynthHandler,
		handler.NewMemoryHandler,
		handler.NewRAGHandler,
		handler.NewExtractHandler,
		handler.NewRouter,
		server.NewHTTPServer,
		NewApp,
	)
	return nil, nil
}
