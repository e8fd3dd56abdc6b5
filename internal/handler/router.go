package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/middleware"
)

// NewRouter wires every handler into the gin engine.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	llmHandler *LLMHandler,
	sessionHandler *SessionHandler,
	guardHandler *GuardHandler,
	usageHandler *UsageHandler,
	assistHandler *AssistHandler,
	synthHandler *SynthHandler,
	memoryHandler *MemoryHandler,
	ragHandler *RAGHandler,
	extractHandler *ExtractHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.APIKeyAuth(cfg),
		middleware.RateLimit(cfg),
	)

	RegisterHealthRoutes(router, cfg)
	llmHandler.RegisterRoutes(router)
	sessionHandler.RegisterRoutes(router)
	guardHandler.RegisterRoutes(router)
	usageHandler.RegisterRoutes(router)
	assistHandler.RegisterRoutes(router)
	synthHandler.RegisterRoutes(router)
	memoryHandler.RegisterRoutes(router)
	ragHandler.RegisterRoutes(router)
	extractHandler.RegisterRoutes(router)

	return router
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
