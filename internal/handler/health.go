package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediexplain/llm-server-go/internal/config"
	"github.com/mediexplain/llm-server-go/internal/health"
)

// ModelConfigResponse describes the effective model routing.
type ModelConfigResponse struct {
	ModelDefault          string  `json:"model_default"`
	ModelRoute            string  `json:"model_route"`
	ModelAnswer           string  `json:"model_answer"`
	ModelGenerate         string  `json:"model_generate"`
	ModelVerify           string  `json:"model_verify"`
	ModelEmbed            string  `json:"model_embed"`
	Temperature           float64 `json:"temperature"`
	ConfiguredTemperature float64 `json:"configured_temperature"`
	TimeoutSeconds        int     `json:"timeout_seconds"`
	MaxRetries            int     `json:"max_retries"`
	HTTP2Enabled          bool    `json:"http2_enabled"`
	TransportMode         string  `json:"transport_mode"`
}

// RegisterHealthRoutes registers liveness, readiness and metrics routes.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		// Liveness stays shallow so Valkey or DB trouble never kills the pod.
		payload := health.Collect(c.Request.Context(), cfg, false)
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), cfg, true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health/models", func(c *gin.Context) {
		defaultModel := cfg.Gemini.DefaultModel

		transportMode := "h1"
		if cfg.HTTP.HTTP2Enabled {
			transportMode = "h2c"
		}

		response := ModelConfigResponse{
			ModelDefault:          defaultModel,
			ModelRoute:            cfg.Gemini.ModelForTask("route"),
			ModelAnswer:           cfg.Gemini.ModelForTask("answer"),
			ModelGenerate:         cfg.Gemini.ModelForTask("generate"),
			ModelVerify:           cfg.Gemini.ModelForTask("verify"),
			ModelEmbed:            cfg.Gemini.EmbedModel,
			Temperature:           cfg.Gemini.TemperatureForModel(defaultModel),
			ConfiguredTemperature: cfg.Gemini.Temperature,
			TimeoutSeconds:        cfg.Gemini.TimeoutSeconds,
			MaxRetries:            cfg.Gemini.MaxRetries,
			HTTP2Enabled:          cfg.HTTP.HTTP2Enabled,
			TransportMode:         transportMode,
		}

		c.JSON(http.StatusOK, response)
	})
}
