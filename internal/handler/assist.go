package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	assistdomain "github.com/mediexplain/llm-server-go/internal/domain/assist"
	"github.com/mediexplain/llm-server-go/internal/handler/shared"
	"github.com/mediexplain/llm-server-go/internal/middleware"
	"github.com/mediexplain/llm-server-go/internal/usecase/assist"
)

// AssistAnswerRequest carries a user question for the bot suite.
type AssistAnswerRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Question  string `json:"question" binding:"required"`
	Report    string `json:"report"`
	ReportID  string `json:"report_id"`
}

// AssistAnswerResponse is the orchestrated answer.
type AssistAnswerResponse struct {
	Bot      string   `json:"bot"`
	Reason   string   `json:"reason"`
	Answer   string   `json:"answer"`
	Fallback bool     `json:"fallback"`
	Memory   []string `json:"memory,omitempty"`
}

// AssistRouteRequest asks only for the routing decision.
type AssistRouteRequest struct {
	Mode     string   `json:"mode"`
	Question string   `json:"question" binding:"required"`
	Report   string   `json:"report"`
	Memory   []string `json:"memory"`
}

// AssistRouteResponse is the routing decision.
type AssistRouteResponse struct {
	Bot    string `json:"bot"`
	Reason string `json:"reason"`
}

// AssistHandler exposes the assist orchestrator over HTTP.
type AssistHandler struct {
	service *assist.Service
	logger  *slog.Logger
}

// NewAssistHandler builds the assist handler.
func NewAssistHandler(service *assist.Service, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{service: service, logger: logger}
}

// RegisterRoutes registers the assist routes.
func (h *AssistHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/assist")
	group.POST("/answers", h.handleAnswer)
	group.POST("/routes", h.handleRoute)
}

func (h *AssistHandler) handleAnswer(c *gin.Context) {
	var req AssistAnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Answer(c.Request.Context(), middleware.GetRequestID(c), assist.AnswerRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Mode:      req.Mode,
		Question:  req.Question,
		Report:    req.Report,
		ReportID:  req.ReportID,
	})
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssistAnswerResponse{
		Bot:      string(result.Bot),
		Reason:   result.Reason,
		Answer:   result.Answer,
		Fallback: result.Fallback,
		Memory:   result.Memory,
	})
}

func (h *AssistHandler) handleRoute(c *gin.Context) {
	var req AssistRouteRequest
	if !bindJSON(c, &req) {
		return
	}

	decision := h.service.Route(
		c.Request.Context(),
		middleware.GetRequestID(c),
		assistdomain.NormalizeMode(req.Mode),
		req.Question,
		req.Report,
		req.Memory,
	)

	c.JSON(http.StatusOK, AssistRouteResponse{
		Bot:    string(decision.Bot),
		Reason: decision.Reason,
	})
}

func (h *AssistHandler) logError(err error) {
	shared.LogError(h.logger, "assist", err)
}
