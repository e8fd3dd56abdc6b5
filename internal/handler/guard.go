package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediexplain/llm-server-go/internal/guard"
)

// GuardRequest carries the text to screen.
type GuardRequest struct {
	InputText string `json:"input_text" binding:"required"`
}

// GuardResponse is the full evaluation result.
type GuardResponse struct {
	Score     float64       `json:"score"`
	Malicious bool          `json:"malicious"`
	Threshold float64       `json:"threshold"`
	Hits      []guard.Match `json:"hits"`
}

// GuardHandler exposes the injection guard over HTTP.
type GuardHandler struct {
	guard *guard.InjectionGuard
}

// NewGuardHandler builds the guard handler.
func NewGuardHandler(guard *guard.InjectionGuard) *GuardHandler {
	return &GuardHandler{guard: guard}
}

// RegisterRoutes registers the guard routes.
func (h *GuardHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/guard")
	group.POST("/evaluations", h.handleEvaluate)
	group.POST("/checks", h.handleCheck)
}

func (h *GuardHandler) handleEvaluate(c *gin.Context) {
	var req GuardRequest
	if !bindJSON(c, &req) {
		return
	}

	evaluation := h.guard.Evaluate(req.InputText)
	c.JSON(http.StatusOK, GuardResponse{
		Score:     evaluation.Score,
		Malicious: evaluation.Malicious(),
		Threshold: evaluation.Threshold,
		Hits:      evaluation.Hits,
	})
}

func (h *GuardHandler) handleCheck(c *gin.Context) {
	var req GuardRequest
	if !bindJSON(c, &req) {
		return
	}

	malicious := h.guard.IsMalicious(req.InputText)
	c.JSON(http.StatusOK, gin.H{"malicious": malicious})
}
