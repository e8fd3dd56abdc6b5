package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediexplain/llm-server-go/internal/handler/shared"
	"github.com/mediexplain/llm-server-go/internal/httperror"
	"github.com/mediexplain/llm-server-go/internal/middleware"
	"github.com/mediexplain/llm-server-go/internal/usecase/synth"
)

// SynthGenerateRequest seeds one synthetic record. All fields are
// optional; unset fields are randomized.
type SynthGenerateRequest struct {
	Age       int    `json:"age"`
	Sex       string `json:"sex"`
	Condition string `json:"condition"`
}

// SynthMarkdownResponse carries a record's rendered markdown.
type SynthMarkdownResponse struct {
	RecordID string `json:"record_id"`
	Markdown string `json:"markdown"`
}

// SynthStatsResponse reports archive usage.
type SynthStatsResponse struct {
	Records int `json:"records"`
}

// SynthHandler exposes the synthetic record pipeline over HTTP.
type SynthHandler struct {
	service *synth.Service
	logger  *slog.Logger
}

// NewSynthHandler builds the synth handler.
func NewSynthHandler(service *synth.Service, logger *slog.Logger) *SynthHandler {
	return &SynthHandler{service: service, logger: logger}
}

// RegisterRoutes registers the synth routes.
func (h *SynthHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/synth")
	group.POST("/records", h.handleGenerate)
	group.GET("/records/stats", h.handleStats)
	group.GET("/records/:id", h.handleGet)
	group.GET("/records/:id/markdown", h.handleMarkdown)
}

func (h *SynthHandler) handleGenerate(c *gin.Context) {
	var req SynthGenerateRequest
	if !bindJSONAllowEmpty(c, &req) {
		return
	}

	record, err := h.service.Generate(c.Request.Context(), middleware.GetRequestID(c), synth.GenerateRequest{
		Age:       req.Age,
		Sex:       req.Sex,
		Condition: req.Condition,
	})
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *SynthHandler) handleGet(c *gin.Context) {
	recordID := c.Param("id")
	if recordID == "" {
		writeError(c, httperror.NewMissingField("id"))
		return
	}

	record, err := h.service.Get(c.Request.Context(), recordID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *SynthHandler) handleMarkdown(c *gin.Context) {
	recordID := c.Param("id")
	if recordID == "" {
		writeError(c, httperror.NewMissingField("id"))
		return
	}

	markdown, err := h.service.GetMarkdown(c.Request.Context(), recordID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SynthMarkdownResponse{
		RecordID: recordID,
		Markdown: markdown,
	})
}

func (h *SynthHandler) handleStats(c *gin.Context) {
	count, err := h.service.Count(c.Request.Context())
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SynthStatsResponse{Records: count})
}

func (h *SynthHandler) logError(err error) {
	shared.LogError(h.logger, "synth", err)
}
