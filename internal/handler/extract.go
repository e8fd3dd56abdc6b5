package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediexplain/llm-server-go/internal/extract"
)

// ExtractRequest carries raw model output to parse.
type ExtractRequest struct {
	Text     string `json:"text" binding:"required"`
	Sentinel string `json:"sentinel"`
}

// ExtractResponse is the parsed JSON object.
type ExtractResponse struct {
	Data map[string]any `json:"data"`
}

// ExtractHandler exposes the JSON extractor over HTTP.
type ExtractHandler struct{}

// NewExtractHandler builds the extract handler.
func NewExtractHandler() *ExtractHandler {
	return &ExtractHandler{}
}

// RegisterRoutes registers the extract routes.
func (h *ExtractHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/extract")
	group.POST("/extractions", h.handleExtract)
}

func (h *ExtractHandler) handleExtract(c *gin.Context) {
	var req ExtractRequest
	if !bindJSON(c, &req) {
		return
	}

	var opts []extract.Option
	if req.Sentinel != "" {
		opts = append(opts, extract.WithSentinel(req.Sentinel))
	}

	data, err := extract.Extract(req.Text, opts...)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{Data: data})
}
