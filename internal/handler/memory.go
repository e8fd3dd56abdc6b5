package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediexplain/llm-server-go/internal/handler/shared"
	"github.com/mediexplain/llm-server-go/internal/httperror"
	"github.com/mediexplain/llm-server-go/internal/memory"
)

// MemoryAddRequest stores one long-term memory entry.
type MemoryAddRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// MemoryQueryRequest retrieves the entries most relevant to a query.
type MemoryQueryRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Query  string `json:"query" binding:"required"`
	K      int    `json:"k"`
}

// MemoryQueryResponse lists the retrieved snippets.
type MemoryQueryResponse struct {
	Snippets []string `json:"snippets"`
}

// MemoryHandler exposes per-user long-term memory over HTTP.
type MemoryHandler struct {
	manager *memory.Manager
	logger  *slog.Logger
}

// NewMemoryHandler builds the memory handler.
func NewMemoryHandler(manager *memory.Manager, logger *slog.Logger) *MemoryHandler {
	return &MemoryHandler{manager: manager, logger: logger}
}

// RegisterRoutes registers the memory routes.
func (h *MemoryHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/memory")
	group.POST("/entries", h.handleAdd)
	group.POST("/queries", h.handleQuery)
	group.DELETE("/users/:user_id", h.handleClear)
}

func (h *MemoryHandler) handleAdd(c *gin.Context) {
	var req MemoryAddRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.ensureEnabled(c) {
		return
	}

	if err := h.manager.Add(c.Request.Context(), req.UserID, req.Text); err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stored": true})
}

func (h *MemoryHandler) handleQuery(c *gin.Context) {
	var req MemoryQueryRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.ensureEnabled(c) {
		return
	}

	snippets, err := h.manager.Retrieve(c.Request.Context(), req.UserID, req.Query, req.K)
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}
	if snippets == nil {
		snippets = []string{}
	}

	c.JSON(http.StatusOK, MemoryQueryResponse{Snippets: snippets})
}

func (h *MemoryHandler) handleClear(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		writeError(c, httperror.NewMissingField("user_id"))
		return
	}
	if !h.ensureEnabled(c) {
		return
	}

	if err := h.manager.Clear(c.Request.Context(), userID); err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (h *MemoryHandler) ensureEnabled(c *gin.Context) bool {
	if h.manager != nil && h.manager.Enabled() {
		return true
	}
	writeError(c, httperror.NewInvalidInput("memory is disabled"))
	return false
}

func (h *MemoryHandler) logError(err error) {
	shared.LogError(h.logger, "memory", err)
}
