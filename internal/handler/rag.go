package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediexplain/llm-server-go/internal/handler/shared"
	"github.com/mediexplain/llm-server-go/internal/httperror"
	"github.com/mediexplain/llm-server-go/internal/rag"
)

// RAGIngestRequest indexes one HTML report for retrieval.
type RAGIngestRequest struct {
	DocID string `json:"doc_id" binding:"required"`
	HTML  string `json:"html" binding:"required"`
}

// RAGIngestResponse reports the number of indexed chunks.
type RAGIngestResponse struct {
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

// RAGQueryRequest retrieves passages from an indexed report.
type RAGQueryRequest struct {
	DocID string `json:"doc_id" binding:"required"`
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// RAGQueryResponse carries the ranked passages and the assembled
// context block.
type RAGQueryResponse struct {
	Passages []string `json:"passages"`
	Context  string   `json:"context"`
}

// RAGHandler exposes the report retrieval index over HTTP.
type RAGHandler struct {
	index  *rag.Index
	logger *slog.Logger
}

// NewRAGHandler builds the RAG handler.
func NewRAGHandler(index *rag.Index, logger *slog.Logger) *RAGHandler {
	return &RAGHandler{index: index, logger: logger}
}

// RegisterRoutes registers the RAG routes.
func (h *RAGHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/rag")
	group.POST("/documents", h.handleIngest)
	group.POST("/queries", h.handleQuery)
	group.GET("/documents", h.handleList)
	group.DELETE("/documents/:id", h.handleDelete)
}

func (h *RAGHandler) handleIngest(c *gin.Context) {
	var req RAGIngestRequest
	if !bindJSON(c, &req) {
		return
	}

	chunks, err := h.index.Ingest(c.Request.Context(), req.DocID, req.HTML)
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RAGIngestResponse{
		DocID:  req.DocID,
		Chunks: chunks,
	})
}

func (h *RAGHandler) handleQuery(c *gin.Context) {
	var req RAGQueryRequest
	if !bindJSON(c, &req) {
		return
	}

	passages, err := h.index.Query(c.Request.Context(), req.DocID, req.Query, req.K)
	if err != nil {
		if err == rag.ErrDocumentNotFound {
			writeError(c, httperror.NewDocumentNotFound(req.DocID))
			return
		}
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, RAGQueryResponse{
		Passages: passages,
		Context:  rag.BuildContext(passages),
	})
}

func (h *RAGHandler) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": h.index.Documents()})
}

func (h *RAGHandler) handleDelete(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		writeError(c, httperror.NewMissingField("id"))
		return
	}

	if !h.index.Delete(docID) {
		writeError(c, httperror.NewDocumentNotFound(docID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *RAGHandler) logError(err error) {
	shared.LogError(h.logger, "rag", err)
}
