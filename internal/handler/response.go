package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mediexplain/llm-server-go/internal/handler/shared"
)

// writeError writes an error response (delegates to shared.WriteError).
func writeError(c *gin.Context, err error) {
	shared.WriteError(c, err)
}

// bindJSON parses the request body (delegates to shared.BindJSON).
func bindJSON(c *gin.Context, out any) bool {
	return shared.BindJSON(c, out)
}

// bindJSONAllowEmpty also accepts an empty body (delegates to shared.BindJSONAllowEmpty).
func bindJSONAllowEmpty(c *gin.Context, out any) bool {
	return shared.BindJSONAllowEmpty(c, out)
}
