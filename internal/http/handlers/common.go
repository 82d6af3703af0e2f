package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "invalid_body", "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "request body is not valid JSON", nil)
		return false
	}
	return true
}

// pathID returns the trimmed :id path parameter.
func pathID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
