package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearroom/dataroom-api/apperrors"
	"github.com/clearroom/dataroom-api/utils"
)

// respondError maps a service error to its HTTP status and a stable
// machine-readable error_code.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.CodeOf(err)

	if status >= http.StatusInternalServerError {
		utils.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error_code": string(code), "error": "Internal server error"})
		return
	}

	c.JSON(status, gin.H{"error_code": string(code), "error": err.Error()})
}
