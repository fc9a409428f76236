package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"swap-service/internal/apperr"
)

// respondError writes {"error": ...} with the status of err's kind. Server
// side failures are logged with the request id; their cause is never echoed.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed request_id=%s path=%s kind=%s: %v", requestIDFromContext(c), c.FullPath(), apperr.KindOf(err), err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
