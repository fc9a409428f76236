package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swap-service/internal/rabbitmq"
	"swap-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, publisher rabbitmq.Publisher, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), telemetry.AuditEntry{
			Level:     "INFO",
			Text:      "audit test",
			Action:    "debug.audit_test",
			RequestID: requestIDFromContext(c),
			UserID:    userIDFromContext(c),
		})
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"publisher_mode": rabbitmq.PublisherMode(publisher),
			"noop_reason":    rabbitmq.PublisherNoopReason(publisher),
		})
	})
}
