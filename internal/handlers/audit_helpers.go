package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"swap-service/internal/middleware"
	"swap-service/internal/observability"
	"swap-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

// RequestID tags every request with a correlation id, taken from the
// X-Request-ID header when the caller supplies one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := requestIDFromContext(c)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(telemetry.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if _, ok := c.Get(middleware.UserIDKey); !ok {
		return nil
	}
	id := middleware.CurrentUser(c).UserID
	if id == uuid.Nil {
		return nil
	}
	value := id.String()
	return &value
}
