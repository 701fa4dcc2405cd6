package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client operation id of a mutating request.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyKey copies the Idempotency-Key header into the request context.
// Keys must be UUIDs; requests without the header pass through unchanged.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if _, err := uuid.Parse(key); err != nil {
			GetLoggerFromCtx(c.Request.Context()).Warn("Malformed idempotency key", "key", key)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key must be a UUID", "code": "VALIDATION_FAILED"})
			return
		}
		c.Request = c.Request.WithContext(WithOperationID(c.Request.Context(), key))
		c.Header(IdempotencyKeyHeader, key)
		c.Next()
	}
}
