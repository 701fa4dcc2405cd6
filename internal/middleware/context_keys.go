package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// userIDKey is the key used to store the authenticated user's ID in the request context.
// Using a custom type prevents collisions.
const userIDKey = contextKey("userID")

// loggerCtxKey stores the request-scoped logger in the standard context.
const loggerCtxKey = contextKey("ctxLogger")

// operationIDKey stores the client-supplied idempotency key.
const operationIDKey = contextKey("operationID")

// WithUserID returns a copy of ctx carrying the authenticated caller's id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromCtx returns the authenticated caller's id, or "" when the request is anonymous.
func GetUserIDFromCtx(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := GetUserIDFromCtx(c.Request.Context())
	return userID, userID != ""
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// GetLoggerFromCtx retrieves the request-scoped logger from a standard context,
// falling back to the default logger.
func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithOperationID returns a copy of ctx carrying an idempotency key.
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, operationIDKey, operationID)
}

// GetOperationIDFromCtx returns the idempotency key of the request, if any.
func GetOperationIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(operationIDKey).(string)
	return id
}
