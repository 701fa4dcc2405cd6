package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// statusFor maps an engine error to its HTTP status. authenticated tells an
// anonymous request (401) apart from a caller acting for someone else (403).
func statusFor(err error, authenticated bool) int {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		if !authenticated {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrCreditLimitExceeded), errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPartialBatchFailure):
		return http.StatusMultiStatus
	case errors.Is(err, apperrors.ErrSyncTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the standard error body. Internal failures
// are logged in full but reported to the client without detail.
func respondError(c *gin.Context, err error, msg string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	_, authenticated := middleware.GetUserIDFromContext(c)
	status := statusFor(err, authenticated)

	if status == http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()))
		c.JSON(status, dto.ErrorResponse{Error: msg, Code: apperrors.Code(apperrors.ErrInternal)})
		return
	}
	logger.Warn(msg, slog.String("error", err.Error()), slog.Int("status", status))
	c.JSON(status, dto.NewErrorResponse(err))
}

// respondBindError reports a malformed or invalid request body.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error: "Invalid request format: " + err.Error(),
		Code:  apperrors.Code(apperrors.ErrValidation),
	})
}

// checkPathMatch rejects a body field that contradicts the URL.
func checkPathMatch(c *gin.Context, field, fromPath, fromBody string) bool {
	if fromPath == fromBody {
		return true
	}
	respondError(c, validationf("%s in body (%s) does not match the URL (%s)", field, fromBody, fromPath), "Request does not match URL")
	return false
}

// operationID prefers the Idempotency-Key header over the body field.
func operationID(c *gin.Context, fromBody string) string {
	if key := middleware.GetOperationIDFromCtx(c.Request.Context()); key != "" {
		return key
	}
	return fromBody
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, fmt.Sprintf(format, args...))
}
