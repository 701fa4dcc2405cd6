package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type bulkHandler struct {
	bulkService portssvc.BulkSvcFacade
}

// RegisterBulkRoutes registers the batch route on an owner-scoped group.
func RegisterBulkRoutes(rg *gin.RouterGroup, bulkService portssvc.BulkSvcFacade) {
	h := &bulkHandler{bulkService: bulkService}
	rg.POST("/bulk", h.bulkApply)
}

// bulkApply godoc
// @Summary Apply a batch of entries and transfers
// @Description Items are applied independently. 200 when all succeed, 207 when some fail;
// @Description when every item fails the status follows the first failure.
// @Tags bulk
// @Accept  json
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   batch body dto.BulkApplyRequest true "Items to apply"
// @Success 200 {object} dto.BulkApplyResult
// @Success 207 {object} dto.BulkApplyResult "Partial batch failure"
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 403 {object} dto.ErrorResponse "Acting for another owner"
// @Security BearerAuth
// @Router /owners/{owner_id}/bulk [post]
func (h *bulkHandler) bulkApply(c *gin.Context) {
	ownerID := c.Param("owner_id")
	req := dto.BulkApplyRequest{OwnerID: ownerID}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !checkPathMatch(c, "ownerID", ownerID, req.OwnerID) {
		return
	}

	result, err := h.bulkService.BulkApply(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to apply batch")
		return
	}

	succeeded, failed := result.Counts()
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Batch applied", slog.Int("succeeded", succeeded), slog.Int("failed", failed))

	status := http.StatusOK
	if batchErr := result.Err(); batchErr != nil {
		_, authenticated := middleware.GetUserIDFromContext(c)
		status = statusFor(batchErr, authenticated)
	}
	c.JSON(status, result)
}
