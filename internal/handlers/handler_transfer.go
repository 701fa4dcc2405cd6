package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type transferHandler struct {
	transferService portssvc.TransferSvcFacade
}

// RegisterTransferRoutes registers transfer routes on an owner-scoped group.
func RegisterTransferRoutes(rg *gin.RouterGroup, transferService portssvc.TransferSvcFacade) {
	h := &transferHandler{transferService: transferService}

	transfers := rg.Group("/transfers")
	{
		transfers.POST("", h.createTransfer)
		transfers.DELETE("/:entry_id", h.deleteTransfer)
	}
}

// createTransfer godoc
// @Summary Transfer between two accounts
// @Description Creates both legs atomically; either both are recorded or neither.
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Param   transfer body dto.CreateTransferRequest true "Transfer details"
// @Success 201 {object} dto.TransferResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 422 {object} dto.ErrorResponse "Credit limit exceeded or insufficient funds"
// @Security BearerAuth
// @Router /owners/{owner_id}/transfers [post]
func (h *transferHandler) createTransfer(c *gin.Context) {
	ownerID := c.Param("owner_id")
	req := dto.CreateTransferRequest{OwnerID: ownerID}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !checkPathMatch(c, "ownerID", ownerID, req.OwnerID) {
		return
	}
	req.OperationID = operationID(c, req.OperationID)

	pair, err := h.transferService.CreateTransfer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create transfer")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Transfer created",
		slog.String("out_entry_id", pair.Out.EntryID), slog.String("in_entry_id", pair.In.EntryID))
	c.JSON(http.StatusCreated, dto.ToTransferResponse(pair))
}

// deleteTransfer godoc
// @Summary Delete a transfer
// @Description Deletes both legs of the transfer the entry belongs to.
// @Tags transfers
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   entry_id path string true "Either leg's entry ID"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Success 200 {object} dto.DeleteResult
// @Failure 400 {object} dto.ErrorResponse "Entry is not a transfer leg"
// @Failure 404 {object} dto.ErrorResponse "Entry not found"
// @Security BearerAuth
// @Router /owners/{owner_id}/transfers/{entry_id} [delete]
func (h *transferHandler) deleteTransfer(c *gin.Context) {
	req := dto.DeleteTransferRequest{
		OperationID: operationID(c, ""),
		OwnerID:     c.Param("owner_id"),
		EntryID:     c.Param("entry_id"),
	}
	res, err := h.transferService.DeleteTransfer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to delete transfer")
		return
	}
	c.JSON(http.StatusOK, res)
}
