package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// entryHandler handles HTTP requests for single entries.
type entryHandler struct {
	entryService portssvc.EntrySvcFacade
}

func newEntryHandler(es portssvc.EntrySvcFacade) *entryHandler {
	return &entryHandler{entryService: es}
}

// RegisterEntryRoutes registers entry routes on an owner-scoped group (/owners/:owner_id).
func RegisterEntryRoutes(rg *gin.RouterGroup, entryService portssvc.EntrySvcFacade) {
	h := newEntryHandler(entryService)

	entries := rg.Group("/entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("/:entry_id", h.getEntry)
		entries.PATCH("/:entry_id", h.editEntry)
		entries.DELETE("/:entry_id", h.deleteEntry)
	}
	rg.GET("/accounts/:account_id/entries", h.listAccountEntries)
}

// createEntry godoc
// @Summary Create an income or expense
// @Description Posts one entry. Completed entries move the account balance immediately.
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Param   entry body dto.CreateEntryRequest true "Entry details"
// @Success 201 {object} dto.EntryResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 403 {object} dto.ErrorResponse "Acting for another owner"
// @Failure 404 {object} dto.ErrorResponse "Account or category not found"
// @Failure 409 {object} dto.ErrorResponse "Operation id reused or concurrent modification"
// @Failure 422 {object} dto.ErrorResponse "Credit limit exceeded or insufficient funds"
// @Security BearerAuth
// @Router /owners/{owner_id}/entries [post]
func (h *entryHandler) createEntry(c *gin.Context) {
	ownerID := c.Param("owner_id")
	req := dto.CreateEntryRequest{OwnerID: ownerID}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !checkPathMatch(c, "ownerID", ownerID, req.OwnerID) {
		return
	}
	req.OperationID = operationID(c, req.OperationID)

	entry, err := h.entryService.CreateEntry(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create entry")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Entry created", slog.String("entry_id", entry.EntryID))
	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

// getEntry godoc
// @Summary Get an entry
// @Tags entries
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 403 {object} dto.ErrorResponse "Acting for another owner"
// @Failure 404 {object} dto.ErrorResponse "Entry not found"
// @Security BearerAuth
// @Router /owners/{owner_id}/entries/{entry_id} [get]
func (h *entryHandler) getEntry(c *gin.Context) {
	entry, err := h.entryService.GetEntry(c.Request.Context(), c.Param("owner_id"), c.Param("entry_id"))
	if err != nil {
		respondError(c, err, "Failed to get entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// editEntry godoc
// @Summary Edit an entry
// @Description Applies a partial update. Editing a transfer leg updates its peer.
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   entry_id path string true "Entry ID"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Param   entry body dto.EditEntryRequest true "Fields to change"
// @Success 200 {object} dto.EntryResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Entry not found"
// @Failure 422 {object} dto.ErrorResponse "Credit limit exceeded or insufficient funds"
// @Security BearerAuth
// @Router /owners/{owner_id}/entries/{entry_id} [patch]
func (h *entryHandler) editEntry(c *gin.Context) {
	ownerID, entryID := c.Param("owner_id"), c.Param("entry_id")
	req := dto.EditEntryRequest{OwnerID: ownerID, EntryID: entryID}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !checkPathMatch(c, "ownerID", ownerID, req.OwnerID) || !checkPathMatch(c, "entryID", entryID, req.EntryID) {
		return
	}
	req.OperationID = operationID(c, req.OperationID)

	entry, err := h.entryService.EditEntry(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to edit entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// deleteEntry godoc
// @Summary Delete an entry
// @Description Deletes an entry and, depending on scope, pending members of its series.
// @Tags entries
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   entry_id path string true "Entry ID"
// @Param   scope query string false "CURRENT (default), CURRENT_AND_REMAINING or ALL"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Success 200 {object} dto.DeleteResult
// @Failure 400 {object} dto.ErrorResponse "Unknown scope"
// @Failure 404 {object} dto.ErrorResponse "Entry not found"
// @Security BearerAuth
// @Router /owners/{owner_id}/entries/{entry_id} [delete]
func (h *entryHandler) deleteEntry(c *gin.Context) {
	scope, err := domain.ParseDeletionScope(c.Query("scope"))
	if err != nil {
		respondError(c, err, "Invalid deletion scope")
		return
	}
	req := dto.DeleteEntryRequest{
		OperationID: operationID(c, ""),
		OwnerID:     c.Param("owner_id"),
		EntryID:     c.Param("entry_id"),
		Scope:       scope,
	}

	res, err := h.entryService.DeleteEntry(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to delete entry")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Entry deleted",
		slog.String("entry_id", req.EntryID), slog.Int("deleted", len(res.DeletedEntryIDs)))
	c.JSON(http.StatusOK, res)
}

// listAccountEntries godoc
// @Summary List an account's entries
// @Description Pages through the account's entries ordered by date. Pass nextToken from the previous page to continue.
// @Tags entries
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   account_id path string true "Account ID"
// @Param   limit query int false "Page size (1-100, default 50)"
// @Param   nextToken query string false "Cursor returned by the previous page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid limit or token"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /owners/{owner_id}/accounts/{account_id}/entries [get]
func (h *entryHandler) listAccountEntries(c *gin.Context) {
	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.entryService.ListAccountEntries(c.Request.Context(), c.Param("owner_id"), c.Param("account_id"), params)
	if err != nil {
		respondError(c, err, "Failed to list entries")
		return
	}
	c.JSON(http.StatusOK, res)
}
