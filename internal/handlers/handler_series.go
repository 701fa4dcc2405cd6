package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type seriesHandler struct {
	seriesService portssvc.SeriesSvcFacade
}

// RegisterSeriesRoutes registers installment and recurring series routes on an owner-scoped group.
func RegisterSeriesRoutes(rg *gin.RouterGroup, seriesService portssvc.SeriesSvcFacade) {
	h := &seriesHandler{seriesService: seriesService}

	series := rg.Group("/series")
	{
		series.POST("", h.createSeries)
		series.POST("/:root_id/extend", h.extendSeries)
	}
}

// createSeries godoc
// @Summary Create an installment plan or recurring template
// @Tags series
// @Accept  json
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Param   series body dto.CreateSeriesRequest true "Series details"
// @Success 201 {object} dto.SeriesResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 422 {object} dto.ErrorResponse "Credit limit exceeded or insufficient funds"
// @Security BearerAuth
// @Router /owners/{owner_id}/series [post]
func (h *seriesHandler) createSeries(c *gin.Context) {
	ownerID := c.Param("owner_id")
	req := dto.CreateSeriesRequest{OwnerID: ownerID}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !checkPathMatch(c, "ownerID", ownerID, req.OwnerID) {
		return
	}
	req.OperationID = operationID(c, req.OperationID)

	series, err := h.seriesService.CreateSeries(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create series")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Series created",
		slog.String("root_entry_id", series.Root.EntryID), slog.Int("members", len(series.Members)))
	c.JSON(http.StatusCreated, dto.ToSeriesResponse(series))
}

// extendSeries godoc
// @Summary Materialize more occurrences of a recurring template
// @Tags series
// @Accept  json
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   root_id path string true "Template root entry ID"
// @Param   Idempotency-Key header string false "Client operation id (UUID)"
// @Param   extend body dto.ExtendSeriesRequest true "Number of occurrences"
// @Success 200 {object} dto.SeriesResponse
// @Failure 400 {object} dto.ErrorResponse "Template is no longer active"
// @Failure 404 {object} dto.ErrorResponse "Series not found"
// @Security BearerAuth
// @Router /owners/{owner_id}/series/{root_id}/extend [post]
func (h *seriesHandler) extendSeries(c *gin.Context) {
	ownerID, rootID := c.Param("owner_id"), c.Param("root_id")
	req := dto.ExtendSeriesRequest{OwnerID: ownerID, RootEntryID: rootID}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !checkPathMatch(c, "ownerID", ownerID, req.OwnerID) || !checkPathMatch(c, "rootEntryID", rootID, req.RootEntryID) {
		return
	}
	req.OperationID = operationID(c, req.OperationID)

	series, err := h.seriesService.ExtendSeries(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to extend series")
		return
	}
	c.JSON(http.StatusOK, dto.ToSeriesResponse(series))
}
