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

type balanceHandler struct {
	balanceService portssvc.BalanceSvcFacade
}

// RegisterBalanceRoutes registers balance reconciliation routes on an owner-scoped group.
func RegisterBalanceRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceSvcFacade) {
	h := &balanceHandler{balanceService: balanceService}

	rg.POST("/accounts/:account_id/recompute", h.recomputeBalance)
	rg.GET("/balances", h.listBalances)
	rg.GET("/balances/verify", h.verifyBalances)
}

// listBalances godoc
// @Summary List the stored balance of every account
// @Tags balances
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Success 200 {object} dto.AccountBalancesResponse
// @Security BearerAuth
// @Router /owners/{owner_id}/balances [get]
func (h *balanceHandler) listBalances(c *gin.Context) {
	balances, err := h.balanceService.ListBalances(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		respondError(c, err, "Failed to list balances")
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountBalancesResponse(balances))
}

// recomputeBalance godoc
// @Summary Recompute an account balance from its entries
// @Tags balances
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Param   account_id path string true "Account ID"
// @Success 200 {object} dto.AccountBalanceResponse
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /owners/{owner_id}/accounts/{account_id}/recompute [post]
func (h *balanceHandler) recomputeBalance(c *gin.Context) {
	accountID := c.Param("account_id")
	balance, err := h.balanceService.RecomputeBalance(c.Request.Context(), c.Param("owner_id"), accountID)
	if err != nil {
		respondError(c, err, "Failed to recompute balance")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Balance recomputed",
		slog.String("account_id", accountID), slog.Int64("balance", balance))
	c.JSON(http.StatusOK, dto.NewAccountBalanceResponse(accountID, balance))
}

// verifyBalances godoc
// @Summary Report accounts whose stored balance disagrees with their entries
// @Tags balances
// @Produce  json
// @Param   owner_id path string true "Owner ID"
// @Success 200 {object} dto.BalanceDriftResponse
// @Security BearerAuth
// @Router /owners/{owner_id}/balances/verify [get]
func (h *balanceHandler) verifyBalances(c *gin.Context) {
	drifts, err := h.balanceService.VerifyBalances(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		respondError(c, err, "Failed to verify balances")
		return
	}
	if drifts == nil {
		drifts = []domain.BalanceDrift{}
	}
	c.JSON(http.StatusOK, dto.BalanceDriftResponse{Drifts: drifts})
}
