package handler

import (
	"net/http"
	"strconv"

	"github.com/custody_bot/service"
	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	svc *service.WalletService
}

func NewWalletHandler(svc *service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// GET /api/wallet/address
func (h *WalletHandler) GetDepositAddress(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	out, err := h.svc.Address(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if out.Kind == service.OutcomeNoAccount {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": out.Address})
}

// GET /api/wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	out, err := h.svc.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	switch out.Kind {
	case service.OutcomeNoAccount:
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case service.OutcomeLedgerUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"address":   out.Address,
			"balance":   out.Display,
			"baseUnits": out.Balance.String(),
		})
	}
}
