package router

import (
	"github.com/custody_bot/handler"
	"github.com/gin-gonic/gin"
)

func SetupRouter(walletHandler *handler.WalletHandler) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api/wallet")
	{
		api.GET("/address", walletHandler.GetDepositAddress)
		api.GET("/balance", walletHandler.GetBalance)
	}

	return r
}
