package ops

import (
	"rewardbot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter 配置只读运营路由
func SetupRouter(log *logrus.Logger, wallet *service.WalletService, withdraw *service.WithdrawService, admin *service.AdminService, leaderboardSize int) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))

	h := NewHandler(log, wallet, withdraw, admin, leaderboardSize)

	api := r.Group("/api/v1")
	{
		api.GET("/stats", h.GetStats)
		api.GET("/leaderboard", h.GetLeaderboard)
		api.GET("/withdrawals/pending", h.GetPendingWithdrawals)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
