package ops

import (
	"strconv"

	"rewardbot/internal/service"
	"rewardbot/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler 只读运营接口
type Handler struct {
	log             *logrus.Logger
	wallet          *service.WalletService
	withdraw        *service.WithdrawService
	admin           *service.AdminService
	leaderboardSize int
}

func NewHandler(log *logrus.Logger, wallet *service.WalletService, withdraw *service.WithdrawService, admin *service.AdminService, leaderboardSize int) *Handler {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &Handler{
		log:             log,
		wallet:          wallet,
		withdraw:        withdraw,
		admin:           admin,
		leaderboardSize: leaderboardSize,
	}
}

// GetStats 运营统计
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.log.Errorf("统计查询失败: %v", err)
		response.ServerError(c, "查询失败")
		return
	}
	response.Success(c, stats)
}

// GetLeaderboard 余额排行榜
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := h.leaderboardSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			response.ParamError(c, "limit 参数不合法")
			return
		}
		limit = parsed
	}

	users, err := h.wallet.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.log.Errorf("排行榜查询失败: %v", err)
		response.ServerError(c, "查询失败")
		return
	}

	type entry struct {
		Rank    int    `json:"rank"`
		UserID  int64  `json:"user_id"`
		Name    string `json:"name"`
		Balance string `json:"balance"`
	}
	entries := make([]entry, 0, len(users))
	for i, user := range users {
		entries = append(entries, entry{
			Rank:    i + 1,
			UserID:  user.ID,
			Name:    user.DisplayName(),
			Balance: user.Balance.StringFixed(2),
		})
	}
	response.Success(c, entries)
}

// GetPendingWithdrawals 待处理提现列表
func (h *Handler) GetPendingWithdrawals(c *gin.Context) {
	totals, err := h.withdraw.PendingTotals(c.Request.Context())
	if err != nil {
		h.log.Errorf("待处理提现汇总失败: %v", err)
		response.ServerError(c, "查询失败")
		return
	}

	reqs, err := h.withdraw.PendingAll(c.Request.Context())
	if err != nil {
		h.log.Errorf("待处理提现查询失败: %v", err)
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, gin.H{
		"count":    totals.Count,
		"total":    totals.Total.StringFixed(2),
		"requests": reqs,
	})
}
