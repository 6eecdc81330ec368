package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rewardbot/internal/repository"
	"rewardbot/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WithdrawReminder 滞留提现提醒任务
// 定期检查超龄未处理的提现申请，汇总后提醒管理员
type WithdrawReminder struct {
	log          *logrus.Logger
	withdrawRepo *repository.WithdrawRepository
	notifier     service.Notifier
	adminID      int64
	stopCh       chan struct{}
	interval     time.Duration
	maxAge       time.Duration
}

func NewWithdrawReminder(
	db *gorm.DB,
	log *logrus.Logger,
	notifier service.Notifier,
	adminID int64,
	interval, maxAge time.Duration,
) *WithdrawReminder {
	return &WithdrawReminder{
		log:          log,
		withdrawRepo: repository.NewWithdrawRepository(db),
		notifier:     notifier,
		adminID:      adminID,
		stopCh:       make(chan struct{}),
		interval:     interval,
		maxAge:       maxAge,
	}
}

func (r *WithdrawReminder) Start(ctx context.Context) {
	r.log.Info("[WithdrawReminder] 提现提醒任务启动")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("[WithdrawReminder] 收到停止信号，任务退出")
			return
		case <-r.stopCh:
			r.log.Info("[WithdrawReminder] 任务停止")
			return
		case <-ticker.C:
			r.remind(ctx)
		}
	}
}

func (r *WithdrawReminder) Stop() {
	close(r.stopCh)
}

func (r *WithdrawReminder) remind(ctx context.Context) {
	deadline := time.Now().Add(-r.maxAge)
	reqs, err := r.withdrawRepo.GetPendingOlderThan(ctx, deadline)
	if err != nil {
		r.log.Errorf("[WithdrawReminder] 查询滞留提现失败: %v", err)
		return
	}
	if len(reqs) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏰ %d withdrawal request(s) pending for over %s:\n\n", len(reqs), r.maxAge)
	for _, req := range reqs {
		fmt.Fprintf(&b, "ID: %d, User: %d, Amount: ₹%s\n", req.ID, req.UserID, req.Amount.StringFixed(2))
	}

	if err := r.notifier.Notify(ctx, r.adminID, b.String()); err != nil {
		r.log.Warnf("[WithdrawReminder] 管理员提醒发送失败: %v", err)
	}
}
