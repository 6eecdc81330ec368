package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawStatusPending   = "PENDING"
	WithdrawStatusCompleted = "COMPLETED"
	WithdrawStatusReturned  = "RETURNED"
)

// 提现状态只允许 pending 到终态的一次性迁移，终态之间不可互转
var ValidWithdrawTransitions = map[string][]string{
	WithdrawStatusPending: {WithdrawStatusCompleted, WithdrawStatusReturned},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidWithdrawTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// WithdrawRequest 提现申请表
// 金额在创建时即从余额中扣除（冻结），无论最终完成还是退回
// 终态记录只读归档，不再参与任何变更
type WithdrawRequest struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	UserID      int64           `gorm:"index;not null" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	UpiID       string          `gorm:"type:varchar(128);not null" json:"upi_id"`
	Status      string          `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RequestedAt time.Time       `gorm:"autoCreateTime" json:"requested_at"`
	ResolvedAt  *time.Time      `json:"resolved_at"`
}

func (WithdrawRequest) TableName() string {
	return "withdraw_requests"
}
