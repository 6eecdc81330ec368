package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventStatusPending = "PENDING"
	EventStatusSent    = "SENT"
	EventStatusFailed  = "FAILED"
)

const (
	EventTypeRedeem           = "REDEEM"
	EventTypeWithdrawSubmit   = "WITHDRAW_SUBMIT"
	EventTypeWithdrawComplete = "WITHDRAW_COMPLETE"
	EventTypeWithdrawReturn   = "WITHDRAW_RETURN"
	EventTypeAdminAdjust      = "ADMIN_ADJUST"
)

// LedgerEvent 账本事件表（发件箱）
// 与余额变更同事务写入，后台任务负责外发，因此事件与账本永远一致
type LedgerEvent struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EventKey   string          `gorm:"type:varchar(64);not null" json:"event_key"`
	Type       string          `gorm:"type:varchar(32);not null" json:"type"`
	UserID     int64           `gorm:"index;not null" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Payload    string          `gorm:"type:text;not null" json:"payload"`
	Status     string          `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int             `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LedgerEvent) TableName() string {
	return "ledger_events"
}
