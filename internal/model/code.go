package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedeemCode 兑换码表
// claimed_by 为空表示未被领取；领取与加余额必须在同一事务内完成
type RedeemCode struct {
	Code      string          `gorm:"primaryKey;type:varchar(64)" json:"code"`
	Reward    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"reward"`
	ClaimedBy *int64          `gorm:"index" json:"claimed_by"`
	ClaimedAt *time.Time      `json:"claimed_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (RedeemCode) TableName() string {
	return "redeem_codes"
}

// VerificationCode 验证码表
// 不带金额，存在即表示该码可被用户验证
type VerificationCode struct {
	Code      string    `gorm:"primaryKey;type:varchar(64)" json:"code"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

// UserVerification 用户验证记录，(user_id, code) 唯一
type UserVerification struct {
	UserID     int64     `gorm:"primaryKey" json:"user_id"`
	Code       string    `gorm:"primaryKey;type:varchar(64)" json:"code"`
	VerifiedAt time.Time `gorm:"autoCreateTime" json:"verified_at"`
}

func (UserVerification) TableName() string {
	return "user_verifications"
}
