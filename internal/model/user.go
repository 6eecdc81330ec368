package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// User 用户表
// id 为外部聊天平台的用户标识，首次交互时落库，永不删除
type User struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	Username  string          `gorm:"type:varchar(64)" json:"username"`
	FirstName string          `gorm:"type:varchar(64)" json:"first_name"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	Withdrawn decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"withdrawn"`
	JoinedAt  time.Time       `gorm:"autoCreateTime" json:"joined_at"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 展示名：优先 first_name，其次 username，兜底用 ID
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("User ID %d", u.ID)
}
