package model

import "time"

// BanEntry 封禁表，存在即拦截该用户的一切交互
type BanEntry struct {
	UserID   int64     `gorm:"primaryKey" json:"user_id"`
	BannedAt time.Time `gorm:"autoCreateTime" json:"banned_at"`
}

func (BanEntry) TableName() string {
	return "banned_users"
}
