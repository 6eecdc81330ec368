package model

import "time"

const (
	SettingMinWithdraw  = "min_withdraw"
	SettingContactInfo  = "contact_info"
	SettingTutorialLink = "tutorial_link"
)

// DefaultSettings 启动时播种的默认值，管理员可覆盖
var DefaultSettings = map[string]string{
	SettingMinWithdraw:  "100",
	SettingContactInfo:  "Contact info not set.",
	SettingTutorialLink: "Tutorial link not set.",
}

// Setting 管理配置表，单 key 单值
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string {
	return "admin_settings"
}
