package model

import "time"

// Link 外部链接表，url 全局唯一
type Link struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"type:varchar(128);not null" json:"title"`
	URL       string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Link) TableName() string {
	return "links"
}
