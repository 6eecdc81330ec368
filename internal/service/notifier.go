package service

import "context"

// Notifier 向单个用户推送消息
// 投递只做尽力而为，失败不影响已提交的账本变更
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}
