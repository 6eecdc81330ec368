package repository

import (
	"context"

	"rewardbot/internal/model"

	"gorm.io/gorm"
)

// EventRepository 账本事件发件箱
// 事件与业务变更写在同一事务，由后台任务异步投递
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, tx *gorm.DB, event *model.LedgerEvent) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) GetPending(ctx context.Context, limit int) ([]*model.LedgerEvent, error) {
	var events []*model.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", model.EventStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *EventRepository) MarkSent(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.LedgerEvent{}).
		Where("id = ?", id).
		Update("status", model.EventStatusSent).Error
}

func (r *EventRepository) IncrementRetry(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.LedgerEvent{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

// MarkFailed 重试超限后落盘为失败，等待人工介入
func (r *EventRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.LedgerEvent{}).
		Where("id = ?", id).
		Update("status", model.EventStatusFailed).Error
}
