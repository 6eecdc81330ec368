package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewardbot/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrWithdrawNotFound      = errors.New("提现申请不存在")
	ErrInvalidStatusTransfer = errors.New("提现状态流转不合法")
)

// PendingTotals 待处理提现的汇总信息
type PendingTotals struct {
	Count int64
	Total decimal.Decimal
}

type WithdrawRepository struct {
	db *gorm.DB
}

func NewWithdrawRepository(db *gorm.DB) *WithdrawRepository {
	return &WithdrawRepository{db: db}
}

func (r *WithdrawRepository) Create(ctx context.Context, tx *gorm.DB, req *model.WithdrawRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(req).Error
}

func (r *WithdrawRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawRequest, error) {
	var req model.WithdrawRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawNotFound
		}
		return nil, err
	}
	return &req, nil
}

// GetPendingByID 只查待处理的申请，已终结的申请视为不存在
// 重复处理同一笔提现时第二次会直接得到 ErrWithdrawNotFound
func (r *WithdrawRepository) GetPendingByID(ctx context.Context, id int64) (*model.WithdrawRequest, error) {
	var req model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.WithdrawStatusPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *WithdrawRepository) ListPendingByUser(ctx context.Context, userID int64) ([]*model.WithdrawRequest, error) {
	var reqs []*model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.WithdrawStatusPending).
		Order("requested_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// SearchPending 按申请号或用户号检索待处理申请
func (r *WithdrawRepository) SearchPending(ctx context.Context, id int64) ([]*model.WithdrawRequest, error) {
	var reqs []*model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("(id = ? OR user_id = ?) AND status = ?", id, id, model.WithdrawStatusPending).
		Order("requested_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *WithdrawRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*model.WithdrawRequest, error) {
	var reqs []*model.WithdrawRequest
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("requested_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reqs).Error
	return reqs, err
}

// UpdateStatus 状态机流转：WHERE 带上旧状态做 CAS，并发下只有一方能成功
func (r *WithdrawRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransfer, fromStatus, toStatus)
	}
	if tx == nil {
		tx = r.db
	}
	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.WithdrawRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"resolved_at": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWithdrawNotFound
	}
	return nil
}

// GetPendingOlderThan 超时未处理的提现申请，供提醒任务使用
func (r *WithdrawRepository) GetPendingOlderThan(ctx context.Context, deadline time.Time) ([]*model.WithdrawRequest, error) {
	var reqs []*model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND requested_at < ?", model.WithdrawStatusPending, deadline).
		Order("requested_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *WithdrawRepository) PendingTotals(ctx context.Context) (*PendingTotals, error) {
	var row struct {
		Count int64
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.WithdrawRequest{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", model.WithdrawStatusPending).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &PendingTotals{Count: row.Count, Total: row.Total}, nil
}
