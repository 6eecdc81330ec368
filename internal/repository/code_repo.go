package repository

import (
	"context"
	"errors"
	"time"

	"rewardbot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCodeNotFound = errors.New("兑换码不存在")
	ErrCodeClaimed  = errors.New("兑换码已被领取")
)

// VerifyUsage 单个验证码的使用次数统计
type VerifyUsage struct {
	Code  string
	Count int64
}

type CodeRepository struct {
	db *gorm.DB
}

func NewCodeRepository(db *gorm.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

func (r *CodeRepository) CreateRedeemCode(ctx context.Context, code *model.RedeemCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *CodeRepository) GetRedeemCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	var rc model.RedeemCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&rc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &rc, nil
}

// ClaimRedeemCode 占用兑换码：条件 UPDATE 保证一个码只能被领取一次
func (r *CodeRepository) ClaimRedeemCode(ctx context.Context, tx *gorm.DB, code string, userID int64) error {
	if tx == nil {
		tx = r.db
	}
	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.RedeemCode{}).
		Where("code = ? AND claimed_by IS NULL", code).
		Updates(map[string]interface{}{
			"claimed_by": userID,
			"claimed_at": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeClaimed
	}
	return nil
}

// CountRedeem claimed 为真统计已领取数量，否则统计未领取数量
func (r *CodeRepository) CountRedeem(ctx context.Context, claimed bool) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.RedeemCode{})
	if claimed {
		query = query.Where("claimed_by IS NOT NULL")
	} else {
		query = query.Where("claimed_by IS NULL")
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *CodeRepository) CreateVerificationCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Create(&model.VerificationCode{Code: code}).Error
}

func (r *CodeRepository) GetVerificationCode(ctx context.Context, code string) (*model.VerificationCode, error) {
	var vc model.VerificationCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&vc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &vc, nil
}

func (r *CodeRepository) DeleteVerificationCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("code = ?", code).Delete(&model.VerificationCode{}).Error
}

func (r *CodeRepository) ListVerificationCodes(ctx context.Context) ([]*model.VerificationCode, error) {
	var codes []*model.VerificationCode
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&codes).Error
	return codes, err
}

// RecordVerification 记录用户使用某个验证码，重复提交静默忽略
func (r *CodeRepository) RecordVerification(ctx context.Context, userID int64, code string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserVerification{UserID: userID, Code: code}).Error
}

func (r *CodeRepository) HasUserVerified(ctx context.Context, userID int64, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserVerification{}).
		Where("user_id = ? AND code = ?", userID, code).
		Count(&count).Error
	return count > 0, err
}

// HasAnyVerification 用户是否完成过任意一次验证（兑换资格门槛）
func (r *CodeRepository) HasAnyVerification(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserVerification{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// UsageCounts 按验证码分组统计使用人数
func (r *CodeRepository) UsageCounts(ctx context.Context) ([]VerifyUsage, error) {
	var usages []VerifyUsage
	err := r.db.WithContext(ctx).
		Model(&model.UserVerification{}).
		Select("code, COUNT(*) AS count").
		Group("code").
		Order("code ASC").
		Scan(&usages).Error
	return usages, err
}
