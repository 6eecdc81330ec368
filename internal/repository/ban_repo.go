package repository

import (
	"context"

	"rewardbot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BanRepository struct {
	db *gorm.DB
}

func NewBanRepository(db *gorm.DB) *BanRepository {
	return &BanRepository{db: db}
}

// Ban 幂等封禁，重复封禁不报错
func (r *BanRepository) Ban(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.BanEntry{UserID: userID}).Error
}

// Unban 幂等解封，未封禁的用户解封视为成功
func (r *BanRepository) Unban(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.BanEntry{}).Error
}

func (r *BanRepository) IsBanned(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.BanEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *BanRepository) ListBanned(ctx context.Context) ([]*model.BanEntry, error) {
	var entries []*model.BanEntry
	err := r.db.WithContext(ctx).Order("banned_at ASC").Find(&entries).Error
	return entries, err
}
