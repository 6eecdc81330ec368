package repository

import (
	"context"
	"errors"

	"rewardbot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSettingNotFound = errors.New("配置项不存在")

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// Set 覆盖写入，键不存在则插入
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&model.Setting{Key: key, Value: value}).Error
}

// EnsureDefaults 启动时补齐缺失的默认配置，已有值不覆盖
func (r *SettingRepository) EnsureDefaults(ctx context.Context) error {
	for key, value := range model.DefaultSettings {
		err := r.db.WithContext(ctx).
			Where(model.Setting{Key: key}).
			Attrs(model.Setting{Value: value}).
			FirstOrCreate(&model.Setting{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
