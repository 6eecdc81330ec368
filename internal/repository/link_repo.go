package repository

import (
	"context"
	"errors"

	"rewardbot/internal/model"

	"gorm.io/gorm"
)

var ErrLinkNotFound = errors.New("链接不存在")

type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Create(ctx context.Context, link *model.Link) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *LinkRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Link{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *LinkRepository) List(ctx context.Context) ([]*model.Link, error) {
	var links []*model.Link
	err := r.db.WithContext(ctx).Order("id ASC").Find(&links).Error
	return links, err
}
