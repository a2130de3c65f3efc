package repository

import (
	"context"
	"fmt"
	"learning_analytics/internal/model"
	"time"

	"gorm.io/gorm"
)

type GormRecommendationRepository struct {
	DB *gorm.DB
}

func NewGormRecommendationRepository(db *gorm.DB) *GormRecommendationRepository {
	return &GormRecommendationRepository{DB: db}
}

func (r *GormRecommendationRepository) Insert(ctx context.Context, batch *model.RecommendationBatch) error {
	return translateGormError(r.DB.WithContext(ctx).Create(batch).Error)
}

func (r *GormRecommendationRepository) FindByID(ctx context.Context, id string) (*model.RecommendationBatch, error) {
	var batch model.RecommendationBatch
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &batch, nil
}

// SetFlag 条件更新 flag = false 的行，已为 true 时不写入
func (r *GormRecommendationRepository) SetFlag(ctx context.Context, id string, flag model.RecommendationFlag) error {
	column, err := flagColumn(flag)
	if err != nil {
		return err
	}

	res := r.DB.WithContext(ctx).Model(&model.RecommendationBatch{}).
		Where("id = ? AND "+column+" = ?", id, false).
		UpdateColumn(column, true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	return nil
}

func (r *GormRecommendationRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]model.RecommendationBatch, error) {
	var batches []model.RecommendationBatch
	err := r.DB.WithContext(ctx).
		Where("userId = ? AND expireTime > ?", userID, now).
		Order("createTime DESC").
		Find(&batches).Error
	return batches, err
}

func (r *GormRecommendationRepository) ListByAlgorithm(ctx context.Context, algorithmType string, tr TimeRange) ([]model.RecommendationBatch, error) {
	var batches []model.RecommendationBatch
	query := r.DB.WithContext(ctx).Where("algorithmType = ?", algorithmType)
	err := applyRange(query, "createTime", tr).
		Order("createTime DESC").
		Find(&batches).Error
	return batches, err
}

func flagColumn(flag model.RecommendationFlag) (string, error) {
	switch flag {
	case model.FlagClicked, model.FlagApplied:
		return string(flag), nil
	}
	return "", fmt.Errorf("unknown recommendation flag %q", flag)
}
