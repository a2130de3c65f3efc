package repository

import (
	"context"
	"learning_analytics/internal/model"

	"gorm.io/gorm"
)

type GormBehaviorRepository struct {
	DB *gorm.DB
}

func NewGormBehaviorRepository(db *gorm.DB) *GormBehaviorRepository {
	return &GormBehaviorRepository{DB: db}
}

func (r *GormBehaviorRepository) Insert(ctx context.Context, event *model.BehaviorEvent) error {
	return translateGormError(r.DB.WithContext(ctx).Create(event).Error)
}

func (r *GormBehaviorRepository) FindByID(ctx context.Context, id string) (*model.BehaviorEvent, error) {
	var event model.BehaviorEvent
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &event, nil
}

func (r *GormBehaviorRepository) ListByUser(ctx context.Context, userID int64, tr TimeRange) ([]model.BehaviorEvent, error) {
	return r.list(r.DB.WithContext(ctx).Where("userId = ?", userID), tr)
}

func (r *GormBehaviorRepository) ListByCourse(ctx context.Context, courseID int64, tr TimeRange) ([]model.BehaviorEvent, error) {
	return r.list(r.DB.WithContext(ctx).Where("courseId = ?", courseID), tr)
}

func (r *GormBehaviorRepository) ListByActionType(ctx context.Context, actionType model.ActionType, tr TimeRange) ([]model.BehaviorEvent, error) {
	return r.list(r.DB.WithContext(ctx).Where("actionType = ?", int(actionType)), tr)
}

func (r *GormBehaviorRepository) list(query *gorm.DB, tr TimeRange) ([]model.BehaviorEvent, error) {
	var events []model.BehaviorEvent
	err := applyRange(query, "actionTime", tr).
		Order("actionTime DESC").
		Find(&events).Error
	return events, err
}

func (r *GormBehaviorRepository) SumDuration(ctx context.Context, userID int64, tr TimeRange) (int64, error) {
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.BehaviorEvent{}).Where("userId = ?", userID)
	err := applyRange(query, "actionTime", tr).
		Select("COALESCE(SUM(duration), 0)").
		Scan(&total).Error
	return total, err
}
