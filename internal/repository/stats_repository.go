package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// statMetricColumns upsert 时整体替换的列，createTime 保持首次写入的值
var statMetricColumns = []string{
	"learningDays",
	"totalLearningTime",
	"coursesLearned",
	"coursesCompleted",
	"videosWatched",
	"exercisesCompleted",
	"discussionsParticipated",
	"materialsDownloaded",
	"avgDailyLearningTime",
	"consecutiveDays",
	"maxConsecutiveDays",
	"weeklyGoalProgress",
	"monthlyGoalProgress",
	"updateTime",
}

type GormStatsRepository struct {
	DB *gorm.DB
}

func NewGormStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{DB: db}
}

func (r *GormStatsRepository) Insert(ctx context.Context, stat *model.DailyStat) error {
	return translateGormError(r.DB.WithContext(ctx).Create(stat).Error)
}

func (r *GormStatsRepository) Upsert(ctx context.Context, stat *model.DailyStat) (*model.DailyStat, error) {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "userId"}, {Name: "statDate"}},
		DoUpdates: clause.AssignmentColumns(statMetricColumns),
	}).Create(stat).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return r.FindByUserDate(ctx, stat.UserID, stat.StatDate)
}

func (r *GormStatsRepository) FindByUserDate(ctx context.Context, userID int64, statDate time.Time) (*model.DailyStat, error) {
	var stat model.DailyStat
	err := r.DB.WithContext(ctx).
		Where("userId = ? AND statDate = ?", userID, statDate).
		First(&stat).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &stat, nil
}

func (r *GormStatsRepository) ListByUser(ctx context.Context, userID int64, tr TimeRange) ([]model.DailyStat, error) {
	var stats []model.DailyStat
	query := r.DB.WithContext(ctx).Where("userId = ?", userID)
	err := applyRange(query, "statDate", tr).
		Order("statDate DESC").
		Find(&stats).Error
	return stats, err
}

func (r *GormStatsRepository) Ranking(ctx context.Context, tr TimeRange, limit int) ([]model.DailyStat, error) {
	var stats []model.DailyStat
	query := applyRange(r.DB.WithContext(ctx), "statDate", tr).
		Order("totalLearningTime DESC").
		Order("userId ASC")
	err := paginate(query, Page{Limit: limit}).Find(&stats).Error
	return stats, err
}
