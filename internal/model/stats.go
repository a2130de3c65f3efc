package model

import (
	"time"
)

// DailyStat 用户每日学习统计，每个 (userId, statDate) 只有一条
type DailyStat struct {
	ID          string    `bson:"_id" json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	UserID      int64     `bson:"userId" json:"userId" gorm:"column:userId;not null" validate:"gt=0"`
	StatDate    time.Time `bson:"statDate" json:"statDate" gorm:"column:statDate;not null" validate:"required"`
	StatMetrics `bson:",inline" gorm:"embedded"`
	CreateTime  time.Time `bson:"createTime" json:"createTime" gorm:"column:createTime"`
	UpdateTime  time.Time `bson:"updateTime" json:"updateTime" gorm:"column:updateTime"`
}

func (DailyStat) TableName() string {
	return CollectionStats
}

// StatMetrics 一天的汇总指标，upsert 时整体替换
type StatMetrics struct {
	LearningDays            int     `bson:"learningDays" json:"learningDays" gorm:"column:learningDays;default:0" validate:"gte=0"`
	TotalLearningTime       int     `bson:"totalLearningTime" json:"totalLearningTime" gorm:"column:totalLearningTime;default:0" validate:"gte=0"` // 分钟
	CoursesLearned          int     `bson:"coursesLearned" json:"coursesLearned" gorm:"column:coursesLearned;default:0" validate:"gte=0"`
	CoursesCompleted        int     `bson:"coursesCompleted" json:"coursesCompleted" gorm:"column:coursesCompleted;default:0" validate:"gte=0"`
	VideosWatched           int     `bson:"videosWatched" json:"videosWatched" gorm:"column:videosWatched;default:0" validate:"gte=0"`
	ExercisesCompleted      int     `bson:"exercisesCompleted" json:"exercisesCompleted" gorm:"column:exercisesCompleted;default:0" validate:"gte=0"`
	DiscussionsParticipated int     `bson:"discussionsParticipated" json:"discussionsParticipated" gorm:"column:discussionsParticipated;default:0" validate:"gte=0"`
	MaterialsDownloaded     int     `bson:"materialsDownloaded" json:"materialsDownloaded" gorm:"column:materialsDownloaded;default:0" validate:"gte=0"`
	AvgDailyLearningTime    float64 `bson:"avgDailyLearningTime" json:"avgDailyLearningTime" gorm:"column:avgDailyLearningTime;default:0" validate:"gte=0"`
	ConsecutiveDays         int     `bson:"consecutiveDays" json:"consecutiveDays" gorm:"column:consecutiveDays;default:0" validate:"gte=0"`
	MaxConsecutiveDays      int     `bson:"maxConsecutiveDays" json:"maxConsecutiveDays" gorm:"column:maxConsecutiveDays;default:0" validate:"gtefield=ConsecutiveDays"`
	WeeklyGoalProgress      float64 `bson:"weeklyGoalProgress" json:"weeklyGoalProgress" gorm:"column:weeklyGoalProgress;default:0" validate:"gte=0"`
	MonthlyGoalProgress     float64 `bson:"monthlyGoalProgress" json:"monthlyGoalProgress" gorm:"column:monthlyGoalProgress;default:0" validate:"gte=0"`
}

func (m *StatMetrics) Validate() error {
	return validateStruct(m)
}

func (s *DailyStat) Validate() error {
	return validateStruct(s)
}

// StatDay 统计日期归一到 UTC 零点
func StatDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GoalProgress 目标进度 = 学习时长 / 目标时长 × 100，目标无效时为 0
func GoalProgress(minutes, goalMinutes int) float64 {
	if goalMinutes <= 0 || minutes <= 0 {
		return 0
	}
	return float64(minutes) / float64(goalMinutes) * 100
}
