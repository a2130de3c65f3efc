package model

import (
	"learning_analytics/internal/util"
	"time"
)

// BehaviorEvent 学习行为事件，写入后不可修改
type BehaviorEvent struct {
	ID         string     `bson:"_id" json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	UserID     int64      `bson:"userId" json:"userId" gorm:"column:userId;not null" validate:"gt=0"`
	CourseID   int64      `bson:"courseId" json:"courseId" gorm:"column:courseId;not null" validate:"required"`
	ChapterID  int64      `bson:"chapterId" json:"chapterId" gorm:"column:chapterId"`
	ActionType ActionType `bson:"actionType" json:"actionType" gorm:"column:actionType;not null" validate:"enum"`
	Duration   int        `bson:"duration" json:"duration" gorm:"column:duration;default:0" validate:"gte=0"` // 学习时长（秒）
	Progress   float64    `bson:"progress" json:"progress" gorm:"column:progress;default:0" validate:"gte=0,lte=100"`
	Score      *int       `bson:"score,omitempty" json:"score,omitempty" gorm:"column:score" validate:"omitempty,gte=1,lte=5"`
	DeviceType DeviceType `bson:"deviceType" json:"deviceType" gorm:"column:deviceType" validate:"enum"`
	Browser    string     `bson:"browser" json:"browser" gorm:"column:browser;size:64"`
	OS         string     `bson:"os" json:"os" gorm:"column:os;size:64"`
	IPAddress  string     `bson:"ipAddress" json:"ipAddress" gorm:"column:ipAddress;size:64"`
	Location   string     `bson:"location" json:"location" gorm:"column:location;size:128"`
	ActionTime time.Time  `bson:"actionTime" json:"actionTime" gorm:"column:actionTime;not null" validate:"required"`
	CreateTime time.Time  `bson:"createTime" json:"createTime" gorm:"column:createTime;not null" validate:"required"`
}

func (BehaviorEvent) TableName() string {
	return CollectionBehaviors
}

func (e *BehaviorEvent) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	// 入库延迟：createTime 不早于 actionTime
	if e.CreateTime.Before(e.ActionTime) {
		return util.NewValidationError("actionTime", "must not be later than createTime")
	}
	return nil
}
