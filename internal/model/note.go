package model

import (
	"learning_analytics/internal/util"
	"time"
)

// Note 学习笔记，挂在 (userId, courseId, lessonId) 下，记录视频播放位置
type Note struct {
	ID         string    `bson:"_id" json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	UserID     int64     `bson:"userId" json:"userId" gorm:"column:userId;not null" validate:"gt=0"`
	CourseID   int64     `bson:"courseId" json:"courseId" gorm:"column:courseId;not null" validate:"required"`
	LessonID   int64     `bson:"lessonId" json:"lessonId" gorm:"column:lessonId;not null" validate:"required"`
	Title      string    `bson:"title" json:"title" gorm:"column:title;size:255"`
	Content    string    `bson:"content" json:"content" gorm:"column:content;type:text"`
	TimePoint  int       `bson:"timePoint" json:"timePoint" gorm:"column:timePoint;default:0" validate:"gte=0"` // 视频时间点(秒)
	Type       NoteType  `bson:"type" json:"type" gorm:"column:type;size:16" validate:"enum"`
	IsPublic   bool      `bson:"isPublic" json:"isPublic" gorm:"column:isPublic;default:false"`
	Tags       []string  `bson:"tags" json:"tags" gorm:"column:tags;serializer:json;type:text"`
	LikeCount  int       `bson:"likeCount" json:"likeCount" gorm:"column:likeCount;default:0" validate:"gte=0"`
	CreateTime time.Time `bson:"createTime" json:"createTime" gorm:"column:createTime"`
	UpdateTime time.Time `bson:"updateTime" json:"updateTime" gorm:"column:updateTime"`
	Deleted    bool      `bson:"deleted" json:"deleted" gorm:"column:deleted;default:false"`
}

func (Note) TableName() string {
	return CollectionNotes
}

func (n *Note) Validate() error {
	if err := validateStruct(n); err != nil {
		return err
	}
	if n.UpdateTime.Before(n.CreateTime) {
		return util.NewValidationError("updateTime", "must be >= createTime")
	}
	return nil
}

// NotePatch 笔记可编辑字段，nil 表示不修改
type NotePatch struct {
	Title    *string
	Content  *string
	Tags     []string
	IsPublic *bool
}

func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil && p.IsPublic == nil
}
