package model

import (
	"time"
)

// Comment 课程评论。username/avatar 为冗余的展示字段，用户改名不会回写历史评论
type Comment struct {
	ID         string    `bson:"_id" json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	CourseID   int64     `bson:"courseId" json:"courseId" gorm:"column:courseId;not null" validate:"required"`
	UserID     int64     `bson:"userId" json:"userId" gorm:"column:userId;not null" validate:"gt=0"`
	Username   string    `bson:"username" json:"username" gorm:"column:username;size:64"`
	Avatar     string    `bson:"avatar" json:"avatar" gorm:"column:avatar;size:255"`
	Content    string    `bson:"content" json:"content" gorm:"column:content;type:text" validate:"required"`
	Rating     int       `bson:"rating" json:"rating" gorm:"column:rating;not null" validate:"gte=1,lte=5"`
	LikeCount  int       `bson:"likeCount" json:"likeCount" gorm:"column:likeCount;default:0" validate:"gte=0"`
	ReplyCount int       `bson:"replyCount" json:"replyCount" gorm:"column:replyCount;default:0" validate:"gte=0"`
	IsTop      bool      `bson:"isTop" json:"isTop" gorm:"column:isTop;default:false"` // 人工置顶
	CreateTime time.Time `bson:"createTime" json:"createTime" gorm:"column:createTime"`
	UpdateTime time.Time `bson:"updateTime" json:"updateTime" gorm:"column:updateTime"`
	Deleted    bool      `bson:"deleted" json:"deleted" gorm:"column:deleted;default:false"`
}

func (Comment) TableName() string {
	return CollectionComments
}

func (c *Comment) Validate() error {
	return validateStruct(c)
}
