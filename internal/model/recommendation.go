package model

import (
	"time"
)

// RecommendationBatch 某次推荐任务为用户生成的一批推荐，过期后逻辑失效但不删除
type RecommendationBatch struct {
	ID               string            `bson:"_id" json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	UserID           int64             `bson:"userId" json:"userId" gorm:"column:userId;not null" validate:"gt=0"`
	AlgorithmType    string            `bson:"algorithmType" json:"algorithmType" gorm:"column:algorithmType;size:64;not null" validate:"required"`
	RecommendedItems []RecommendedItem `bson:"recommendedItems" json:"recommendedItems" gorm:"column:recommendedItems;serializer:json;type:text" validate:"dive"`
	CreateTime       time.Time         `bson:"createTime" json:"createTime" gorm:"column:createTime;not null" validate:"required"`
	ExpireTime       time.Time         `bson:"expireTime" json:"expireTime" gorm:"column:expireTime;not null" validate:"gtfield=CreateTime"`
	Clicked          bool              `bson:"clicked" json:"clicked" gorm:"column:clicked;default:false"`
	Applied          bool              `bson:"applied" json:"applied" gorm:"column:applied;default:false"`
}

type RecommendedItem struct {
	ItemID   int64   `bson:"itemId" json:"itemId" validate:"required"`
	ItemType string  `bson:"itemType" json:"itemType" validate:"required"`
	Title    string  `bson:"title" json:"title"`
	Score    float64 `bson:"score" json:"score" validate:"gte=0,lte=1"`
	Reason   string  `bson:"reason" json:"reason"`
}

func (RecommendationBatch) TableName() string {
	return CollectionRecommendations
}

func (b *RecommendationBatch) Validate() error {
	return validateStruct(b)
}

// ActiveAt 批次在 now 时刻是否仍有效
func (b *RecommendationBatch) ActiveAt(now time.Time) bool {
	return b.ExpireTime.After(now)
}

// RecommendationFlag 推荐批次上只能由 false 变为 true 的标记
type RecommendationFlag string

const (
	FlagClicked RecommendationFlag = "clicked"
	FlagApplied RecommendationFlag = "applied"
)
