package model

import (
	"learning_analytics/internal/util"
	"time"
)

// ChatMessage 直播间聊天记录，userId=0 保留给系统消息
type ChatMessage struct {
	ID          string      `bson:"_id" json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	RoomID      int64       `bson:"roomId" json:"roomId" gorm:"column:roomId;not null" validate:"required"`
	UserID      int64       `bson:"userId" json:"userId" gorm:"column:userId;not null" validate:"gte=0"`
	Username    string      `bson:"username" json:"username" gorm:"column:username;size:64"`
	Avatar      string      `bson:"avatar" json:"avatar" gorm:"column:avatar;size:255"`
	Content     string      `bson:"content" json:"content" gorm:"column:content;type:text" validate:"required"`
	MessageType MessageType `bson:"messageType" json:"messageType" gorm:"column:messageType;not null" validate:"enum"`
	Muted       bool        `bson:"muted" json:"muted" gorm:"column:muted;default:false"`
	CreateTime  time.Time   `bson:"createTime" json:"createTime" gorm:"column:createTime;not null" validate:"required"`
	Deleted     bool        `bson:"deleted" json:"deleted" gorm:"column:deleted;default:false"`
}

func (ChatMessage) TableName() string {
	return CollectionChatMessages
}

func (m *ChatMessage) Validate() error {
	if err := validateStruct(m); err != nil {
		return err
	}
	isSystemUser := m.UserID == util.SystemUserID
	if isSystemUser && m.MessageType != MessageSystem {
		return util.NewValidationError("messageType", "must be system for userId 0")
	}
	if !isSystemUser && m.MessageType == MessageSystem {
		return util.NewValidationError("messageType", "system messages are reserved for userId 0")
	}
	return nil
}
