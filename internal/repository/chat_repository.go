package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"

	"gorm.io/gorm"
)

type GormChatRepository struct {
	DB *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{DB: db}
}

func (r *GormChatRepository) Insert(ctx context.Context, msg *model.ChatMessage) error {
	return translateGormError(r.DB.WithContext(ctx).Create(msg).Error)
}

func (r *GormChatRepository) FindByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &msg, nil
}

func (r *GormChatRepository) ListByRoomSince(ctx context.Context, roomID int64, since time.Time, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	query := r.DB.WithContext(ctx).
		Where("roomId = ? AND createTime > ? AND deleted = ?", roomID, since, false).
		Order("createTime ASC").
		Order("id ASC")
	err := paginate(query, Page{Limit: limit}).Find(&msgs).Error
	return msgs, err
}

func (r *GormChatRepository) ListRecentByRoom(ctx context.Context, roomID int64, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	query := r.DB.WithContext(ctx).
		Where("roomId = ? AND deleted = ?", roomID, false).
		Order("createTime DESC").
		Order("id DESC")
	err := paginate(query, Page{Limit: limit}).Find(&msgs).Error
	return msgs, err
}

func (r *GormChatRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	query := r.DB.WithContext(ctx).
		Where("userId = ? AND deleted = ?", userID, false).
		Order("createTime DESC")
	err := paginate(query, page).Find(&msgs).Error
	return msgs, err
}

func (r *GormChatRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("id = ?", id).
		UpdateColumn("deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	return nil
}
