package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"

	"gorm.io/gorm"
)

type GormCommentRepository struct {
	DB *gorm.DB
}

func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{DB: db}
}

func (r *GormCommentRepository) Insert(ctx context.Context, comment *model.Comment) error {
	return translateGormError(r.DB.WithContext(ctx).Create(comment).Error)
}

func (r *GormCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &comment, nil
}

func (r *GormCommentRepository) ListByCourse(ctx context.Context, courseID int64, page Page) ([]model.Comment, error) {
	var comments []model.Comment
	query := r.DB.WithContext(ctx).
		Where("courseId = ? AND deleted = ?", courseID, false).
		Order("createTime DESC")
	err := paginate(query, page).Find(&comments).Error
	return comments, err
}

func (r *GormCommentRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]model.Comment, error) {
	var comments []model.Comment
	query := r.DB.WithContext(ctx).
		Where("userId = ? AND deleted = ?", userID, false).
		Order("createTime DESC")
	err := paginate(query, page).Find(&comments).Error
	return comments, err
}

func (r *GormCommentRepository) IncrementLikes(ctx context.Context, id string) (*model.Comment, error) {
	return r.increment(ctx, id, "likeCount")
}

func (r *GormCommentRepository) IncrementReplies(ctx context.Context, id string) (*model.Comment, error) {
	return r.increment(ctx, id, "replyCount")
}

func (r *GormCommentRepository) increment(ctx context.Context, id, column string) (*model.Comment, error) {
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *GormCommentRepository) SetTop(ctx context.Context, id string, top bool, updateTime time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{"isTop": top, "updateTime": updateTime})
}

func (r *GormCommentRepository) SoftDelete(ctx context.Context, id string, updateTime time.Time) error {
	return r.updateFields(ctx, id, map[string]interface{}{"deleted": true, "updateTime": updateTime})
}

func (r *GormCommentRepository) updateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.DB.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL 对未改变的行返回 0，需要再确认记录是否存在
		_, err := r.FindByID(ctx, id)
		return err
	}
	return nil
}
