package repository

import (
	"context"
	"learning_analytics/internal/model"
	"learning_analytics/internal/util"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

type GormNoteRepository struct {
	DB *gorm.DB
}

func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	return &GormNoteRepository{DB: db}
}

func (r *GormNoteRepository) Insert(ctx context.Context, note *model.Note) error {
	return translateGormError(r.DB.WithContext(ctx).Create(note).Error)
}

func (r *GormNoteRepository) FindByID(ctx context.Context, id string) (*model.Note, error) {
	var note model.Note
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		return nil, translateGormError(err)
	}
	return &note, nil
}

func (r *GormNoteRepository) ListByUserCourse(ctx context.Context, userID, courseID int64) ([]model.Note, error) {
	var notes []model.Note
	err := r.DB.WithContext(ctx).
		Where("userId = ? AND courseId = ? AND deleted = ?", userID, courseID, false).
		Order("createTime DESC").
		Find(&notes).Error
	return notes, err
}

func (r *GormNoteRepository) ListByUserLesson(ctx context.Context, userID, lessonID int64) ([]model.Note, error) {
	var notes []model.Note
	err := r.DB.WithContext(ctx).
		Where("userId = ? AND lessonId = ? AND deleted = ?", userID, lessonID, false).
		Order("createTime DESC").
		Find(&notes).Error
	return notes, err
}

func (r *GormNoteRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]model.Note, error) {
	var notes []model.Note
	query := r.DB.WithContext(ctx).
		Where("userId = ? AND deleted = ?", userID, false).
		Order("createTime DESC")
	err := paginate(query, page).Find(&notes).Error
	return notes, err
}

func (r *GormNoteRepository) ListPublicByCourse(ctx context.Context, courseID int64, page Page) ([]model.Note, error) {
	var notes []model.Note
	query := r.DB.WithContext(ctx).
		Where("courseId = ? AND isPublic = ? AND deleted = ?", courseID, true, false).
		Order("createTime DESC")
	err := paginate(query, page).Find(&notes).Error
	return notes, err
}

// ListPublicByTags tags 以 JSON 数组存储，按带引号的元素做包含匹配
func (r *GormNoteRepository) ListPublicByTags(ctx context.Context, tags []string, page Page) ([]model.Note, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(tags))
	args := make([]interface{}, 0, len(tags))
	for _, tag := range tags {
		encoded, err := json.Marshal(tag)
		if err != nil {
			return nil, err
		}
		conds = append(conds, "tags LIKE ? ESCAPE '!'")
		args = append(args, "%"+escapeLike(string(encoded))+"%")
	}

	var notes []model.Note
	query := r.DB.WithContext(ctx).
		Where("isPublic = ? AND deleted = ?", true, false).
		Where(strings.Join(conds, " OR "), args...).
		Order("createTime DESC")
	err := paginate(query, page).Find(&notes).Error
	return notes, err
}

func (r *GormNoteRepository) SearchPublic(ctx context.Context, keyword string, page Page) ([]model.Note, error) {
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"

	var notes []model.Note
	query := r.DB.WithContext(ctx).
		Where("isPublic = ? AND deleted = ?", true, false).
		Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!')", pattern, pattern).
		Order("createTime DESC")
	err := paginate(query, page).Find(&notes).Error
	return notes, err
}

func (r *GormNoteRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Note{}).
		Where("userId = ? AND deleted = ?", userID, false).
		Count(&total).Error
	return total, err
}

func (r *GormNoteRepository) IncrementLikes(ctx context.Context, id string) (*model.Note, error) {
	res := r.DB.WithContext(ctx).Model(&model.Note{}).
		Where("id = ?", id).
		UpdateColumn("likeCount", gorm.Expr("likeCount + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	return r.FindByID(ctx, id)
}

func (r *GormNoteRepository) DecrementLikes(ctx context.Context, id string) (*model.Note, error) {
	res := r.DB.WithContext(ctx).Model(&model.Note{}).
		Where("id = ? AND likeCount > ?", id, 0).
		UpdateColumn("likeCount", gorm.Expr("likeCount - ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	return r.FindByID(ctx, id)
}

func (r *GormNoteRepository) Update(ctx context.Context, id string, userID int64, patch model.NotePatch, updateTime time.Time) (*model.Note, error) {
	columns := []string{"updateTime"}
	values := model.Note{UpdateTime: updateTime}
	if patch.Title != nil {
		columns = append(columns, "title")
		values.Title = *patch.Title
	}
	if patch.Content != nil {
		columns = append(columns, "content")
		values.Content = *patch.Content
	}
	if patch.Tags != nil {
		columns = append(columns, "tags")
		values.Tags = patch.Tags
	}
	if patch.IsPublic != nil {
		columns = append(columns, "isPublic")
		values.IsPublic = *patch.IsPublic
	}

	// 使用结构体更新，tags 才会经过 json serializer
	err := r.DB.WithContext(ctx).Model(&model.Note{}).
		Where("id = ? AND userId = ?", id, userID).
		Select(columns).
		Updates(&values).Error
	if err != nil {
		return nil, err
	}
	return r.findOwned(ctx, id, userID)
}

func (r *GormNoteRepository) SoftDelete(ctx context.Context, id string, userID int64, updateTime time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.Note{}).
		Where("id = ? AND userId = ?", id, userID).
		Updates(map[string]interface{}{"deleted": true, "updateTime": updateTime})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := r.findOwned(ctx, id, userID)
		return err
	}
	return nil
}

// findOwned 记录不存在或不属于 userID 时返回 util.ErrNotFound，与按 (id, userId) 过滤的语义一致
func (r *GormNoteRepository) findOwned(ctx context.Context, id string, userID int64) (*model.Note, error) {
	note, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.UserID != userID {
		return nil, util.ErrNotFound
	}
	return note, nil
}

// escapeLike 以 ! 作为 LIKE 转义符，MySQL 与 SQLite 对反斜杠的处理不同
func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}
