package service

import (
	"context"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"strings"
	"time"
)

const notesColl = model.CollectionNotes

type NoteStore struct {
	repo     repository.NoteRepository
	clock    util.Clock
	newID    util.IDGenerator
	settings *Settings
}

func NewNoteStore(repo repository.NoteRepository, deps Deps) *NoteStore {
	deps = deps.withDefaults()
	return &NoteStore{repo: repo, clock: deps.Clock, newID: deps.NewID, settings: deps.Settings}
}

// Create 写入新笔记。id、时间戳与计数由存储层生成，调用方传入的值被忽略
func (s *NoteStore) Create(ctx context.Context, input *model.Note) (note *model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "create")
	defer finish(&err)

	n := *input
	now := s.clock()
	n.ID = s.newID()
	n.CreateTime = now
	n.UpdateTime = now
	n.LikeCount = 0
	n.Deleted = false
	if n.Type == "" {
		n.Type = model.NoteText
	}
	if err = n.Validate(); err != nil {
		return nil, err
	}
	if err = s.repo.Insert(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Get 按 id 读取，已软删除的笔记同样返回
func (s *NoteStore) Get(ctx context.Context, id string) (note *model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "get")
	defer finish(&err)
	return s.repo.FindByID(ctx, id)
}

// ListByUser 用户在某门课程下的笔记，按创建时间倒序
func (s *NoteStore) ListByUser(ctx context.Context, userID, courseID int64) (notes []model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "listByUser")
	defer finish(&err)
	return s.repo.ListByUserCourse(ctx, userID, courseID)
}

func (s *NoteStore) ListByLesson(ctx context.Context, userID, lessonID int64) (notes []model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "listByLesson")
	defer finish(&err)
	return s.repo.ListByUserLesson(ctx, userID, lessonID)
}

// ListTimeline 用户所有课程的笔记，最新的在前
func (s *NoteStore) ListTimeline(ctx context.Context, userID int64, page, size int) (notes []model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "listTimeline")
	defer finish(&err)
	return s.repo.ListByUser(ctx, userID, s.settings.page(page, size))
}

// ListPublicByCourse 课程下的公开笔记
func (s *NoteStore) ListPublicByCourse(ctx context.Context, courseID int64, page, size int) (notes []model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "listPublicByCourse")
	defer finish(&err)
	return s.repo.ListPublicByCourse(ctx, courseID, s.settings.page(page, size))
}

// ListByTags 含任一标签的公开笔记
func (s *NoteStore) ListByTags(ctx context.Context, tags []string, page, size int) (notes []model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "listByTags")
	defer finish(&err)

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	if len(cleaned) == 0 {
		return nil, util.NewValidationError("tags", "is required")
	}
	return s.repo.ListPublicByTags(ctx, cleaned, s.settings.page(page, size))
}

// Search 在公开笔记的标题和内容中做不区分大小写的匹配
func (s *NoteStore) Search(ctx context.Context, keyword string, page, size int) (notes []model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "search")
	defer finish(&err)

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, util.NewValidationError("keyword", "is required")
	}
	return s.repo.SearchPublic(ctx, keyword, s.settings.page(page, size))
}

func (s *NoteStore) CountByUser(ctx context.Context, userID int64) (total int64, err error) {
	ctx, finish := track(ctx, notesColl, "countByUser")
	defer finish(&err)
	return s.repo.CountByUser(ctx, userID)
}

// Like 原子地增加点赞数
func (s *NoteStore) Like(ctx context.Context, id string) (note *model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "like")
	defer finish(&err)
	return s.repo.IncrementLikes(ctx, id)
}

// Unlike 原子地减少点赞数，不会低于 0
func (s *NoteStore) Unlike(ctx context.Context, id string) (note *model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "unlike")
	defer finish(&err)
	return s.repo.DecrementLikes(ctx, id)
}

// Update 作者修改笔记内容，updateTime 不早于 createTime
func (s *NoteStore) Update(ctx context.Context, id string, userID int64, patch model.NotePatch) (note *model.Note, err error) {
	ctx, finish := track(ctx, notesColl, "update")
	defer finish(&err)

	if patch.Empty() {
		return nil, util.NewValidationError("patch", "has no fields to update")
	}
	current, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if current.Deleted {
		return nil, util.ErrNotFound
	}
	return s.repo.Update(ctx, id, userID, patch, s.updateTime(current))
}

// SoftDelete 作者删除笔记，重复删除不报错
func (s *NoteStore) SoftDelete(ctx context.Context, id string, userID int64) (err error) {
	ctx, finish := track(ctx, notesColl, "softDelete")
	defer finish(&err)

	current, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	if current.Deleted {
		return nil
	}
	return s.repo.SoftDelete(ctx, id, userID, s.updateTime(current))
}

func (s *NoteStore) owned(ctx context.Context, id string, userID int64) (*model.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return note, nil
}

// updateTime 时钟回拨时取 createTime
func (s *NoteStore) updateTime(note *model.Note) time.Time {
	now := s.clock()
	if now.Before(note.CreateTime) {
		return note.CreateTime
	}
	return now
}
