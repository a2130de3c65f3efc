package service

import (
	"context"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
)

const commentsColl = model.CollectionComments

type CommentStore struct {
	repo     repository.CommentRepository
	clock    util.Clock
	newID    util.IDGenerator
	settings *Settings
}

func NewCommentStore(repo repository.CommentRepository, deps Deps) *CommentStore {
	deps = deps.withDefaults()
	return &CommentStore{repo: repo, clock: deps.Clock, newID: deps.NewID, settings: deps.Settings}
}

func (s *CommentStore) Create(ctx context.Context, input *model.Comment) (comment *model.Comment, err error) {
	ctx, finish := track(ctx, commentsColl, "create")
	defer finish(&err)

	c := *input
	now := s.clock()
	c.ID = s.newID()
	c.LikeCount = 0
	c.ReplyCount = 0
	c.Deleted = false
	c.CreateTime = now
	c.UpdateTime = now
	if err = c.Validate(); err != nil {
		return nil, err
	}
	if err = s.repo.Insert(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get 按 id 读取，包含已删除的评论
func (s *CommentStore) Get(ctx context.Context, id string) (comment *model.Comment, err error) {
	ctx, finish := track(ctx, commentsColl, "get")
	defer finish(&err)
	return s.repo.FindByID(ctx, id)
}

// ListByCourse 未删除的评论按创建时间倒序，置顶排序交给展示层
func (s *CommentStore) ListByCourse(ctx context.Context, courseID int64, page, size int) (comments []model.Comment, err error) {
	ctx, finish := track(ctx, commentsColl, "listByCourse")
	defer finish(&err)
	return s.repo.ListByCourse(ctx, courseID, s.settings.page(page, size))
}

func (s *CommentStore) ListByUser(ctx context.Context, userID int64, page, size int) (comments []model.Comment, err error) {
	ctx, finish := track(ctx, commentsColl, "listByUser")
	defer finish(&err)
	return s.repo.ListByUser(ctx, userID, s.settings.page(page, size))
}

func (s *CommentStore) Like(ctx context.Context, id string) (comment *model.Comment, err error) {
	ctx, finish := track(ctx, commentsColl, "like")
	defer finish(&err)
	return s.repo.IncrementLikes(ctx, id)
}

// IncrementReplies 回复写入其他系统，这里只维护计数
func (s *CommentStore) IncrementReplies(ctx context.Context, id string) (comment *model.Comment, err error) {
	ctx, finish := track(ctx, commentsColl, "incrementReplies")
	defer finish(&err)
	return s.repo.IncrementReplies(ctx, id)
}

func (s *CommentStore) SetTop(ctx context.Context, id string, top bool) (err error) {
	ctx, finish := track(ctx, commentsColl, "setTop")
	defer finish(&err)
	return s.repo.SetTop(ctx, id, top, s.clock())
}

// SoftDelete 不可恢复，删除后不再出现在列表中
func (s *CommentStore) SoftDelete(ctx context.Context, id string) (err error) {
	ctx, finish := track(ctx, commentsColl, "softDelete")
	defer finish(&err)
	return s.repo.SoftDelete(ctx, id, s.clock())
}
