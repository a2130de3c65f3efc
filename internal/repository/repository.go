package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"
)

// Page 偏移分页，Limit <= 0 表示不限制
type Page struct {
	Offset int
	Limit  int
}

// TimeRange 闭区间 [From, To]，零值端点表示不限制
type TimeRange struct {
	From time.Time
	To   time.Time
}

type NoteRepository interface {
	Insert(ctx context.Context, note *model.Note) error
	FindByID(ctx context.Context, id string) (*model.Note, error)
	ListByUserCourse(ctx context.Context, userID, courseID int64) ([]model.Note, error)
	ListByUserLesson(ctx context.Context, userID, lessonID int64) ([]model.Note, error)
	// ListByUser 用户全部未删除笔记，按 createTime 倒序
	ListByUser(ctx context.Context, userID int64, page Page) ([]model.Note, error)
	ListPublicByCourse(ctx context.Context, courseID int64, page Page) ([]model.Note, error)
	ListPublicByTags(ctx context.Context, tags []string, page Page) ([]model.Note, error)
	SearchPublic(ctx context.Context, keyword string, page Page) ([]model.Note, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	IncrementLikes(ctx context.Context, id string) (*model.Note, error)
	// DecrementLikes 仅在 likeCount > 0 时减一，计数为 0 时原样返回
	DecrementLikes(ctx context.Context, id string) (*model.Note, error)
	Update(ctx context.Context, id string, userID int64, patch model.NotePatch, updateTime time.Time) (*model.Note, error)
	SoftDelete(ctx context.Context, id string, userID int64, updateTime time.Time) error
}

type BehaviorRepository interface {
	Insert(ctx context.Context, event *model.BehaviorEvent) error
	FindByID(ctx context.Context, id string) (*model.BehaviorEvent, error)
	ListByUser(ctx context.Context, userID int64, r TimeRange) ([]model.BehaviorEvent, error)
	ListByCourse(ctx context.Context, courseID int64, r TimeRange) ([]model.BehaviorEvent, error)
	ListByActionType(ctx context.Context, actionType model.ActionType, r TimeRange) ([]model.BehaviorEvent, error)
	SumDuration(ctx context.Context, userID int64, r TimeRange) (int64, error)
}

type StatsRepository interface {
	// Insert 重复的 (userId, statDate) 返回 util.ErrUniquenessViolation
	Insert(ctx context.Context, stat *model.DailyStat) error
	// Upsert 按 (userId, statDate) 原子地插入或整体替换指标，ID 与 CreateTime 只在插入时生效
	Upsert(ctx context.Context, stat *model.DailyStat) (*model.DailyStat, error)
	FindByUserDate(ctx context.Context, userID int64, statDate time.Time) (*model.DailyStat, error)
	ListByUser(ctx context.Context, userID int64, r TimeRange) ([]model.DailyStat, error)
	Ranking(ctx context.Context, r TimeRange, limit int) ([]model.DailyStat, error)
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	ListByCourse(ctx context.Context, courseID int64, page Page) ([]model.Comment, error)
	ListByUser(ctx context.Context, userID int64, page Page) ([]model.Comment, error)
	IncrementLikes(ctx context.Context, id string) (*model.Comment, error)
	IncrementReplies(ctx context.Context, id string) (*model.Comment, error)
	SetTop(ctx context.Context, id string, top bool, updateTime time.Time) error
	SoftDelete(ctx context.Context, id string, updateTime time.Time) error
}

type ChatRepository interface {
	Insert(ctx context.Context, msg *model.ChatMessage) error
	FindByID(ctx context.Context, id string) (*model.ChatMessage, error)
	// ListByRoomSince createTime > since，按时间正序
	ListByRoomSince(ctx context.Context, roomID int64, since time.Time, limit int) ([]model.ChatMessage, error)
	// ListRecentByRoom 最新的 limit 条，按时间倒序
	ListRecentByRoom(ctx context.Context, roomID int64, limit int) ([]model.ChatMessage, error)
	ListByUser(ctx context.Context, userID int64, page Page) ([]model.ChatMessage, error)
	SoftDelete(ctx context.Context, id string) error
}

type RecommendationRepository interface {
	Insert(ctx context.Context, batch *model.RecommendationBatch) error
	FindByID(ctx context.Context, id string) (*model.RecommendationBatch, error)
	// SetFlag 幂等地把标记置为 true
	SetFlag(ctx context.Context, id string, flag model.RecommendationFlag) error
	ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]model.RecommendationBatch, error)
	ListByAlgorithm(ctx context.Context, algorithmType string, r TimeRange) ([]model.RecommendationBatch, error)
}

// Indexer 创建集合与索引，可重复执行
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// Set 一个存储后端上的全部仓库
type Set struct {
	Notes           NoteRepository
	Behaviors       BehaviorRepository
	Stats           StatsRepository
	Comments        CommentRepository
	Chat            ChatRepository
	Recommendations RecommendationRepository
	Indexer         Indexer

	// Ping 健康检查使用
	Ping func(ctx context.Context) error
}
