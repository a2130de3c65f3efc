package service

import (
	"context"
	"errors"
	"fmt"
	"learning_analytics/internal/config"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"learning_analytics/pkg/monitoring"
	"learning_analytics/pkg/tracing"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Deps 各 store 共用的依赖，Redis 可为空
type Deps struct {
	Clock    util.Clock
	NewID    util.IDGenerator
	Redis    *redis.Client
	Settings *Settings
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = util.SystemClock
	}
	if d.NewID == nil {
		d.NewID = util.NewUUID
	}
	if d.Settings == nil {
		d.Settings = NewSettings(config.StoreConfig{
			RecommendationCacheTTL: 10 * time.Minute,
			DefaultPageSize:        20,
			MaxPageSize:            100,
		})
	}
	return d
}

// Stores 对外暴露的全部存储组件
type Stores struct {
	Notes           *NoteStore
	Behaviors       *BehaviorLog
	Stats           *StatsStore
	Comments        *CommentStore
	Chat            *ChatStore
	Recommendations *RecommendationStore
}

func NewStores(set *repository.Set, deps Deps) *Stores {
	deps = deps.withDefaults()
	return &Stores{
		Notes:           NewNoteStore(set.Notes, deps),
		Behaviors:       NewBehaviorLog(set.Behaviors, deps),
		Stats:           NewStatsStore(set.Stats, deps),
		Comments:        NewCommentStore(set.Comments, deps),
		Chat:            NewChatStore(set.Chat, deps),
		Recommendations: NewRecommendationStore(set.Recommendations, deps),
	}
}

// Settings 可热更新的存储参数
type Settings struct {
	v atomic.Pointer[config.StoreConfig]
}

func NewSettings(cfg config.StoreConfig) *Settings {
	s := &Settings{}
	s.Set(cfg)
	return s
}

func (s *Settings) Get() config.StoreConfig {
	return *s.v.Load()
}

func (s *Settings) Set(cfg config.StoreConfig) {
	s.v.Store(&cfg)
}

// page 把 (page, size) 换算为偏移分页，page 从 1 开始，size 被限制在 MaxPageSize 内
func (s *Settings) page(page, size int) repository.Page {
	cfg := s.Get()
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = cfg.DefaultPageSize
	}
	if size > cfg.MaxPageSize {
		size = cfg.MaxPageSize
	}
	return repository.Page{Offset: (page - 1) * size, Limit: size}
}

// limit 单次返回条数
func (s *Settings) limit(n int) int {
	return s.page(1, n).Limit
}

// track 为一次存储操作记录指标与 span，并包装驱动错误。
// 用法: ctx, finish := track(ctx, collection, op); defer finish(&err)
func track(ctx context.Context, collection, operation string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := tracing.StartStoreSpan(ctx, collection, operation)
	return ctx, func(errp *error) {
		*errp = backendError(collection, operation, *errp)
		monitoring.RecordStoreOperation(collection, operation, resultOf(*errp), time.Since(start))
		tracing.EndSpan(span, *errp)
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, util.ErrNotFound):
		return "not_found"
	case util.IsValidation(err):
		return "invalid"
	case errors.Is(err, util.ErrUniquenessViolation):
		return "conflict"
	case errors.Is(err, util.ErrPermissionDenied):
		return "denied"
	}
	return "error"
}

// backendError 为驱动错误加上集合与操作名，领域错误原样返回
func backendError(collection, operation string, err error) error {
	if err == nil || resultOf(err) != "error" {
		return err
	}
	return fmt.Errorf("%s %s: %w", collection, operation, err)
}

// storeTime 调用方传入的时间统一为 UTC 毫秒精度，与 SystemClock 写入的时间一致。
// SQLite 按文本比较时间，时区不一致时区间查询会漏数据
func storeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}

// timeRange 校验闭区间，端点为零值表示不限制
func timeRange(from, to time.Time) (repository.TimeRange, error) {
	from, to = storeTime(from), storeTime(to)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return repository.TimeRange{}, util.NewValidationError("to", "must not be before from")
	}
	return repository.TimeRange{From: from, To: to}, nil
}
