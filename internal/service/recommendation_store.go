package service

import (
	"context"
	"fmt"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

const recommendationsColl = model.CollectionRecommendations

// RecommendationStore 推荐批次由离线任务写入，服务层读取并回写点击/采纳标记
type RecommendationStore struct {
	repo     repository.RecommendationRepository
	clock    util.Clock
	newID    util.IDGenerator
	rdb      *redis.Client
	settings *Settings
}

func NewRecommendationStore(repo repository.RecommendationRepository, deps Deps) *RecommendationStore {
	deps = deps.withDefaults()
	return &RecommendationStore{repo: repo, clock: deps.Clock, newID: deps.NewID, rdb: deps.Redis, settings: deps.Settings}
}

// versionTTL 版本号闲置一天后过期
const versionTTL = 24 * time.Hour

func currentCacheKey(userID int64) string {
	return fmt.Sprintf("recommendation:current:%d", userID)
}

// versionKey 每次失效时递增。回填缓存前比对读库前取到的版本，
// 读库期间有新批次写入时放弃回填
func versionKey(userID int64) string {
	return fmt.Sprintf("recommendation:version:%d", userID)
}

// Create 写入一批推荐，createTime 为空时取当前时间
func (s *RecommendationStore) Create(ctx context.Context, input *model.RecommendationBatch) (batch *model.RecommendationBatch, err error) {
	ctx, finish := track(ctx, recommendationsColl, "create")
	defer finish(&err)

	b := *input
	b.ID = s.newID()
	b.Clicked = false
	b.Applied = false
	b.CreateTime = storeTime(b.CreateTime)
	if b.CreateTime.IsZero() {
		b.CreateTime = s.clock()
	}
	b.ExpireTime = storeTime(b.ExpireTime)
	b.RecommendedItems = append([]model.RecommendedItem(nil), input.RecommendedItems...)
	if err = b.Validate(); err != nil {
		return nil, err
	}
	if err = s.repo.Insert(ctx, &b); err != nil {
		return nil, err
	}
	s.invalidate(ctx, b.UserID)
	return &b, nil
}

func (s *RecommendationStore) Get(ctx context.Context, id string) (batch *model.RecommendationBatch, err error) {
	ctx, finish := track(ctx, recommendationsColl, "get")
	defer finish(&err)
	return s.repo.FindByID(ctx, id)
}

// MarkClicked 幂等，重复调用结果不变
func (s *RecommendationStore) MarkClicked(ctx context.Context, id string) (err error) {
	ctx, finish := track(ctx, recommendationsColl, "markClicked")
	defer finish(&err)
	return s.mark(ctx, id, model.FlagClicked)
}

// MarkApplied 幂等，重复调用结果不变
func (s *RecommendationStore) MarkApplied(ctx context.Context, id string) (err error) {
	ctx, finish := track(ctx, recommendationsColl, "markApplied")
	defer finish(&err)
	return s.mark(ctx, id, model.FlagApplied)
}

func (s *RecommendationStore) mark(ctx context.Context, id string, flag model.RecommendationFlag) error {
	if err := s.repo.SetFlag(ctx, id, flag); err != nil {
		return err
	}
	if s.rdb == nil {
		return nil
	}
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, batch.UserID)
	return nil
}

// ActiveForUser expireTime 晚于 now 的批次，按创建时间倒序
func (s *RecommendationStore) ActiveForUser(ctx context.Context, userID int64, now time.Time) (batches []model.RecommendationBatch, err error) {
	ctx, finish := track(ctx, recommendationsColl, "activeForUser")
	defer finish(&err)
	return s.repo.ListActiveByUser(ctx, userID, storeTime(now))
}

// Current 用户最新的有效批次。配置了 Redis 时读写缓存，缓存时间不超过批次的剩余有效期
func (s *RecommendationStore) Current(ctx context.Context, userID int64, now time.Time) (batch *model.RecommendationBatch, err error) {
	ctx, finish := track(ctx, recommendationsColl, "current")
	defer finish(&err)

	now = storeTime(now)
	if cached, ok := s.cached(ctx, userID, now); ok {
		return cached, nil
	}

	version, cacheable := s.version(ctx, userID)
	active, err := s.repo.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, util.ErrNotFound
	}
	batch = &active[0]
	if cacheable {
		s.store(ctx, batch, now, version)
	}
	return batch, nil
}

func (s *RecommendationStore) ListByAlgorithm(ctx context.Context, algorithmType string, from, to time.Time) (batches []model.RecommendationBatch, err error) {
	ctx, finish := track(ctx, recommendationsColl, "listByAlgorithm")
	defer finish(&err)

	r, err := timeRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByAlgorithm(ctx, algorithmType, r)
}

func (s *RecommendationStore) cached(ctx context.Context, userID int64, now time.Time) (*model.RecommendationBatch, bool) {
	if s.rdb == nil {
		return nil, false
	}
	val, err := s.rdb.Get(ctx, currentCacheKey(userID)).Result()
	if err != nil {
		// redis.Nil 表示未命中
		return nil, false
	}
	var batch model.RecommendationBatch
	if err := json.Unmarshal([]byte(val), &batch); err != nil {
		return nil, false
	}
	// 调用方传入的 now 可能晚于缓存写入时刻
	if !batch.ActiveAt(now) {
		return nil, false
	}
	return &batch, true
}

// version 当前缓存版本，键不存在时为空串。Redis 不可用时不回填
func (s *RecommendationStore) version(ctx context.Context, userID int64) (string, bool) {
	if s.rdb == nil {
		return "", false
	}
	v, err := s.rdb.Get(ctx, versionKey(userID)).Result()
	if err == redis.Nil {
		return "", true
	}
	return v, err == nil
}

func (s *RecommendationStore) store(ctx context.Context, batch *model.RecommendationBatch, now time.Time, version string) {
	ttl := s.settings.Get().RecommendationCacheTTL
	if remaining := batch.ExpireTime.Sub(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return
	}
	vkey := versionKey(batch.UserID)
	// 版本变化时 EXEC 失败或直接放弃，两种情况都不回填
	_ = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, currentCacheKey(batch.UserID), payload, ttl)
			return nil
		})
		return err
	}, vkey)
}

func (s *RecommendationStore) invalidate(ctx context.Context, userID int64) {
	if s.rdb == nil {
		return
	}
	vkey := versionKey(userID)
	_, _ = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, currentCacheKey(userID))
		return nil
	})
}
