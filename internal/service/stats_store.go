package service

import (
	"context"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"time"
)

const statsColl = model.CollectionStats

// StatsStore 用户每日学习统计，由外部批处理任务每天写入一次
type StatsStore struct {
	repo     repository.StatsRepository
	clock    util.Clock
	newID    util.IDGenerator
	settings *Settings
}

func NewStatsStore(repo repository.StatsRepository, deps Deps) *StatsStore {
	deps = deps.withDefaults()
	return &StatsStore{repo: repo, clock: deps.Clock, newID: deps.NewID, settings: deps.Settings}
}

// Insert 普通插入，同一 (userId, statDate) 的第二条记录返回 util.ErrUniquenessViolation
func (s *StatsStore) Insert(ctx context.Context, input *model.DailyStat) (stat *model.DailyStat, err error) {
	ctx, finish := track(ctx, statsColl, "insert")
	defer finish(&err)

	st := *input
	now := s.clock()
	st.ID = s.newID()
	st.StatDate = model.StatDay(st.StatDate)
	st.CreateTime = now
	st.UpdateTime = now
	if err = st.Validate(); err != nil {
		return nil, err
	}
	if err = s.repo.Insert(ctx, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Upsert 原子地插入或整体替换某天的指标，createTime 保留首次写入的值
func (s *StatsStore) Upsert(ctx context.Context, userID int64, statDate time.Time, metrics model.StatMetrics) (stat *model.DailyStat, err error) {
	ctx, finish := track(ctx, statsColl, "upsert")
	defer finish(&err)

	now := s.clock()
	st := &model.DailyStat{
		ID:          s.newID(),
		UserID:      userID,
		StatDate:    model.StatDay(statDate),
		StatMetrics: metrics,
		CreateTime:  now,
		UpdateTime:  now,
	}
	if err = st.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, st)
}

func (s *StatsStore) Get(ctx context.Context, userID int64, statDate time.Time) (stat *model.DailyStat, err error) {
	ctx, finish := track(ctx, statsColl, "get")
	defer finish(&err)
	return s.repo.FindByUserDate(ctx, userID, model.StatDay(statDate))
}

// RangeByUser statDate 落在 [from, to] 内的记录，按日期倒序
func (s *StatsStore) RangeByUser(ctx context.Context, userID int64, from, to time.Time) (stats []model.DailyStat, err error) {
	ctx, finish := track(ctx, statsColl, "rangeByUser")
	defer finish(&err)

	r, err := statRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID, r)
}

// Ranking 区间内按学习时长倒序的记录
func (s *StatsStore) Ranking(ctx context.Context, from, to time.Time, limit int) (stats []model.DailyStat, err error) {
	ctx, finish := track(ctx, statsColl, "ranking")
	defer finish(&err)

	r, err := statRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.Ranking(ctx, r, s.settings.limit(limit))
}

// statRange 端点按日归一，与存储的 statDate 对齐
func statRange(from, to time.Time) (repository.TimeRange, error) {
	if !from.IsZero() {
		from = model.StatDay(from)
	}
	if !to.IsZero() {
		to = model.StatDay(to)
	}
	return timeRange(from, to)
}
