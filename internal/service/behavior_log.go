package service

import (
	"context"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"time"
)

const behaviorsColl = model.CollectionBehaviors

// BehaviorLog 只追加的学习行为日志
type BehaviorLog struct {
	repo  repository.BehaviorRepository
	clock util.Clock
	newID util.IDGenerator
}

func NewBehaviorLog(repo repository.BehaviorRepository, deps Deps) *BehaviorLog {
	deps = deps.withDefaults()
	return &BehaviorLog{repo: repo, clock: deps.Clock, newID: deps.NewID}
}

// Append 唯一的写操作。actionTime 为空时取当前时间，晚于当前时间的 actionTime 被拒绝
func (l *BehaviorLog) Append(ctx context.Context, input *model.BehaviorEvent) (event *model.BehaviorEvent, err error) {
	ctx, finish := track(ctx, behaviorsColl, "append")
	defer finish(&err)

	e := *input
	now := l.clock()
	e.ID = l.newID()
	e.CreateTime = now
	e.ActionTime = storeTime(e.ActionTime)
	if e.ActionTime.IsZero() {
		e.ActionTime = now
	}
	if e.Score != nil {
		score := *e.Score
		e.Score = &score
	}
	if err = e.Validate(); err != nil {
		return nil, err
	}
	if err = l.repo.Insert(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (l *BehaviorLog) Get(ctx context.Context, id string) (event *model.BehaviorEvent, err error) {
	ctx, finish := track(ctx, behaviorsColl, "get")
	defer finish(&err)
	return l.repo.FindByID(ctx, id)
}

// QueryByUser actionTime 落在 [from, to] 内的事件，按 actionTime 倒序
func (l *BehaviorLog) QueryByUser(ctx context.Context, userID int64, from, to time.Time) (events []model.BehaviorEvent, err error) {
	ctx, finish := track(ctx, behaviorsColl, "queryByUser")
	defer finish(&err)

	r, err := timeRange(from, to)
	if err != nil {
		return nil, err
	}
	return l.repo.ListByUser(ctx, userID, r)
}

func (l *BehaviorLog) QueryByCourse(ctx context.Context, courseID int64, from, to time.Time) (events []model.BehaviorEvent, err error) {
	ctx, finish := track(ctx, behaviorsColl, "queryByCourse")
	defer finish(&err)

	r, err := timeRange(from, to)
	if err != nil {
		return nil, err
	}
	return l.repo.ListByCourse(ctx, courseID, r)
}

func (l *BehaviorLog) QueryByActionType(ctx context.Context, actionType model.ActionType, from, to time.Time) (events []model.BehaviorEvent, err error) {
	ctx, finish := track(ctx, behaviorsColl, "queryByActionType")
	defer finish(&err)

	if !actionType.Valid() {
		return nil, util.NewValidationError("actionType", "has unknown code "+actionType.String())
	}
	r, err := timeRange(from, to)
	if err != nil {
		return nil, err
	}
	return l.repo.ListByActionType(ctx, actionType, r)
}

// TotalDuration 用户在区间内的学习时长（秒）
func (l *BehaviorLog) TotalDuration(ctx context.Context, userID int64, from, to time.Time) (seconds int64, err error) {
	ctx, finish := track(ctx, behaviorsColl, "totalDuration")
	defer finish(&err)

	r, err := timeRange(from, to)
	if err != nil {
		return 0, err
	}
	return l.repo.SumDuration(ctx, userID, r)
}
