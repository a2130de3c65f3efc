package repository

import (
	"context"
	"fmt"
	"learning_analytics/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStatsRepository struct {
	Coll *mongo.Collection
}

func NewMongoStatsRepository(db *mongo.Database) *MongoStatsRepository {
	return &MongoStatsRepository{Coll: db.Collection(model.CollectionStats)}
}

func (r *MongoStatsRepository) Insert(ctx context.Context, stat *model.DailyStat) error {
	_, err := r.Coll.InsertOne(ctx, stat)
	return translateMongoError(err)
}

// Upsert $set 覆盖全部指标，$setOnInsert 保证 _id 与 createTime 只在首次写入时落盘
func (r *MongoStatsRepository) Upsert(ctx context.Context, stat *model.DailyStat) (*model.DailyStat, error) {
	set, err := metricsDocument(stat.StatMetrics)
	if err != nil {
		return nil, err
	}
	set["updateTime"] = stat.UpdateTime

	filter := bson.M{"userId": stat.UserID, "statDate": stat.StatDate}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": stat.ID, "createTime": stat.CreateTime},
	}
	opts := options.Update().SetUpsert(true)

	_, err = r.Coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// 并发 upsert 同一个键时，失败的一方重试即走更新分支
		_, err = r.Coll.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return nil, translateMongoError(err)
	}
	return r.FindByUserDate(ctx, stat.UserID, stat.StatDate)
}

func (r *MongoStatsRepository) FindByUserDate(ctx context.Context, userID int64, statDate time.Time) (*model.DailyStat, error) {
	return findOne[model.DailyStat](ctx, r.Coll, bson.M{"userId": userID, "statDate": statDate})
}

func (r *MongoStatsRepository) ListByUser(ctx context.Context, userID int64, tr TimeRange) ([]model.DailyStat, error) {
	filter := rangeFilter(bson.M{"userId": userID}, "statDate", tr)
	sort := bson.D{{Key: "statDate", Value: -1}}
	return findAll[model.DailyStat](ctx, r.Coll, filter, findOptions(sort, Page{}))
}

func (r *MongoStatsRepository) Ranking(ctx context.Context, tr TimeRange, limit int) ([]model.DailyStat, error) {
	filter := rangeFilter(bson.M{}, "statDate", tr)
	sort := bson.D{{Key: "totalLearningTime", Value: -1}, {Key: "userId", Value: 1}}
	return findAll[model.DailyStat](ctx, r.Coll, filter, findOptions(sort, Page{Limit: limit}))
}

func metricsDocument(m model.StatMetrics) (bson.M, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	return doc, nil
}
