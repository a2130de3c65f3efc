package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoRecommendationRepository struct {
	Coll *mongo.Collection
}

func NewMongoRecommendationRepository(db *mongo.Database) *MongoRecommendationRepository {
	return &MongoRecommendationRepository{Coll: db.Collection(model.CollectionRecommendations)}
}

func (r *MongoRecommendationRepository) Insert(ctx context.Context, batch *model.RecommendationBatch) error {
	_, err := r.Coll.InsertOne(ctx, batch)
	return translateMongoError(err)
}

func (r *MongoRecommendationRepository) FindByID(ctx context.Context, id string) (*model.RecommendationBatch, error) {
	return findOne[model.RecommendationBatch](ctx, r.Coll, bson.M{"_id": id})
}

// SetFlag 重复标记只会再次匹配，不会产生新的写入
func (r *MongoRecommendationRepository) SetFlag(ctx context.Context, id string, flag model.RecommendationFlag) error {
	column, err := flagColumn(flag)
	if err != nil {
		return err
	}
	return updateMatched(ctx, r.Coll, bson.M{"_id": id}, bson.M{"$set": bson.M{column: true}})
}

func (r *MongoRecommendationRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]model.RecommendationBatch, error) {
	filter := bson.M{"userId": userID, "expireTime": bson.M{"$gt": now}}
	return findAll[model.RecommendationBatch](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, Page{}))
}

func (r *MongoRecommendationRepository) ListByAlgorithm(ctx context.Context, algorithmType string, tr TimeRange) ([]model.RecommendationBatch, error) {
	filter := rangeFilter(bson.M{"algorithmType": algorithmType}, "createTime", tr)
	return findAll[model.RecommendationBatch](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, Page{}))
}
