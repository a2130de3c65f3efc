package repository

import (
	"context"
	"learning_analytics/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var byActionTimeDesc = bson.D{{Key: "actionTime", Value: -1}}

type MongoBehaviorRepository struct {
	Coll *mongo.Collection
}

func NewMongoBehaviorRepository(db *mongo.Database) *MongoBehaviorRepository {
	return &MongoBehaviorRepository{Coll: db.Collection(model.CollectionBehaviors)}
}

func (r *MongoBehaviorRepository) Insert(ctx context.Context, event *model.BehaviorEvent) error {
	_, err := r.Coll.InsertOne(ctx, event)
	return translateMongoError(err)
}

func (r *MongoBehaviorRepository) FindByID(ctx context.Context, id string) (*model.BehaviorEvent, error) {
	return findOne[model.BehaviorEvent](ctx, r.Coll, bson.M{"_id": id})
}

func (r *MongoBehaviorRepository) ListByUser(ctx context.Context, userID int64, tr TimeRange) ([]model.BehaviorEvent, error) {
	return r.list(ctx, bson.M{"userId": userID}, tr)
}

func (r *MongoBehaviorRepository) ListByCourse(ctx context.Context, courseID int64, tr TimeRange) ([]model.BehaviorEvent, error) {
	return r.list(ctx, bson.M{"courseId": courseID}, tr)
}

func (r *MongoBehaviorRepository) ListByActionType(ctx context.Context, actionType model.ActionType, tr TimeRange) ([]model.BehaviorEvent, error) {
	return r.list(ctx, bson.M{"actionType": actionType}, tr)
}

func (r *MongoBehaviorRepository) list(ctx context.Context, filter bson.M, tr TimeRange) ([]model.BehaviorEvent, error) {
	filter = rangeFilter(filter, "actionTime", tr)
	return findAll[model.BehaviorEvent](ctx, r.Coll, filter, findOptions(byActionTimeDesc, Page{}))
}

func (r *MongoBehaviorRepository) SumDuration(ctx context.Context, userID int64, tr TimeRange) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: rangeFilter(bson.M{"userId": userID}, "actionTime", tr)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$duration"}}}},
	}
	cursor, err := r.Coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
