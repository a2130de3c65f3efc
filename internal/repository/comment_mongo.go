package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoCommentRepository struct {
	Coll *mongo.Collection
}

func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{Coll: db.Collection(model.CollectionComments)}
}

func (r *MongoCommentRepository) Insert(ctx context.Context, comment *model.Comment) error {
	_, err := r.Coll.InsertOne(ctx, comment)
	return translateMongoError(err)
}

func (r *MongoCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	return findOne[model.Comment](ctx, r.Coll, bson.M{"_id": id})
}

func (r *MongoCommentRepository) ListByCourse(ctx context.Context, courseID int64, page Page) ([]model.Comment, error) {
	filter := bson.M{"courseId": courseID, "deleted": false}
	return findAll[model.Comment](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoCommentRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]model.Comment, error) {
	filter := bson.M{"userId": userID, "deleted": false}
	return findAll[model.Comment](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoCommentRepository) IncrementLikes(ctx context.Context, id string) (*model.Comment, error) {
	return findOneAndUpdate[model.Comment](ctx, r.Coll, bson.M{"_id": id}, bson.M{"$inc": bson.M{"likeCount": 1}})
}

func (r *MongoCommentRepository) IncrementReplies(ctx context.Context, id string) (*model.Comment, error) {
	return findOneAndUpdate[model.Comment](ctx, r.Coll, bson.M{"_id": id}, bson.M{"$inc": bson.M{"replyCount": 1}})
}

func (r *MongoCommentRepository) SetTop(ctx context.Context, id string, top bool, updateTime time.Time) error {
	return updateMatched(ctx, r.Coll,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isTop": top, "updateTime": updateTime}},
	)
}

func (r *MongoCommentRepository) SoftDelete(ctx context.Context, id string, updateTime time.Time) error {
	return updateMatched(ctx, r.Coll,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"deleted": true, "updateTime": updateTime}},
	)
}
