package repository

import (
	"context"
	"learning_analytics/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoChatRepository struct {
	Coll *mongo.Collection
}

func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{Coll: db.Collection(model.CollectionChatMessages)}
}

func (r *MongoChatRepository) Insert(ctx context.Context, msg *model.ChatMessage) error {
	_, err := r.Coll.InsertOne(ctx, msg)
	return translateMongoError(err)
}

func (r *MongoChatRepository) FindByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	return findOne[model.ChatMessage](ctx, r.Coll, bson.M{"_id": id})
}

func (r *MongoChatRepository) ListByRoomSince(ctx context.Context, roomID int64, since time.Time, limit int) ([]model.ChatMessage, error) {
	filter := bson.M{"roomId": roomID, "createTime": bson.M{"$gt": since}, "deleted": false}
	sort := bson.D{{Key: "createTime", Value: 1}, {Key: "_id", Value: 1}}
	return findAll[model.ChatMessage](ctx, r.Coll, filter, findOptions(sort, Page{Limit: limit}))
}

func (r *MongoChatRepository) ListRecentByRoom(ctx context.Context, roomID int64, limit int) ([]model.ChatMessage, error) {
	filter := bson.M{"roomId": roomID, "deleted": false}
	sort := bson.D{{Key: "createTime", Value: -1}, {Key: "_id", Value: -1}}
	return findAll[model.ChatMessage](ctx, r.Coll, filter, findOptions(sort, Page{Limit: limit}))
}

func (r *MongoChatRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]model.ChatMessage, error) {
	filter := bson.M{"userId": userID, "deleted": false}
	return findAll[model.ChatMessage](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoChatRepository) SoftDelete(ctx context.Context, id string) error {
	return updateMatched(ctx, r.Coll, bson.M{"_id": id}, bson.M{"$set": bson.M{"deleted": true}})
}
