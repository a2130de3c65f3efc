package repository

import (
	"context"
	"errors"
	"learning_analytics/internal/model"
	"learning_analytics/internal/util"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var byCreateTimeDesc = bson.D{{Key: "createTime", Value: -1}}

type MongoNoteRepository struct {
	Coll *mongo.Collection
}

func NewMongoNoteRepository(db *mongo.Database) *MongoNoteRepository {
	return &MongoNoteRepository{Coll: db.Collection(model.CollectionNotes)}
}

func (r *MongoNoteRepository) Insert(ctx context.Context, note *model.Note) error {
	_, err := r.Coll.InsertOne(ctx, note)
	return translateMongoError(err)
}

func (r *MongoNoteRepository) FindByID(ctx context.Context, id string) (*model.Note, error) {
	return findOne[model.Note](ctx, r.Coll, bson.M{"_id": id})
}

func (r *MongoNoteRepository) ListByUserCourse(ctx context.Context, userID, courseID int64) ([]model.Note, error) {
	filter := bson.M{"userId": userID, "courseId": courseID, "deleted": false}
	return findAll[model.Note](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, Page{}))
}

func (r *MongoNoteRepository) ListByUserLesson(ctx context.Context, userID, lessonID int64) ([]model.Note, error) {
	filter := bson.M{"userId": userID, "lessonId": lessonID, "deleted": false}
	return findAll[model.Note](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, Page{}))
}

func (r *MongoNoteRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]model.Note, error) {
	filter := bson.M{"userId": userID, "deleted": false}
	return findAll[model.Note](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoNoteRepository) ListPublicByCourse(ctx context.Context, courseID int64, page Page) ([]model.Note, error) {
	filter := bson.M{"courseId": courseID, "isPublic": true, "deleted": false}
	return findAll[model.Note](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoNoteRepository) ListPublicByTags(ctx context.Context, tags []string, page Page) ([]model.Note, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	filter := bson.M{"tags": bson.M{"$in": tags}, "isPublic": true, "deleted": false}
	return findAll[model.Note](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoNoteRepository) SearchPublic(ctx context.Context, keyword string, page Page) ([]model.Note, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	filter := bson.M{
		"isPublic": true,
		"deleted":  false,
		"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
		},
	}
	return findAll[model.Note](ctx, r.Coll, filter, findOptions(byCreateTimeDesc, page))
}

func (r *MongoNoteRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return r.Coll.CountDocuments(ctx, bson.M{"userId": userID, "deleted": false})
}

func (r *MongoNoteRepository) IncrementLikes(ctx context.Context, id string) (*model.Note, error) {
	return findOneAndUpdate[model.Note](ctx, r.Coll,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"likeCount": 1}},
	)
}

func (r *MongoNoteRepository) DecrementLikes(ctx context.Context, id string) (*model.Note, error) {
	note, err := findOneAndUpdate[model.Note](ctx, r.Coll,
		bson.M{"_id": id, "likeCount": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"likeCount": -1}},
	)
	if errors.Is(err, util.ErrNotFound) {
		// likeCount 已为 0 或记录不存在
		return r.FindByID(ctx, id)
	}
	return note, err
}

func (r *MongoNoteRepository) Update(ctx context.Context, id string, userID int64, patch model.NotePatch, updateTime time.Time) (*model.Note, error) {
	set := bson.M{"updateTime": updateTime}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}
	if patch.IsPublic != nil {
		set["isPublic"] = *patch.IsPublic
	}
	return findOneAndUpdate[model.Note](ctx, r.Coll,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": set},
	)
}

func (r *MongoNoteRepository) SoftDelete(ctx context.Context, id string, userID int64, updateTime time.Time) error {
	return updateMatched(ctx, r.Coll,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"deleted": true, "updateTime": updateTime}},
	)
}
