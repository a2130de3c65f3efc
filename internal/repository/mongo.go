package repository

import (
	"context"
	"errors"
	"fmt"
	"learning_analytics/internal/model"
	"learning_analytics/internal/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoSet 文档存储后端。schemaValidation 为 true 时为每个集合安装 $jsonSchema 校验器
func NewMongoSet(db *mongo.Database, schemaValidation bool) *Set {
	return &Set{
		Notes:           NewMongoNoteRepository(db),
		Behaviors:       NewMongoBehaviorRepository(db),
		Stats:           NewMongoStatsRepository(db),
		Comments:        NewMongoCommentRepository(db),
		Chat:            NewMongoChatRepository(db),
		Recommendations: NewMongoRecommendationRepository(db),
		Indexer:         NewMongoIndexer(db, schemaValidation),
		Ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		},
	}
}

type MongoIndexer struct {
	DB               *mongo.Database
	SchemaValidation bool
}

func NewMongoIndexer(db *mongo.Database, schemaValidation bool) *MongoIndexer {
	return &MongoIndexer{DB: db, SchemaValidation: schemaValidation}
}

// EnsureIndexes 创建缺失的集合与索引。索引名与 mongo shell 默认名一致，
// 同名且选项相同的索引直接复用；要求唯一但现有同名索引非唯一时，
// 确认没有重复数据后删除重建，否则返回错误
func (i *MongoIndexer) EnsureIndexes(ctx context.Context) error {
	existing, err := i.DB.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, name := range model.Collections {
		if err := i.ensureCollection(ctx, name, present[name]); err != nil {
			return err
		}

		specs := model.IndexesFor(name)
		if len(specs) == 0 {
			continue
		}
		if err := i.upgradeUniqueIndexes(ctx, name, specs); err != nil {
			return err
		}
		models := make([]mongo.IndexModel, 0, len(specs))
		for _, spec := range specs {
			models = append(models, indexModel(spec))
		}
		if _, err := i.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// upgradeUniqueIndexes 删除与唯一索引同名的非唯一索引，供 CreateMany 重建。
// 旧版初始化脚本建的 userId_1_statDate_-1 就是非唯一的
func (i *MongoIndexer) upgradeUniqueIndexes(ctx context.Context, name string, specs []model.IndexSpec) error {
	coll := i.DB.Collection(name)
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes on %s: %w", name, err)
	}
	var existing []struct {
		Name   string `bson:"name"`
		Unique bool   `bson:"unique"`
	}
	if err := cursor.All(ctx, &existing); err != nil {
		return fmt.Errorf("list indexes on %s: %w", name, err)
	}
	nonUnique := make(map[string]bool, len(existing))
	for _, idx := range existing {
		if !idx.Unique {
			nonUnique[idx.Name] = true
		}
	}

	for _, spec := range specs {
		if !spec.Unique || !nonUnique[spec.Name()] {
			continue
		}
		dup, err := hasDuplicateKeys(ctx, coll, spec)
		if err != nil {
			return fmt.Errorf("check duplicates for %s on %s: %w", spec.Name(), name, err)
		}
		if dup {
			return fmt.Errorf("index %s on %s: existing documents violate uniqueness, deduplicate before upgrading", spec.Name(), name)
		}
		if _, err := coll.Indexes().DropOne(ctx, spec.Name()); err != nil {
			return fmt.Errorf("drop non-unique index %s on %s: %w", spec.Name(), name, err)
		}
	}
	return nil
}

// hasDuplicateKeys 是否存在索引键完全相同的两条文档
func hasDuplicateKeys(ctx context.Context, coll *mongo.Collection, spec model.IndexSpec) (bool, error) {
	group := bson.D{}
	for _, k := range spec.Keys {
		group = append(group, bson.E{Key: k.Field, Value: "$" + k.Field})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: group}, {Key: "n", Value: bson.M{"$sum": 1}}}}},
		{{Key: "$match", Value: bson.M{"n": bson.M{"$gt": 1}}}},
		{{Key: "$limit", Value: 1}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return false, err
	}
	defer cursor.Close(ctx)
	return cursor.Next(ctx), cursor.Err()
}

func (i *MongoIndexer) ensureCollection(ctx context.Context, name string, exists bool) error {
	if !i.SchemaValidation {
		if exists {
			return nil
		}
		if err := i.DB.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		return nil
	}

	validator := bson.M{"$jsonSchema": jsonSchemas[name]}
	if !exists {
		opts := options.CreateCollection().SetValidator(validator)
		if err := i.DB.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		return nil
	}

	// 已存在的集合通过 collMod 更新校验器
	cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: validator}}
	if err := i.DB.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("update validator on %s: %w", name, err)
	}
	return nil
}

func indexModel(spec model.IndexSpec) mongo.IndexModel {
	keys := bson.D{}
	for _, k := range spec.Keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		keys = append(keys, bson.E{Key: k.Field, Value: dir})
	}

	opts := options.Index().SetName(spec.Name())
	if spec.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: keys, Options: opts}
}

func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return util.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return util.ErrUniquenessViolation
	}
	return err
}

func findOptions(sort bson.D, page Page) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	return opts
}

// rangeFilter 在 filter 上追加闭区间条件，端点为零值时不限制
func rangeFilter(filter bson.M, field string, r TimeRange) bson.M {
	cond := bson.M{}
	if !r.From.IsZero() {
		cond["$gte"] = r.From
	}
	if !r.To.IsZero() {
		cond["$lte"] = r.To
	}
	if len(cond) > 0 {
		filter[field] = cond
	}
	return filter
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return &doc, nil
}

// findOneAndUpdate 返回更新后的文档
func findOneAndUpdate[T any](ctx context.Context, coll *mongo.Collection, filter, update interface{}) (*T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return &doc, nil
}

// updateMatched 单文档更新，未匹配时返回 util.ErrNotFound
func updateMatched(ctx context.Context, coll *mongo.Collection, filter, update interface{}) error {
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return util.ErrNotFound
	}
	return nil
}
