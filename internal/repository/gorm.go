package repository

import (
	"context"
	"errors"
	"fmt"
	"learning_analytics/internal/model"
	"learning_analytics/internal/util"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewGormSet 关系型后端，生产环境为 MySQL，测试使用 SQLite。
// db 需以 TranslateError: true 打开，唯一键冲突才能被识别
func NewGormSet(db *gorm.DB) *Set {
	return &Set{
		Notes:           NewGormNoteRepository(db),
		Behaviors:       NewGormBehaviorRepository(db),
		Stats:           NewGormStatsRepository(db),
		Comments:        NewGormCommentRepository(db),
		Chat:            NewGormChatRepository(db),
		Recommendations: NewGormRecommendationRepository(db),
		Indexer:         NewGormIndexer(db),
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// tableModels 集合名到 GORM 模型的映射，AutoMigrate 按此顺序建表
var tableModels = map[string]interface{}{
	model.CollectionNotes:           &model.Note{},
	model.CollectionBehaviors:       &model.BehaviorEvent{},
	model.CollectionStats:           &model.DailyStat{},
	model.CollectionComments:        &model.Comment{},
	model.CollectionChatMessages:    &model.ChatMessage{},
	model.CollectionRecommendations: &model.RecommendationBatch{},
}

type GormIndexer struct {
	DB *gorm.DB
}

func NewGormIndexer(db *gorm.DB) *GormIndexer {
	return &GormIndexer{DB: db}
}

// EnsureIndexes 建表后按 model.Indexes 创建二级索引，已存在的索引跳过
func (i *GormIndexer) EnsureIndexes(ctx context.Context) error {
	db := i.DB.WithContext(ctx)
	for _, name := range model.Collections {
		if err := db.AutoMigrate(tableModels[name]); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}

	for _, spec := range model.Indexes {
		table := tableModels[spec.Collection]
		if db.Migrator().HasIndex(table, spec.SQLName()) {
			continue
		}
		if err := createIndex(db, spec); err != nil {
			return fmt.Errorf("create index %s: %w", spec.SQLName(), err)
		}
	}
	return nil
}

func createIndex(db *gorm.DB, spec model.IndexSpec) error {
	parts := make([]string, 0, len(spec.Keys))
	vars := make([]interface{}, 0, len(spec.Keys))
	for _, k := range spec.Keys {
		if k.Desc {
			parts = append(parts, "? DESC")
		} else {
			parts = append(parts, "?")
		}
		vars = append(vars, clause.Column{Name: k.Field})
	}

	sql := "CREATE INDEX ? ON ? ?"
	if spec.Unique {
		sql = "CREATE UNIQUE INDEX ? ON ? ?"
	}
	return db.Exec(sql,
		clause.Column{Name: spec.SQLName()},
		clause.Table{Name: spec.Collection},
		clause.Expr{SQL: "(" + strings.Join(parts, ",") + ")", Vars: vars},
	).Error
}

// translateGormError 把驱动错误映射为 util 中的错误类型
func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return util.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return util.ErrUniquenessViolation
	}
	return err
}

func paginate(db *gorm.DB, page Page) *gorm.DB {
	if page.Offset > 0 {
		db = db.Offset(page.Offset)
	}
	if page.Limit > 0 {
		db = db.Limit(page.Limit)
	}
	return db
}

func applyRange(db *gorm.DB, column string, r TimeRange) *gorm.DB {
	if !r.From.IsZero() {
		db = db.Where(column+" >= ?", r.From)
	}
	if !r.To.IsZero() {
		db = db.Where(column+" <= ?", r.To)
	}
	return db
}
