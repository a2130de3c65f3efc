package model

import (
	"strings"
)

// 集合名称与字段名属于存储契约，必须保持不变
const (
	CollectionNotes           = "learning_notes"
	CollectionBehaviors       = "learning_behaviors"
	CollectionStats           = "user_learning_stats"
	CollectionComments        = "course_comments"
	CollectionChatMessages    = "chat_messages"
	CollectionRecommendations = "recommendations"
)

// Collections 全部集合，按创建顺序排列
var Collections = []string{
	CollectionNotes,
	CollectionBehaviors,
	CollectionStats,
	CollectionComments,
	CollectionChatMessages,
	CollectionRecommendations,
}

type IndexKey struct {
	Field string
	Desc  bool
}

func Asc(field string) IndexKey  { return IndexKey{Field: field} }
func Desc(field string) IndexKey { return IndexKey{Field: field, Desc: true} }

// IndexSpec 单个二级索引的声明，两种存储后端共用
type IndexSpec struct {
	Collection string
	Keys       []IndexKey
	Unique     bool
}

// Name 与 mongo shell createIndex 默认生成的名字一致，如 userId_1_createTime_-1
func (s IndexSpec) Name() string {
	parts := make([]string, 0, len(s.Keys)*2)
	for _, k := range s.Keys {
		dir := "1"
		if k.Desc {
			dir = "-1"
		}
		parts = append(parts, k.Field, dir)
	}
	return strings.Join(parts, "_")
}

// SQLName 关系型后端使用的索引名
func (s IndexSpec) SQLName() string {
	fields := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		fields = append(fields, k.Field)
	}
	prefix := "idx_"
	if s.Unique {
		prefix = "uniq_"
	}
	return prefix + s.Collection + "_" + strings.Join(fields, "_")
}

// Indexes 覆盖各集合的查询模式：个人时间线、课程聚合、按时间段的行为分析
var Indexes = []IndexSpec{
	// 学习笔记
	{Collection: CollectionNotes, Keys: []IndexKey{Asc("userId"), Asc("courseId")}},
	{Collection: CollectionNotes, Keys: []IndexKey{Asc("userId"), Desc("createTime")}},
	{Collection: CollectionNotes, Keys: []IndexKey{Asc("courseId"), Asc("isPublic")}},

	// 学习行为
	{Collection: CollectionBehaviors, Keys: []IndexKey{Asc("userId"), Desc("actionTime")}},
	{Collection: CollectionBehaviors, Keys: []IndexKey{Asc("courseId"), Desc("actionTime")}},
	{Collection: CollectionBehaviors, Keys: []IndexKey{Asc("actionType"), Desc("actionTime")}},

	// 每日统计，(userId, statDate) 唯一
	{Collection: CollectionStats, Keys: []IndexKey{Asc("userId"), Desc("statDate")}, Unique: true},

	// 课程评论
	{Collection: CollectionComments, Keys: []IndexKey{Asc("courseId"), Desc("createTime")}},
	{Collection: CollectionComments, Keys: []IndexKey{Asc("userId"), Desc("createTime")}},

	// 聊天消息
	{Collection: CollectionChatMessages, Keys: []IndexKey{Asc("roomId"), Desc("createTime")}},
	{Collection: CollectionChatMessages, Keys: []IndexKey{Asc("userId"), Desc("createTime")}},

	// 推荐记录
	{Collection: CollectionRecommendations, Keys: []IndexKey{Asc("userId"), Desc("createTime")}},
	{Collection: CollectionRecommendations, Keys: []IndexKey{Asc("algorithmType"), Desc("createTime")}},
}

// IndexesFor 返回某个集合上声明的索引
func IndexesFor(collection string) []IndexSpec {
	var out []IndexSpec
	for _, idx := range Indexes {
		if idx.Collection == collection {
			out = append(out, idx)
		}
	}
	return out
}
