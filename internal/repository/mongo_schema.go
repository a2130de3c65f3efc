package repository

import (
	"learning_analytics/internal/model"

	"go.mongodb.org/mongo-driver/bson"
)

// 整数字段按取值大小可能编码为 int 或 long
var integerTypes = []string{"int", "long"}

func longField() bson.M   { return bson.M{"bsonType": integerTypes} }
func stringField() bson.M { return bson.M{"bsonType": "string"} }
func boolField() bson.M   { return bson.M{"bsonType": "bool"} }
func dateField() bson.M   { return bson.M{"bsonType": "date"} }

func intRange(min, max int) bson.M {
	return bson.M{"bsonType": integerTypes, "minimum": min, "maximum": max}
}

func nonNegativeInt() bson.M {
	return bson.M{"bsonType": integerTypes, "minimum": 0}
}

func nonNegativeNumber() bson.M {
	return bson.M{"bsonType": []string{"double", "int", "long"}, "minimum": 0}
}

// jsonSchemas 各集合的 $jsonSchema 校验器，只约束字段类型与取值范围，
// 跨字段约束（updateTime >= createTime 等）仍由服务层保证
var jsonSchemas = map[string]bson.M{
	model.CollectionNotes: {
		"bsonType": "object",
		"required": []string{"userId", "courseId", "lessonId", "type", "createTime", "updateTime"},
		"properties": bson.M{
			"userId":     longField(),
			"courseId":   longField(),
			"lessonId":   longField(),
			"title":      stringField(),
			"content":    stringField(),
			"timePoint":  nonNegativeInt(),
			"type":       bson.M{"enum": []string{string(model.NoteText), string(model.NoteImage), string(model.NoteAudio)}},
			"isPublic":   boolField(),
			"tags":       bson.M{"bsonType": []string{"array", "null"}, "items": stringField()},
			"likeCount":  nonNegativeInt(),
			"createTime": dateField(),
			"updateTime": dateField(),
			"deleted":    boolField(),
		},
	},
	model.CollectionBehaviors: {
		"bsonType": "object",
		"required": []string{"userId", "courseId", "actionType", "actionTime", "createTime"},
		"properties": bson.M{
			"userId":     longField(),
			"courseId":   longField(),
			"chapterId":  longField(),
			"actionType": intRange(int(model.ActionView), int(model.ActionDownload)),
			"duration":   nonNegativeInt(),
			"progress":   bson.M{"bsonType": []string{"double", "int"}, "minimum": 0, "maximum": 100},
			"score":      intRange(1, 5),
			"deviceType": intRange(int(model.DevicePC), int(model.DeviceTablet)),
			"actionTime": dateField(),
			"createTime": dateField(),
		},
	},
	model.CollectionStats: {
		"bsonType": "object",
		"required": []string{"userId", "statDate"},
		"properties": bson.M{
			"userId":                  longField(),
			"statDate":                dateField(),
			"learningDays":            nonNegativeInt(),
			"totalLearningTime":       nonNegativeInt(),
			"coursesLearned":          nonNegativeInt(),
			"coursesCompleted":        nonNegativeInt(),
			"videosWatched":           nonNegativeInt(),
			"exercisesCompleted":      nonNegativeInt(),
			"discussionsParticipated": nonNegativeInt(),
			"materialsDownloaded":     nonNegativeInt(),
			"avgDailyLearningTime":    nonNegativeNumber(),
			"consecutiveDays":         nonNegativeInt(),
			"maxConsecutiveDays":      nonNegativeInt(),
			"weeklyGoalProgress":      nonNegativeNumber(),
			"monthlyGoalProgress":     nonNegativeNumber(),
		},
	},
	model.CollectionComments: {
		"bsonType": "object",
		"required": []string{"courseId", "userId", "content", "rating", "createTime"},
		"properties": bson.M{
			"courseId":   longField(),
			"userId":     longField(),
			"content":    stringField(),
			"rating":     intRange(1, 5),
			"likeCount":  nonNegativeInt(),
			"replyCount": nonNegativeInt(),
			"isTop":      boolField(),
			"createTime": dateField(),
			"updateTime": dateField(),
			"deleted":    boolField(),
		},
	},
	model.CollectionChatMessages: {
		"bsonType": "object",
		"required": []string{"roomId", "userId", "content", "messageType", "createTime"},
		"properties": bson.M{
			"roomId":      longField(),
			"userId":      longField(),
			"content":     stringField(),
			"messageType": intRange(int(model.MessageNormal), int(model.MessageSystem)),
			"muted":       boolField(),
			"createTime":  dateField(),
			"deleted":     boolField(),
		},
	},
	model.CollectionRecommendations: {
		"bsonType": "object",
		"required": []string{"userId", "algorithmType", "recommendedItems", "createTime", "expireTime"},
		"properties": bson.M{
			"userId":        longField(),
			"algorithmType": stringField(),
			"recommendedItems": bson.M{
				"bsonType": []string{"array", "null"},
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"itemId", "itemType"},
					"properties": bson.M{
						"itemId":   longField(),
						"itemType": stringField(),
						"score":    bson.M{"bsonType": []string{"double", "int"}, "minimum": 0, "maximum": 1},
					},
				},
			},
			"createTime": dateField(),
			"expireTime": dateField(),
			"clicked":    boolField(),
			"applied":    boolField(),
		},
	},
}
