package app

import (
	"context"
	"fmt"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/service"
	"learning_analytics/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// seedClock 演示数据按样例中的时间写入
type seedClock struct {
	now time.Time
}

func (c *seedClock) at(s string) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	c.now = t
}

// Seed 写入演示数据。用户 1 已有笔记时认为已经写过，直接跳过
func Seed(ctx context.Context, set *repository.Set, rdb *redis.Client) error {
	clock := &seedClock{}
	stores := service.NewStores(set, service.Deps{
		Clock: func() time.Time { return clock.now },
		Redis: rdb,
	})

	existing, err := stores.Notes.CountByUser(ctx, 1)
	if err != nil {
		return err
	}
	if existing > 0 {
		logger.Log.Info("Demo data already present, skip seeding")
		return nil
	}

	steps := []struct {
		name string
		fn   func(context.Context, *service.Stores, *seedClock) error
	}{
		{model.CollectionNotes, seedNotes},
		{model.CollectionBehaviors, seedBehaviors},
		{model.CollectionStats, seedStats},
		{model.CollectionComments, seedComments},
		{model.CollectionChatMessages, seedChat},
		{model.CollectionRecommendations, seedRecommendations},
	}
	for _, step := range steps {
		if err := step.fn(ctx, stores, clock); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
		logger.Log.Info("Demo data inserted", zap.String("collection", step.name))
	}
	return nil
}

func seedNotes(ctx context.Context, s *service.Stores, clock *seedClock) error {
	notes := []struct {
		at    string
		likes int
		note  model.Note
	}{
		{"2024-01-15T10:30:00Z", 15, model.Note{
			UserID: 1, CourseID: 1, LessonID: 1,
			Title:     "Java基础语法笔记",
			Content:   "Java是一种面向对象的编程语言，具有跨平台、安全性高等特点。\n\n主要特性：\n1. 面向对象\n2. 跨平台性\n3. 安全性\n4. 多线程支持",
			TimePoint: 120, Type: model.NoteText, IsPublic: true,
			Tags: []string{"Java", "基础", "语法"},
		}},
		{"2024-01-16T14:20:00Z", 8, model.Note{
			UserID: 2, CourseID: 1, LessonID: 2,
			Title:     "变量和数据类型",
			Content:   "Java中的基本数据类型包括：byte、short、int、long、float、double、boolean、char",
			TimePoint: 300, Type: model.NoteText, IsPublic: true,
			Tags: []string{"Java", "数据类型", "变量"},
		}},
		{"2024-01-20T09:15:00Z", 23, model.Note{
			UserID: 1, CourseID: 2, LessonID: 5,
			Title:     "Spring Boot自动配置原理",
			Content:   "Spring Boot的自动配置是通过@EnableAutoConfiguration注解实现的。\n\n核心机制：\n1. 条件注解(@Conditional)\n2. 自动配置类\n3. spring.factories文件\n4. 配置属性绑定",
			TimePoint: 450, Type: model.NoteText, IsPublic: false,
			Tags: []string{"Spring Boot", "自动配置", "原理"},
		}},
	}

	for i := range notes {
		clock.at(notes[i].at)
		created, err := s.Notes.Create(ctx, &notes[i].note)
		if err != nil {
			return err
		}
		for n := 0; n < notes[i].likes; n++ {
			if _, err := s.Notes.Like(ctx, created.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedBehaviors(ctx context.Context, s *service.Stores, clock *seedClock) error {
	score := 4
	events := []struct {
		at    string
		event model.BehaviorEvent
	}{
		{"2024-01-15T10:30:00Z", model.BehaviorEvent{
			UserID: 1, CourseID: 1, ChapterID: 1, ActionType: model.ActionView,
			Duration: 1800, Progress: 85.5, DeviceType: model.DevicePC,
			Browser: "Chrome", OS: "Windows 11", IPAddress: "192.168.1.100", Location: "北京市",
			ActionTime: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		}},
		{"2024-01-15T15:35:00Z", model.BehaviorEvent{
			UserID: 1, CourseID: 1, ChapterID: 1, ActionType: model.ActionDiscuss,
			Duration: 300, Progress: 85.5, DeviceType: model.DeviceMobile,
			Browser: "Safari", OS: "iOS 17", IPAddress: "192.168.1.101", Location: "北京市",
			ActionTime: time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC),
		}},
		{"2024-01-16T14:15:00Z", model.BehaviorEvent{
			UserID: 2, CourseID: 2, ChapterID: 3, ActionType: model.ActionExercise,
			Duration: 900, Progress: 60, Score: &score, DeviceType: model.DevicePC,
			Browser: "Firefox", OS: "macOS", IPAddress: "192.168.1.102", Location: "上海市",
			ActionTime: time.Date(2024, 1, 16, 14, 0, 0, 0, time.UTC),
		}},
	}

	for i := range events {
		clock.at(events[i].at)
		if _, err := s.Behaviors.Append(ctx, &events[i].event); err != nil {
			return err
		}
	}
	return nil
}

// 周目标 500 分钟，月目标 2000 分钟
const (
	weeklyGoalMinutes  = 500
	monthlyGoalMinutes = 2000
)

func seedStats(ctx context.Context, s *service.Stores, clock *seedClock) error {
	days := []struct {
		at      string
		userID  int64
		day     time.Time
		metrics model.StatMetrics
	}{
		{"2024-01-15T23:59:59Z", 1, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), model.StatMetrics{
			LearningDays: 1, TotalLearningTime: 120, CoursesLearned: 2, VideosWatched: 3,
			ExercisesCompleted: 2, DiscussionsParticipated: 1, MaterialsDownloaded: 1,
			AvgDailyLearningTime: 120, ConsecutiveDays: 1, MaxConsecutiveDays: 1,
		}},
		{"2024-01-16T23:59:59Z", 2, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), model.StatMetrics{
			LearningDays: 1, TotalLearningTime: 90, CoursesLearned: 1, VideosWatched: 2,
			ExercisesCompleted: 3, MaterialsDownloaded: 2,
			AvgDailyLearningTime: 90, ConsecutiveDays: 1, MaxConsecutiveDays: 1,
		}},
	}

	for _, d := range days {
		clock.at(d.at)
		d.metrics.WeeklyGoalProgress = model.GoalProgress(d.metrics.TotalLearningTime, weeklyGoalMinutes)
		d.metrics.MonthlyGoalProgress = model.GoalProgress(d.metrics.TotalLearningTime, monthlyGoalMinutes)
		if _, err := s.Stats.Upsert(ctx, d.userID, d.day, d.metrics); err != nil {
			return err
		}
	}
	return nil
}

func seedComments(ctx context.Context, s *service.Stores, clock *seedClock) error {
	comments := []struct {
		at      string
		likes   int
		replies int
		comment model.Comment
	}{
		{"2024-01-15T16:30:00Z", 12, 3, model.Comment{
			CourseID: 1, UserID: 1, Username: "学习者小王", Avatar: "https://example.com/avatar1.jpg",
			Content: "这门Java课程讲解得非常详细，老师的教学方式很容易理解，推荐给初学者！", Rating: 5,
		}},
		{"2024-01-16T10:15:00Z", 8, 1, model.Comment{
			CourseID: 1, UserID: 2, Username: "编程爱好者", Avatar: "https://example.com/avatar2.jpg",
			Content: "课程内容很实用，但是希望能增加更多的实战项目案例。", Rating: 4,
		}},
	}

	for i := range comments {
		clock.at(comments[i].at)
		created, err := s.Comments.Create(ctx, &comments[i].comment)
		if err != nil {
			return err
		}
		for n := 0; n < comments[i].likes; n++ {
			if _, err := s.Comments.Like(ctx, created.ID); err != nil {
				return err
			}
		}
		for n := 0; n < comments[i].replies; n++ {
			if _, err := s.Comments.IncrementReplies(ctx, created.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedChat(ctx context.Context, s *service.Stores, clock *seedClock) error {
	clock.at("2024-01-20T19:00:00Z")
	if _, err := s.Chat.SystemMessage(ctx, 1, "直播即将开始，欢迎进入直播间"); err != nil {
		return err
	}

	clock.at("2024-01-20T19:01:30Z")
	_, err := s.Chat.Append(ctx, &model.ChatMessage{
		RoomID:      1,
		UserID:      1,
		Username:    "学习者小王",
		Avatar:      "https://example.com/avatar1.jpg",
		Content:     "老师好！",
		MessageType: model.MessageNormal,
	})
	return err
}

func seedRecommendations(ctx context.Context, s *service.Stores, clock *seedClock) error {
	clock.at("2024-01-21T08:30:00Z")
	_, err := s.Recommendations.Create(ctx, &model.RecommendationBatch{
		UserID:        2,
		AlgorithmType: "collaborative_filtering",
		RecommendedItems: []model.RecommendedItem{
			{ItemID: 2, ItemType: "course", Title: "Spring Boot实战", Score: 0.92, Reason: "学习了Java基础的用户也在学"},
			{ItemID: 3, ItemType: "course", Title: "MySQL数据库设计", Score: 0.76, Reason: "与已学课程相关"},
		},
		ExpireTime: time.Date(2024, 1, 28, 8, 30, 0, 0, time.UTC),
	})
	return err
}
