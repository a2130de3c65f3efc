package repository_test

import (
	"context"
	"fmt"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// setFactory 每次调用返回一个空的、已建好索引的后端
type setFactory func(t *testing.T) *repository.Set

var base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func runRepositorySuite(t *testing.T, newSet setFactory) {
	t.Run("Notes", func(t *testing.T) { testNotes(t, newSet(t)) })
	t.Run("Behaviors", func(t *testing.T) { testBehaviors(t, newSet(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newSet(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newSet(t)) })
	t.Run("Chat", func(t *testing.T) { testChat(t, newSet(t)) })
	t.Run("Recommendations", func(t *testing.T) { testRecommendations(t, newSet(t)) })
	t.Run("ConcurrentWrites", func(t *testing.T) { testConcurrentWrites(t, newSet(t)) })
	t.Run("EnsureIndexesIsIdempotent", func(t *testing.T) {
		set := newSet(t)
		require.NoError(t, set.Indexer.EnsureIndexes(context.Background()))
		require.NoError(t, set.Ping(context.Background()))
	})
}

func requireSameTime(t *testing.T, want, got time.Time) {
	t.Helper()
	require.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func noteIDs(notes []model.Note) []string {
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	return ids
}

func testNotes(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	repo := set.Notes

	newNote := func(id string, userID, courseID, lessonID int64, public bool, created time.Time, tags ...string) *model.Note {
		return &model.Note{
			ID:         id,
			UserID:     userID,
			CourseID:   courseID,
			LessonID:   lessonID,
			Title:      "笔记 " + id,
			Content:    "内容 " + id,
			Type:       model.NoteText,
			IsPublic:   public,
			Tags:       tags,
			CreateTime: created,
			UpdateTime: created,
		}
	}

	n1 := newNote("n1", 1, 101, 1001, true, base, "Java", "基础")
	n2 := newNote("n2", 1, 101, 1002, false, base.Add(time.Hour))
	n3 := newNote("n3", 2, 101, 1001, true, base.Add(2*time.Hour), "Spring")
	n3.Title = "Spring Boot 入门"
	n4 := newNote("n4", 2, 101, 1001, true, base.Add(3*time.Hour), "Java")
	n4.Deleted = true
	for _, n := range []*model.Note{n1, n2, n3, n4} {
		require.NoError(t, repo.Insert(ctx, n))
	}

	got, err := repo.FindByID(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, int64(101), got.CourseID)
	require.Equal(t, []string{"Java", "基础"}, got.Tags)
	require.Equal(t, model.NoteText, got.Type)
	requireSameTime(t, base, got.CreateTime)

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, util.ErrNotFound)

	notes, err := repo.ListByUserCourse(ctx, 1, 101)
	require.NoError(t, err)
	require.Equal(t, []string{"n2", "n1"}, noteIDs(notes))

	notes, err = repo.ListByUserLesson(ctx, 1, 1001)
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, noteIDs(notes))

	notes, err = repo.ListByUser(ctx, 1, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"n2", "n1"}, noteIDs(notes))

	notes, err = repo.ListByUser(ctx, 1, repository.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, noteIDs(notes))

	notes, err = repo.ListByUser(ctx, 2, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"n3"}, noteIDs(notes), "deleted notes are excluded")

	notes, err = repo.ListPublicByCourse(ctx, 101, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"n3", "n1"}, noteIDs(notes))

	notes, err = repo.ListPublicByCourse(ctx, 101, repository.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, noteIDs(notes))

	notes, err = repo.ListPublicByTags(ctx, []string{"Java"}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, noteIDs(notes))

	notes, err = repo.ListPublicByTags(ctx, []string{"Spring", "基础"}, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"n3", "n1"}, noteIDs(notes))

	notes, err = repo.SearchPublic(ctx, "spring", repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"n3"}, noteIDs(notes))

	total, err := repo.CountByUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	t.Run("likes", func(t *testing.T) {
		_, err := repo.IncrementLikes(ctx, "n1")
		require.NoError(t, err)
		liked, err := repo.IncrementLikes(ctx, "n1")
		require.NoError(t, err)
		require.Equal(t, 2, liked.LikeCount)

		unliked, err := repo.DecrementLikes(ctx, "n1")
		require.NoError(t, err)
		require.Equal(t, 1, unliked.LikeCount)

		floor, err := repo.DecrementLikes(ctx, "n2")
		require.NoError(t, err)
		require.Equal(t, 0, floor.LikeCount)

		_, err = repo.IncrementLikes(ctx, "missing")
		require.ErrorIs(t, err, util.ErrNotFound)
		_, err = repo.DecrementLikes(ctx, "missing")
		require.ErrorIs(t, err, util.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		title := "修改后的标题"
		public := false
		edited := base.Add(24 * time.Hour)
		updated, err := repo.Update(ctx, "n1", 1, model.NotePatch{
			Title:    &title,
			Tags:     []string{"Java"},
			IsPublic: &public,
		}, edited)
		require.NoError(t, err)
		require.Equal(t, title, updated.Title)
		require.Equal(t, "内容 n1", updated.Content)
		require.Equal(t, []string{"Java"}, updated.Tags)
		require.False(t, updated.IsPublic)
		requireSameTime(t, edited, updated.UpdateTime)
		requireSameTime(t, base, updated.CreateTime)

		_, err = repo.Update(ctx, "n1", 2, model.NotePatch{Title: &title}, edited)
		require.ErrorIs(t, err, util.ErrNotFound)
	})

	t.Run("soft delete", func(t *testing.T) {
		require.ErrorIs(t, repo.SoftDelete(ctx, "n2", 2, base), util.ErrNotFound)
		require.NoError(t, repo.SoftDelete(ctx, "n2", 1, base.Add(time.Hour)))

		notes, err := repo.ListByUserCourse(ctx, 1, 101)
		require.NoError(t, err)
		require.Equal(t, []string{"n1"}, noteIDs(notes))

		raw, err := repo.FindByID(ctx, "n2")
		require.NoError(t, err)
		require.True(t, raw.Deleted)

		require.ErrorIs(t, repo.SoftDelete(ctx, "missing", 1, base), util.ErrNotFound)
	})
}

func testBehaviors(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	repo := set.Behaviors

	score := 4
	newEvent := func(id string, userID, courseID int64, action model.ActionType, at time.Time, duration int) *model.BehaviorEvent {
		return &model.BehaviorEvent{
			ID:         id,
			UserID:     userID,
			CourseID:   courseID,
			ChapterID:  1,
			ActionType: action,
			Duration:   duration,
			Progress:   50,
			DeviceType: model.DevicePC,
			Browser:    "Chrome",
			OS:         "Windows 10",
			IPAddress:  "192.168.1.100",
			Location:   "北京",
			ActionTime: at,
			CreateTime: at.Add(time.Second),
		}
	}

	e15 := newEvent("e15", 1, 101, model.ActionView, day(15).Add(10*time.Hour), 1800)
	e18 := newEvent("e18", 1, 101, model.ActionView, day(18).Add(10*time.Hour), 600)
	e18.Score = &score
	e22 := newEvent("e22", 1, 101, model.ActionDownload, day(22).Add(10*time.Hour), 0)
	other := newEvent("other", 2, 102, model.ActionExercise, day(18).Add(11*time.Hour), 300)
	for _, e := range []*model.BehaviorEvent{e15, e18, e22, other} {
		require.NoError(t, repo.Insert(ctx, e))
	}

	got, err := repo.FindByID(ctx, "e18")
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	require.Equal(t, 4, *got.Score)
	require.Equal(t, model.DevicePC, got.DeviceType)

	got, err = repo.FindByID(ctx, "e15")
	require.NoError(t, err)
	require.Nil(t, got.Score)

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, util.ErrNotFound)

	events, err := repo.ListByUser(ctx, 1, repository.TimeRange{From: day(17), To: day(20)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "e18", events[0].ID)

	events, err = repo.ListByUser(ctx, 1, repository.TimeRange{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "e22", events[0].ID)
	require.Equal(t, "e15", events[2].ID)

	// 区间两端均为闭区间
	events, err = repo.ListByUser(ctx, 1, repository.TimeRange{From: e18.ActionTime, To: e18.ActionTime})
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = repo.ListByCourse(ctx, 102, repository.TimeRange{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "other", events[0].ID)

	events, err = repo.ListByActionType(ctx, model.ActionView, repository.TimeRange{From: day(15), To: day(31)})
	require.NoError(t, err)
	require.Len(t, events, 2)

	total, err := repo.SumDuration(ctx, 1, repository.TimeRange{})
	require.NoError(t, err)
	require.Equal(t, int64(2400), total)

	total, err = repo.SumDuration(ctx, 3, repository.TimeRange{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func testStats(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	repo := set.Stats

	first := &model.DailyStat{
		ID:       "s1",
		UserID:   1,
		StatDate: day(15),
		StatMetrics: model.StatMetrics{
			TotalLearningTime:  120,
			VideosWatched:      5,
			ConsecutiveDays:    7,
			MaxConsecutiveDays: 15,
			WeeklyGoalProgress: 85.5,
		},
		CreateTime: base,
		UpdateTime: base,
	}
	require.NoError(t, repo.Insert(ctx, first))

	dup := *first
	dup.ID = "s1-dup"
	require.ErrorIs(t, repo.Insert(ctx, &dup), util.ErrUniquenessViolation)

	later := base.Add(6 * time.Hour)
	replaced, err := repo.Upsert(ctx, &model.DailyStat{
		ID:       "ignored",
		UserID:   1,
		StatDate: day(15),
		StatMetrics: model.StatMetrics{
			TotalLearningTime:  200,
			ConsecutiveDays:    8,
			MaxConsecutiveDays: 15,
		},
		CreateTime: later,
		UpdateTime: later,
	})
	require.NoError(t, err)
	require.Equal(t, "s1", replaced.ID)
	require.Equal(t, 200, replaced.TotalLearningTime)
	require.Equal(t, 0, replaced.VideosWatched)
	require.Equal(t, 0.0, replaced.WeeklyGoalProgress)
	require.Equal(t, 8, replaced.ConsecutiveDays)
	requireSameTime(t, base, replaced.CreateTime)
	requireSameTime(t, later, replaced.UpdateTime)

	inserted, err := repo.Upsert(ctx, &model.DailyStat{
		ID:          "s2",
		UserID:      1,
		StatDate:    day(16),
		StatMetrics: model.StatMetrics{TotalLearningTime: 30},
		CreateTime:  later,
		UpdateTime:  later,
	})
	require.NoError(t, err)
	require.Equal(t, "s2", inserted.ID)

	require.NoError(t, repo.Insert(ctx, &model.DailyStat{
		ID:          "s3",
		UserID:      2,
		StatDate:    day(15),
		StatMetrics: model.StatMetrics{TotalLearningTime: 300},
		CreateTime:  base,
		UpdateTime:  base,
	}))

	got, err := repo.FindByUserDate(ctx, 1, day(16))
	require.NoError(t, err)
	require.Equal(t, 30, got.TotalLearningTime)
	requireSameTime(t, day(16), got.StatDate)

	_, err = repo.FindByUserDate(ctx, 1, day(20))
	require.ErrorIs(t, err, util.ErrNotFound)

	stats, err := repo.ListByUser(ctx, 1, repository.TimeRange{From: day(15), To: day(16)})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, "s2", stats[0].ID)
	require.Equal(t, "s1", stats[1].ID)

	ranking, err := repo.Ranking(ctx, repository.TimeRange{From: day(15), To: day(15)}, 10)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	require.Equal(t, int64(2), ranking[0].UserID)
	require.Equal(t, int64(1), ranking[1].UserID)

	ranking, err = repo.Ranking(ctx, repository.TimeRange{}, 1)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
}

func testComments(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	repo := set.Comments

	newComment := func(id string, userID int64, created time.Time) *model.Comment {
		return &model.Comment{
			ID:         id,
			CourseID:   101,
			UserID:     userID,
			Username:   "学员" + id,
			Content:    "课程讲解得很清楚",
			Rating:     5,
			CreateTime: created,
			UpdateTime: created,
		}
	}
	require.NoError(t, repo.Insert(ctx, newComment("c1", 1, base)))
	require.NoError(t, repo.Insert(ctx, newComment("c2", 2, base.Add(time.Hour))))

	comments, err := repo.ListByCourse(ctx, 101, repository.Page{})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "c2", comments[0].ID)

	liked, err := repo.IncrementLikes(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 1, liked.LikeCount)

	replied, err := repo.IncrementReplies(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 1, replied.ReplyCount)
	require.Equal(t, 1, replied.LikeCount)

	_, err = repo.IncrementLikes(ctx, "missing")
	require.ErrorIs(t, err, util.ErrNotFound)

	require.NoError(t, repo.SetTop(ctx, "c1", true, base.Add(2*time.Hour)))
	top, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	require.True(t, top.IsTop)
	require.ErrorIs(t, repo.SetTop(ctx, "missing", true, base), util.ErrNotFound)

	require.NoError(t, repo.SoftDelete(ctx, "c2", base.Add(3*time.Hour)))
	comments, err = repo.ListByCourse(ctx, 101, repository.Page{})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "c1", comments[0].ID)

	deleted, err := repo.FindByID(ctx, "c2")
	require.NoError(t, err)
	require.True(t, deleted.Deleted)

	comments, err = repo.ListByUser(ctx, 2, repository.Page{})
	require.NoError(t, err)
	require.Empty(t, comments)

	require.ErrorIs(t, repo.SoftDelete(ctx, "missing", base), util.ErrNotFound)
}

func testChat(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	repo := set.Chat

	newMessage := func(id string, roomID, userID int64, created time.Time) *model.ChatMessage {
		msg := &model.ChatMessage{
			ID:          id,
			RoomID:      roomID,
			UserID:      userID,
			Username:    "张三",
			Content:     "老师讲得很好",
			MessageType: model.MessageNormal,
			CreateTime:  created,
		}
		if userID == util.SystemUserID {
			msg.Username = util.SystemUsername
			msg.MessageType = model.MessageSystem
		}
		return msg
	}
	for _, m := range []*model.ChatMessage{
		newMessage("m1", 1, 10, base),
		newMessage("m2", 1, util.SystemUserID, base.Add(time.Minute)),
		newMessage("m3", 1, 10, base.Add(2*time.Minute)),
		newMessage("m4", 2, 10, base.Add(3*time.Minute)),
	} {
		require.NoError(t, repo.Insert(ctx, m))
	}

	ids := func(msgs []model.ChatMessage) []string {
		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, m.ID)
		}
		return out
	}

	msgs, err := repo.ListByRoomSince(ctx, 1, base, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"m2", "m3"}, ids(msgs))

	msgs, err = repo.ListByRoomSince(ctx, 1, base.Add(-time.Hour), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, ids(msgs))

	msgs, err = repo.ListRecentByRoom(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"m3", "m2"}, ids(msgs))

	system, err := repo.FindByID(ctx, "m2")
	require.NoError(t, err)
	require.Equal(t, model.MessageSystem, system.MessageType)
	require.Equal(t, util.SystemUsername, system.Username)

	require.NoError(t, repo.SoftDelete(ctx, "m3"))
	msgs, err = repo.ListRecentByRoom(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"m2", "m1"}, ids(msgs))

	msgs, err = repo.ListByUser(ctx, 10, repository.Page{})
	require.NoError(t, err)
	require.Equal(t, []string{"m4", "m1"}, ids(msgs))

	require.ErrorIs(t, repo.SoftDelete(ctx, "missing"), util.ErrNotFound)
}

func testRecommendations(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	repo := set.Recommendations

	created := time.Date(2024, 1, 21, 8, 30, 0, 0, time.UTC)
	batch := &model.RecommendationBatch{
		ID:            "r1",
		UserID:        2,
		AlgorithmType: "collaborative_filtering",
		RecommendedItems: []model.RecommendedItem{
			{ItemID: 201, ItemType: "course", Title: "Spring Boot 实战", Score: 0.92, Reason: "与您学习的课程相似"},
			{ItemID: 202, ItemType: "course", Title: "MySQL 性能优化", Score: 0.76, Reason: "同类学员也在学"},
		},
		CreateTime: created,
		ExpireTime: created.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, repo.Insert(ctx, batch))

	got, err := repo.FindByID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got.RecommendedItems, 2)
	require.Equal(t, 0.92, got.RecommendedItems[0].Score)
	require.Equal(t, int64(202), got.RecommendedItems[1].ItemID)
	require.False(t, got.Clicked)

	active, err := repo.ListActiveByUser(ctx, 2, time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, active, 1)

	active, err = repo.ListActiveByUser(ctx, 2, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, active)

	active, err = repo.ListActiveByUser(ctx, 2, batch.ExpireTime)
	require.NoError(t, err)
	require.Empty(t, active)

	require.NoError(t, repo.SetFlag(ctx, "r1", model.FlagClicked))
	require.NoError(t, repo.SetFlag(ctx, "r1", model.FlagClicked))
	got, err = repo.FindByID(ctx, "r1")
	require.NoError(t, err)
	require.True(t, got.Clicked)
	require.False(t, got.Applied)

	require.ErrorIs(t, repo.SetFlag(ctx, "missing", model.FlagApplied), util.ErrNotFound)
	require.Error(t, repo.SetFlag(ctx, "r1", model.RecommendationFlag("shared")))

	byAlgo, err := repo.ListByAlgorithm(ctx, "collaborative_filtering", repository.TimeRange{From: day(21), To: day(22)})
	require.NoError(t, err)
	require.Len(t, byAlgo, 1)

	byAlgo, err = repo.ListByAlgorithm(ctx, "content_based", repository.TimeRange{})
	require.NoError(t, err)
	require.Empty(t, byAlgo)
}

// testConcurrentWrites 计数器与 upsert 必须在存储端原子完成
func testConcurrentWrites(t *testing.T, set *repository.Set) {
	ctx := context.Background()
	const workers = 16

	require.NoError(t, set.Notes.Insert(ctx, &model.Note{
		ID: "n1", UserID: 1, CourseID: 101, Title: "并发", Content: "点赞",
		Type: model.NoteText, CreateTime: base, UpdateTime: base,
	}))
	require.NoError(t, set.Comments.Insert(ctx, &model.Comment{
		ID: "c1", CourseID: 101, UserID: 1, Content: "并发", Rating: 5,
		CreateTime: base, UpdateTime: base,
	}))

	run := func(fn func(i int) error) {
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- fn(i)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	}

	run(func(int) error {
		_, err := set.Notes.IncrementLikes(ctx, "n1")
		return err
	})
	run(func(int) error {
		_, err := set.Comments.IncrementLikes(ctx, "c1")
		return err
	})
	run(func(int) error {
		_, err := set.Comments.IncrementReplies(ctx, "c1")
		return err
	})
	run(func(i int) error {
		_, err := set.Stats.Upsert(ctx, &model.DailyStat{
			ID:          fmt.Sprintf("s%02d", i),
			UserID:      1,
			StatDate:    day(15),
			StatMetrics: model.StatMetrics{TotalLearningTime: 100 + i},
			CreateTime:  base,
			UpdateTime:  base,
		})
		return err
	})

	note, err := set.Notes.FindByID(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, workers, note.LikeCount)

	comment, err := set.Comments.FindByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, workers, comment.LikeCount)
	require.Equal(t, workers, comment.ReplyCount)

	stats, err := set.Stats.ListByUser(ctx, 1, repository.TimeRange{})
	require.NoError(t, err)
	require.Len(t, stats, 1, "one row per (userId, statDate)")
}
