package service_test

import (
	"context"
	"errors"
	"learning_analytics/internal/model"
	"learning_analytics/internal/util"
	"learning_analytics/pkg/monitoring"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noteTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func sampleNote() *model.Note {
	return &model.Note{
		UserID:    1,
		CourseID:  101,
		LessonID:  1001,
		Title:     "Java 基础语法笔记",
		Content:   "变量、数据类型和运算符",
		TimePoint: 300,
		IsPublic:  true,
		Tags:      []string{"Java", "基础"},
	}
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *util.ValidationError
	require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
	assert.Equal(t, field, vErr.Field)
}

func TestNoteStoreCreateStampsFields(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()

	input := sampleNote()
	input.ID = "caller-id"
	input.LikeCount = 42
	input.Deleted = true

	note, err := e.stores.Notes.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "id-001", note.ID)
	assert.Equal(t, 0, note.LikeCount)
	assert.False(t, note.Deleted)
	assert.Equal(t, model.NoteText, note.Type)
	assert.True(t, note.CreateTime.Equal(noteTime))
	assert.True(t, note.UpdateTime.Equal(note.CreateTime))

	stored, err := e.stores.Notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Java", "基础"}, stored.Tags)
	assert.Equal(t, 300, stored.TimePoint)
}

func TestNoteStoreCreateRejectsInvalidNotes(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()

	invalidBefore := testutil.ToFloat64(monitoring.StoreOperations.WithLabelValues(model.CollectionNotes, "create", "invalid"))

	missingCourse := sampleNote()
	missingCourse.CourseID = 0
	_, err := e.stores.Notes.Create(ctx, missingCourse)
	requireValidation(t, err, "courseId")

	missingLesson := sampleNote()
	missingLesson.LessonID = 0
	_, err = e.stores.Notes.Create(ctx, missingLesson)
	requireValidation(t, err, "lessonId")

	negative := sampleNote()
	negative.TimePoint = -1
	_, err = e.stores.Notes.Create(ctx, negative)
	requireValidation(t, err, "timePoint")

	badType := sampleNote()
	badType.Type = model.NoteType("VIDEO")
	_, err = e.stores.Notes.Create(ctx, badType)
	requireValidation(t, err, "type")

	total, err := e.stores.Notes.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, total, "rejected notes must not be written")

	invalidAfter := testutil.ToFloat64(monitoring.StoreOperations.WithLabelValues(model.CollectionNotes, "create", "invalid"))
	assert.Equal(t, invalidBefore+4, invalidAfter)
}

func TestNoteStoreUpdateKeepsUpdateTimeAfterCreateTime(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()

	note, err := e.stores.Notes.Create(ctx, sampleNote())
	require.NoError(t, err)

	title := "Java 基础语法笔记（修订）"
	e.clock.Advance(2 * time.Hour)
	updated, err := e.stores.Notes.Update(ctx, note.ID, 1, model.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, note.Content, updated.Content)
	assert.True(t, updated.UpdateTime.Equal(noteTime.Add(2*time.Hour)))

	// 时钟回拨
	e.clock.Set(noteTime.Add(-time.Hour))
	content := "补充：包装类型"
	updated, err = e.stores.Notes.Update(ctx, note.ID, 1, model.NotePatch{Content: &content})
	require.NoError(t, err)
	assert.False(t, updated.UpdateTime.Before(updated.CreateTime))
	assert.True(t, updated.UpdateTime.Equal(noteTime))
}

func TestNoteStoreOwnership(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()

	note, err := e.stores.Notes.Create(ctx, sampleNote())
	require.NoError(t, err)

	title := "别人的笔记"
	_, err = e.stores.Notes.Update(ctx, note.ID, 2, model.NotePatch{Title: &title})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	assert.ErrorIs(t, e.stores.Notes.SoftDelete(ctx, note.ID, 2), util.ErrPermissionDenied)

	_, err = e.stores.Notes.Update(ctx, "missing", 1, model.NotePatch{Title: &title})
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = e.stores.Notes.Update(ctx, note.ID, 1, model.NotePatch{})
	requireValidation(t, err, "patch")
}

func TestNoteStoreSoftDelete(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()

	note, err := e.stores.Notes.Create(ctx, sampleNote())
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	require.NoError(t, e.stores.Notes.SoftDelete(ctx, note.ID, 1))
	require.NoError(t, e.stores.Notes.SoftDelete(ctx, note.ID, 1), "repeated delete is a no-op")

	notes, err := e.stores.Notes.ListByUser(ctx, 1, 101)
	require.NoError(t, err)
	assert.Empty(t, notes)

	public, err := e.stores.Notes.ListPublicByCourse(ctx, 101, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, public)

	raw, err := e.stores.Notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.True(t, raw.Deleted)
	assert.False(t, raw.UpdateTime.Before(raw.CreateTime))

	title := "复活"
	_, err = e.stores.Notes.Update(ctx, note.ID, 1, model.NotePatch{Title: &title})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestNoteStoreLikes(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()

	note, err := e.stores.Notes.Create(ctx, sampleNote())
	require.NoError(t, err)

	liked, err := e.stores.Notes.Like(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikeCount)

	unliked, err := e.stores.Notes.Unlike(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikeCount)

	unliked, err = e.stores.Notes.Unlike(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikeCount, "likeCount never goes below zero")

	_, err = e.stores.Notes.Like(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = e.stores.Notes.Get(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrNotFound, "like must not create a record")
}

func TestNoteStorePublicQueries(t *testing.T) {
	e := newEnv(t, noteTime, withPageSizes(2, 2))
	ctx := context.Background()

	for i, title := range []string{"Java 集合框架", "Spring Boot 入门", "MySQL 索引"} {
		n := sampleNote()
		n.Title = title
		n.Tags = []string{"后端"}
		if i == 1 {
			n.Tags = []string{"Spring"}
		}
		_, err := e.stores.Notes.Create(ctx, n)
		require.NoError(t, err)
		e.clock.Advance(time.Minute)
	}
	private := sampleNote()
	private.IsPublic = false
	_, err := e.stores.Notes.Create(ctx, private)
	require.NoError(t, err)

	first, err := e.stores.Notes.ListPublicByCourse(ctx, 101, 1, 50)
	require.NoError(t, err)
	require.Len(t, first, 2, "page size is capped")
	assert.Equal(t, "MySQL 索引", first[0].Title)

	second, err := e.stores.Notes.ListPublicByCourse(ctx, 101, 2, 0)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Java 集合框架", second[0].Title)

	tagged, err := e.stores.Notes.ListByTags(ctx, []string{" Spring "}, 1, 10)
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "Spring Boot 入门", tagged[0].Title)

	found, err := e.stores.Notes.Search(ctx, "mysql", 1, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = e.stores.Notes.Search(ctx, "  ", 1, 10)
	requireValidation(t, err, "keyword")
	_, err = e.stores.Notes.ListByTags(ctx, nil, 1, 10)
	requireValidation(t, err, "tags")

	byLesson, err := e.stores.Notes.ListByLesson(ctx, 1, 1001)
	require.NoError(t, err)
	assert.Len(t, byLesson, 4)
}

func TestNoteStoreTimeline(t *testing.T) {
	e := newEnv(t, noteTime, withPageSizes(2, 2))
	ctx := context.Background()

	var ids []string
	for _, course := range []int64{101, 102, 103} {
		n := sampleNote()
		n.CourseID = course
		n.IsPublic = course != 102
		created, err := e.stores.Notes.Create(ctx, n)
		require.NoError(t, err)
		ids = append(ids, created.ID)
		e.clock.Advance(time.Minute)
	}
	other := sampleNote()
	other.UserID = 2
	_, err := e.stores.Notes.Create(ctx, other)
	require.NoError(t, err)
	require.NoError(t, e.stores.Notes.SoftDelete(ctx, ids[2], 1))

	first, err := e.stores.Notes.ListTimeline(ctx, 1, 1, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[1], first[0].ID, "private notes are part of the owner's timeline")
	assert.Equal(t, ids[0], first[1].ID)

	second, err := e.stores.Notes.ListTimeline(ctx, 1, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, second)

	none, err := e.stores.Notes.ListTimeline(ctx, 3, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
