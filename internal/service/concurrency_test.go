package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parallel(t *testing.T, n int, fn func(i int) error) {
	t.Helper()
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
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

func TestConcurrentCountersAreNotLost(t *testing.T) {
	e := newEnv(t, noteTime)
	ctx := context.Background()
	const n = 20

	note, err := e.stores.Notes.Create(ctx, sampleNote())
	require.NoError(t, err)
	comment, err := e.stores.Comments.Create(ctx, sampleComment(5))
	require.NoError(t, err)

	parallel(t, n, func(int) error {
		_, err := e.stores.Notes.Like(ctx, note.ID)
		return err
	})
	parallel(t, n, func(i int) error {
		var err error
		if i%2 == 0 {
			_, err = e.stores.Comments.Like(ctx, comment.ID)
		} else {
			_, err = e.stores.Comments.IncrementReplies(ctx, comment.ID)
		}
		return err
	})

	liked, err := e.stores.Notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, n, liked.LikeCount)

	counted, err := e.stores.Comments.Get(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, n/2, counted.LikeCount)
	assert.Equal(t, n/2, counted.ReplyCount)
}

func TestConcurrentStatsUpsertKeepsOneRow(t *testing.T) {
	e := newEnv(t, time.Date(2024, 1, 16, 1, 0, 0, 0, time.UTC))
	ctx := context.Background()
	statDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	parallel(t, 16, func(i int) error {
		m := sampleMetrics()
		m.TotalLearningTime = 100 + i
		_, err := e.stores.Stats.Upsert(ctx, 1, statDate, m)
		return err
	})

	stats, err := e.stores.Stats.RangeByUser(ctx, 1, statDate, statDate)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.GreaterOrEqual(t, stats[0].TotalLearningTime, 100)
	assert.Less(t, stats[0].TotalLearningTime, 116)
}
