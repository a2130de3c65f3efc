package service_test

import (
	"context"
	"fmt"
	"learning_analytics/internal/config"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/service"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock 可手动推进的时钟
type testClock struct {
	now time.Time
}

func newClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Set(t time.Time)         { c.now = t }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%03d", n.Add(1))
	}
}

type env struct {
	set    *repository.Set
	deps   service.Deps
	stores *service.Stores
	clock  *testClock
	redis  *miniredis.Miniredis
	rdb    *redis.Client
}

type envOption func(*envConfig)

type envConfig struct {
	withRedis bool
	store     config.StoreConfig
}

func withRedis() envOption {
	return func(c *envConfig) { c.withRedis = true }
}

func withPageSizes(def, max int) envOption {
	return func(c *envConfig) {
		c.store.DefaultPageSize = def
		c.store.MaxPageSize = max
	}
}

func newEnv(t *testing.T, start time.Time, opts ...envOption) *env {
	t.Helper()

	cfg := envConfig{store: config.StoreConfig{
		RecommendationCacheTTL: 10 * time.Minute,
		DefaultPageSize:        20,
		MaxPageSize:            100,
	}}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite 单写者，并发写在多连接下会返回 SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	set := repository.NewGormSet(db)
	require.NoError(t, set.Indexer.EnsureIndexes(context.Background()))

	e := &env{set: set, clock: newClock(start)}
	deps := service.Deps{
		Clock:    e.clock.Now,
		NewID:    sequentialIDs(),
		Settings: service.NewSettings(cfg.store),
	}
	if cfg.withRedis {
		e.redis = miniredis.RunT(t)
		e.rdb = redis.NewClient(&redis.Options{Addr: e.redis.Addr()})
		t.Cleanup(func() { _ = e.rdb.Close() })
		deps.Redis = e.rdb
	}
	e.deps = deps
	e.stores = service.NewStores(set, deps)
	return e
}
