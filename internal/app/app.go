package app

import (
	"context"
	"errors"
	"fmt"
	"learning_analytics/internal/config"
	"learning_analytics/internal/controller"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/service"
	"learning_analytics/pkg/configwatcher"
	"learning_analytics/pkg/database"
	"learning_analytics/pkg/logger"
	"learning_analytics/pkg/monitoring"
	"learning_analytics/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	Repos    *repository.Set
	Stores   *service.Stores
	Settings *service.Settings
	Redis    *redis.Client

	configCallbacks []func(*config.Config)
	closers         []func(context.Context) error
	cancels         []context.CancelFunc
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// openBackend 按 database.driver 选择存储后端
func (a *App) openBackend(ctx context.Context, cfg *config.Config) (*repository.Set, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, db, err := database.InitMongo(ctx, &cfg.Database.Mongo)
		if err != nil {
			return nil, err
		}
		a.onClose(client.Disconnect)
		return repository.NewMongoSet(db, cfg.Database.Mongo.SchemaValidation), nil
	case config.DriverMySQL:
		db, err := database.InitDB(&cfg.Database.MySQL, cfg.Server.Mode == "debug")
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		return repository.NewGormSet(db), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// NewApp 初始化日志、存储后端、Redis 与索引
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	app := &App{Config: cfg}

	set, err := app.openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		app.onClose(func(context.Context) error { return rdb.Close() })
	}

	if err := app.setup(ctx, set, rdb); err != nil {
		app.Close(ctx)
		return nil, err
	}
	return app, nil
}

// setup 在已打开的后端上完成索引、store 与路由的装配
func (a *App) setup(ctx context.Context, set *repository.Set, rdb *redis.Client) error {
	a.Repos = set
	a.Redis = rdb

	start := time.Now()
	if err := set.Indexer.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Log.Info("Collections and indexes ensured",
		zap.String("driver", a.Config.Database.Driver),
		zap.Duration("elapsed", time.Since(start)))

	if a.Config.EnsureIndexesOnly {
		return nil
	}

	// 监控初始化，seed 写入同样计入指标
	monitoring.Init()

	if a.Config.Seed {
		if err := Seed(ctx, set, rdb); err != nil {
			return err
		}
	}

	a.Settings = service.NewSettings(a.Config.Store)
	a.Stores = service.NewStores(set, service.Deps{
		Redis:    rdb,
		Settings: a.Settings,
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.Settings.Set(cfg.Store)
		logger.Log.Info("Store settings reloaded",
			zap.Duration("recommendation_cache_ttl", cfg.Store.RecommendationCacheTTL),
			zap.Int("default_page_size", cfg.Store.DefaultPageSize),
			zap.Int("max_page_size", cfg.Store.MaxPageSize))
	})

	if a.Config.Tracing.Enabled {
		tp, err := tracing.InitTracer("learning-analytics-store", a.Config.Tracing.CollectorEndpoint)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		a.onClose(tp.Shutdown)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	a.cancels = append(a.cancels, cancel)

	if a.Config.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	a.setupMiddlewares(bgCtx, router)
	a.registerRoutes(router, controller.NewHealthController(a.Config.Database.Driver, set.Ping, rdb))
	a.Router = router
	return nil
}

// WatchConfig 配置文件变化时依次调用已注册的 callback
func (a *App) WatchConfig(configDir string) {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancels = append(a.cancels, cancel)

	path := filepath.Join(configDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(ctx, path, configwatcher.DefaultDebounce, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Ops server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(ctx)

	logger.Log.Info("Server exiting")
}

// Close 停止后台任务，逆序释放 tracer、Redis 与后端连接
func (a *App) Close(ctx context.Context) {
	for _, cancel := range a.cancels {
		cancel()
	}
	a.cancels = nil
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Log.Warn("Failed to release resource", zap.Error(err))
		}
	}
	a.closers = nil
}
