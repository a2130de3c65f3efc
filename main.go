package main

import (
	"context"
	"flag"
	"learning_analytics/internal/app"
	"learning_analytics/internal/config"
	"learning_analytics/pkg/logger"
	"log"

	"go.uber.org/zap"
)

const configDir = "configs"

func main() {
	// 命令行参数
	ensureIndexesOnly := flag.Bool("ensure-indexes-only", false, "只创建集合与索引，完成后退出")
	seed := flag.Bool("seed", false, "启动时写入演示数据（已存在时跳过）")
	flag.Parse()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.EnsureIndexesOnly = *ensureIndexesOnly
	cfg.Seed = *seed

	ctx := context.Background()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer logger.Log.Sync()

	// 索引创建完成后直接退出
	if *ensureIndexesOnly {
		application.Close(ctx)
		logger.Log.Info("Indexes ensured, exiting", zap.String("driver", cfg.Database.Driver))
		return
	}

	application.WatchConfig(configDir)
	application.Run()
}
