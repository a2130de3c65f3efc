package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMongo = "mongo"
	DriverMySQL = "mysql"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	EnsureIndexesOnly bool `mapstructure:"-"` // 只创建集合与索引，完成后退出
	Seed              bool `mapstructure:"-"` // 写入演示数据
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"`
	Mongo  MongoConfig `mapstructure:"mongo"`
	MySQL  MySQLConfig `mapstructure:"mysql"`
}

type MongoConfig struct {
	URI              string        `mapstructure:"uri"`
	Database         string        `mapstructure:"database"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	SchemaValidation bool          `mapstructure:"schema_validation"`
}

type MySQLConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

// StoreConfig 存储层可热更新的参数
type StoreConfig struct {
	RecommendationCacheTTL time.Duration `mapstructure:"recommendation_cache_ttl"`
	DefaultPageSize        int           `mapstructure:"default_page_size"`
	MaxPageSize            int           `mapstructure:"max_page_size"`
}

// LogConfig 日志文件按大小滚动，File 为空时只输出到控制台
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "9090")
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo.database", "smart_learning")
	v.SetDefault("database.mongo.connect_timeout", "10s")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.charset", "utf8mb4")
	v.SetDefault("database.mysql.parsetime", true)

	v.SetDefault("redis.port", 6379)

	v.SetDefault("store.recommendation_cache_ttl", "10m")
	v.SetDefault("store.default_page_size", 20)
	v.SetDefault("store.max_page_size", 100)

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LEARNING_STORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.mongo.uri", "MONGO_URI")
	v.BindEnv("database.mongo.database", "MONGO_DATABASE")
	v.BindEnv("database.mysql.host", "DATABASE_HOST")
	v.BindEnv("database.mysql.port", "DATABASE_PORT")
	v.BindEnv("database.mysql.user", "DATABASE_USER")
	v.BindEnv("database.mysql.password", "DATABASE_PASSWORD")
	v.BindEnv("database.mysql.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.Mongo.URI == "" || c.Database.Mongo.Database == "" {
			return fmt.Errorf("database.mongo.uri and database.mongo.database are required for driver %q", DriverMongo)
		}
	case DriverMySQL:
		if c.Database.MySQL.Host == "" || c.Database.MySQL.DBName == "" {
			return fmt.Errorf("database.mysql.host and database.mysql.dbname are required for driver %q", DriverMySQL)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Store.DefaultPageSize <= 0 || c.Store.MaxPageSize < c.Store.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.Store.DefaultPageSize, c.Store.MaxPageSize)
	}
	return nil
}
