package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 文档存储后端。
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Suggest  SuggestConfig  `mapstructure:"suggest"`
	Export   ExportConfig   `mapstructure:"export"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MetricsSecret 非空时，/metrics 需要携带 X-Internal-Secret。
	MetricsSecret string `mapstructure:"metrics_secret"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

// StoreConfig 选择简历文档的持久化后端。
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// MongoConfig 包含 MongoDB 连接配置，仅在 store.driver=mongo 时使用。
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 包含 JWT 密钥与登录限流配置。
type AuthConfig struct {
	PrivateKeyPath     string        `mapstructure:"private_key_path"`
	PublicKeyPath      string        `mapstructure:"public_key_path"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	CookieDomain       string        `mapstructure:"cookie_domain"`
}

// SuggestConfig 控制写作建议缓存的容量与过期时间。
type SuggestConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// ExportConfig 控制 PDF 导出队列。
type ExportConfig struct {
	MaxRetry    int           `mapstructure:"max_retry"`
	Concurrency int           `mapstructure:"concurrency"`
	LinkTTL     time.Duration `mapstructure:"link_ttl"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LogConfig 控制 slog 输出。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration from environment variables (with optional defaults).
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cvbuilder")
	v.SetDefault("database.user", "cvbuilder")
	v.SetDefault("database.password", "cvbuilder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.slow_query", 500*time.Millisecond)
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("mongo.database", "cvbuilder")
	v.SetDefault("mongo.collection", "resumes")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.rate_limit_per_minute", 5)
	v.SetDefault("suggest.cache_size", 256)
	v.SetDefault("suggest.cache_ttl", 10*time.Minute)
	v.SetDefault("export.max_retry", 5)
	v.SetDefault("export.concurrency", 4)
	v.SetDefault("export.link_ttl", 5*time.Minute)
	v.SetDefault("export.timeout", 60*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                   "API_PORT",
		"api.allowed_origins":        "API_ALLOWED_ORIGINS",
		"api.metrics_secret":         "METRICS_SECRET",
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.name":              "POSTGRES_DB",
		"database.user":              "POSTGRES_USER",
		"database.password":          "POSTGRES_PASSWORD",
		"database.sslmode":           "DATABASE_SSLMODE",
		"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
		"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
		"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",
		"database.slow_query":        "DATABASE_SLOW_QUERY",
		"store.driver":               "STORE_DRIVER",
		"mongo.uri":                  "MONGODB_URI",
		"mongo.database":             "MONGODB_DATABASE",
		"mongo.collection":           "MONGODB_COLLECTION",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"redis.password":             "REDIS_PASSWORD",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.public_endpoint":      "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":        "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":    "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"minio.bucket":               "MINIO_BUCKET",
		"minio.region":               "MINIO_REGION",
		"minio.bucket_lookup":        "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":   "MINIO_AUTO_CREATE_BUCKET",
		"auth.private_key_path":      "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":       "JWT_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":      "JWT_ACCESS_TOKEN_TTL",
		"auth.refresh_token_ttl":     "JWT_REFRESH_TOKEN_TTL",
		"auth.rate_limit_per_minute": "AUTH_RATE_LIMIT_PER_MINUTE",
		"auth.cookie_domain":         "AUTH_COOKIE_DOMAIN",
		"suggest.cache_size":         "SUGGEST_CACHE_SIZE",
		"suggest.cache_ttl":          "SUGGEST_CACHE_TTL",
		"export.max_retry":           "EXPORT_MAX_RETRY",
		"export.concurrency":         "EXPORT_CONCURRENCY",
		"export.link_ttl":            "EXPORT_LINK_TTL",
		"export.timeout":             "EXPORT_TIMEOUT",
		"log.level":                  "LOG_LEVEL",
		"log.format":                 "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	case StoreDriverMongo:
		if cfg.Mongo.URI == "" {
			return errors.New("mongo uri is required when store driver is mongo")
		}
		if cfg.Mongo.Database == "" || cfg.Mongo.Collection == "" {
			return errors.New("mongo database and collection are required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PrivateKeyPath == "" || cfg.Auth.PublicKeyPath == "" {
		return errors.New("jwt key paths are required")
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if cfg.Suggest.CacheSize <= 0 {
		return errors.New("suggest cache size must be positive")
	}
	if cfg.Export.MaxRetry < 0 {
		return errors.New("export max retry must not be negative")
	}
	return nil
}

// NewLogger 按 log.level 与 log.format 构造 slog.Logger。
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
