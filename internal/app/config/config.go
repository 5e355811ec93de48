// Package config はアプリケーション設定を環境変数から読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"company_backend/internal/platform/db"
	jwtmw "company_backend/internal/platform/jwt"
	"company_backend/internal/platform/redis"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv             string        `envconfig:"APP_ENV" default:"development"`
	AppAddr            string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DBHost           string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort           string        `envconfig:"DB_PORT" default:"5432"`
	DBUser           string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword       string        `envconfig:"DB_PASSWORD"`
	DBName           string        `envconfig:"DB_NAME" default:"companies"`
	DBSSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	DBInstanceName   string        `envconfig:"INSTANCE_CONNECTION_NAME"`
	DBConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"60s"`
	RunMigrations    bool          `envconfig:"RUN_MIGRATIONS" default:"false"`

	RedisHost     string        `envconfig:"REDIS_HOST"`
	RedisPort     string        `envconfig:"REDIS_PORT"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTIssuer    string `envconfig:"JWT_ISSUER"`
	JWTAudience  string `envconfig:"JWT_AUDIENCE"`
	AuthDisabled bool   `envconfig:"AUTH_DISABLED" default:"false"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:4200"`

	// RateLimitWrites はクライアントごとの1分あたりの更新リクエスト上限です。0で無効になります。
	RateLimitWrites int `envconfig:"RATE_LIMIT_WRITES" default:"60"`
}

// Load は .env（存在する場合）と環境変数から設定を読み込みます。
// 既に設定されている環境変数は .env で上書きされません。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Info(".env not found; using system environment variables", "file", f)
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.AuthDisabled && c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided unless AUTH_DISABLED is set")
	}
	if c.AuthDisabled && c.IsProduction() {
		return errors.New("AUTH_DISABLED is not allowed in production")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DB はデータベース接続設定を返します。
func (c *Config) DB() db.Config {
	return db.Config{
		User:         c.DBUser,
		Password:     c.DBPassword,
		Name:         c.DBName,
		Host:         c.DBHost,
		Port:         c.DBPort,
		SSLMode:      c.DBSSLMode,
		InstanceName: c.DBInstanceName,
	}
}

// Redis はRedis接続設定を返します。
func (c *Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
	}
}

// JWT はトークン検証設定を返します。
func (c *Config) JWT() jwtmw.Config {
	return jwtmw.Config{
		Secret:   c.JWTSecret,
		Issuer:   c.JWTIssuer,
		Audience: c.JWTAudience,
	}
}
