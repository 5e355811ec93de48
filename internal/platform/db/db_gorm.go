// Package db はPostgresへの接続とマイグレーションを提供します。
package db

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"company_backend/internal/feature/company/domain/entity"
)

// retryInterval は接続失敗時の再試行間隔です。
var retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     string
	SSLMode  string
	// InstanceName が設定されている場合、Cloud SQLのUnixソケット経由で接続します。
	InstanceName string
}

// Opener はDSNからgorm.DBを開く関数です。テストで差し替えられます。
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN は設定からPostgresの接続URLを生成します。
// InstanceName が設定されている場合はHost/Portより優先されます。
func BuildDSN(cfg Config) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   "/" + cfg.Name,
	}
	if cfg.InstanceName != "" {
		q.Set("host", "/cloudsql/"+cfg.InstanceName)
	} else {
		u.Host = net.JoinHostPort(cfg.Host, cfg.Port)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// OpenPostgres はエラー変換を有効にしてPostgresに接続します。
// TranslateErrorによりユニーク制約違反はgorm.ErrDuplicatedKeyになります。
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// ConnectWithRetry はtimeoutに達するまで接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// Migrate はcompaniesテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Company{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// OpenDB は再試行付きでPostgresに接続し、必要に応じてマイグレーションを実行します。
func OpenDB(cfg Config, timeout time.Duration, runMigrations bool) (*gorm.DB, error) {
	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, OpenPostgres)
	if err != nil {
		return nil, err
	}
	if runMigrations {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		slog.Info("database migrated")
	}
	return db, nil
}
