// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// pingTimeout は依存先ごとの疎通確認のタイムアウトです。
const pingTimeout = 2 * time.Second

// Pinger は疎通確認が可能な依存先（*sql.DB など）を表します。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler は /healthz を処理します。
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler は名前付きの依存先を受け取り HealthHandler を生成します。
// nil の依存先は無視されます。
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	c := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			c[name] = p
		}
	}
	return &HealthHandler{checks: c}
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// 依存先のいずれかが応答しない場合は503を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		err := p.PingContext(ctx)
		cancel()
		if err != nil {
			slog.Warn("health check failed", "dependency", name, "error", err)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	if c.Request.Method == http.MethodHead {
		c.Status(status)
		return
	}

	body := gin.H{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	if len(results) > 0 {
		body["checks"] = results
	}
	c.JSON(status, body)
}
