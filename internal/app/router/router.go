package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	companyhandler "company_backend/internal/feature/company/transport/handler"
	platformhandler "company_backend/internal/platform/http/handler"
	"company_backend/internal/platform/http/middleware"
	jwtmw "company_backend/internal/platform/jwt"
	"company_backend/internal/shared/ratelimiter"
)

// Options はルーター構築時の設定です。
type Options struct {
	Production     bool
	AuthDisabled   bool
	JWT            jwtmw.Config
	AllowedOrigins []string
	// WriteLimiter は更新系エンドポイントのクライアント単位の制限です。nilの場合は制限しません。
	WriteLimiter *ratelimiter.RateLimiter
}

func NewRouter(opts Options, health *platformhandler.HealthHandler, companies *companyhandler.CompanyHandler) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.AccessLog(),
		middleware.SecureHeaders(opts.Production),
		middleware.CORS(opts.AllowedOrigins),
	)

	// 認証不要
	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)
	r.OPTIONS("/healthz", health.Health)

	v1 := r.Group("/api/v1")

	// スコープごとにルートグループを作成
	// AuthRequired → RequireScope の順に適用
	read := v1.Group("/companies")
	write := v1.Group("/companies")
	if opts.AuthDisabled {
		slog.Warn("authentication is disabled; all /api/v1 routes are public")
	} else {
		read.Use(jwtmw.AuthRequired(opts.JWT), jwtmw.RequireScope(jwtmw.ScopeRead))
		write.Use(jwtmw.AuthRequired(opts.JWT), jwtmw.RequireScope(jwtmw.ScopeWrite))
	}
	write.Use(middleware.RateLimit(opts.WriteLimiter))
	{
		read.GET("", companies.List)
		read.GET("/:id", companies.Get)
		read.GET("/isin/:isin", companies.GetByISIN)
	}
	{
		write.POST("", companies.Create)
		write.PUT("/:id", companies.Replace)
		write.PATCH("/:id", companies.Patch)
		write.DELETE("/:id", companies.Delete)
	}

	return r
}
