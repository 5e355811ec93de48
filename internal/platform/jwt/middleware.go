package jwtmw

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ScopeRead は参照系エンドポイントに必要なスコープです。
	ScopeRead = "companies.read"
	// ScopeWrite は更新系エンドポイントに必要なスコープです。
	ScopeWrite = "companies.write"
)

const (
	// ContextSubject はトークンの sub クレームを格納するコンテキストキーです。
	ContextSubject = "subject"
	// ContextScopes はトークンのスコープ一覧を格納するコンテキストキーです。
	ContextScopes = "scopes"
)

// Config はトークン検証と発行に使う設定です。
// Issuer/Audience は空の場合は検証しません。
type Config struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims はアクセストークンのペイロードです。
// スコープは空白区切りの scope、または配列の scp のどちらでも受け付けます。
type Claims struct {
	Scope string   `json:"scope,omitempty"`
	Scp   []string `json:"scp,omitempty"`
	jwt.RegisteredClaims
}

// Scopes は scope と scp を統合したスコープ一覧を返します。
func (c *Claims) Scopes() []string {
	scopes := strings.Fields(c.Scope)
	for _, s := range c.Scp {
		if s != "" && !slices.Contains(scopes, s) {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func (cfg Config) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return opts
}

// AuthRequired returns a Gin middleware function that validates bearer tokens
// and stores the subject and scopes in the context.
func AuthRequired(cfg Config) gin.HandlerFunc {
	parser := jwt.NewParser(cfg.parserOptions()...)
	secret := []byte(cfg.Secret)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		if len(secret) == 0 {
			// Server misconfiguration (JWT_SECRET not set)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			slog.Warn("invalid bearer token", "error", err, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextScopes, claims.Scopes())
		c.Next()
	}
}

// RequireScope は指定スコープを持たないリクエストを403で拒否します。
// AuthRequired の後に配置してください。
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes, _ := c.Get(ContextScopes)
		granted, _ := scopes.([]string)
		if !slices.Contains(granted, scope) {
			slog.Warn("insufficient scope",
				"required", scope,
				"subject", c.GetString(ContextSubject),
				"remote_addr", c.ClientIP(),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient scope"})
			return
		}
		c.Next()
	}
}
