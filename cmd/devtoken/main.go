// devtoken はローカル開発・E2Eテスト用にスコープ付きのアクセストークンを発行します。
//
//	go run ./cmd/devtoken -scopes companies.read,companies.write
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"company_backend/internal/app/config"
	jwtmw "company_backend/internal/platform/jwt"
)

func main() {
	subject := flag.String("sub", "dev-user", "token subject")
	scopes := flag.String("scopes", jwtmw.ScopeRead+","+jwtmw.ScopeWrite, "comma separated scopes")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	var list []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	token, err := jwtmw.NewGenerator(cfg.JWT(), *ttl).GenerateToken(*subject, list)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
