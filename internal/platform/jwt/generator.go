package jwtmw

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Generator defines the interface for JWT token generation.
type Generator interface {
	// GenerateToken creates a signed token for the subject with the given scopes.
	GenerateToken(subject string, scopes []string) (string, error)
}

// generator implements the Generator interface.
type generator struct {
	cfg        Config
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a new JWT generator. Issuer and audience from cfg are
// embedded when set so the tokens pass AuthRequired with the same Config.
func NewGenerator(cfg Config, expiration time.Duration) Generator {
	return &generator{
		cfg:        cfg,
		expiration: expiration,
		now:        time.Now,
	}
}

var _ Generator = (*generator)(nil)

// GenerateToken creates an HS256 signed token with standard claims.
func (g *generator) GenerateToken(subject string, scopes []string) (string, error) {
	now := g.now()
	claims := Claims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    g.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.expiration)),
		},
	}
	if g.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{g.cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
