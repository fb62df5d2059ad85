package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminScope is the only scope accepted on admin routes.
const AdminScope = "captcha:admin"

// ErrAdminDisabled is returned when no admin secret is configured.
var ErrAdminDisabled = errors.New("admin api disabled")

// AdminClaims identify the embedding host calling the admin API.
type AdminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateAdminToken issues an admin JWT signed with secret.
func GenerateAdminToken(secret, subject string, duration time.Duration) (string, error) {
	if secret == "" {
		return "", ErrAdminDisabled
	}
	now := time.Now()
	claims := AdminClaims{
		Scope: AdminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAdminToken validates tokenStr against secret and returns its claims.
func ParseAdminToken(secret, tokenStr string) (*AdminClaims, error) {
	if secret == "" {
		return nil, ErrAdminDisabled
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid || claims.Scope != AdminScope {
		return nil, errors.New("invalid admin token claims")
	}
	return claims, nil
}
