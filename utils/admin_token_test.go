package utils

import (
	"errors"
	"testing"
	"time"
)

func TestAdminToken_RoundTrip(t *testing.T) {
	tok, err := GenerateAdminToken("s3cret", "host", time.Minute)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	claims, err := ParseAdminToken("s3cret", tok)
	if err != nil {
		t.Fatalf("ParseAdminToken: %v", err)
	}
	if claims.Subject != "host" || claims.Scope != AdminScope {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAdminToken_Rejects(t *testing.T) {
	good, _ := GenerateAdminToken("s3cret", "host", time.Minute)
	expired, _ := GenerateAdminToken("s3cret", "host", -time.Minute)

	tests := []struct {
		name, secret, token string
	}{
		{"wrong secret", "other", good},
		{"expired", "s3cret", expired},
		{"garbage", "s3cret", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAdminToken(tt.secret, tt.token); err == nil {
				t.Fatal("token accepted")
			}
		})
	}

	if _, err := ParseAdminToken("", good); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("empty secret err = %v", err)
	}
	if _, err := GenerateAdminToken("", "host", time.Minute); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("empty secret err = %v", err)
	}
}
