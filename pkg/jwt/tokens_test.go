package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, expires, err := GenerateToken("user-1", "admin", "admin", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expected expiry in the future, got %s", expires)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "admin" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsWrongSecretAndExpired(t *testing.T) {
	token, _, err := GenerateToken("user-1", "admin", "admin", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other"); err == nil {
		t.Fatalf("expected signature failure")
	}
	expired, _, err := GenerateToken("user-1", "admin", "admin", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}
	if _, err := Parse(expired, "secret"); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestGenerateRequiresSecret(t *testing.T) {
	if _, _, err := GenerateToken("u", "n", "admin", "", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
