package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateToken(cfg, "ops", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops" || claims.Scope != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, "ops", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := testJWTConfig()
	other.Audience = "someone-else"
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected audience mismatch")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.TTL = -time.Minute

	token, err := GenerateToken(cfg, "ops", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestValidateRejectsOtherSigningMethod(t *testing.T) {
	cfg := testJWTConfig()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "ops"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ValidateToken(cfg, signed); err == nil {
		t.Fatal("expected unsigned token to fail")
	}
}

func TestNoSecret(t *testing.T) {
	cfg := &JWTConfig{}
	if _, err := GenerateToken(cfg, "ops", ""); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := ValidateToken(cfg, "x"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}
