package util

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret, subject, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestValidateJWTRoundTrip(t *testing.T) {
	tokenString := signHS256(t, "test-secret", "user-1", "u1@example.com")

	claims, err := ValidateJWT(tokenString, "test-secret")
	if err != nil {
		t.Fatalf("ValidateJWT returned error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Email != "u1@example.com" {
		t.Fatalf("expected email u1@example.com, got %s", claims.Email)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	tokenString := signHS256(t, "test-secret", "user-1", "u1@example.com")

	if _, err := ValidateJWT(tokenString, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := ValidateJWT(signed, "test-secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateJWTGarbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.token", "test-secret"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := ValidateJWT(strings.Repeat("x", 64), "test-secret"); err == nil {
		t.Fatal("expected error for non-JWT input")
	}
}
