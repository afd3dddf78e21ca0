package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerify_OK(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	raw := signToken(t, "s3cret", jwt.MapClaims{
		"user_id": "u-42",
		"email":   "al@x.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(raw)
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != "u-42" || id.Email != "al@x.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerify_NumericUserID(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	raw := signToken(t, "s3cret", jwt.MapClaims{"user_id": 42, "email": "al@x.com"})

	id, err := v.Verify(raw)
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != "42" {
		t.Fatalf("want user id 42, got %q", id.UserID)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	raw := signToken(t, "other", jwt.MapClaims{"user_id": "u-1"})

	if _, err := v.Verify(raw); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	raw := signToken(t, "s3cret", jwt.MapClaims{
		"user_id": "u-1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := v.Verify(raw); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_MissingUserID(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	raw := signToken(t, "s3cret", jwt.MapClaims{"email": "al@x.com"})

	if _, err := v.Verify(raw); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
