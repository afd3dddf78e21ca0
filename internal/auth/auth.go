package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified caller attached to a request. Authentication
// itself happens upstream; this package only checks the token it issued.
type Identity struct {
	UserID string
	Email  string
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier turns a bearer token into a verified identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier verifies HS256 tokens carrying user_id and email claims.
func NewJWTVerifier(secret string) Verifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(raw string) (Identity, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{}
	switch uid := claims["user_id"].(type) {
	case string:
		id.UserID = uid
	case float64:
		id.UserID = fmt.Sprintf("%.0f", uid)
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if id.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
