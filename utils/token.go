package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID     int    `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Branch string `json:"branch"`
	jwt.StandardClaims
}

// SessionID is the key of the server-side session backing the token.
func (c *JwtCustomClaim) SessionID() string {
	return c.Id
}

func getJwtSecret() []byte {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return []byte("Maestro-Secret")
	}
	return []byte(secret)
}

// JwtGenerate signs a token for a session that expires after lifespan.
func JwtGenerate(sessionID string, userID int, email, role, branch string, lifespan time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(lifespan)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:     userID,
		Email:  email,
		Role:   role,
		Branch: branch,
		StandardClaims: jwt.StandardClaims{
			Id:        sessionID,
			Subject:   email,
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  now.Unix(),
		},
	})

	token, err := t.SignedString(getJwtSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return getJwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, ErrorUnauthorized
	}
	return claims, nil
}
