package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrorInvalidCredentials = errors.New("invalid email or password")

func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

// ComparePassword returns ErrorInvalidCredentials on mismatch.
func ComparePassword(hashed string, normal string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrorInvalidCredentials
	}
	return err
}
