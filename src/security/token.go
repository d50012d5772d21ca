package security

import (
	"golang.org/x/crypto/bcrypt"
)

// HashToken produces a bcrypt hash suitable for ADMIN_TOKEN_HASH.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken compares a presented token against the stored bcrypt hash.
func VerifyToken(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
