package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for users.password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares plaintext with a bcrypt hash.
func VerifyPassword(plain, bcryptHash string) bool {
	if bcryptHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(plain)) == nil
}
