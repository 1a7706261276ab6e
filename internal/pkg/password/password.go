// Package password wraps bcrypt credential hashing. It is pure and keeps no
// state beyond the configured cost; callers must never log the inputs.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost matches the recommended interactive-login work factor.
const DefaultCost = 12

var cost = DefaultCost

// SetCost configures the bcrypt work factor (call on startup).
func SetCost(c int) {
	if c >= bcrypt.MinCost && c <= bcrypt.MaxCost {
		cost = c
	}
}

// Hash derives a salted bcrypt hash from a plaintext password.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify checks a plaintext password against a stored hash.
func Verify(plain, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain)) == nil
}
