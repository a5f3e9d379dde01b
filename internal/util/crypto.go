package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const keyBytes = 32

// KeyHashCost is the bcrypt cost used for HUB_AUTH_KEY_HASH.
const KeyHashCost = 12

// GenerateKey returns a random hex shared secret suitable for HUB_AUTH_KEY.
func GenerateKey() (string, error) {
	bytes := make([]byte, keyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), KeyHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckKeyHash(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// NewKeyVerifier checks presented keys against a bcrypt hash when one is
// configured, otherwise against the plaintext key. Empty keys never match.
func NewKeyVerifier(plain, hash string) func(presented string) bool {
	return func(presented string) bool {
		if presented == "" {
			return false
		}
		if hash != "" {
			return CheckKeyHash(presented, hash)
		}
		return plain != "" && ConstantTimeEqual(presented, plain)
	}
}
