package auth

import (
	"crypto/subtle"
	"encoding/base64"

	"educontrol/core/utils"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

func NewSalt() (string, error) {
	return utils.RandString(saltLen)
}

// HashPassword derives an argon2id digest. The pepper comes from
// configuration and is the same for all users; the salt is per user.
func HashPassword(password, salt, pepper string) string {
	key := argon2.IDKey([]byte(password+pepper), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.RawStdEncoding.EncodeToString(key)
}

func VerifyPassword(password, salt, pepper, hash string) bool {
	candidate := HashPassword(password, salt, pepper)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}
